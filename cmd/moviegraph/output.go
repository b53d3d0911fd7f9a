package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	jsoniter "github.com/json-iterator/go"
	"github.com/mattn/go-isatty"

	"github.com/John-Robertt/moviegraph/internal/domain"
	"github.com/John-Robertt/moviegraph/internal/seed"
)

// codec 与 transport 使用同一套 jsoniter 配置，输出字段顺序与 encoding/json 一致。
var codec = jsoniter.ConfigCompatibleWithStandardLibrary

func isTTY(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// emit 输出一次命令结果。
//
// 约束（与进度输出解耦）：
// - stdout 非 TTY：stdout 必须且仅输出一个 Result JSON；摘要走 stderr
// - stdout 是 TTY：表格/摘要写 stdout，失败写 stderr（"<code>: <message>"）
func (a *app) emit(res domain.Result) {
	if !a.stdoutTTY {
		b, err := codec.Marshal(res)
		if err != nil {
			fmt.Fprintf(a.stderr, "编码结果失败：%v\n", err)
			return
		}
		_, _ = a.stdout.Write(append(b, '\n'))
		fmt.Fprintln(a.stderr, summaryLine(res))
		return
	}

	if res.Status == domain.StatusFailed {
		fmt.Fprintf(a.stderr, "%s %s: %s\n", styleFail.Render("FAIL"), res.ErrorCode, res.ErrorMsg)
		return
	}
	if body := render(res.Data); body != "" {
		fmt.Fprintln(a.stdout, body)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(a.stderr, "%s %s\n", styleFail.Render("WARN"), w)
	}
	fmt.Fprintln(a.stdout, styleOK.Render("OK")+" "+styleDim.Render(summaryLine(res)))
}

func summaryLine(res domain.Result) string {
	dur := res.FinishedAt.Sub(res.StartedAt)
	if res.Status == domain.StatusFailed {
		return fmt.Sprintf("完成：%s failed %s (%s)", res.Operation, res.ErrorCode, formatShortDuration(dur))
	}
	return fmt.Sprintf("完成：%s ok count=%d (%s)", res.Operation, res.Count, formatShortDuration(dur))
}

func render(data any) string {
	switch v := data.(type) {
	case []domain.Movie:
		return movieTable(v)
	case domain.Movie:
		return movieTable([]domain.Movie{v})
	case []domain.Person:
		return personTable(v)
	case domain.Person:
		return personTable([]domain.Person{v})
	case domain.DeleteInfo:
		return fmt.Sprintf("nodesDeleted=%d relationshipsDeleted=%d", v.NodesDeleted, v.RelationshipsDeleted)
	case seed.Counters:
		return fmt.Sprintf("nodes_created=%d relationships_created=%d properties_set=%d",
			v.NodesCreated, v.RelationshipsCreated, v.PropertiesSet)
	case map[string]any:
		keys := sortedKeys(v)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("%s: %v", k, v[k]))
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		})
}

func movieTable(ms []domain.Movie) string {
	if len(ms) == 0 {
		return styleDim.Render("（没有电影）")
	}
	t := newTable().Headers("标题", "年份", "标语", "演员", "导演")
	for _, m := range ms {
		t.Row(m.Title, optYear(m.Released), truncate(optString(m.Tagline), 40), names(m.PeopleActedIn), names(m.PeopleDirected))
	}
	return t.Render()
}

func personTable(ps []domain.Person) string {
	if len(ps) == 0 {
		return styleDim.Render("（没有人物）")
	}
	t := newTable().Headers("姓名", "出生")
	for _, p := range ps {
		t.Row(p.Name, optYear(p.Born))
	}
	return t.Render()
}

func names(ps []domain.Person) string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return truncate(strings.Join(out, ", "), 48)
}

func optYear(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func optString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
