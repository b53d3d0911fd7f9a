package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/moviegraph/internal/app/form"
	"github.com/John-Robertt/moviegraph/internal/config"
	"github.com/John-Robertt/moviegraph/internal/domain"
)

var _ form.Observer = (*progressUI)(nil)

// progressUI 把表单状态迁移打印到 stderr。
//
// - 只在 stderr 是 TTY 时启用，不污染 stdout 的 JSON 输出契约
// - 事件驱动：form 层只发事件，CLI 决定如何展示
type progressUI struct {
	w   io.Writer
	now func() time.Time

	mu      sync.Mutex
	started map[string]time.Time
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w, now: time.Now, started: map[string]time.Time{}}
}

// OnStart 打印一次生效配置（api key 只显示是否配置）。
func (p *progressUI) OnStart(op string, eff config.EffectiveConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "[%s] moviegraph %s\n", p.now().Format("15:04:05"), op)
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.Source != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.Source)
	}
	fmt.Fprintf(p.w, "  endpoint: %s\n", truncate(eff.Endpoint, 120))
	fmt.Fprintf(p.w, "  api_key: %s (header=%s)\n", onOff(eff.APIKey != ""), eff.APIKeyHeader)
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	fmt.Fprintf(p.w, "  cache: stale=%s gc=%s retry=%d\n", eff.Cache.StaleTime, eff.Cache.GCTime, eff.Cache.ReadRetry)
}

func (p *progressUI) OnTransition(name string, from, to form.State, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	ts := now.Format("15:04:05")
	switch to {
	case form.StateSubmitting:
		p.started[name] = now
		fmt.Fprintf(p.w, "[%s] %s 提交中…\n", ts, name)
	case form.StateSuccess:
		fmt.Fprintf(p.w, "[%s] %s %s (%s)\n", ts, name, styleOK.Render("成功"), p.elapsedLocked(name, now))
	case form.StateError:
		code := domain.Code(err)
		if code == "" {
			code = domain.ErrCodeUnknown
		}
		fmt.Fprintf(p.w, "[%s] %s %s %s (%s)\n", ts, name, styleFail.Render("失败"), code, p.elapsedLocked(name, now))
	case form.StateIdle:
		// 回到 idle 不单独成行；只有从 error 回来时说明输入已保留。
		if from == form.StateError {
			fmt.Fprintf(p.w, "[%s] %s %s\n", ts, name, styleDim.Render("输入已保留，可修改后重试"))
		}
		delete(p.started, name)
	}
}

func (p *progressUI) elapsedLocked(name string, now time.Time) string {
	t, ok := p.started[name]
	if !ok {
		return formatShortDuration(0)
	}
	return formatShortDuration(now.Sub(t))
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}
