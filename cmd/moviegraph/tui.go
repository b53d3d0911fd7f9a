package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/John-Robertt/moviegraph/internal/app/form"
	"github.com/John-Robertt/moviegraph/internal/app/movies"
	"github.com/John-Robertt/moviegraph/internal/domain"
)

// browseService 是浏览界面用到的 service 子集（*movies.Service 实现它）。
type browseService interface {
	form.MovieWriter
	Movies(ctx context.Context) ([]domain.Movie, error)
	Search(ctx context.Context, term string) ([]domain.Movie, error)
	DeleteMovie(ctx context.Context, title string, c movies.Confirmer) (domain.DeleteInfo, error)
	Refresh()
}

type browseMode int

const (
	modeList browseMode = iota
	modeSearch
	modeForm
	modeConfirm
)

const (
	fieldTitle = iota
	fieldReleased
	fieldTagline
	fieldCount
)

// Messages.
type (
	loadedMsg struct {
		query  string
		movies []domain.Movie
		err    error
	}
	submittedMsg struct {
		form *form.MovieForm
		err  error
	}
	deletedMsg struct {
		title string
		info  domain.DeleteInfo
		err   error
	}
)

// browseModel 是 `moviegraph browse` 的 bubbletea 模型。
type browseModel struct {
	ctx context.Context
	svc browseService

	mode    browseMode
	movies  []domain.Movie
	cursor  int
	query   string
	loading  bool
	sending  bool
	deleting bool
	status   string
	failed  bool

	search  textinput.Model
	inputs  []textinput.Model
	focus   int
	mf      *form.MovieForm
	pending string
	// origTagline 是编辑前的标语，用来区分“清空”与“未填写”。
	origTagline string

	spinner spinner.Model
	width   int
	height  int
}

func newBrowseModel(ctx context.Context, svc browseService) *browseModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleRunning

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "标题或标语"
	search.CharLimit = 120

	inputs := make([]textinput.Model, fieldCount)
	for i, label := range []string{"标题", "年份", "标语"} {
		ti := textinput.New()
		ti.Prompt = fmt.Sprintf("%-4s ", label)
		ti.CharLimit = 200
		inputs[i] = ti
	}

	return &browseModel{
		ctx:     ctx,
		svc:     svc,
		spinner: s,
		search:  search,
		inputs:  inputs,
		width:   80,
		height:  24,
	}
}

func (m *browseModel) Init() tea.Cmd {
	return m.reload()
}

// reload 按当前查询重新读取（命中缓存时不发请求）。
func (m *browseModel) reload() tea.Cmd {
	m.loading = true
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m *browseModel) load() tea.Cmd {
	query := m.query
	return func() tea.Msg {
		var (
			ms  []domain.Movie
			err error
		)
		if query == "" {
			ms, err = m.svc.Movies(m.ctx)
		} else {
			ms, err = m.svc.Search(m.ctx, query)
		}
		return loadedMsg{query: query, movies: ms, err: err}
	}
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) { //nolint:ireturn // bubbletea.Model interface required by tea.Program
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		// 旧查询的结果晚到时丢弃。
		if msg.query != m.query {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.movies = msg.movies
		if m.cursor >= len(m.movies) {
			m.cursor = max(len(m.movies)-1, 0)
		}
		return m, nil

	case submittedMsg:
		return m, m.handleSubmitted(msg)

	case deletedMsg:
		m.deleting = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("已删除《%s》：nodes=%d relationships=%d", msg.title, msg.info.NodesDeleted, msg.info.RelationshipsDeleted))
		return m, m.reload()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m, m.updateSearch(msg)
		case modeForm:
			return m, m.updateForm(msg)
		case modeConfirm:
			return m, m.updateConfirm(msg)
		default:
			return m, m.updateList(msg)
		}
	}
	return m, nil
}

func (m *browseModel) updateList(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit
	case "esc":
		if m.query == "" {
			return tea.Quit
		}
		m.query = ""
		m.cursor = 0
		return m.reload()
	case "j", "down":
		if m.cursor < len(m.movies)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = max(len(m.movies)-1, 0)
	case "/":
		m.mode = modeSearch
		m.search.SetValue(m.query)
		return m.search.Focus()
	case "r":
		m.svc.Refresh()
		m.setStatus("已刷新")
		return m.reload()
	case "n":
		return m.openForm(nil)
	case "e":
		if sel, ok := m.selected(); ok {
			return m.openForm(&sel)
		}
	case "d":
		if m.deleting {
			m.setStatus("上一次删除尚未完成")
			return nil
		}
		if sel, ok := m.selected(); ok {
			m.pending = sel.Title
			m.mode = modeConfirm
		}
	}
	return nil
}

func (m *browseModel) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.search.Blur()
		m.mode = modeList
		return nil
	case "enter":
		m.search.Blur()
		m.mode = modeList
		m.query = strings.TrimSpace(m.search.Value())
		m.cursor = 0
		return m.reload()
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return cmd
}

func (m *browseModel) openForm(existing *domain.Movie) tea.Cmd {
	m.mf = form.NewMovieForm(m.svc, existing, nil)
	m.origTagline = ""
	if existing != nil {
		m.origTagline = optString(existing.Tagline)
	}
	m.fillInputs(m.mf.Input())
	m.mode = modeForm
	m.focus = fieldTitle
	if m.mf.Editing() {
		// 编辑时标题是查找键，不可修改。
		m.focus = fieldReleased
	}
	return m.focusInput()
}

func (m *browseModel) fillInputs(in domain.MovieInput) {
	released := ""
	if in.Released != nil {
		released = strconv.Itoa(*in.Released)
	}
	m.inputs[fieldTitle].SetValue(in.Title)
	m.inputs[fieldReleased].SetValue(released)
	m.inputs[fieldTagline].SetValue(optString(in.Tagline))
}

func (m *browseModel) focusInput() tea.Cmd {
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == m.focus {
			cmd = m.inputs[i].Focus()
			continue
		}
		m.inputs[i].Blur()
	}
	return cmd
}

func (m *browseModel) updateForm(msg tea.KeyMsg) tea.Cmd {
	if m.sending {
		return nil
	}
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.mf = nil
		return nil
	case "tab", "down":
		m.focus = m.nextField(1)
		return m.focusInput()
	case "shift+tab", "up":
		m.focus = m.nextField(-1)
		return m.focusInput()
	case "enter":
		return m.submit()
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return cmd
}

func (m *browseModel) nextField(step int) int {
	next := m.focus
	for range fieldCount {
		next = (next + step + fieldCount) % fieldCount
		if next == fieldTitle && m.mf.Editing() {
			continue
		}
		return next
	}
	return m.focus
}

// submit 把输入框的值写回表单后异步提交；年份不是整数时直接提示，不发请求。
func (m *browseModel) submit() tea.Cmd {
	f := m.mf
	if !f.Editing() {
		if err := f.SetTitle(m.inputs[fieldTitle].Value()); err != nil {
			m.setError(err)
			return nil
		}
	}
	raw := strings.TrimSpace(m.inputs[fieldReleased].Value())
	if raw == "" {
		f.SetReleased(nil)
	} else {
		v, err := strconv.Atoi(raw)
		if err != nil {
			m.setError(domain.Invalid("released", fmt.Sprintf("必须是整数：%q", raw)))
			return nil
		}
		f.SetReleased(&v)
	}
	// 空输入在新建时表示不设置；编辑时若原来有标语，则表示清空。
	tagline := m.inputs[fieldTagline].Value()
	if tagline != "" || (f.Editing() && m.origTagline != "") {
		f.SetTagline(&tagline)
	} else {
		f.SetTagline(nil)
	}

	m.setStatus("提交中…")
	m.sending = true
	ctx := m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return submittedMsg{form: f, err: f.Submit(ctx)}
	})
}

func (m *browseModel) handleSubmitted(msg submittedMsg) tea.Cmd {
	if msg.form != m.mf {
		return nil
	}
	m.sending = false
	if msg.err != nil {
		// 输入保留，用户可以修改后重试。
		m.setError(msg.err)
		return nil
	}
	f := msg.form
	if f.Editing() {
		if f.Closed() {
			m.mode = modeList
			m.mf = nil
		}
		m.setStatus(fmt.Sprintf("已更新 %d 条记录", len(f.Updated())))
	} else {
		created, _ := f.Created()
		m.fillInputs(f.Input())
		m.focus = fieldTitle
		m.setStatus(fmt.Sprintf("已新建《%s》，可以继续新建或按 esc 返回", created.Title))
	}
	return tea.Batch(m.focusInput(), m.reload())
}

func (m *browseModel) updateConfirm(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		title := m.pending
		m.pending = ""
		m.mode = modeList
		if m.deleting {
			return nil
		}
		m.deleting = true
		m.setStatus("删除中…")
		ctx := m.ctx
		return tea.Batch(m.spinner.Tick, func() tea.Msg {
			info, err := m.svc.DeleteMovie(ctx, title, movies.Yes)
			return deletedMsg{title: title, info: info, err: err}
		})
	case "n", "N", "esc":
		m.pending = ""
		m.mode = modeList
		m.setStatus("已取消")
	}
	return nil
}

func (m *browseModel) busy() bool {
	return m.loading || m.sending || m.deleting
}

func (m *browseModel) selected() (domain.Movie, bool) {
	if m.cursor < 0 || m.cursor >= len(m.movies) {
		return domain.Movie{}, false
	}
	return m.movies[m.cursor], true
}

func (m *browseModel) setStatus(s string) {
	m.status = s
	m.failed = false
}

func (m *browseModel) setError(err error) {
	code := domain.Code(err)
	if code == "" {
		code = domain.ErrCodeUnknown
	}
	m.status = fmt.Sprintf("%s: %v", code, err)
	m.failed = true
}

func (m *browseModel) View() string {
	var b strings.Builder

	title := "电影"
	if m.query != "" {
		title = fmt.Sprintf("搜索：%s", m.query)
	}
	b.WriteString(styleTitle.Render(title))
	if m.loading {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n\n")

	switch m.mode {
	case modeForm:
		b.WriteString(m.formView())
	default:
		b.WriteString(m.listView())
	}

	if m.mode == modeSearch {
		b.WriteString("\n" + m.search.View() + "\n")
	}
	if m.mode == modeConfirm {
		b.WriteString("\n" + styleFail.Render(fmt.Sprintf("删除《%s》（同名记录会全部删除）？[y/N]", m.pending)) + "\n")
	}

	if m.status != "" {
		st := styleDim
		if m.failed {
			st = styleFail
		}
		b.WriteString("\n" + st.Render(m.status) + "\n")
	}
	b.WriteString("\n" + styleHelp.Render(m.helpLine()))
	return b.String()
}

func (m *browseModel) listView() string {
	if len(m.movies) == 0 {
		if m.loading {
			return styleDim.Render("加载中…") + "\n"
		}
		return styleDim.Render("（没有电影）") + "\n"
	}

	rows := max(m.height-8, 3)
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(m.movies))

	var b strings.Builder
	for i := start; i < end; i++ {
		mv := m.movies[i]
		line := fmt.Sprintf("%-4s  %s", optYear(mv.Released), truncate(mv.Title, max(m.width-40, 20)))
		if tl := optString(mv.Tagline); tl != "" {
			line += "  " + styleDim.Render(truncate(tl, 30))
		}
		if i == m.cursor {
			b.WriteString(styleCursor.Render("> ") + styleSelected.Render(line) + "\n")
			continue
		}
		b.WriteString("  " + line + "\n")
	}
	if sel, ok := m.selected(); ok {
		b.WriteString("\n" + styleDim.Render(fmt.Sprintf("演员：%s  导演：%s", names(sel.PeopleActedIn), names(sel.PeopleDirected))) + "\n")
	}
	return b.String()
}

func (m *browseModel) formView() string {
	var b strings.Builder
	heading := "新建电影"
	if m.mf.Editing() {
		heading = "编辑电影（标题不可修改）"
	}
	b.WriteString(styleHeader.Render(heading) + "\n\n")
	for i := range m.inputs {
		b.WriteString(m.inputs[i].View() + "\n")
	}
	if m.sending {
		b.WriteString("\n" + m.spinner.View() + " 提交中…\n")
	}
	return b.String()
}

func (m *browseModel) helpLine() string {
	switch m.mode {
	case modeSearch:
		return "enter 搜索 · esc 取消"
	case modeForm:
		return "tab 切换字段 · enter 提交 · esc 返回"
	case modeConfirm:
		return "y 确认删除 · n 取消"
	default:
		return "j/k 移动 · / 搜索 · n 新建 · e 编辑 · d 删除 · r 刷新 · q 退出"
	}
}
