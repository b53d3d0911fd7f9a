package main

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/moviegraph/internal/app/movies"
	"github.com/John-Robertt/moviegraph/internal/catalog"
	"github.com/John-Robertt/moviegraph/internal/graphql"
	"github.com/John-Robertt/moviegraph/internal/querycache"
	"github.com/John-Robertt/moviegraph/internal/testutil/fakegraph"
)

func newTestBrowse(t *testing.T) (*browseModel, *fakegraph.Server) {
	t.Helper()
	srv := fakegraph.New()
	t.Cleanup(srv.Close)
	client, err := graphql.New(graphql.Options{Endpoint: srv.URL, APIKey: "k"}, nil, nil)
	require.NoError(t, err)
	store, err := querycache.New(querycache.Options{StaleTime: time.Minute, GCTime: time.Minute})
	require.NoError(t, err)
	t.Cleanup(store.Close)
	svc := movies.New(client, catalog.StandardRegistry(), store, nil)
	return newBrowseModel(context.Background(), svc), srv
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loadNow 同步执行一次读取并交给 Update（不跑 spinner/光标闪烁这些定时命令）。
func loadNow(m *browseModel) {
	m.Update(m.load()())
}

func TestBrowse_ListAndCursor(t *testing.T) {
	m, srv := newTestBrowse(t)
	srv.AddMovie("Speed", 1994, "")
	srv.AddMovie("The Matrix", 1999, "")

	m.loading = true
	loadNow(m)
	require.False(t, m.loading)
	require.Len(t, m.movies, 2)
	require.Equal(t, "Speed", m.movies[0].Title)

	m.Update(keys("j"))
	sel, ok := m.selected()
	require.True(t, ok)
	require.Equal(t, "The Matrix", sel.Title)

	m.Update(keys("j"))
	require.Equal(t, 1, m.cursor, "光标不越界")
	require.Contains(t, m.View(), "The Matrix")
}

func TestBrowse_SearchThenEscClears(t *testing.T) {
	m, srv := newTestBrowse(t)
	srv.AddMovie("Speed", 1994, "")
	srv.AddMovie("The Matrix", 1999, "")
	loadNow(m)

	m.Update(keys("/"))
	require.Equal(t, modeSearch, m.mode)
	m.Update(keys("matrix"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, modeList, m.mode)
	require.Equal(t, "matrix", m.query)
	loadNow(m)
	require.Len(t, m.movies, 1)
	require.Equal(t, 1, srv.Count(catalog.SearchAll))

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, "", m.query)
	loadNow(m)
	require.Len(t, m.movies, 2)
}

func TestBrowse_StaleLoadDropped(t *testing.T) {
	m, srv := newTestBrowse(t)
	srv.AddMovie("Speed", 1994, "")

	msg := m.load()()
	m.query = "other"
	m.Update(msg)
	require.Empty(t, m.movies)
}

func TestBrowse_SubmitSuccessAndError(t *testing.T) {
	m, srv := newTestBrowse(t)
	loadNow(m)

	m.Update(keys("n"))
	m.Update(keys("Arrival"))
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.Update(keys("2016"))
	m.submitNow(t)

	require.False(t, m.sending)
	require.False(t, m.failed, m.status)
	require.Equal(t, modeForm, m.mode, "新建成功后表单保持打开")
	require.Equal(t, "", m.inputs[fieldTitle].Value())
	require.Equal(t, 1, srv.Count(catalog.CreateMovie))

	m.Update(keys("Bad"))
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.Update(keys("1200"))
	m.submitNow(t)
	require.True(t, m.failed)
	require.Contains(t, m.status, "invalid_input")
	require.Equal(t, "Bad", m.inputs[fieldTitle].Value(), "失败时保留输入")
	require.Equal(t, 1, srv.Count(catalog.CreateMovie))
}

func TestBrowse_EditClosesOnSuccess(t *testing.T) {
	m, srv := newTestBrowse(t)
	srv.AddMovie("Arrival", 2016, "")
	loadNow(m)

	m.Update(keys("e"))
	require.Equal(t, modeForm, m.mode)
	require.Equal(t, fieldReleased, m.focus, "编辑时跳过标题")
	require.Equal(t, "2016", m.inputs[fieldReleased].Value())

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, fieldTagline, m.focus)
	m.Update(keys("Why are they here?"))
	m.submitNow(t)

	require.Equal(t, modeList, m.mode)
	require.Contains(t, m.status, "已更新 1 条记录")
	loadNow(m)
	require.Equal(t, "Why are they here?", *m.movies[0].Tagline)
}

func TestBrowse_DeleteConfirm(t *testing.T) {
	m, srv := newTestBrowse(t)
	srv.AddMovie("Arrival", 2016, "")
	loadNow(m)

	m.Update(keys("d"))
	require.Equal(t, modeConfirm, m.mode)
	m.Update(keys("n"))
	require.Equal(t, modeList, m.mode)
	require.Equal(t, 0, srv.Count(catalog.DeleteMovie))

	m.Update(keys("d"))
	_, cmd := m.Update(keys("y"))
	require.NotNil(t, cmd)
	deliver(m, cmd)
	require.Contains(t, m.status, "已删除《Arrival》")
	loadNow(m)
	require.Empty(t, m.movies)
}

func TestBrowse_DeleteInFlightIgnoresRepeat(t *testing.T) {
	m, srv := newTestBrowse(t)
	srv.AddMovie("Arrival", 2016, "")
	srv.AddMovie("Heat", 1995, "")
	loadNow(m)

	m.Update(keys("d"))
	_, first := m.Update(keys("y"))
	require.NotNil(t, first)
	require.True(t, m.busy())

	m.Update(keys("d"))
	require.Equal(t, modeList, m.mode, "删除未完成时不再进入确认")
	_, second := m.Update(keys("y"))
	require.Nil(t, second)

	deliver(m, first)
	require.False(t, m.deleting)
	require.Equal(t, 1, srv.Count(catalog.DeleteMovie))
}

func TestBrowse_EditClearsTagline(t *testing.T) {
	m, srv := newTestBrowse(t)
	srv.AddMovie("Arrival", 2016, "Why are they here?")
	srv.AddMovie("Heat", 1995, "")
	loadNow(m)

	m.Update(keys("j"))
	m.Update(keys("e"))
	require.Equal(t, "Why are they here?", m.inputs[fieldTagline].Value())
	m.inputs[fieldTagline].SetValue("")
	m.submitNow(t)
	require.False(t, m.failed, m.status)

	loadNow(m)
	require.Equal(t, "Heat", m.movies[0].Title)
	require.Equal(t, "", optString(m.movies[1].Tagline), "清空的标语应写回服务端")

	// 原本没有标语时，空输入不会写入空串。
	m.cursor = 0
	m.Update(keys("e"))
	m.submitNow(t)
	loadNow(m)
	require.Nil(t, m.movies[0].Tagline)
}

func TestBrowse_ReloadRefetches(t *testing.T) {
	m, srv := newTestBrowse(t)
	loadNow(m)
	loadNow(m)
	require.Equal(t, 1, srv.Count(catalog.GetMovies))

	m.Update(keys("r"))
	loadNow(m)
	require.Equal(t, 2, srv.Count(catalog.GetMovies))
}

func TestBrowse_Quit(t *testing.T) {
	m, _ := newTestBrowse(t)
	_, cmd := m.Update(keys("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok)
}

// submitNow 按 enter 并同步执行提交命令，把 submittedMsg 交给 Update。
func (m *browseModel) submitNow(t *testing.T) {
	t.Helper()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		return
	}
	for _, msg := range collect(cmd) {
		if sm, ok := msg.(submittedMsg); ok {
			m.Update(sm)
		}
	}
}

// deliver 执行 cmd，把其中的 deletedMsg 交给 Update。
func deliver(m *browseModel, cmd tea.Cmd) {
	for _, msg := range collect(cmd) {
		if dm, ok := msg.(deletedMsg); ok {
			m.Update(dm)
		}
	}
}

// collect 执行 cmd（展开 tea.Batch），只收集会立即返回的消息。
func collect(cmd tea.Cmd) []tea.Msg {
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		if c != nil {
			out = append(out, collect(c)...)
		}
	}
	return out
}
