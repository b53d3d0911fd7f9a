package form

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/moviegraph/internal/domain"
)

type transition struct {
	From, To State
	Failed   bool
}

type recorder struct {
	mu  sync.Mutex
	got []transition
}

func (r *recorder) OnTransition(_ string, from, to State, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, transition{From: from, To: to, Failed: err != nil})
}

func (r *recorder) all() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transition(nil), r.got...)
}

type fakeWriter struct {
	mu      sync.Mutex
	calls   int
	err     error
	block   chan struct{}
	entered chan struct{}
	lastIn  domain.MovieInput
}

func (w *fakeWriter) record(in domain.MovieInput) error {
	w.mu.Lock()
	w.calls++
	w.lastIn = in
	block, entered, err := w.block, w.entered, w.err
	w.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if block != nil {
		<-block
	}
	return err
}

func (w *fakeWriter) CreateMovie(_ context.Context, in domain.MovieInput) (domain.Movie, error) {
	if err := w.record(in); err != nil {
		return domain.Movie{}, err
	}
	return domain.Movie{Title: in.Title, Released: in.Released, Tagline: in.Tagline}, nil
}

func (w *fakeWriter) UpdateMovie(_ context.Context, in domain.MovieInput) ([]domain.Movie, error) {
	if err := w.record(in); err != nil {
		return nil, err
	}
	return []domain.Movie{{Title: in.Title, Released: in.Released, Tagline: in.Tagline}}, nil
}

func (w *fakeWriter) CreatePerson(_ context.Context, in domain.PersonInput) (domain.Person, error) {
	if err := w.record(domain.MovieInput{Title: in.Name}); err != nil {
		return domain.Person{}, err
	}
	return domain.Person{Name: in.Name, Born: in.Born}, nil
}

var successPath = []transition{
	{From: StateIdle, To: StateSubmitting},
	{From: StateSubmitting, To: StateSuccess},
	{From: StateSuccess, To: StateIdle},
}

func TestResolve(t *testing.T) {
	existing := &domain.Movie{Title: "Arrival", Released: domain.IntPtr(2016)}

	sub, err := Resolve(nil, domain.MovieInput{Title: "Arrival"})
	require.NoError(t, err)
	require.Equal(t, Create{Fields: domain.MovieInput{Title: "Arrival"}}, sub)

	sub, err = Resolve(existing, domain.MovieInput{Tagline: domain.StringPtr("Take your time.")})
	require.NoError(t, err)
	upd, ok := sub.(Update)
	require.True(t, ok)
	require.Equal(t, "Arrival", upd.Key)
	require.Equal(t, "Arrival", upd.Fields.Title)

	_, err = Resolve(existing, domain.MovieInput{Title: "Arrival 2"})
	require.Equal(t, domain.ErrCodeInvalidInput, domain.Code(err))
}

func TestMovieForm_CreateSuccessClearsInput(t *testing.T) {
	w := &fakeWriter{}
	rec := &recorder{}
	f := NewMovieForm(w, nil, rec)
	require.NoError(t, f.SetTitle("Arrival"))
	f.SetReleased(domain.IntPtr(2016))
	f.SetTagline(domain.StringPtr("Why are they here?"))

	require.NoError(t, f.Submit(context.Background()))
	if diff := cmp.Diff(successPath, rec.all()); diff != "" {
		t.Fatalf("状态迁移不符合预期（-want +got）：\n%s", diff)
	}
	require.Equal(t, StateIdle, f.State())
	require.Equal(t, domain.MovieInput{}, f.Input())
	require.False(t, f.Closed())
	require.NoError(t, f.Err())

	created, ok := f.Created()
	require.True(t, ok)
	require.Equal(t, "Arrival", created.Title)
}

func TestMovieForm_UpdateSuccessCloses(t *testing.T) {
	w := &fakeWriter{}
	existing := &domain.Movie{Title: "Arrival", Released: domain.IntPtr(2016), Tagline: domain.StringPtr("Why are they here?")}
	f := NewMovieForm(w, existing, nil)
	require.True(t, f.Editing())
	require.Equal(t, "Arrival", f.Input().Title)

	f.SetTagline(domain.StringPtr("Take your time."))
	require.NoError(t, f.Submit(context.Background()))
	require.True(t, f.Closed())
	require.Equal(t, "Arrival", w.lastIn.Title)
	require.Equal(t, "Take your time.", *w.lastIn.Tagline)
	require.Len(t, f.Updated(), 1)
}

func TestMovieForm_TitleImmutableWhileEditing(t *testing.T) {
	f := NewMovieForm(&fakeWriter{}, &domain.Movie{Title: "Arrival"}, nil)
	err := f.SetTitle("Arrival (2016)")
	require.Equal(t, domain.ErrCodeInvalidInput, domain.Code(err))
	require.Equal(t, "Arrival", f.Input().Title)
	require.NoError(t, f.SetTitle("Arrival"))
}

func TestMovieForm_ErrorKeepsInput(t *testing.T) {
	boom := errors.New("network down")
	w := &fakeWriter{err: boom}
	rec := &recorder{}
	f := NewMovieForm(w, nil, rec)
	require.NoError(t, f.SetTitle("Arrival"))

	err := f.Submit(context.Background())
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, f.Err(), boom)
	require.Equal(t, "Arrival", f.Input().Title)
	require.Equal(t, StateIdle, f.State())

	want := []transition{
		{From: StateIdle, To: StateSubmitting},
		{From: StateSubmitting, To: StateError, Failed: true},
		{From: StateError, To: StateIdle, Failed: true},
	}
	if diff := cmp.Diff(want, rec.all()); diff != "" {
		t.Fatalf("状态迁移不符合预期（-want +got）：\n%s", diff)
	}

	// 修复后重试成功，错误被清除。
	w.mu.Lock()
	w.err = nil
	w.mu.Unlock()
	require.NoError(t, f.Submit(context.Background()))
	require.NoError(t, f.Err())
}

func TestMovieForm_ValidationShortCircuits(t *testing.T) {
	w := &fakeWriter{}
	rec := &recorder{}
	f := NewMovieForm(w, nil, rec)
	f.SetReleased(domain.IntPtr(2016))

	err := f.Submit(context.Background())
	require.Equal(t, domain.ErrCodeInvalidInput, domain.Code(err))
	require.Equal(t, 0, w.calls)

	want := []transition{
		{From: StateIdle, To: StateError, Failed: true},
		{From: StateError, To: StateIdle, Failed: true},
	}
	require.Equal(t, want, rec.all())

	require.NoError(t, f.SetTitle("Old"))
	f.SetReleased(domain.IntPtr(1700))
	err = f.Submit(context.Background())
	require.Equal(t, domain.ErrCodeInvalidInput, domain.Code(err))
	require.Equal(t, 0, w.calls)
}

func TestMovieForm_BusyWhileSubmitting(t *testing.T) {
	w := &fakeWriter{block: make(chan struct{}), entered: make(chan struct{})}
	f := NewMovieForm(w, nil, nil)
	require.NoError(t, f.SetTitle("Arrival"))

	done := make(chan error, 1)
	go func() { done <- f.Submit(context.Background()) }()
	<-w.entered

	require.Equal(t, StateSubmitting, f.State())
	err := f.Submit(context.Background())
	require.Equal(t, domain.ErrCodeBusy, domain.Code(err))

	close(w.block)
	require.NoError(t, <-done)
	require.Equal(t, 1, w.calls)
}

func TestPersonForm_CreateClearsInput(t *testing.T) {
	w := &fakeWriter{}
	rec := &recorder{}
	f := NewPersonForm(w, rec)

	err := f.Submit(context.Background())
	require.Equal(t, domain.ErrCodeInvalidInput, domain.Code(err))

	f.SetName("Amy Adams")
	f.SetBorn(domain.IntPtr(1974))
	require.NoError(t, f.Submit(context.Background()))
	require.Equal(t, domain.PersonInput{}, f.Input())

	p, ok := f.Created()
	require.True(t, ok)
	require.Equal(t, "Amy Adams", p.Name)
	require.Equal(t, successPath, rec.all()[2:])
}
