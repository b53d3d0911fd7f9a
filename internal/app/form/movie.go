package form

import (
	"context"

	"github.com/John-Robertt/moviegraph/internal/app/movies"
	"github.com/John-Robertt/moviegraph/internal/domain"
)

// MovieWriter 是 MovieForm 需要的写操作（*movies.Service 实现它）。
type MovieWriter interface {
	CreateMovie(ctx context.Context, in domain.MovieInput) (domain.Movie, error)
	UpdateMovie(ctx context.Context, in domain.MovieInput) ([]domain.Movie, error)
}

// MovieForm 在新建与编辑之间复用：existing 为 nil 时新建，否则编辑。
type MovieForm struct {
	machine
	w        MovieWriter
	existing *domain.Movie

	input   domain.MovieInput
	closed  bool
	created *domain.Movie
	updated []domain.Movie
}

func NewMovieForm(w MovieWriter, existing *domain.Movie, obs Observer) *MovieForm {
	f := &MovieForm{machine: machine{name: "movie", obs: obs, state: StateIdle}, w: w}
	if existing != nil {
		cp := *existing
		f.existing = &cp
		f.input = domain.MovieInput{Title: cp.Title, Released: cp.Released, Tagline: cp.Tagline}
		f.name = "movie:" + cp.Title
	}
	return f
}

func (f *MovieForm) Editing() bool { return f.existing != nil }

// SetTitle 只在新建时可用；编辑时标题是查找键，修改会返回 invalid_input。
func (f *MovieForm) SetTitle(title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existing != nil && title != f.existing.Title {
		return domain.Invalid("title", "编辑时不能修改标题（标题是查找键）")
	}
	f.input.Title = title
	return nil
}

func (f *MovieForm) SetReleased(v *int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input.Released = v
}

func (f *MovieForm) SetTagline(v *string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input.Tagline = v
}

func (f *MovieForm) Input() domain.MovieInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

// Closed 表示编辑表单已成功提交，视图应关闭。
func (f *MovieForm) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Created 返回最近一次成功新建的电影。
func (f *MovieForm) Created() (domain.Movie, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created == nil {
		return domain.Movie{}, false
	}
	return *f.created, true
}

// Updated 返回最近一次编辑命中的全部记录（同名电影可能不止一条）。
func (f *MovieForm) Updated() []domain.Movie {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updated
}

func (f *MovieForm) Submit(ctx context.Context) error {
	var (
		created domain.Movie
		updated []domain.Movie
		isNew   bool
	)
	return f.run(ctx, func() (func(context.Context) error, error) {
		sub, err := Resolve(f.existing, f.input)
		if err != nil {
			return nil, err
		}
		switch s := sub.(type) {
		case Create:
			if err := movies.ValidateMovie(s.Fields); err != nil {
				return nil, err
			}
			isNew = true
			return func(ctx context.Context) error {
				var err error
				created, err = f.w.CreateMovie(ctx, s.Fields)
				return err
			}, nil
		case Update:
			if err := movies.ValidateMovie(s.Fields); err != nil {
				return nil, err
			}
			return func(ctx context.Context) error {
				var err error
				updated, err = f.w.UpdateMovie(ctx, s.Fields)
				return err
			}, nil
		default:
			return nil, domain.Invalid("", "未知的提交类型")
		}
	}, func() {
		if isNew {
			f.created = &created
			f.input = domain.MovieInput{}
			return
		}
		f.updated = updated
		f.closed = true
	})
}
