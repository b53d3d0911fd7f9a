package form

import (
	"context"

	"github.com/John-Robertt/moviegraph/internal/app/movies"
	"github.com/John-Robertt/moviegraph/internal/domain"
)

type PersonWriter interface {
	CreatePerson(ctx context.Context, in domain.PersonInput) (domain.Person, error)
}

// PersonForm 只支持新建。
type PersonForm struct {
	machine
	w PersonWriter

	input   domain.PersonInput
	created *domain.Person
}

func NewPersonForm(w PersonWriter, obs Observer) *PersonForm {
	return &PersonForm{machine: machine{name: "person", obs: obs, state: StateIdle}, w: w}
}

func (f *PersonForm) SetName(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input.Name = name
}

func (f *PersonForm) SetBorn(v *int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input.Born = v
}

func (f *PersonForm) Input() domain.PersonInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

func (f *PersonForm) Created() (domain.Person, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created == nil {
		return domain.Person{}, false
	}
	return *f.created, true
}

func (f *PersonForm) Submit(ctx context.Context) error {
	var created domain.Person
	return f.run(ctx, func() (func(context.Context) error, error) {
		in := f.input
		if err := movies.ValidatePerson(in); err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			var err error
			created, err = f.w.CreatePerson(ctx, in)
			return err
		}, nil
	}, func() {
		f.created = &created
		f.input = domain.PersonInput{}
	})
}
