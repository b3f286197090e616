package store

import (
	"context"

	"github.com/roach88/datapreparer/internal/fixture"
)

// Loader returns a loader that inserts values as records of template and
// hands them back unchanged.
func Loader[T fixture.Fixture](s *Store, template string) fixture.Loader[T] {
	return fixture.LoaderFunc[T](func(ctx context.Context, values []T) ([]T, error) {
		erased := make([]fixture.Fixture, len(values))
		for i, v := range values {
			erased[i] = v
		}
		if _, err := s.InsertFixtures(ctx, template, erased); err != nil {
			return nil, err
		}
		return values, nil
	})
}

// Deleter returns a deleter that removes the records of values from template.
func Deleter[T fixture.Fixture](s *Store, template string) fixture.Deleter[T] {
	return fixture.DeleterFunc[T](func(ctx context.Context, values []T) error {
		ids := make([]string, len(values))
		for i, v := range values {
			ids[i] = v.FixtureID()
		}
		return s.DeleteFixtures(ctx, template, ids)
	})
}

// Template builds a template named name whose values are generated by data
// and persisted in s.
func Template[T fixture.Fixture](s *Store, name string, data func() T) *fixture.Template[T] {
	return &fixture.Template[T]{
		Name:    name,
		Data:    data,
		Loader:  Loader[T](s, name),
		Deleter: Deleter[T](s, name),
	}
}
