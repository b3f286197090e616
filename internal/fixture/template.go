package fixture

import (
	"context"
	"fmt"
	"reflect"
)

// Fixture is the capability every fixture value implements.
// FixtureID identifies a value to deleters, logs and traces.
type Fixture interface {
	FixtureID() string
}

// Loader persists generated values and returns what was actually stored.
// The result may differ from the input in length and content.
type Loader[T Fixture] interface {
	Load(ctx context.Context, values []T) ([]T, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc[T Fixture] func(ctx context.Context, values []T) ([]T, error)

// Load calls f.
func (f LoaderFunc[T]) Load(ctx context.Context, values []T) ([]T, error) {
	return f(ctx, values)
}

// Deleter removes previously loaded values.
type Deleter[T Fixture] interface {
	Delete(ctx context.Context, values []T) error
}

// DeleterFunc adapts a function to the Deleter interface.
type DeleterFunc[T Fixture] func(ctx context.Context, values []T) error

// Delete calls f.
func (f DeleterFunc[T]) Delete(ctx context.Context, values []T) error {
	return f(ctx, values)
}

// Template is the named recipe for one kind of fixture.
//
// Data is called once per requested value and may decline by returning a nil
// value. Loader receives all generated values in a single call. Deleter
// receives exactly the values the loader returned.
type Template[T Fixture] struct {
	Name    string
	Data    func() T
	Loader  Loader[T]
	Deleter Deleter[T]
}

// AnyTemplate is the type-erased view of a *Template[T].
type AnyTemplate interface {
	// TemplateName returns the template's name.
	TemplateName() string

	// Provision generates count values, loads them and returns the batch.
	Provision(ctx context.Context, count int) (Batch, error)

	sealed()
}

// Registry supplies templates to a catalog.
type Registry interface {
	Templates() []AnyTemplate
}

// RegistryFunc adapts a function to the Registry interface.
type RegistryFunc func() []AnyTemplate

// Templates calls f.
func (f RegistryFunc) Templates() []AnyTemplate {
	return f()
}

// TemplateName implements AnyTemplate.
func (t *Template[T]) TemplateName() string {
	if t == nil {
		return ""
	}
	return t.Name
}

func (t *Template[T]) sealed() {}

// Provision implements AnyTemplate.
//
// It checks that Data and Loader are present, calls Data count times, drops
// nil results and hands the rest to the loader in one call. The loader's
// output becomes the batch values without further checks.
func (t *Template[T]) Provision(ctx context.Context, count int) (Batch, error) {
	if err := t.check("Loader", t != nil && t.Loader != nil); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, invalidArgument(-1, t.Name, "count cannot be 0 or negative, got %d", count)
	}

	generated := make([]T, 0, count)
	for i := 0; i < count; i++ {
		v := t.Data()
		if isAbsent(v) {
			continue
		}
		generated = append(generated, v)
	}

	loaded, err := t.Loader.Load(ctx, generated)
	if err != nil {
		return nil, fmt.Errorf("load template %q: %w", t.Name, err)
	}

	return &batch[T]{
		template:  t,
		values:    loaded,
		requested: count,
		generated: len(generated),
	}, nil
}

// check asserts the template, its name, its data factory and the named
// component are all present.
func (t *Template[T]) check(component string, present bool) error {
	if t == nil {
		return invalidState("", "fixture template cannot be nil")
	}
	if t.Name == "" {
		return invalidState("", "template name cannot be empty")
	}
	if t.Data == nil {
		return invalidState(t.Name, "the data factory cannot be nil in template named %s", t.Name)
	}
	if !present {
		return invalidState(t.Name, "%s cannot be nil in template named %s", component, t.Name)
	}
	return nil
}

// isAbsent reports whether a generated value is nil, including typed nil
// pointers, maps, slices and interfaces.
func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
