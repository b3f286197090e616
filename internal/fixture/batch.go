package fixture

import (
	"context"
	"fmt"
)

// Batch is the materialized output of one template: the values its loader
// returned. A batch is never mutated after creation.
type Batch interface {
	// Template returns the template that produced the batch.
	Template() AnyTemplate

	// TemplateName returns the producing template's name.
	TemplateName() string

	// Values returns the loaded values.
	Values() []Fixture

	// Len returns the number of loaded values.
	Len() int

	// Requested is the count asked for by the request item.
	Requested() int

	// Generated is the number of values the data factory produced.
	Generated() int

	// Teardown passes the batch values to the template's deleter.
	Teardown(ctx context.Context) error
}

type batch[T Fixture] struct {
	template  *Template[T]
	values    []T
	requested int
	generated int
}

// NewBatch builds a batch from values without calling the template's loader.
// Requested and generated both equal len(values).
func NewBatch[T Fixture](t *Template[T], values []T) Batch {
	return &batch[T]{template: t, values: values, requested: len(values), generated: len(values)}
}

func (b *batch[T]) Template() AnyTemplate { return b.template }
func (b *batch[T]) TemplateName() string  { return b.template.TemplateName() }
func (b *batch[T]) Len() int              { return len(b.values) }
func (b *batch[T]) Requested() int        { return b.requested }
func (b *batch[T]) Generated() int        { return b.generated }

func (b *batch[T]) Values() []Fixture {
	out := make([]Fixture, len(b.values))
	for i, v := range b.values {
		out[i] = v
	}
	return out
}

// Teardown checks the template again before deleting, so a template corrupted
// between load and delete is reported instead of half-deleted.
func (b *batch[T]) Teardown(ctx context.Context) error {
	t := b.template
	if err := t.check("Deleter", t != nil && t.Deleter != nil); err != nil {
		return err
	}
	if err := t.Deleter.Delete(ctx, b.values); err != nil {
		return fmt.Errorf("delete template %q: %w", t.Name, err)
	}
	return nil
}

// BatchCollection is the ordered set of batches produced for one request.
type BatchCollection struct {
	batches   []Batch
	onRelease func(Batch)
}

// CollectionOption configures a BatchCollection.
type CollectionOption func(*BatchCollection)

// OnRelease registers a hook called after each batch is deleted.
func OnRelease(fn func(Batch)) CollectionOption {
	return func(c *BatchCollection) {
		c.onRelease = fn
	}
}

// NewBatchCollection wraps batches in request order.
func NewBatchCollection(batches []Batch, opts ...CollectionOption) *BatchCollection {
	c := &BatchCollection{batches: append([]Batch(nil), batches...)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Batches returns the batches in collection order.
func (c *BatchCollection) Batches() []Batch {
	return append([]Batch(nil), c.batches...)
}

// Len returns the number of batches.
func (c *BatchCollection) Len() int {
	return len(c.batches)
}

// Names returns the template name of each batch in collection order.
func (c *BatchCollection) Names() []string {
	names := make([]string, len(c.batches))
	for i, b := range c.batches {
		names[i] = b.TemplateName()
	}
	return names
}

// Release tears down every batch in collection order. Retrieval performed on
// the collection has no effect on what is deleted.
//
// The first failing deleter aborts the remaining deletions; earlier deletions
// are not rolled back. Each call is a new release event and invokes the
// deleters again.
func (c *BatchCollection) Release(ctx context.Context) error {
	return Teardown(ctx, c.batches, c.onRelease)
}

// Teardown invokes each batch's deleter with that batch's values, in order,
// stopping at the first error. after, if non-nil, runs after each successful
// deletion.
func Teardown(ctx context.Context, batches []Batch, after func(Batch)) error {
	for _, b := range batches {
		if err := b.Teardown(ctx); err != nil {
			return err
		}
		if after != nil {
			after(b)
		}
	}
	return nil
}

// Get returns the values stored under name that are of type T, in collection
// order. The name filter runs first and the type filter second, so a template
// holding mixed value types only yields the values assignable to T.
func Get[T Fixture](c *BatchCollection, name string) []T {
	var out []T
	if c == nil {
		return out
	}
	for _, b := range c.batches {
		if b.TemplateName() != name {
			continue
		}
		for _, v := range b.Values() {
			if typed, ok := v.(T); ok {
				out = append(out, typed)
			}
		}
	}
	return out
}
