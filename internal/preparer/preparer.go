// Package preparer turns validated fixture requests into batch collections.
//
// A Preparer resolves each request item against a catalog, provisions the
// template and collects the resulting batches in request order. Items naming
// an unknown template are skipped. A Manager adds the per-scope memoization
// used by test adapters.
package preparer

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/datapreparer/internal/catalog"
	"github.com/roach88/datapreparer/internal/fixture"
)

// TracerName is the instrumentation name of the preparer's spans.
const TracerName = "datapreparer/preparer"

// Span attribute keys.
const (
	AttrItems     = "fixture.items"
	AttrBatches   = "fixture.batches"
	AttrTemplate  = "fixture.template"
	AttrRequested = "fixture.requested"
	AttrGenerated = "fixture.generated"
	AttrLoaded    = "fixture.loaded"
)

// Observer receives provisioning events. Methods are called synchronously on
// the provisioning goroutine.
type Observer interface {
	// Provisioned is called after a batch has been loaded.
	Provisioned(b fixture.Batch)

	// Skipped is called for a request item whose template is unknown.
	Skipped(name string)

	// Released is called after a batch has been deleted.
	Released(b fixture.Batch)
}

// Preparer provisions fixture requests against a catalog.
//
// Thread-safety: Prepare may be called concurrently; all state is read-only.
type Preparer struct {
	catalog  *catalog.Catalog
	logger   *slog.Logger
	tracer   trace.Tracer
	observer Observer
	strict   bool
}

// Option configures a Preparer.
type Option func(*Preparer)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Preparer) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTracer sets the tracer. The default comes from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(p *Preparer) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithObserver registers an observer for provisioning and release events.
func WithObserver(o Observer) Option {
	return func(p *Preparer) {
		p.observer = o
	}
}

// WithStrictLookup makes an unknown template name an INVALID_ARGUMENT error
// instead of a skipped item.
func WithStrictLookup() Option {
	return func(p *Preparer) {
		p.strict = true
	}
}

// New creates a Preparer over c. A nil catalog behaves as an empty one.
func New(c *catalog.Catalog, opts ...Option) *Preparer {
	if c == nil {
		c, _ = catalog.New(nil)
	}
	p := &Preparer{
		catalog: c,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prepare validates items and provisions them in request order.
//
// The whole request is validated before anything is resolved or generated.
// Each item is then resolved, generated and loaded before the next one
// starts. The first failure aborts the call and no collection is returned;
// batches already loaded stay loaded. Panics raised by factories or loaders
// propagate to the caller.
func (p *Preparer) Prepare(ctx context.Context, items []fixture.Item) (*fixture.BatchCollection, error) {
	ctx, span := p.tracer.Start(ctx, "fixture.prepare",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int(AttrItems, len(items))),
	)
	defer span.End()

	collection, err := p.prepare(ctx, items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int(AttrBatches, collection.Len()))
	span.SetStatus(codes.Ok, "")
	return collection, nil
}

func (p *Preparer) prepare(ctx context.Context, items []fixture.Item) (*fixture.BatchCollection, error) {
	if err := fixture.Validate(items); err != nil {
		return nil, err
	}

	batches := make([]fixture.Batch, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tmpl, ok, err := p.catalog.Lookup(item.Template)
		if err != nil {
			return nil, err
		}
		if !ok {
			if p.strict {
				return nil, fixture.InvalidArgument("no template named %q", item.Template)
			}
			p.logger.Debug("skipping unknown template",
				slog.String("template", item.Template),
				slog.Int("count", item.Count))
			if p.observer != nil {
				p.observer.Skipped(item.Template)
			}
			continue
		}

		b, err := p.provision(ctx, tmpl, item.Count)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}

	var opts []fixture.CollectionOption
	if p.observer != nil {
		opts = append(opts, fixture.OnRelease(p.observer.Released))
	}
	return fixture.NewBatchCollection(batches, opts...), nil
}

func (p *Preparer) provision(ctx context.Context, tmpl fixture.AnyTemplate, count int) (fixture.Batch, error) {
	name := tmpl.TemplateName()
	ctx, span := p.tracer.Start(ctx, "fixture.provision",
		trace.WithAttributes(
			attribute.String(AttrTemplate, name),
			attribute.Int(AttrRequested, count),
		),
	)
	defer span.End()

	b, err := tmpl.Provision(ctx, count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int(AttrGenerated, b.Generated()),
		attribute.Int(AttrLoaded, b.Len()),
	)
	p.logger.Debug("batch provisioned",
		slog.String("template", name),
		slog.Int("requested", count),
		slog.Int("generated", b.Generated()),
		slog.Int("loaded", b.Len()))
	if p.observer != nil {
		p.observer.Provisioned(b)
	}
	return b, nil
}

// Release tears down c inside a span. A nil collection is a no-op.
func (p *Preparer) Release(ctx context.Context, c *fixture.BatchCollection) error {
	if c == nil {
		return nil
	}
	ctx, span := p.tracer.Start(ctx, "fixture.release",
		trace.WithAttributes(attribute.Int(AttrBatches, c.Len())),
	)
	defer span.End()

	if err := c.Release(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Warn("fixture release failed", slog.String("error", err.Error()))
		return err
	}
	span.SetStatus(codes.Ok, "")
	p.logger.Debug("fixtures released", slog.Int("batches", c.Len()))
	return nil
}
