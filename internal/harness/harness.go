package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/datapreparer/internal/catalog"
	"github.com/roach88/datapreparer/internal/fixture"
	"github.com/roach88/datapreparer/internal/logging"
	"github.com/roach88/datapreparer/internal/manifest"
	"github.com/roach88/datapreparer/internal/preparer"
	"github.com/roach88/datapreparer/internal/sample"
	"github.com/roach88/datapreparer/internal/store"
	"github.com/roach88/datapreparer/internal/testutil"
)

// Result is the outcome of running a manifest.
type Result struct {
	// Name is the manifest name.
	Name string `json:"name"`

	// Pass is true when every check held.
	Pass bool `json:"pass"`

	// Events lists provision, skip and release events in order.
	Events []Event `json:"events"`

	// Remaining counts fixtures provisioned by the run that are still stored.
	Remaining int `json:"remaining"`

	// Kept is true when the run skipped release.
	Kept bool `json:"kept"`

	// Errors holds failed check messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Collection is the provisioned collection. It has already been
	// released unless Kept is true.
	Collection *fixture.BatchCollection `json:"-"`
}

func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Option configures a run.
type Option func(*runner)

// WithStore runs against st instead of a fresh in-memory store. The caller
// keeps ownership of st.
func WithStore(st *store.Store) Option {
	return func(r *runner) { r.store = st }
}

// WithRegistries replaces the built-in sample templates. Calling it with no
// registries runs against an empty catalog.
func WithRegistries(registries ...fixture.Registry) Option {
	return func(r *runner) {
		r.registries = registries
		r.registriesSet = true
	}
}

// WithIDs sets the id source of the sample templates. The default is a
// testutil.IDSequence.
func WithIDs(ids sample.IDFunc) Option {
	return func(r *runner) { r.ids = ids }
}

// WithLogger sets the logger passed to the catalog and preparer.
func WithLogger(l *slog.Logger) Option {
	return func(r *runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithKeep leaves the provisioned fixtures in place.
func WithKeep(keep bool) Option {
	return func(r *runner) { r.keep = keep }
}

// WithStrictLookup fails the run on unknown template names.
func WithStrictLookup() Option {
	return func(r *runner) { r.strict = true }
}

// WithStrictNames fails catalog construction on duplicate template names.
func WithStrictNames() Option {
	return func(r *runner) { r.strictNames = true }
}

type runner struct {
	store         *store.Store
	registries    []fixture.Registry
	registriesSet bool
	ids           sample.IDFunc
	logger        *slog.Logger
	keep          bool
	strict        bool
	strictNames   bool
}

// Run validates m, provisions its fixtures, releases them unless kept and
// checks the trace.
//
// The returned error covers invalid manifests and failed provisioning or
// release. Check failures are reported through Result.Pass and
// Result.Errors.
func Run(ctx context.Context, m *manifest.Manifest, opts ...Option) (*Result, error) {
	if m == nil {
		return nil, errors.New("manifest cannot be nil")
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	r := &runner{logger: logging.Discard()}
	for _, opt := range opts {
		opt(r)
	}

	if r.store == nil {
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
		r.store = st
	}
	if r.ids == nil {
		r.ids = testutil.NewIDSequence().Next
	}
	if !r.registriesSet {
		r.registries = []fixture.Registry{sample.NewRegistry(r.store, r.ids)}
	}

	catOpts := []catalog.Option{catalog.WithLogger(r.logger)}
	if r.strictNames {
		catOpts = append(catOpts, catalog.WithStrictNames())
	}
	cat, err := catalog.New(r.registries, catOpts...)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	rec := newRecorder(testutil.NewSequenceClock())
	prepOpts := []preparer.Option{
		preparer.WithLogger(r.logger),
		preparer.WithObserver(rec),
	}
	if r.strict {
		prepOpts = append(prepOpts, preparer.WithStrictLookup())
	}
	p := preparer.New(cat, prepOpts...)

	collection, err := p.Prepare(ctx, m.Fixtures)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", m.Name, err)
	}
	if !r.keep {
		if err := p.Release(ctx, collection); err != nil {
			return nil, fmt.Errorf("release %s: %w", m.Name, err)
		}
	}

	remaining, err := r.remaining(ctx, rec.events())
	if err != nil {
		return nil, err
	}

	result := &Result{
		Name:       m.Name,
		Pass:       true,
		Events:     rec.events(),
		Remaining:  remaining,
		Kept:       r.keep,
		Collection: collection,
	}
	for _, e := range Check(result) {
		result.addError(e.Error())
	}
	return result, nil
}

// remaining counts the provisioned ids still present in the store.
func (r *runner) remaining(ctx context.Context, events []Event) (int, error) {
	n := 0
	for _, e := range events {
		if e.Type != EventProvision {
			continue
		}
		for _, id := range e.IDs {
			_, err := r.store.GetFixture(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return 0, err
			}
			n++
		}
	}
	return n, nil
}
