// Package catalog holds the templates discovered from registries and resolves
// them by name.
//
// A Catalog is built once and is read-only afterwards, so concurrent lookups
// from parallel tests need no locking.
//
// When several templates share a name the first one in discovery order wins
// and later ones are shadowed. Shadowed names are logged at WARN and reported
// by Duplicates. WithStrictNames turns a duplicate into a build error.
package catalog

import (
	"io"
	"log/slog"

	"github.com/roach88/datapreparer/internal/fixture"
)

// Catalog is an immutable, ordered list of templates.
type Catalog struct {
	templates  []fixture.AnyTemplate
	duplicates []string
}

type options struct {
	strict bool
	logger *slog.Logger
}

// Option configures catalog construction.
type Option func(*options)

// WithStrictNames rejects duplicate template names with an INVALID_STATE error
// instead of shadowing them.
func WithStrictNames() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithLogger sets the logger used to report shadowed templates.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New concatenates the templates of every registry, in order. Nil registries,
// nil or empty template lists and nil template entries are skipped.
func New(registries []fixture.Registry, opts ...Option) (*Catalog, error) {
	o := &options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(o)
	}

	c := &Catalog{}
	seen := make(map[string]bool)

	for _, reg := range registries {
		if reg == nil {
			continue
		}
		for _, tmpl := range reg.Templates() {
			if tmpl == nil {
				continue
			}
			name := tmpl.TemplateName()
			if seen[name] {
				if o.strict {
					return nil, fixture.InvalidState(name, "duplicate template name %q", name)
				}
				o.logger.Warn("template shadowed by an earlier registration",
					slog.String("template", name))
				c.duplicates = append(c.duplicates, name)
			}
			seen[name] = true
			c.templates = append(c.templates, tmpl)
		}
	}

	return c, nil
}

// Lookup returns the first template named name.
// An empty name is an INVALID_ARGUMENT error; an unknown name is not an error
// and reports false.
func (c *Catalog) Lookup(name string) (fixture.AnyTemplate, bool, error) {
	if name == "" {
		return nil, false, fixture.InvalidArgument("template name cannot be empty")
	}
	for _, tmpl := range c.templates {
		if tmpl.TemplateName() == name {
			return tmpl, true, nil
		}
	}
	return nil, false, nil
}

// Names returns every template name in catalog order, shadowed ones included.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.templates))
	for i, tmpl := range c.templates {
		names[i] = tmpl.TemplateName()
	}
	return names
}

// Duplicates returns the names of templates shadowed by an earlier template
// with the same name, in discovery order.
func (c *Catalog) Duplicates() []string {
	return append([]string(nil), c.duplicates...)
}

// Len returns the number of templates, shadowed ones included.
func (c *Catalog) Len() int {
	return len(c.templates)
}
