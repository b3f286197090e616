// Package discovery finds fixture registries for a catalog.
//
// Scanner is the port the rest of the system depends on. How registries are
// found is a backend concern: Table is an explicit registration table, and
// tests can pass any Scanner (for example a Static list).
//
// # Namespaces
//
// Registries are registered under a namespace such as "myapp/users" or
// "myapp.users". Discover with a namespace returns the registries registered
// at or below it; a blank namespace means unrestricted.
//
//	tbl := discovery.NewTable(logger)
//	tbl.Register("myapp/users", users.NewRegistry)
//	regs, err := tbl.Discover(ctx, "myapp")
package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/datapreparer/internal/fixture"
)

// Scanner discovers and instantiates registries.
type Scanner interface {
	Discover(ctx context.Context, namespace string) ([]fixture.Registry, error)
}

// Constructor instantiates a registry. A failing constructor is logged and
// its registry skipped.
type Constructor func() (fixture.Registry, error)

type entry struct {
	namespace string
	name      string
	construct Constructor
}

// Table is a Scanner backed by explicit registrations. Entries are discovered
// in registration order.
//
// Thread-safety: all methods are safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	entries []entry
	logger  *slog.Logger
}

// NewTable creates an empty table. A nil logger discards output.
func NewTable(logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Table{logger: logger}
}

// Register adds a registry constructor under namespace.
func (t *Table) Register(namespace string, construct Constructor) {
	t.RegisterNamed(namespace, "", construct)
}

// RegisterNamed is Register with a display name used in logs.
func (t *Table) RegisterNamed(namespace, name string, construct Constructor) {
	if construct == nil {
		return
	}
	if name == "" {
		name = fmt.Sprintf("%s#%d", namespace, t.Len())
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry{
		namespace: strings.TrimSpace(namespace),
		name:      name,
		construct: construct,
	})
}

// Len returns the number of registrations.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Discover implements Scanner.
func (t *Table) Discover(ctx context.Context, namespace string) ([]fixture.Registry, error) {
	namespace = strings.TrimSpace(namespace)

	t.mu.RLock()
	entries := append([]entry(nil), t.entries...)
	t.mu.RUnlock()

	var registries []fixture.Registry
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("discover %q: %w", namespace, err)
		}
		if !InNamespace(e.namespace, namespace) {
			continue
		}
		reg, err := e.construct()
		if err != nil {
			t.logger.Warn("failed to create registry instance",
				slog.String("registry", e.name),
				slog.String("error", err.Error()))
			continue
		}
		if reg == nil {
			continue
		}
		registries = append(registries, reg)
	}

	t.logger.Debug("registries discovered",
		slog.String("namespace", namespace),
		slog.Int("count", len(registries)))
	return registries, nil
}

// InNamespace reports whether candidate lies at or below namespace.
// Segments are separated by '.' or '/'. A blank namespace matches everything.
func InNamespace(candidate, namespace string) bool {
	namespace = strings.TrimRight(namespace, "./")
	if namespace == "" {
		return true
	}
	if candidate == namespace {
		return true
	}
	if !strings.HasPrefix(candidate, namespace) {
		return false
	}
	next := candidate[len(namespace)]
	return next == '.' || next == '/'
}

// Static is a Scanner returning a fixed list of registries regardless of
// namespace.
type Static []fixture.Registry

// Discover implements Scanner.
func (s Static) Discover(context.Context, string) ([]fixture.Registry, error) {
	return append([]fixture.Registry(nil), s...), nil
}
