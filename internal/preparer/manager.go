package preparer

import (
	"context"

	"github.com/roach88/datapreparer/internal/fixture"
	"github.com/roach88/datapreparer/internal/scope"
)

// Manager is the scope-aware entry point used by test adapters: the first
// request of a scope is provisioned, later requests in the same scope get the
// first result back.
type Manager struct {
	preparer *Preparer
	cache    *scope.Cache
}

// NewManager creates a Manager. A nil cache gets a private one.
func NewManager(p *Preparer, cache *scope.Cache) *Manager {
	if cache == nil {
		cache = scope.NewCache(nil, "")
	}
	return &Manager{preparer: p, cache: cache}
}

// ComputeOnce returns the collection for key, provisioning items if the scope
// has none yet. Items are ignored once the scope is populated, even if they
// differ from the first request.
func (m *Manager) ComputeOnce(ctx context.Context, key scope.Key, items []fixture.Item) (*fixture.BatchCollection, error) {
	return m.cache.ComputeOnce(ctx, key, func(ctx context.Context) (*fixture.BatchCollection, error) {
		return m.preparer.Prepare(ctx, items)
	})
}

// Get returns the collection memoized for key without provisioning.
func (m *Manager) Get(key scope.Key) (*fixture.BatchCollection, bool) {
	return m.cache.Get(key)
}

// Release tears down the collection memoized for key and forgets the scope.
// Releasing a scope with nothing memoized is a no-op.
func (m *Manager) Release(ctx context.Context, key scope.Key) error {
	c, ok := m.cache.Get(key)
	m.cache.Forget(key)
	if !ok {
		return nil
	}
	return m.preparer.Release(ctx, c)
}
