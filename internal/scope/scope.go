// Package scope memoizes provisioning per execution scope.
//
// A scope is one test unit's lifetime: a top-level test shared by its
// subtests, or a single test. Within a scope the first ComputeOnce call runs
// its producer and every later call returns the same collection, even if it
// would have asked for different fixtures. Scopes never share state.
//
// Storage is an explicit Store owned by the adapter layer and shared between
// caches through namespaces, so two adapters can use the same scope key
// without colliding:
//
//	store := scope.NewStore()
//	perTest := scope.NewCache(store, "test")
//	perSuite := scope.NewCache(store, "suite")
package scope

import (
	"context"
	"fmt"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/roach88/datapreparer/internal/fixture"
)

// Key identifies an execution scope.
type Key string

// slot is the fixed per-scope key under which the collection is memoized.
// Only one collection is memoized per scope.
const slot = "loadedFixtures"

// Producer computes the collection for a scope.
type Producer func(ctx context.Context) (*fixture.BatchCollection, error)

// Store is the backing storage shared by caches. Entries never expire.
type Store struct {
	cache *gocache.Cache
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{cache: gocache.New(gocache.NoExpiration, 0)}
}

// Len returns the number of scopes with an entry, computed or in progress.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// entry is the per-scope cell. mu serializes producers for one scope only.
type entry struct {
	mu    sync.Mutex
	done  bool
	value *fixture.BatchCollection
}

// acquire returns the entry for k, inserting it atomically if absent.
func (s *Store) acquire(k string) *entry {
	for {
		if v, ok := s.cache.Get(k); ok {
			return v.(*entry)
		}
		e := &entry{}
		if err := s.cache.Add(k, e, gocache.NoExpiration); err == nil {
			return e
		}
		// Lost the insert race; the winner's entry is read on the next pass.
	}
}

// Cache memoizes one collection per scope key within a namespace.
type Cache struct {
	store     *Store
	namespace string
}

// NewCache creates a cache over store. A nil store gets a private one.
func NewCache(store *Store, namespace string) *Cache {
	if store == nil {
		store = NewStore()
	}
	return &Cache{store: store, namespace: namespace}
}

func (c *Cache) storeKey(key Key) string {
	return fmt.Sprintf("%s\x00%s\x00%s", c.namespace, key, slot)
}

// ComputeOnce returns the collection memoized for key, running producer if
// there is none yet.
//
// Concurrent calls for the same key run at most one producer; the others wait
// and observe its result. A producer error is returned to its caller and
// nothing is memoized, so the next call computes again.
func (c *Cache) ComputeOnce(ctx context.Context, key Key, producer Producer) (*fixture.BatchCollection, error) {
	if key == "" {
		return nil, fixture.InvalidArgument("scope key cannot be empty")
	}
	if producer == nil {
		return nil, fixture.InvalidArgument("producer cannot be nil")
	}

	e := c.store.acquire(c.storeKey(key))
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done {
		return e.value, nil
	}

	value, err := producer(ctx)
	if err != nil {
		return nil, err
	}
	e.value = value
	e.done = true
	return value, nil
}

// Get returns the memoized collection for key without computing it.
func (c *Cache) Get(key Key) (*fixture.BatchCollection, bool) {
	v, ok := c.store.cache.Get(c.storeKey(key))
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value, e.done
}

// Forget drops the entry for key without releasing its collection.
func (c *Cache) Forget(key Key) {
	c.store.cache.Delete(c.storeKey(key))
}

// Release forgets key and releases its memoized collection, if any.
func (c *Cache) Release(ctx context.Context, key Key) error {
	collection, ok := c.Get(key)
	c.Forget(key)
	if !ok || collection == nil {
		return nil
	}
	return collection.Release(ctx)
}
