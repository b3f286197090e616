package scope

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roach88/datapreparer/internal/fixture"
)

func producerOf(c *fixture.BatchCollection, calls *int32) Producer {
	return func(context.Context) (*fixture.BatchCollection, error) {
		atomic.AddInt32(calls, 1)
		return c, nil
	}
}

func TestComputeOnce_SecondProducerNeverRuns(t *testing.T) {
	cache := NewCache(NewStore(), "test")
	first := fixture.NewBatchCollection(nil)
	second := fixture.NewBatchCollection(nil)

	var firstCalls, secondCalls int32
	got1, err := cache.ComputeOnce(context.Background(), "scope-1", producerOf(first, &firstCalls))
	require.NoError(t, err)
	got2, err := cache.ComputeOnce(context.Background(), "scope-1", producerOf(second, &secondCalls))
	require.NoError(t, err)

	assert.Same(t, first, got1)
	assert.Same(t, first, got2)
	assert.Equal(t, int32(1), firstCalls)
	assert.Equal(t, int32(0), secondCalls)
}

func TestComputeOnce_ScopesAreIndependent(t *testing.T) {
	cache := NewCache(nil, "test")
	a := fixture.NewBatchCollection(nil)
	b := fixture.NewBatchCollection(nil)

	var calls int32
	gotA, err := cache.ComputeOnce(context.Background(), "a", producerOf(a, &calls))
	require.NoError(t, err)
	gotB, err := cache.ComputeOnce(context.Background(), "b", producerOf(b, &calls))
	require.NoError(t, err)

	assert.Same(t, a, gotA)
	assert.Same(t, b, gotB)
	assert.Equal(t, int32(2), calls)
}

func TestComputeOnce_NamespacesPartitionOneStore(t *testing.T) {
	store := NewStore()
	perTest := NewCache(store, "test")
	perSuite := NewCache(store, "suite")
	a := fixture.NewBatchCollection(nil)
	b := fixture.NewBatchCollection(nil)

	var calls int32
	gotA, err := perTest.ComputeOnce(context.Background(), "TestX", producerOf(a, &calls))
	require.NoError(t, err)
	gotB, err := perSuite.ComputeOnce(context.Background(), "TestX", producerOf(b, &calls))
	require.NoError(t, err)

	assert.Same(t, a, gotA)
	assert.Same(t, b, gotB)
	assert.Equal(t, 2, store.Len())
}

func TestComputeOnce_ErrorIsNotMemoized(t *testing.T) {
	cache := NewCache(nil, "test")
	boom := errors.New("loader failed")

	_, err := cache.ComputeOnce(context.Background(), "s", func(context.Context) (*fixture.BatchCollection, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	_, ok := cache.Get("s")
	assert.False(t, ok)

	want := fixture.NewBatchCollection(nil)
	var calls int32
	got, err := cache.ComputeOnce(context.Background(), "s", producerOf(want, &calls))
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, int32(1), calls)
}

func TestComputeOnce_RejectsEmptyKeyAndNilProducer(t *testing.T) {
	cache := NewCache(nil, "test")

	_, err := cache.ComputeOnce(context.Background(), "", producerOf(nil, new(int32)))
	assert.True(t, fixture.IsInvalidArgument(err))

	_, err = cache.ComputeOnce(context.Background(), "s", nil)
	assert.True(t, fixture.IsInvalidArgument(err))
}

func TestComputeOnce_ConcurrentCallersShareOneComputation(t *testing.T) {
	cache := NewCache(NewStore(), "test")

	var calls int32
	start := make(chan struct{})
	results := make([]*fixture.BatchCollection, 32)

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got, err := cache.ComputeOnce(context.Background(), "shared", func(context.Context) (*fixture.BatchCollection, error) {
				atomic.AddInt32(&calls, 1)
				return fixture.NewBatchCollection(nil), nil
			})
			if err == nil {
				results[i] = got
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), calls)
	for _, got := range results {
		require.NotNil(t, got)
		assert.Same(t, results[0], got)
	}
}

func TestRelease_ReleasesAndForgets(t *testing.T) {
	cache := NewCache(nil, "test")

	var deleted int
	tmpl := &fixture.Template[*item]{
		Name:    "A",
		Data:    func() *item { return &item{} },
		Deleter: fixture.DeleterFunc[*item](func(context.Context, []*item) error { deleted++; return nil }),
	}
	c := fixture.NewBatchCollection([]fixture.Batch{fixture.NewBatch(tmpl, []*item{{}})})

	_, err := cache.ComputeOnce(context.Background(), "s", producerOf(c, new(int32)))
	require.NoError(t, err)

	require.NoError(t, cache.Release(context.Background(), "s"))
	assert.Equal(t, 1, deleted)
	_, ok := cache.Get("s")
	assert.False(t, ok)

	require.NoError(t, cache.Release(context.Background(), "s"), "releasing an unknown scope is a no-op")
	assert.Equal(t, 1, deleted)
}

type item struct{}

func (*item) FixtureID() string { return "item" }

func TestComputeOnce_Property_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cache := NewCache(nil, rapid.StringMatching(`[a-z]{0,5}`).Draw(t, "namespace"))
		keys := rapid.SliceOfN(rapid.StringMatching(`k[0-9]`), 1, 30).Draw(t, "keys")

		firstSeen := make(map[Key]*fixture.BatchCollection)
		for _, k := range keys {
			key := Key(k)
			fresh := fixture.NewBatchCollection(nil)
			got, err := cache.ComputeOnce(context.Background(), key, func(context.Context) (*fixture.BatchCollection, error) {
				return fresh, nil
			})
			if err != nil {
				t.Fatalf("ComputeOnce(%q): %v", key, err)
			}
			if prev, ok := firstSeen[key]; ok {
				if got != prev {
					t.Fatalf("ComputeOnce(%q) recomputed", key)
				}
				continue
			}
			if got != fresh {
				t.Fatalf("ComputeOnce(%q) did not use first producer", key)
			}
			firstSeen[key] = got
		}
	})
}
