package harness

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datapreparer/internal/fixture"
	"github.com/roach88/datapreparer/internal/manifest"
	"github.com/roach88/datapreparer/internal/sample"
	"github.com/roach88/datapreparer/internal/store"
)

func loadManifest(t *testing.T, name string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Load(filepath.Join("testdata", name))
	require.NoError(t, err)
	return m
}

func TestRun_Golden(t *testing.T) {
	for _, name := range []string{"checkout", "unknown"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(context.Background(), loadManifest(t, name+".yaml"))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			require.NoError(t, AssertGolden(t, name, result))
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	m := loadManifest(t, "checkout.yaml")

	first, err := Run(context.Background(), m)
	require.NoError(t, err)
	second, err := Run(context.Background(), m)
	require.NoError(t, err)

	a, err := MarshalSnapshot(first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_CollectionIsReturned(t *testing.T) {
	result, err := Run(context.Background(), loadManifest(t, "checkout.yaml"))
	require.NoError(t, err)

	require.NotNil(t, result.Collection)
	assert.Equal(t, []string{"user", "order"}, result.Collection.Names())
	users := fixture.Get[*sample.User](result.Collection, sample.TemplateUser)
	require.Len(t, users, 3)
	assert.Equal(t, "user-0001", users[0].ID)
	assert.Equal(t, "user1@example.test", users[0].Email)
}

func TestRun_KeepLeavesFixturesStored(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	result, err := Run(context.Background(), loadManifest(t, "checkout.yaml"),
		WithStore(st), WithKeep(true))
	require.NoError(t, err)

	assert.True(t, result.Pass)
	assert.True(t, result.Kept)
	assert.Equal(t, 5, result.Remaining)
	for _, e := range result.Events {
		assert.NotEqual(t, EventRelease, e.Type)
	}

	n, err := st.CountFixtures(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestRun_ReleaseEmptiesCallerStore(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	result, err := Run(context.Background(), loadManifest(t, "checkout.yaml"), WithStore(st))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Remaining)

	n, err := st.CountFixtures(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRun_StrictLookup(t *testing.T) {
	_, err := Run(context.Background(), loadManifest(t, "unknown.yaml"), WithStrictLookup())
	require.Error(t, err)
	assert.True(t, fixture.IsInvalidArgument(err))
	assert.Contains(t, err.Error(), `no template named "ghost"`)
}

func TestRun_InvalidManifest(t *testing.T) {
	m := &manifest.Manifest{
		Name:     "broken",
		Fixtures: []fixture.Item{{Template: "user", Count: 0}},
	}
	_, err := Run(context.Background(), m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid manifest")

	_, err = Run(context.Background(), nil)
	require.Error(t, err)
}

func TestRun_CustomRegistries(t *testing.T) {
	var deleted []string
	tmpl := &fixture.Template[*sample.User]{
		Name: "member",
		Data: func() *sample.User { return &sample.User{ID: "m"} },
		Loader: fixture.LoaderFunc[*sample.User](func(_ context.Context, us []*sample.User) ([]*sample.User, error) {
			return us, nil
		}),
		Deleter: fixture.DeleterFunc[*sample.User](func(_ context.Context, us []*sample.User) error {
			for _, u := range us {
				deleted = append(deleted, u.ID)
			}
			return nil
		}),
	}
	reg := fixture.RegistryFunc(func() []fixture.AnyTemplate { return []fixture.AnyTemplate{tmpl} })

	m := &manifest.Manifest{Name: "members", Fixtures: []fixture.Item{{Template: "member", Count: 2}}}
	result, err := Run(context.Background(), m, WithRegistries(reg))
	require.NoError(t, err)

	assert.True(t, result.Pass)
	assert.Equal(t, []string{"m", "m"}, deleted)
	require.Len(t, result.Events, 2)
	assert.Equal(t, EventProvision, result.Events[0].Type)
	assert.Equal(t, EventRelease, result.Events[1].Type)
}

func TestRun_NoRegistriesSkipsEveryItem(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	m := loadManifest(t, "checkout.yaml")
	result, err := Run(context.Background(), m, WithStore(st), WithRegistries())
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Zero(t, result.Remaining)
	require.Len(t, result.Events, 2)
	assert.Equal(t, EventSkip, result.Events[0].Type)
	assert.Equal(t, "user", result.Events[0].Template)
	assert.Equal(t, EventSkip, result.Events[1].Type)
	assert.Equal(t, "order", result.Events[1].Template)

	users, err := st.ListFixtures(context.Background(), "user")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRun_StrictNamesRejectsDuplicates(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	a := sample.NewRegistry(st, nil)
	b := sample.NewRegistry(st, nil)
	m := &manifest.Manifest{Name: "dupes", Fixtures: []fixture.Item{}}

	_, err = Run(context.Background(), m, WithStore(st), WithRegistries(a, b), WithStrictNames())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build catalog")

	result, err := Run(context.Background(), m, WithStore(st), WithRegistries(a, b))
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Empty(t, result.Events)
}

func TestRun_ReleaseFailure(t *testing.T) {
	boom := errors.New("boom")
	tmpl := &fixture.Template[*sample.User]{
		Name: "member",
		Data: func() *sample.User { return &sample.User{ID: "m"} },
		Loader: fixture.LoaderFunc[*sample.User](func(_ context.Context, us []*sample.User) ([]*sample.User, error) {
			return us, nil
		}),
		Deleter: fixture.DeleterFunc[*sample.User](func(context.Context, []*sample.User) error {
			return boom
		}),
	}
	reg := fixture.RegistryFunc(func() []fixture.AnyTemplate { return []fixture.AnyTemplate{tmpl} })

	m := &manifest.Manifest{Name: "members", Fixtures: []fixture.Item{{Template: "member", Count: 1}}}
	_, err := Run(context.Background(), m, WithRegistries(reg))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "release members")
}
