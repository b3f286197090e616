package fixturetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/roach88/datapreparer/internal/catalog"
	"github.com/roach88/datapreparer/internal/fixture"
	"github.com/roach88/datapreparer/internal/manifest"
	"github.com/roach88/datapreparer/internal/preparer"
	"github.com/roach88/datapreparer/internal/scope"
)

type user struct{ id string }

func (u *user) FixtureID() string { return u.id }

// ledger tracks live rows per template so tests can assert release.
type ledger struct {
	mu   sync.Mutex
	seq  int
	live map[string]int
}

func newLedger() *ledger { return &ledger{live: map[string]int{}} }

func (l *ledger) count(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.live[name]
}

func (l *ledger) template(name string) *fixture.Template[*user] {
	return &fixture.Template[*user]{
		Name: name,
		Data: func() *user {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.seq++
			return &user{id: fmt.Sprintf("%s-%d", name, l.seq)}
		},
		Loader: fixture.LoaderFunc[*user](func(_ context.Context, us []*user) ([]*user, error) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.live[name] += len(us)
			return us, nil
		}),
		Deleter: fixture.DeleterFunc[*user](func(_ context.Context, us []*user) error {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.live[name] -= len(us)
			return nil
		}),
	}
}

func newProvider(t *testing.T, l *ledger) *Provider {
	t.Helper()
	c, err := catalog.New([]fixture.Registry{fixture.RegistryFunc(func() []fixture.AnyTemplate {
		return []fixture.AnyTemplate{l.template("user"), l.template("admin")}
	})})
	require.NoError(t, err)
	return NewProvider(preparer.New(c), scope.NewStore())
}

// fakeT captures failures instead of stopping the goroutine.
type fakeT struct {
	testing.TB
	name     string
	fatals   []string
	errors   []string
	cleanups []func()
}

func (f *fakeT) Helper()                  {}
func (f *fakeT) Name() string             { return f.name }
func (f *fakeT) Cleanup(fn func())        { f.cleanups = append(f.cleanups, fn) }
func (f *fakeT) Context() context.Context { return context.Background() }

func (f *fakeT) Fatalf(format string, args ...any) {
	f.fatals = append(f.fatals, fmt.Sprintf(format, args...))
}

func (f *fakeT) Errorf(format string, args ...any) {
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}

func (f *fakeT) finish() {
	for i := len(f.cleanups) - 1; i >= 0; i-- {
		f.cleanups[i]()
	}
}

func TestForTest_ReleasesWhenTestEnds(t *testing.T) {
	l := newLedger()
	p := newProvider(t, l)

	t.Run("provision", func(t *testing.T) {
		c := p.ForTest(t, fixture.Item{Template: "user", Count: 3})
		require.NotNil(t, c)
		assert.Len(t, fixture.Get[*user](c, "user"), 3)
		assert.Equal(t, 3, l.count("user"))
	})

	assert.Equal(t, 0, l.count("user"), "cleanup released the test's fixtures")
}

func TestForTest_OnlyFirstRequestIsProvisioned(t *testing.T) {
	l := newLedger()
	p := newProvider(t, l)

	first := p.ForTest(t, fixture.Item{Template: "user", Count: 1})
	second := p.ForTest(t, fixture.Item{Template: "admin", Count: 4})

	assert.Same(t, first, second)
	assert.Equal(t, 0, l.count("admin"))
}

func TestForTest_InvalidRequestFailsTest(t *testing.T) {
	p := newProvider(t, newLedger())
	ft := &fakeT{name: "TestBroken"}

	c := p.ForTest(ft, fixture.Item{Template: "user", Count: 0})

	assert.Nil(t, c)
	require.Len(t, ft.fatals, 1)
	assert.Contains(t, ft.fatals[0], "cannot be 0 or negative")
	assert.Empty(t, ft.cleanups)
}

func TestForTest_NoItemsIsAnEmptyCollection(t *testing.T) {
	p := newProvider(t, newLedger())

	c := p.ForTest(t)
	require.NotNil(t, c)
	assert.Equal(t, 0, c.Len())
}

func TestForSuite_SubtestMustNotComeFirst(t *testing.T) {
	p := newProvider(t, newLedger())
	ft := &fakeT{name: "TestSuite/TestMethod"}

	c := p.ForSuite(ft, fixture.Item{Template: "user", Count: 1})

	assert.Nil(t, c)
	require.Len(t, ft.fatals, 1)
	assert.Contains(t, ft.fatals[0], `top-level test "TestSuite"`)
}

func TestForSuite_SharedWithSubtestsAndReleasedOnce(t *testing.T) {
	l := newLedger()
	p := newProvider(t, l)
	top := &fakeT{name: "TestCheckout"}

	c := p.ForSuite(top, fixture.Item{Template: "user", Count: 2})
	require.NotNil(t, c)

	sub := &fakeT{name: "TestCheckout/TestPay"}
	assert.Same(t, c, p.ForSuite(sub, fixture.Item{Template: "admin", Count: 1}))
	assert.Empty(t, sub.cleanups, "subtests do not own the suite's fixtures")

	// Per-test and per-suite scopes with the same name are independent.
	perTest := p.ForTest(top, fixture.Item{Template: "admin", Count: 1})
	assert.NotSame(t, c, perTest)

	top.finish()
	assert.Empty(t, top.errors)
	assert.Equal(t, 0, l.count("user"))
	assert.Equal(t, 0, l.count("admin"))
}

func TestRelease_FailureReportedOnTest(t *testing.T) {
	failing := &fixture.Template[*user]{
		Name: "user",
		Data: func() *user { return &user{id: "u"} },
		Loader: fixture.LoaderFunc[*user](func(_ context.Context, us []*user) ([]*user, error) {
			return us, nil
		}),
	}
	c, err := catalog.New([]fixture.Registry{fixture.RegistryFunc(func() []fixture.AnyTemplate {
		return []fixture.AnyTemplate{failing}
	})})
	require.NoError(t, err)
	p := NewProvider(preparer.New(c), nil)

	ft := &fakeT{name: "TestNoDeleter"}
	require.NotNil(t, p.ForTest(ft, fixture.Item{Template: "user", Count: 1}))
	ft.finish()

	require.Len(t, ft.errors, 1)
	assert.Contains(t, ft.errors[0], "Deleter cannot be nil")
}

func TestInject(t *testing.T) {
	c := fixture.NewBatchCollection(nil)

	t.Run("tagged field", func(t *testing.T) {
		var target struct {
			Other    *fixture.BatchCollection
			Fixtures *fixture.BatchCollection `fixture:"inject"`
		}
		require.NoError(t, Inject(&target, c))
		assert.Same(t, c, target.Fixtures)
		assert.Nil(t, target.Other)
	})

	t.Run("no tagged field", func(t *testing.T) {
		var target struct {
			Fixtures *fixture.BatchCollection
		}
		err := Inject(&target, c)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoInjectField)
	})

	t.Run("unexported field", func(t *testing.T) {
		var target struct {
			fixtures *fixture.BatchCollection `fixture:"inject"`
		}
		err := Inject(&target, c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be exported")
		assert.Nil(t, target.fixtures)
	})

	t.Run("not a pointer", func(t *testing.T) {
		err := Inject(struct{}{}, c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-nil pointer to a struct")
	})
}

func TestApply_ManifestScopeAndInjection(t *testing.T) {
	l := newLedger()
	p := newProvider(t, l)

	m, err := manifest.ParseYAML([]byte("name: buyers\nscope: suite\ninject: true\nfixtures:\n  - template: user\n    count: 2\n"))
	require.NoError(t, err)

	var target struct {
		Fixtures *fixture.BatchCollection `fixture:"inject"`
	}
	ft := &fakeT{name: "TestBuyers"}
	c := p.Apply(ft, m, &target)
	require.NotNil(t, c)
	assert.Same(t, c, target.Fixtures)
	assert.Empty(t, ft.fatals)

	missing := &fakeT{name: "TestOther"}
	assert.Nil(t, p.Apply(missing, m, &struct{}{}))
	require.Len(t, missing.fatals, 1)
	assert.Contains(t, missing.fatals[0], "manifest buyers")

	ft.finish()
	missing.finish()
	assert.Equal(t, 0, l.count("user"))
}

type checkoutSuite struct {
	suite.Suite

	provider *Provider
	ledger   *ledger

	Fixtures *fixture.BatchCollection `fixture:"inject"`
}

func (s *checkoutSuite) SetupSuite() {
	c := s.provider.ForSuite(s.T(),
		fixture.Item{Template: "user", Count: 2},
		fixture.Item{Template: "admin", Count: 1},
	)
	s.Require().NoError(Inject(s, c))
}

func (s *checkoutSuite) TestUsersAreLoaded() {
	users := fixture.Get[*user](s.Fixtures, "user")
	s.Len(users, 2)
	s.Equal(2, s.ledger.count("user"))
}

func (s *checkoutSuite) TestMethodsShareTheSuiteCollection() {
	c := s.provider.ForSuite(s.T(), fixture.Item{Template: "user", Count: 9})
	s.Same(s.Fixtures, c)
	s.Equal(1, s.ledger.count("admin"))
}

func TestCheckoutSuite(t *testing.T) {
	l := newLedger()
	s := &checkoutSuite{provider: newProvider(t, l), ledger: l}

	// Registered before the suite's own cleanup, so it runs after it.
	t.Cleanup(func() {
		assert.Equal(t, 0, l.count("user"))
		assert.Equal(t, 0, l.count("admin"))
	})

	suite.Run(t, s)
}
