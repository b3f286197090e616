// Package fixturetest provisions fixtures around Go tests.
//
// ForTest scopes a collection to one test and releases it when that test
// ends. ForSuite scopes a collection to a top-level test and every subtest
// under it, which is how testify suites run their methods:
//
//	func (s *CheckoutSuite) SetupSuite() {
//	    s.Fixtures = fixturetest.ForSuite(s.T(), suites,
//	        fixture.Item{Template: "user", Count: 3})
//	}
//
// Within a scope only the first request is provisioned. Later calls return
// the first collection even if they ask for something else.
package fixturetest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/roach88/datapreparer/internal/fixture"
	"github.com/roach88/datapreparer/internal/manifest"
	"github.com/roach88/datapreparer/internal/preparer"
	"github.com/roach88/datapreparer/internal/scope"
)

// Cache namespaces used by Provider.
const (
	NamespaceTest  = "test"
	NamespaceSuite = "suite"
)

// InjectTag is the struct tag value marking the injection target field.
const InjectTag = "inject"

// ErrNoInjectField is returned by Inject when the target has no tagged field.
var ErrNoInjectField = errors.New("no *fixture.BatchCollection field tagged `fixture:\"inject\"`")

// ForTest provisions items for t and releases them when t ends.
// A failed request fails t with the error message.
func ForTest(t testing.TB, m *preparer.Manager, items ...fixture.Item) *fixture.BatchCollection {
	t.Helper()
	return compute(t, m, scope.Key(t.Name()), items)
}

// ForSuite provisions items for the top-level test enclosing t and releases
// them when that test ends. It must first be called from the top-level test
// itself; subtests then share its collection.
func ForSuite(t testing.TB, m *preparer.Manager, items ...fixture.Item) *fixture.BatchCollection {
	t.Helper()
	root := rootName(t.Name())
	key := scope.Key(root)
	if c, ok := m.Get(key); ok {
		return c
	}
	if t.Name() != root {
		t.Fatalf("fixturetest: ForSuite must be called from top-level test %q before its subtests", root)
		return nil
	}
	return compute(t, m, key, items)
}

func compute(t testing.TB, m *preparer.Manager, key scope.Key, items []fixture.Item) *fixture.BatchCollection {
	t.Helper()
	if items == nil {
		items = []fixture.Item{}
	}

	if c, ok := m.Get(key); ok {
		return c
	}

	c, err := m.ComputeOnce(context.Background(), key, items)
	if err != nil {
		t.Fatalf("fixturetest: prepare fixtures for %s: %v", key, err)
		return nil
	}
	t.Cleanup(func() {
		// t.Context is already cancelled when cleanups run.
		if err := m.Release(context.Background(), key); err != nil {
			t.Errorf("fixturetest: release fixtures for %s: %v", key, err)
		}
	})
	return c
}

func rootName(name string) string {
	root, _, _ := strings.Cut(name, "/")
	return root
}

// Inject stores c in the first field of target's struct that has type
// *fixture.BatchCollection and the tag `fixture:"inject"`. target must be a
// non-nil pointer to a struct.
func Inject(target any, c *fixture.BatchCollection) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("inject target must be a non-nil pointer to a struct, got %T", target)
	}

	want := reflect.TypeOf((*fixture.BatchCollection)(nil))
	elem := v.Elem()
	for i := 0; i < elem.NumField(); i++ {
		field := elem.Type().Field(i)
		if field.Tag.Get("fixture") != InjectTag || field.Type != want {
			continue
		}
		if !field.IsExported() {
			return fmt.Errorf("inject field %s.%s must be exported", elem.Type().Name(), field.Name)
		}
		elem.Field(i).Set(reflect.ValueOf(c))
		return nil
	}
	return fmt.Errorf("%T: %w", target, ErrNoInjectField)
}

// Provider bundles a per-test and a per-suite manager over one scope store.
type Provider struct {
	tests  *preparer.Manager
	suites *preparer.Manager
}

// NewProvider creates a Provider. A nil store gets a private one.
func NewProvider(p *preparer.Preparer, store *scope.Store) *Provider {
	if store == nil {
		store = scope.NewStore()
	}
	return &Provider{
		tests:  preparer.NewManager(p, scope.NewCache(store, NamespaceTest)),
		suites: preparer.NewManager(p, scope.NewCache(store, NamespaceSuite)),
	}
}

// ForTest is the package-level ForTest on the provider's per-test manager.
func (pr *Provider) ForTest(t testing.TB, items ...fixture.Item) *fixture.BatchCollection {
	t.Helper()
	return ForTest(t, pr.tests, items...)
}

// ForSuite is the package-level ForSuite on the provider's per-suite manager.
func (pr *Provider) ForSuite(t testing.TB, items ...fixture.Item) *fixture.BatchCollection {
	t.Helper()
	return ForSuite(t, pr.suites, items...)
}

// Apply provisions a manifest in the scope it declares and, when the manifest
// asks for injection, injects the collection into target.
func (pr *Provider) Apply(t testing.TB, m *manifest.Manifest, target any) *fixture.BatchCollection {
	t.Helper()

	var c *fixture.BatchCollection
	switch m.Scope {
	case manifest.ScopeSuite:
		c = pr.ForSuite(t, m.Fixtures...)
	default:
		c = pr.ForTest(t, m.Fixtures...)
	}
	if c == nil || !m.Inject {
		return c
	}
	if err := Inject(target, c); err != nil {
		t.Fatalf("fixturetest: manifest %s: %v", m.Name, err)
		return nil
	}
	return c
}
