// Package sample provides built-in "user" and "order" templates persisted in
// a fixture store, so manifests can be run without writing any templates.
package sample

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/datapreparer/internal/discovery"
	"github.com/roach88/datapreparer/internal/fixture"
	"github.com/roach88/datapreparer/internal/store"
)

// Namespace is the discovery namespace the sample registry registers under.
const Namespace = "datapreparer/sample"

// Template names.
const (
	TemplateUser  = "user"
	TemplateOrder = "order"
)

// User is a sample account.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
}

// FixtureID implements fixture.Fixture.
func (u *User) FixtureID() string { return u.ID }

// Order is a sample purchase.
type Order struct {
	ID          string `json:"id"`
	Reference   string `json:"reference"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
}

// FixtureID implements fixture.Fixture.
func (o *Order) FixtureID() string { return o.ID }

// IDFunc returns a fresh id for a value of template.
type IDFunc func(template string) string

// UUIDs is the default IDFunc. It returns time-ordered UUIDv7 strings.
func UUIDs(string) string {
	return uuid.Must(uuid.NewV7()).String()
}

// Registry supplies the sample templates.
type Registry struct {
	store *store.Store
	ids   IDFunc

	mu     sync.Mutex
	counts map[string]int
}

// NewRegistry creates a registry whose templates persist in st.
// A nil ids uses UUIDs.
func NewRegistry(st *store.Store, ids IDFunc) *Registry {
	if ids == nil {
		ids = UUIDs
	}
	return &Registry{store: st, ids: ids, counts: make(map[string]int)}
}

// Templates implements fixture.Registry.
func (r *Registry) Templates() []fixture.AnyTemplate {
	return []fixture.AnyTemplate{
		store.Template(r.store, TemplateUser, r.newUser),
		store.Template(r.store, TemplateOrder, r.newOrder),
	}
}

func (r *Registry) next(template string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[template]++
	return r.counts[template]
}

func (r *Registry) newUser() *User {
	n := r.next(TemplateUser)
	return &User{
		ID:     r.ids(TemplateUser),
		Name:   fmt.Sprintf("User %d", n),
		Email:  fmt.Sprintf("user%d@example.test", n),
		Active: n%2 == 1,
	}
}

func (r *Registry) newOrder() *Order {
	n := r.next(TemplateOrder)
	return &Order{
		ID:          r.ids(TemplateOrder),
		Reference:   fmt.Sprintf("ORD-%05d", n),
		AmountCents: int64(n) * 1250,
		Status:      "open",
	}
}

// Register adds the sample registry to tbl under Namespace.
func Register(tbl *discovery.Table, st *store.Store, ids IDFunc) {
	tbl.RegisterNamed(Namespace, "sample", func() (fixture.Registry, error) {
		if st == nil {
			return nil, errors.New("sample registry needs a fixture store")
		}
		return NewRegistry(st, ids), nil
	})
}
