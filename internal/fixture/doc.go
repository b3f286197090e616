// Package fixture defines the fixture data model shared by every other package.
//
// This package contains the value capability, templates, request items, batches
// and the teardown path. It imports nothing internal, so the catalog, the
// preparer and the adapters can all depend on it without cycles.
//
// # Templates
//
// A Template is the named recipe for one kind of fixture:
//
//	users := &fixture.Template[*User]{
//	    Name:    "user",
//	    Data:    func() *User { return &User{ID: uuid.NewString()} },
//	    Loader:  fixture.LoaderFunc[*User](repo.InsertAll),
//	    Deleter: fixture.DeleterFunc[*User](repo.DeleteAll),
//	}
//
// Templates of different value types live side by side in a catalog through the
// type-erased AnyTemplate view. Only *Template[T] implements AnyTemplate.
//
// # Batches
//
// Provisioning a template produces a Batch holding exactly what the loader
// returned. Batches are collected in request order into a BatchCollection:
//
//	users := fixture.Get[*User](collection, "user")
//
// Get filters by template name first and by value type second.
//
// # Release
//
// The owner of a BatchCollection must call Release exactly once when the
// fixtures are no longer needed. Release invokes each batch's deleter with the
// batch's values, in collection order, and stops at the first failure.
package fixture
