// Package store keeps fixture records in SQLite.
//
// It is a loader/deleter backend for templates, not part of the provisioning
// engine: the engine only ever calls the Loader and Deleter a template
// carries. Loader and Deleter adapt a Store to any fixture type; Template
// builds a complete store-backed template:
//
//	st, err := store.Open(":memory:")
//	users := store.Template(st, "user", newUser)
//
// Each record stores the fixture's canonical JSON payload and a digest of it.
// Reads order by insertion sequence, then id, so results are deterministic.
//
// # Database Configuration
//
//   - WAL mode for concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//   - one open connection, which also keeps ":memory:" databases alive
package store
