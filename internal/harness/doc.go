// Package harness runs fixture manifests end to end and records what happened.
//
// Each run provisions the manifest's fixtures through a Preparer, releases
// them again and returns an ordered trace of provision, skip and release
// events. Runs use a fresh in-memory store, deterministic fixture ids and a
// logical clock unless the caller overrides them, so two runs of the same
// manifest produce byte-identical snapshots.
//
// # Checks
//
// After a run the harness verifies the trace:
//
//   - every release event matches a provision event with the same ids
//   - releases happen in provisioning order
//   - nothing provisioned by the run remains in the store
//
// The last two do not apply to runs that keep their fixtures.
//
// # Golden files
//
// Snapshot renders a result as canonical JSON. AssertGolden compares it with
// testdata/golden/<name>.golden using goldie. Regenerate with:
//
//	go test ./internal/harness -update
package harness
