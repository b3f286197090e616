package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Age   int    `json:"age"`
}

func (a *account) FixtureID() string { return a.ID }

// createTestStore opens a file-backed store removed after the test.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
