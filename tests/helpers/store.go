package helpers

import (
	"testing"

	"github.com/xiaot623/gogo/dashboard/internal/repository"
)

// NewTestFSStore creates a filesystem store under a fresh temp data root and
// returns it with that root.
func NewTestFSStore(t *testing.T, opts ...store.Option) (*store.FSStore, string) {
	t.Helper()

	dataPath := t.TempDir()
	s, err := store.NewFSStore(dataPath, opts...)
	if err != nil {
		t.Fatalf("failed to create fs store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s, dataPath
}

// NewTestSQLiteLog creates an in-memory SQLite sequenced log.
func NewTestSQLiteLog(t *testing.T) *store.SQLiteLog {
	t.Helper()

	l, err := store.NewSQLiteLog(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite log: %v", err)
	}

	return l
}
