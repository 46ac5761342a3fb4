package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// itemsTable is a string-keyed table covering every column kind.
func itemsTable() *Table {
	return &Table{
		Name: "items",
		Key:  "id",
		Columns: []Column{
			{Name: "id", Kind: KindString},
			{Name: "name", Kind: KindString},
			{Name: "count", Kind: KindInt},
			{Name: "price", Kind: KindFloat},
			{Name: "active", Kind: KindBool},
			{Name: "meta", Kind: KindJSON},
			{Name: "created_at", Kind: KindTime},
		},
	}
}

// notesTable is an int-keyed table whose keys SQLite assigns.
func notesTable() *Table {
	return &Table{
		Name: "notes",
		Key:  "id",
		Columns: []Column{
			{Name: "id", Kind: KindInt},
			{Name: "body", Kind: KindString},
		},
	}
}

// createTestTable ensures tbl exists in s and returns it.
func createTestTable(t *testing.T, s *Store, tbl *Table) *Table {
	t.Helper()
	require.NoError(t, s.EnsureTable(context.Background(), tbl))
	return tbl
}
