package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"string", KindString, false},
		{" INT ", KindInt, false},
		{"Json", KindJSON, false},
		{"time", KindTime, false},
		{"decimal", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Table)
		wantErr string
	}{
		{"valid", func(*Table) {}, ""},
		{"bad table name", func(tb *Table) { tb.Name = "items; DROP" }, "invalid table name"},
		{"no columns", func(tb *Table) { tb.Columns = nil }, "no columns"},
		{"bad column name", func(tb *Table) { tb.Columns[1].Name = "na me" }, "invalid column name"},
		{"duplicate column", func(tb *Table) { tb.Columns[2].Name = "name" }, "duplicate column"},
		{"unknown kind", func(tb *Table) { tb.Columns[1].Kind = "blob" }, "unknown column kind"},
		{"missing key", func(tb *Table) { tb.Key = "uuid" }, "is not a column"},
		{"bool key", func(tb *Table) { tb.Key = "active" }, "must be string or int"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := itemsTable()
			tt.mutate(tb)
			err := tb.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTableCreateSQL(t *testing.T) {
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "notes" ("id" INTEGER PRIMARY KEY, "body" TEXT)`,
		notesTable().CreateSQL())

	tb := &Table{Name: "t", Key: "k", Columns: []Column{{Name: "k", Kind: KindString}, {Name: "on", Kind: KindBool}}}
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "t" ("k" TEXT PRIMARY KEY NOT NULL, "on" INTEGER)`,
		tb.CreateSQL())
}

func TestEnsureTable_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureTable(ctx, itemsTable()))
	require.NoError(t, s.EnsureTable(ctx, itemsTable()))

	var name string
	err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='items'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "items", name)
}

func TestEnsureTable_RejectsInvalidDefinition(t *testing.T) {
	s := createTestStore(t)
	err := s.EnsureTable(context.Background(), &Table{Name: "x", Key: "id"})
	assert.Error(t, err)
}

func TestTableSelectOrdersByKey(t *testing.T) {
	q := itemsTable().Select()
	assert.Equal(t, "items", q.From)
	assert.Equal(t, "id", q.TieBreaker)
	assert.Len(t, q.Columns, 7)
}
