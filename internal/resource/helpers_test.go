package resource

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/crudkit/internal/store"
	"github.com/roach88/crudkit/internal/value"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// itemsDefinition is the {id, name, count} resource used across tests.
func itemsDefinition() Definition {
	return Definition{
		Name: "items",
		Key:  "id",
		Fields: []FieldDef{
			{Name: "id", Kind: store.KindString},
			{Name: "name", Kind: store.KindString},
			{Name: "count", Kind: store.KindInt},
			{Name: "tags", Kind: store.KindJSON},
		},
		Searchable:   []string{"name"},
		Filterable:   []string{"count"},
		Distinctable: []string{"name", "count"},
	}
}

func newItemsEngine(t *testing.T, s *store.Store, hooks Hooks[value.Object], options ...Option) *Engine[value.Object] {
	t.Helper()
	e, err := NewDocumentEngine(s, itemsDefinition(), hooks, options...)
	require.NoError(t, err)
	require.NoError(t, s.EnsureTable(context.Background(), e.Table()))
	return e
}

func obj(kv ...any) value.Object {
	o := value.Object{}
	for i := 0; i < len(kv); i += 2 {
		v, err := value.FromGo(kv[i+1])
		if err != nil {
			panic(err)
		}
		o[kv[i].(string)] = v
	}
	return o
}

func mustCreate(t *testing.T, e *Engine[value.Object], body value.Object) value.Object {
	t.Helper()
	created, err := e.Create(context.Background(), body)
	require.NoError(t, err)
	return created
}

func names(items []value.Object) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = value.Text(it["name"])
	}
	return out
}

func rowCount(t *testing.T, s *store.Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM "`+table+`"`).Scan(&n))
	return n
}
