package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crudkit/internal/resource"
	"github.com/roach88/crudkit/internal/sample"
	"github.com/roach88/crudkit/internal/store"
	"github.com/roach88/crudkit/internal/value"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func notesDefinition() resource.Definition {
	return resource.Definition{
		Name: "notes",
		Key:  "id",
		Fields: []resource.FieldDef{
			{Name: "id", Kind: store.KindInt},
			{Name: "body", Kind: store.KindString},
		},
		Searchable: []string{"body"},
	}
}

func TestRegister(t *testing.T) {
	r := New()
	svc := fakeService{}

	require.NoError(t, r.Register("b", svc))
	require.NoError(t, r.Register("a", svc))
	assert.Error(t, r.Register("a", svc), "duplicate")
	assert.Error(t, r.Register("bad name", svc))

	assert.Equal(t, []string{"a", "b"}, r.Names())
	_, ok := r.Lookup("a")
	assert.True(t, ok)
	_, ok = r.Lookup("c")
	assert.False(t, ok)
}

func TestBuild(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	r, err := Build(ctx, s, []resource.Definition{notesDefinition()}, Options{Keys: resource.NewFixedKeys("t-1")})
	require.NoError(t, err)
	assert.Equal(t, []string{"notes", sample.Name}, r.Names())

	notes, ok := r.Lookup("notes")
	require.True(t, ok)
	created, err := notes.Create(ctx, value.Object{"body": value.String("hello")})
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), created["id"])

	test, ok := r.Lookup(sample.Name)
	require.True(t, ok)
	created, err = test.Create(ctx, value.Object{"varchar": value.String("x")})
	require.NoError(t, err)
	assert.Equal(t, value.String("t-1"), created["uuid"])
}

func TestBuild_Idempotent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := Build(ctx, s, []resource.Definition{notesDefinition()}, Options{})
	require.NoError(t, err)
	_, err = Build(ctx, s, []resource.Definition{notesDefinition()}, Options{})
	require.NoError(t, err)
}

func TestBuild_Errors(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	clash := notesDefinition()
	clash.Name = sample.Name
	_, err := Build(ctx, s, []resource.Definition{clash}, Options{})
	assert.Error(t, err, "definition may not shadow the sample resource")

	bad := notesDefinition()
	bad.Key = "nope"
	_, err = Build(ctx, s, []resource.Definition{bad}, Options{WithoutSample: true})
	assert.Error(t, err)
}

type fakeService struct{ resource.Service }
