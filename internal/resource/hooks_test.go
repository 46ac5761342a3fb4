package resource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crudkit/internal/queryspec"
	"github.com/roach88/crudkit/internal/store"
	"github.com/roach88/crudkit/internal/value"
)

func TestHooks_SaveStagesThreadInOrder(t *testing.T) {
	s := openTestStore(t)
	var calls []string
	appendName := func(suffix string) SaveHook[value.Object] {
		return func(_ context.Context, _ store.Handle, e value.Object, creating bool) (value.Object, error) {
			calls = append(calls, suffix)
			if creating {
				e["name"] = value.String(value.Text(e["name"]) + suffix)
			}
			return e, nil
		}
	}
	hooks := Hooks[value.Object]{
		PreSave:  []SaveHook[value.Object]{appendName("-pre1"), appendName("-pre2")},
		PostSave: []SaveHook[value.Object]{appendName("-post")},
	}
	e := newItemsEngine(t, s, hooks, WithKeyGenerator(NewFixedKeys("k1")))
	ctx := context.Background()

	created := mustCreate(t, e, obj("name", "x"))
	assert.Equal(t, value.String("x-pre1-pre2-post"), created["name"])
	assert.Equal(t, []string{"-pre1", "-pre2", "-post"}, calls)

	got, err := e.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, value.String("x-pre1-pre2"), got["name"], "post-save changes are not persisted")

	calls = nil
	updated, err := e.Update(ctx, "k1", obj("count", 1))
	require.NoError(t, err)
	assert.Equal(t, value.String("x-pre1-pre2"), updated["name"], "creating=false on update")
	assert.Equal(t, []string{"-pre1", "-pre2", "-post"}, calls)
}

func TestHooks_PreSaveCanSetKey(t *testing.T) {
	s := openTestStore(t)
	hooks := Hooks[value.Object]{
		PreSave: []SaveHook[value.Object]{
			func(_ context.Context, _ store.Handle, e value.Object, creating bool) (value.Object, error) {
				if creating {
					e["id"] = value.String("from-hook")
				}
				return e, nil
			},
		},
	}
	e := newItemsEngine(t, s, hooks, WithKeyGenerator(NewFixedKeys()))

	created := mustCreate(t, e, obj("name", "x"))
	assert.Equal(t, value.String("from-hook"), created["id"])
}

func TestHooks_PostSaveFailureRollsBackCreate(t *testing.T) {
	s := openTestStore(t)
	boom := errors.New("boom")
	hooks := Hooks[value.Object]{
		PostSave: []SaveHook[value.Object]{
			func(ctx context.Context, h store.Handle, e value.Object, _ bool) (value.Object, error) {
				// The row is visible inside the transaction
				if _, err := h.FindByKey(ctx, &store.Table{Name: "items", Key: "id", Columns: []store.Column{{Name: "id", Kind: store.KindString}}}, e["id"]); err != nil {
					return nil, err
				}
				return nil, boom
			},
		},
	}
	e := newItemsEngine(t, s, hooks, WithKeyGenerator(NewFixedKeys("k1")))
	ctx := context.Background()

	_, err := e.Create(ctx, obj("name", "x"))
	require.ErrorIs(t, err, boom)

	_, err = e.Get(ctx, "k1")
	assert.True(t, IsNotFound(err), "failed create leaves no trace")
	assert.Equal(t, 0, rowCount(t, s, "items"))
}

func TestHooks_HookWritesShareTheTransaction(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.DB().Exec(`CREATE TABLE audit (entry TEXT)`)
	require.NoError(t, err)

	fail := false
	hooks := Hooks[value.Object]{
		PostSave: []SaveHook[value.Object]{
			func(ctx context.Context, h store.Handle, e value.Object, _ bool) (value.Object, error) {
				if _, err := h.Exec(ctx, `INSERT INTO audit (entry) VALUES (?)`, value.Text(e["name"])); err != nil {
					return nil, err
				}
				if fail {
					return nil, errors.New("late failure")
				}
				return e, nil
			},
		},
	}
	e := newItemsEngine(t, s, hooks)

	mustCreate(t, e, obj("name", "kept"))
	fail = true
	_, err = e.Create(ctx, obj("name", "discarded"))
	require.Error(t, err)

	assert.Equal(t, 1, rowCount(t, s, "audit"))
	assert.Equal(t, 1, rowCount(t, s, "items"))
}

func TestHooks_UpdateFailureKeepsOriginal(t *testing.T) {
	s := openTestStore(t)
	hooks := Hooks[value.Object]{
		PostSave: []SaveHook[value.Object]{
			func(_ context.Context, _ store.Handle, e value.Object, creating bool) (value.Object, error) {
				if !creating {
					return nil, errors.New("no updates today")
				}
				return e, nil
			},
		},
	}
	e := newItemsEngine(t, s, hooks, WithKeyGenerator(NewFixedKeys("k1")))
	ctx := context.Background()
	mustCreate(t, e, obj("name", "alpha"))

	_, err := e.Update(ctx, "k1", obj("name", "beta"))
	require.Error(t, err)

	got, err := e.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, value.String("alpha"), got["name"])
}

func TestHooks_DeleteStages(t *testing.T) {
	s := openTestStore(t)
	var seen []string
	failPost := false
	hooks := Hooks[value.Object]{
		PreDelete: []DeleteHook[value.Object]{
			func(_ context.Context, _ store.Handle, e value.Object) error {
				seen = append(seen, "pre:"+value.Text(e["name"]))
				return nil
			},
		},
		PostDelete: []DeleteHook[value.Object]{
			func(ctx context.Context, h store.Handle, e value.Object) error {
				seen = append(seen, "post:"+value.Text(e["name"]))
				if failPost {
					return errors.New("post-delete failed")
				}
				return nil
			},
		},
	}
	e := newItemsEngine(t, s, hooks, WithKeyGenerator(NewFixedKeys("k1", "k2")))
	ctx := context.Background()
	mustCreate(t, e, obj("name", "one"))
	mustCreate(t, e, obj("name", "two"))

	_, err := e.Delete(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []string{"pre:one", "post:one"}, seen)

	failPost = true
	_, err = e.Delete(ctx, "k2")
	require.Error(t, err)
	_, err = e.Get(ctx, "k2")
	assert.NoError(t, err, "failed post-delete restores the row")
}

func TestHooks_PreDeleteFailureAborts(t *testing.T) {
	s := openTestStore(t)
	postCalled := false
	hooks := Hooks[value.Object]{
		PreDelete: []DeleteHook[value.Object]{
			func(context.Context, store.Handle, value.Object) error { return errors.New("protected") },
		},
		PostDelete: []DeleteHook[value.Object]{
			func(context.Context, store.Handle, value.Object) error { postCalled = true; return nil },
		},
	}
	e := newItemsEngine(t, s, hooks, WithKeyGenerator(NewFixedKeys("k1")))
	mustCreate(t, e, obj("name", "one"))

	_, err := e.Delete(context.Background(), "k1")
	require.Error(t, err)
	assert.False(t, postCalled)
	assert.Equal(t, 1, rowCount(t, s, "items"))
}

func TestHooks_AfterLoad(t *testing.T) {
	s := openTestStore(t)
	var singles []bool
	hooks := Hooks[value.Object]{
		AfterLoad: []LoadHook[value.Object]{
			func(_ context.Context, items []value.Object, single bool) ([]value.Object, error) {
				singles = append(singles, single)
				for _, it := range items {
					it["name"] = value.String("seen:" + value.Text(it["name"]))
				}
				return items, nil
			},
		},
	}
	e := newItemsEngine(t, s, hooks, WithKeyGenerator(NewFixedKeys("k1", "k2")))
	ctx := context.Background()
	seedNamed(t, e, obj("name", "a"), obj("name", "b"))

	got, err := e.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, value.String("seen:a"), got["name"])

	page, err := e.List(ctx, queryspec.Params{})
	require.NoError(t, err)
	assert.Equal(t, []string{"seen:a", "seen:b"}, names(page.Items))
	assert.Equal(t, []bool{true, false}, singles)
}

func TestHooks_AfterLoadSingleContract(t *testing.T) {
	tests := []struct {
		name string
		hook LoadHook[value.Object]
	}{
		{"zero entities", func(context.Context, []value.Object, bool) ([]value.Object, error) {
			return nil, nil
		}},
		{"two entities", func(_ context.Context, items []value.Object, _ bool) ([]value.Object, error) {
			return append(items, value.Object{}), nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openTestStore(t)
			e := newItemsEngine(t, s, Hooks[value.Object]{AfterLoad: []LoadHook[value.Object]{tt.hook}}, WithKeyGenerator(NewFixedKeys("k1")))
			ctx := context.Background()
			mustCreate(t, e, obj("name", "a"))

			_, err := e.Get(ctx, "k1")
			assert.True(t, IsHookContract(err))

			_, err = e.Delete(ctx, "k1")
			assert.True(t, IsHookContract(err))
			assert.Equal(t, 1, rowCount(t, s, "items"), "contract violation aborts delete")
		})
	}
}

func TestHooks_AfterLoadErrorSurfaces(t *testing.T) {
	s := openTestStore(t)
	boom := errors.New("boom")
	hooks := Hooks[value.Object]{
		AfterLoad: []LoadHook[value.Object]{
			func(context.Context, []value.Object, bool) ([]value.Object, error) { return nil, boom },
		},
	}
	e := newItemsEngine(t, s, hooks)
	mustCreate(t, e, obj("name", "a"))

	_, err := e.List(context.Background(), queryspec.Params{})
	assert.ErrorIs(t, err, boom)
}

func TestHooks_InputErrorFromHookKeepsCode(t *testing.T) {
	s := openTestStore(t)
	hooks := Hooks[value.Object]{
		PreSave: []SaveHook[value.Object]{
			func(context.Context, store.Handle, value.Object, bool) (value.Object, error) {
				return nil, &Error{Code: CodeInvalidInput, Message: "name is reserved"}
			},
		},
	}
	e := newItemsEngine(t, s, hooks)

	_, err := e.Create(context.Background(), obj("name", "root"))
	assert.True(t, IsInvalidInput(err))
}

func TestCreate_CancelledContextRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	hooks := Hooks[value.Object]{
		PostSave: []SaveHook[value.Object]{
			func(_ context.Context, _ store.Handle, e value.Object, _ bool) (value.Object, error) {
				cancel()
				return e, nil
			},
		},
	}
	e := newItemsEngine(t, s, hooks)

	_, err := e.Create(ctx, obj("name", "abandoned"))
	require.Error(t, err)
	assert.Equal(t, 0, rowCount(t, s, "items"))
}
