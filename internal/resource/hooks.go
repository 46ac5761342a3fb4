package resource

import (
	"context"
	"fmt"

	"github.com/roach88/crudkit/internal/store"
)

// SaveHook runs before (pre-save) or after (post-save) an entity is
// written. It receives the entity as left by the previous hook and returns
// the entity the next hook sees. creating is true for Create.
//
// h is the handle of the surrounding transaction. Hooks that touch storage
// must use h: the store holds a single connection, so opening a second
// transaction from a hook blocks forever.
type SaveHook[T any] func(ctx context.Context, h store.Handle, e T, creating bool) (T, error)

// LoadHook runs after entities are read. single is true for Get and for
// the load step of Update and Delete, in which case the stage must return
// exactly one entity.
type LoadHook[T any] func(ctx context.Context, entities []T, single bool) ([]T, error)

// DeleteHook runs before (pre-delete) or after (post-delete) the row is
// removed, inside the delete transaction.
type DeleteHook[T any] func(ctx context.Context, h store.Handle, e T) error

// Hooks holds the five lifecycle stages. Each stage runs in slice order,
// one hook at a time.
type Hooks[T any] struct {
	PreSave    []SaveHook[T]
	PostSave   []SaveHook[T]
	AfterLoad  []LoadHook[T]
	PreDelete  []DeleteHook[T]
	PostDelete []DeleteHook[T]
}

func (hs Hooks[T]) clone() Hooks[T] {
	return Hooks[T]{
		PreSave:    append([]SaveHook[T](nil), hs.PreSave...),
		PostSave:   append([]SaveHook[T](nil), hs.PostSave...),
		AfterLoad:  append([]LoadHook[T](nil), hs.AfterLoad...),
		PreDelete:  append([]DeleteHook[T](nil), hs.PreDelete...),
		PostDelete: append([]DeleteHook[T](nil), hs.PostDelete...),
	}
}

func runSave[T any](ctx context.Context, stage string, hooks []SaveHook[T], h store.Handle, e T, creating bool) (T, error) {
	for i, hook := range hooks {
		next, err := hook(ctx, h, e, creating)
		if err != nil {
			var zero T
			return zero, fmt.Errorf("%s hook %d: %w", stage, i, err)
		}
		e = next
	}
	return e, nil
}

func runDelete[T any](ctx context.Context, stage string, hooks []DeleteHook[T], h store.Handle, e T) error {
	for i, hook := range hooks {
		if err := hook(ctx, h, e); err != nil {
			return fmt.Errorf("%s hook %d: %w", stage, i, err)
		}
	}
	return nil
}

func runAfterLoad[T any](ctx context.Context, hooks []LoadHook[T], entities []T, single bool) ([]T, error) {
	for i, hook := range hooks {
		next, err := hook(ctx, entities, single)
		if err != nil {
			return nil, fmt.Errorf("after-load hook %d: %w", i, err)
		}
		entities = next
	}
	if single && len(entities) != 1 {
		return nil, wrapError(CodeHookContract, MsgHookContract,
			fmt.Errorf("got %d entities", len(entities)))
	}
	if entities == nil {
		entities = []T{}
	}
	return entities, nil
}
