package resource

import (
	"context"

	"github.com/roach88/crudkit/internal/queryspec"
	"github.com/roach88/crudkit/internal/store"
	"github.com/roach88/crudkit/internal/value"
)

// Service is an engine with its entity type erased: entities are rendered
// as objects keyed by field name. Transports and the registry work with
// Services so typed and runtime-defined resources can sit side by side.
type Service interface {
	Table() *store.Table
	Create(ctx context.Context, body value.Value) (value.Object, error)
	Get(ctx context.Context, id string) (value.Object, error)
	Update(ctx context.Context, id string, body value.Value) (value.Object, error)
	Delete(ctx context.Context, id string) (value.Object, error)
	List(ctx context.Context, params queryspec.Params) (Page[value.Object], error)
	Distinct(ctx context.Context, field string) ([]string, error)
}

// Objects returns the engine as a Service.
func (e *Engine[T]) Objects() Service {
	return objectService[T]{e: e}
}

type objectService[T any] struct {
	e *Engine[T]
}

func (s objectService[T]) Table() *store.Table { return s.e.table }

func (s objectService[T]) render(entity T, err error) (value.Object, error) {
	if err != nil {
		return nil, err
	}
	return s.e.schema.toRow(entity), nil
}

func (s objectService[T]) Create(ctx context.Context, body value.Value) (value.Object, error) {
	return s.render(s.e.Create(ctx, body))
}

func (s objectService[T]) Get(ctx context.Context, id string) (value.Object, error) {
	return s.render(s.e.Get(ctx, id))
}

func (s objectService[T]) Update(ctx context.Context, id string, body value.Value) (value.Object, error) {
	return s.render(s.e.Update(ctx, id, body))
}

func (s objectService[T]) Delete(ctx context.Context, id string) (value.Object, error) {
	return s.render(s.e.Delete(ctx, id))
}

func (s objectService[T]) List(ctx context.Context, params queryspec.Params) (Page[value.Object], error) {
	page, err := s.e.List(ctx, params)
	if err != nil {
		return Page[value.Object]{}, err
	}
	items := make([]value.Object, len(page.Items))
	for i, entity := range page.Items {
		items[i] = s.e.schema.toRow(entity)
	}
	return Page[value.Object]{Items: items, Count: page.Count}, nil
}

func (s objectService[T]) Distinct(ctx context.Context, field string) ([]string, error) {
	return s.e.Distinct(ctx, field)
}
