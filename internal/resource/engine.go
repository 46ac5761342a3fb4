package resource

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/roach88/crudkit/internal/queryir"
	"github.com/roach88/crudkit/internal/queryspec"
	"github.com/roach88/crudkit/internal/store"
	"github.com/roach88/crudkit/internal/value"
)

// Backend is the storage the engine runs on. *store.Store implements it.
type Backend interface {
	// Handle returns a non-transactional handle for reads.
	Handle() store.Handle
	// Transact runs fn in one transaction bound to ctx.
	Transact(ctx context.Context, fn store.TxFunc) error
}

// Page is one page of a list result. Count is the number of entities
// matching the filter and search, regardless of pagination.
type Page[T any] struct {
	Items []T   `json:"items"`
	Count int64 `json:"count"`
}

// Engine turns a Schema into create, read, update, delete, list and
// distinct operations with lifecycle hooks.
//
// Engine holds no per-request state and is safe for concurrent use.
type Engine[T any] struct {
	backend Backend
	schema  Schema[T]
	table   *store.Table
	opts    Options[T]
	keys    KeyGenerator
	logger  *slog.Logger
}

// New creates an engine for schema over backend.
// The schema and options are validated and copied.
func New[T any](backend Backend, schema Schema[T], opts Options[T], options ...Option) (*Engine[T], error) {
	if backend == nil {
		return nil, fmt.Errorf("resource %q: backend is required", schema.Name)
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if err := opts.validate(schema); err != nil {
		return nil, err
	}

	s := settings{
		logger: slog.New(slog.DiscardHandler),
		keys:   UUIDv7Keys{},
	}
	for _, o := range options {
		o(&s)
	}

	schema.Fields = append([]Field[T](nil), schema.Fields...)
	return &Engine[T]{
		backend: backend,
		schema:  schema,
		table:   schema.Table(),
		opts:    opts.clone(),
		keys:    s.keys,
		logger:  s.logger.With("resource", schema.Name),
	}, nil
}

// Name returns the resource's table name.
func (e *Engine[T]) Name() string { return e.schema.Name }

// Schema returns the engine's schema.
func (e *Engine[T]) Schema() Schema[T] { return e.schema }

// Table returns the storage table backing the resource.
func (e *Engine[T]) Table() *store.Table { return e.table }

// Create builds an entity from body and persists it in one transaction:
// pre-save, insert, post-save.
func (e *Engine[T]) Create(ctx context.Context, body value.Value) (T, error) {
	var zero T
	obj, err := requireObject(body)
	if err != nil {
		return zero, err
	}

	entity := e.schema.New()
	if err := e.schema.assign(entity, obj); err != nil {
		return zero, err
	}

	var created T
	err = e.backend.Transact(ctx, func(ctx context.Context, h store.Handle) error {
		entity, err := runSave(ctx, "pre-save", e.opts.Hooks.PreSave, h, entity, true)
		if err != nil {
			return err
		}

		row := e.schema.toRow(entity)
		if e.needsKey(row[e.schema.Key]) {
			row[e.schema.Key] = value.String(e.keys.Generate())
		}
		stored, err := h.Insert(ctx, e.table, row)
		if err != nil {
			return fmt.Errorf("create %s: %w", e.schema.Name, err)
		}
		if entity, err = e.schema.fromRow(stored); err != nil {
			return err
		}

		created, err = runSave(ctx, "post-save", e.opts.Hooks.PostSave, h, entity, true)
		return err
	})
	if err != nil {
		e.logger.Debug("create failed", "error", err)
		return zero, err
	}
	e.logger.Debug("created", "key", value.Text(e.schema.keyField().Get(created)))
	return created, nil
}

// Get returns the entity whose key is id, after the after-load stage.
func (e *Engine[T]) Get(ctx context.Context, id string) (T, error) {
	return e.load(ctx, e.backend.Handle(), id)
}

// Update merges body over the entity whose key is id and persists it.
// Load, merge, pre-save, update and post-save share one transaction.
// Fields absent from body keep their stored values.
func (e *Engine[T]) Update(ctx context.Context, id string, body value.Value) (T, error) {
	var zero T
	obj, err := requireObject(body)
	if err != nil {
		return zero, err
	}

	var updated T
	err = e.backend.Transact(ctx, func(ctx context.Context, h store.Handle) error {
		entity, err := e.load(ctx, h, id)
		if err != nil {
			return err
		}
		if err := e.schema.assign(entity, obj); err != nil {
			return err
		}

		entity, err = runSave(ctx, "pre-save", e.opts.Hooks.PreSave, h, entity, false)
		if err != nil {
			return err
		}

		row := e.schema.toRow(entity)
		newKey := row[e.schema.Key]
		if value.IsNull(newKey) {
			return newError(CodeInvalidInput, fmt.Sprintf("field %q must not be null", e.schema.Key))
		}
		if e.needsKey(newKey) {
			return newError(CodeInvalidInput, fmt.Sprintf("field %q must not be empty", e.schema.Key))
		}
		key, _ := e.parseKey(id)
		if err := h.Update(ctx, e.table, key, row); err != nil {
			if store.IsNotFound(err) {
				return notFound()
			}
			return fmt.Errorf("update %s: %w", e.schema.Name, err)
		}

		stored, err := h.FindByKey(ctx, e.table, newKey)
		if err != nil {
			return fmt.Errorf("update %s: reload: %w", e.schema.Name, err)
		}
		if entity, err = e.schema.fromRow(stored); err != nil {
			return err
		}

		updated, err = runSave(ctx, "post-save", e.opts.Hooks.PostSave, h, entity, false)
		return err
	})
	if err != nil {
		e.logger.Debug("update failed", "id", id, "error", err)
		return zero, err
	}
	e.logger.Debug("updated", "id", id)
	return updated, nil
}

// Delete removes the entity whose key is id and returns it as it was
// before deletion. Load, pre-delete, delete and post-delete share one
// transaction.
func (e *Engine[T]) Delete(ctx context.Context, id string) (T, error) {
	var zero T
	var deleted T
	err := e.backend.Transact(ctx, func(ctx context.Context, h store.Handle) error {
		entity, err := e.load(ctx, h, id)
		if err != nil {
			return err
		}
		if err := runDelete(ctx, "pre-delete", e.opts.Hooks.PreDelete, h, entity); err != nil {
			return err
		}

		key, _ := e.parseKey(id)
		if err := h.DeleteByKey(ctx, e.table, key); err != nil {
			if store.IsNotFound(err) {
				return notFound()
			}
			return fmt.Errorf("delete %s: %w", e.schema.Name, err)
		}

		if err := runDelete(ctx, "post-delete", e.opts.Hooks.PostDelete, h, entity); err != nil {
			return err
		}
		deleted = entity
		return nil
	})
	if err != nil {
		e.logger.Debug("delete failed", "id", id, "error", err)
		return zero, err
	}
	e.logger.Debug("deleted", "id", id)
	return deleted, nil
}

// Distinct returns the distinct non-null values of field as strings.
// Fields outside the distinctable allow-list are reported as not found.
func (e *Engine[T]) Distinct(ctx context.Context, field string) ([]string, error) {
	if !slices.Contains(e.opts.Distinctable, field) {
		return nil, notFound()
	}

	vals, err := e.backend.Handle().Distinct(ctx, e.table, field)
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", e.schema.Name, field, err)
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = value.Text(v)
	}
	return out, nil
}

// List returns one page of entities matching params, after the
// after-load stage, together with the total match count.
func (e *Engine[T]) List(ctx context.Context, params queryspec.Params) (Page[T], error) {
	spec := queryspec.Build(params, queryspec.Options{Filterable: e.opts.Filterable})

	q := e.table.Select()
	q.Filter = e.predicate(spec)
	if spec.Order != nil {
		q.Order = []queryir.Order{*spec.Order}
	}
	q.Limit = spec.Limit
	q.Offset = max(spec.Offset, 0)

	h := e.backend.Handle()
	count, err := h.Count(ctx, e.table, q.Filter)
	if err != nil {
		return Page[T]{}, fmt.Errorf("list %s: %w", e.schema.Name, err)
	}
	rows, err := h.Select(ctx, e.table, q)
	if err != nil {
		return Page[T]{}, fmt.Errorf("list %s: %w", e.schema.Name, err)
	}

	items := make([]T, 0, len(rows))
	for _, row := range rows {
		entity, err := e.schema.fromRow(row)
		if err != nil {
			return Page[T]{}, fmt.Errorf("list %s: %w", e.schema.Name, err)
		}
		items = append(items, entity)
	}

	items, err = runAfterLoad(ctx, e.opts.Hooks.AfterLoad, items, false)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Items: items, Count: count}, nil
}

// load is the single-entity read path shared by Get, Update and Delete.
// h is either the plain handle or the caller's transaction.
func (e *Engine[T]) load(ctx context.Context, h store.Handle, id string) (T, error) {
	var zero T
	key, ok := e.parseKey(id)
	if !ok {
		return zero, notFound()
	}

	row, err := h.FindByKey(ctx, e.table, key)
	if err != nil {
		if store.IsNotFound(err) {
			return zero, notFound()
		}
		return zero, fmt.Errorf("get %s: %w", e.schema.Name, err)
	}
	entity, err := e.schema.fromRow(row)
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", e.schema.Name, err)
	}

	loaded, err := runAfterLoad(ctx, e.opts.Hooks.AfterLoad, []T{entity}, true)
	if err != nil {
		return zero, err
	}
	return loaded[0], nil
}

// parseKey converts a request id to a key value. An id that cannot be a
// key of this resource reports false.
func (e *Engine[T]) parseKey(id string) (value.Value, bool) {
	if e.table.KeyKind() == store.KindInt {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, false
		}
		return value.Int(n), true
	}
	return value.String(id), true
}

// needsKey reports whether a created row must get a generated key.
// Int keys are left to the database.
func (e *Engine[T]) needsKey(key value.Value) bool {
	if e.table.KeyKind() != store.KindString {
		return false
	}
	s, ok := key.(value.String)
	return value.IsNull(key) || (ok && s == "")
}

// predicate combines search and filters from spec: the search term is
// OR-ed across searchable fields, and the result is AND-ed with each
// filter. Returns nil when nothing constrains the query.
func (e *Engine[T]) predicate(spec queryspec.Spec) queryir.Predicate {
	var preds []queryir.Predicate

	if spec.Search != "" && len(e.opts.Searchable) > 0 {
		search := queryir.Or{}
		for _, name := range e.opts.Searchable {
			search.Predicates = append(search.Predicates, queryir.ContainsFold{Field: name, Term: spec.Search})
		}
		preds = append(preds, search)
	}

	for _, name := range spec.SortedFilterKeys() {
		f, _ := e.schema.field(name)
		preds = append(preds, queryir.Equals{Field: name, Value: filterValue(f.Kind, spec.Filters[name])})
	}

	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	default:
		return queryir.And{Predicates: preds}
	}
}

// filterValue converts a raw filter parameter to the field's kind. Times
// are normalized to UTC as stored. A raw value that does not parse stays
// text, which matches no stored number, bool or time.
func filterValue(k store.Kind, raw string) value.Value {
	switch k {
	case store.KindInt:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return value.Int(n)
		}
	case store.KindFloat:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return value.Float(f)
		}
	case store.KindBool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return value.Bool(b)
		}
	case store.KindTime:
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return value.String(t.UTC().Format(time.RFC3339Nano))
		}
	}
	return value.String(raw)
}

// requireObject checks the structural shape of a create or update body.
func requireObject(body value.Value) (value.Object, error) {
	if body == nil || value.IsNull(body) {
		return nil, newError(CodeInvalidInput, MsgEmptyBody)
	}
	obj, ok := body.(value.Object)
	if !ok {
		return nil, newError(CodeInvalidInput, MsgExpectedJSON)
	}
	return obj, nil
}
