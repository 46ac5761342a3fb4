package resource

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/crudkit/internal/store"
	"github.com/roach88/crudkit/internal/value"
)

// Field is the accessor contract for one named field of T.
//
// Set receives values already normalized to Kind (Int for int fields,
// Float for float fields, RFC 3339 String for time fields) or Null.
type Field[T any] struct {
	Name string
	Kind store.Kind
	Get  func(T) value.Value
	Set  func(T, value.Value) error
}

// Schema describes how the engine constructs and accesses entities of
// type T, and which table stores them.
//
// T is normally a pointer type so that Set can mutate the entity in place.
type Schema[T any] struct {
	Name   string // table name
	Key    string // name of the resource key field
	New    func() T
	Fields []Field[T]
}

// Validate checks the schema and the table it implies.
func (s Schema[T]) Validate() error {
	if s.New == nil {
		return fmt.Errorf("schema %q: New is required", s.Name)
	}
	for _, f := range s.Fields {
		if f.Get == nil || f.Set == nil {
			return fmt.Errorf("schema %q: field %q needs Get and Set", s.Name, f.Name)
		}
	}
	return s.Table().Validate()
}

// Table returns the storage table for the schema. Columns follow field order.
func (s Schema[T]) Table() *store.Table {
	cols := make([]store.Column, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = store.Column{Name: f.Name, Kind: f.Kind}
	}
	return &store.Table{Name: s.Name, Key: s.Key, Columns: cols}
}

func (s Schema[T]) field(name string) (Field[T], bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field[T]{}, false
}

func (s Schema[T]) keyField() Field[T] {
	f, _ := s.field(s.Key)
	return f
}

// toRow renders the entity's fields as a storage row.
func (s Schema[T]) toRow(e T) value.Object {
	row := make(value.Object, len(s.Fields))
	for _, f := range s.Fields {
		v := f.Get(e)
		if v == nil {
			v = value.Null{}
		}
		row[f.Name] = v
	}
	return row
}

// fromRow constructs an entity from a stored row.
func (s Schema[T]) fromRow(row value.Object) (T, error) {
	e := s.New()
	for _, f := range s.Fields {
		v, ok := row[f.Name]
		if !ok {
			v = value.Null{}
		}
		if err := f.Set(e, v); err != nil {
			var zero T
			return zero, fmt.Errorf("load field %q: %w", f.Name, err)
		}
	}
	return e, nil
}

// assign overwrites the fields of e that body names. Keys that are not
// fields are ignored; values that do not fit the field kind are rejected.
func (s Schema[T]) assign(e T, body value.Object) error {
	var errs []error
	for _, name := range body.SortedKeys() {
		f, ok := s.field(name)
		if !ok {
			continue
		}
		v, ok := normalize(f.Kind, body[name])
		if !ok {
			errs = append(errs, fmt.Errorf("field %q expects %s, got %s", name, f.Kind, value.TypeName(body[name])))
			continue
		}
		if err := f.Set(e, v); err != nil {
			errs = append(errs, fmt.Errorf("field %q: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return newError(CodeInvalidInput, errors.Join(errs...).Error())
	}
	return nil
}

// normalize converts v to the canonical value for kind k.
// Reports false when v does not fit k.
func normalize(k store.Kind, v value.Value) (value.Value, bool) {
	if value.IsNull(v) {
		return value.Null{}, true
	}
	if !store.Fits(k, v) {
		return nil, false
	}
	switch k {
	case store.KindInt:
		n, _ := value.AsInt(v)
		return value.Int(n), true
	case store.KindFloat:
		f, _ := value.AsFloat(v)
		return value.Float(f), true
	case store.KindTime:
		t, _ := time.Parse(time.RFC3339Nano, string(v.(value.String)))
		return value.String(t.UTC().Format(time.RFC3339Nano)), true
	default:
		return v, true
	}
}
