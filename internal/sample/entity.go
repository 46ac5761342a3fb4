// Package sample provides the built-in "test" resource: a typed entity with
// one field of each storage kind, a timestamps hook and an audit trail
// written in the same transaction as each change.
package sample

import (
	"embed"
	"fmt"
	"time"

	"github.com/roach88/crudkit/internal/resource"
	"github.com/roach88/crudkit/internal/store"
	"github.com/roach88/crudkit/internal/value"
)

// Name is the resource and table name.
const Name = "test"

// AuditTable records every change to the test resource.
const AuditTable = "test_audit"

// Migrations holds the schema for the test and test_audit tables.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsRoot is the directory of Migrations that holds the files.
const MigrationsRoot = "migrations"

// Test is the sample entity.
type Test struct {
	UUID      string
	Varchar   string
	Bool      bool
	Int       int64
	JSON      value.Value // any JSON document, nil when absent
	UpdatedAt time.Time
	CreatedAt time.Time
}

// Schema returns the accessor contract for Test.
func Schema() resource.Schema[*Test] {
	return resource.Schema[*Test]{
		Name: Name,
		Key:  "uuid",
		New:  func() *Test { return &Test{} },
		Fields: []resource.Field[*Test]{
			{
				Name: "uuid", Kind: store.KindString,
				Get: func(t *Test) value.Value { return optionalString(t.UUID) },
				Set: func(t *Test, v value.Value) (err error) {
					t.UUID, err = stringOrEmpty(v)
					return err
				},
			},
			{
				Name: "varchar", Kind: store.KindString,
				Get: func(t *Test) value.Value { return value.String(t.Varchar) },
				Set: func(t *Test, v value.Value) (err error) {
					t.Varchar, err = stringOrEmpty(v)
					return err
				},
			},
			{
				Name: "bool", Kind: store.KindBool,
				Get: func(t *Test) value.Value { return value.Bool(t.Bool) },
				Set: func(t *Test, v value.Value) error {
					if value.IsNull(v) {
						t.Bool = false
						return nil
					}
					b, err := value.AsBool(v)
					t.Bool = b
					return err
				},
			},
			{
				Name: "int", Kind: store.KindInt,
				Get: func(t *Test) value.Value { return value.Int(t.Int) },
				Set: func(t *Test, v value.Value) error {
					if value.IsNull(v) {
						t.Int = 0
						return nil
					}
					n, err := value.AsInt(v)
					t.Int = n
					return err
				},
			},
			{
				Name: "json", Kind: store.KindJSON,
				Get: func(t *Test) value.Value {
					if t.JSON == nil {
						return value.Null{}
					}
					return t.JSON
				},
				Set: func(t *Test, v value.Value) error {
					t.JSON = v
					return nil
				},
			},
			{
				Name: "updatedAt", Kind: store.KindTime,
				Get:  func(t *Test) value.Value { return timeValue(t.UpdatedAt) },
				Set:  func(t *Test, v value.Value) (err error) { t.UpdatedAt, err = parseTime(v); return err },
			},
			{
				Name: "createdAt", Kind: store.KindTime,
				Get:  func(t *Test) value.Value { return timeValue(t.CreatedAt) },
				Set:  func(t *Test, v value.Value) (err error) { t.CreatedAt, err = parseTime(v); return err },
			},
		},
	}
}

// Options returns the resource options for Test with hooks bound to
// clock.
func Options(clock Clock) resource.Options[*Test] {
	return resource.Options[*Test]{
		Searchable:   []string{"varchar"},
		Filterable:   []string{"varchar", "bool", "int"},
		Distinctable: []string{"int", "varchar"},
		Hooks: resource.Hooks[*Test]{
			PreSave:    []resource.SaveHook[*Test]{Timestamps(clock)},
			PostSave:   []resource.SaveHook[*Test]{AuditSave(clock)},
			PostDelete: []resource.DeleteHook[*Test]{AuditDelete(clock)},
		},
	}
}

// NewEngine creates the test resource engine. The tables must already
// exist (see Migrations).
func NewEngine(backend resource.Backend, clock Clock, options ...resource.Option) (*resource.Engine[*Test], error) {
	if clock == nil {
		clock = SystemClock{}
	}
	return resource.New(backend, Schema(), Options(clock), options...)
}

func optionalString(s string) value.Value {
	if s == "" {
		return value.Null{}
	}
	return value.String(s)
}

func stringOrEmpty(v value.Value) (string, error) {
	if value.IsNull(v) {
		return "", nil
	}
	return value.AsString(v)
}

func timeValue(t time.Time) value.Value {
	if t.IsZero() {
		return value.Null{}
	}
	return value.String(t.UTC().Format(time.RFC3339Nano))
}

func parseTime(v value.Value) (time.Time, error) {
	if value.IsNull(v) {
		return time.Time{}, nil
	}
	s, err := value.AsString(v)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t.UTC(), nil
}
