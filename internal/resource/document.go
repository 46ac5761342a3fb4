package resource

import (
	"fmt"

	"github.com/roach88/crudkit/internal/store"
	"github.com/roach88/crudkit/internal/value"
)

// FieldDef declares one field of a runtime-defined resource.
type FieldDef struct {
	Name string     `json:"name" yaml:"name"`
	Kind store.Kind `json:"kind" yaml:"kind"`
}

// Definition declares a resource whose entities are value.Object
// documents. Definitions come from configuration rather than Go types.
type Definition struct {
	Name         string     `json:"name" yaml:"name"`
	Table        string     `json:"table,omitempty" yaml:"table,omitempty"` // defaults to Name
	Key          string     `json:"key" yaml:"key"`
	Fields       []FieldDef `json:"fields" yaml:"fields"`
	Searchable   []string   `json:"searchable,omitempty" yaml:"searchable,omitempty"`
	Filterable   []string   `json:"filterable,omitempty" yaml:"filterable,omitempty"`
	Distinctable []string   `json:"distinctable,omitempty" yaml:"distinctable,omitempty"`
}

// TableName returns the table the definition is stored in.
func (d Definition) TableName() string {
	if d.Table != "" {
		return d.Table
	}
	return d.Name
}

// Validate checks the definition the same way New checks a typed schema.
func (d Definition) Validate() error {
	if !store.ValidIdent(d.Name) {
		return fmt.Errorf("invalid resource name %q", d.Name)
	}
	schema := DocumentSchema(d)
	if err := schema.Validate(); err != nil {
		return fmt.Errorf("resource %q: %w", d.Name, err)
	}
	return d.Options().validate(schema)
}

// Options returns the definition's field lists as engine options.
func (d Definition) Options() Options[value.Object] {
	return Options[value.Object]{
		Searchable:   d.Searchable,
		Filterable:   d.Filterable,
		Distinctable: d.Distinctable,
	}
}

// DocumentSchema builds the schema for a definition. Entities are plain
// objects holding exactly the declared fields.
func DocumentSchema(d Definition) Schema[value.Object] {
	fields := make([]Field[value.Object], len(d.Fields))
	for i, fd := range d.Fields {
		name := fd.Name
		fields[i] = Field[value.Object]{
			Name: name,
			Kind: fd.Kind,
			Get:  func(o value.Object) value.Value { return o[name] },
			Set: func(o value.Object, v value.Value) error {
				o[name] = v
				return nil
			},
		}
	}
	return Schema[value.Object]{
		Name:   d.TableName(),
		Key:    d.Key,
		New:    func() value.Object { return value.Object{} },
		Fields: fields,
	}
}

// NewDocumentEngine creates an engine for a definition. hooks are added to
// the definition's options.
func NewDocumentEngine(backend Backend, d Definition, hooks Hooks[value.Object], options ...Option) (*Engine[value.Object], error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	opts := d.Options()
	opts.Hooks = hooks
	return New(backend, DocumentSchema(d), opts, options...)
}
