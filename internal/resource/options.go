package resource

import (
	"fmt"
	"log/slog"
	"slices"
)

// Options configure a resource. They are copied by New and never change
// afterwards.
type Options[T any] struct {
	// Searchable fields are OR-ed for the search parameter, in this order.
	Searchable []string
	// Filterable fields may be matched exactly by request parameters.
	Filterable []string
	// Distinctable fields may be listed with Distinct.
	Distinctable []string

	Hooks Hooks[T]
}

func (o Options[T]) clone() Options[T] {
	return Options[T]{
		Searchable:   slices.Clone(o.Searchable),
		Filterable:   slices.Clone(o.Filterable),
		Distinctable: slices.Clone(o.Distinctable),
		Hooks:        o.Hooks.clone(),
	}
}

func (o Options[T]) validate(schema Schema[T]) error {
	lists := []struct {
		name   string
		fields []string
	}{
		{"searchable", o.Searchable},
		{"filterable", o.Filterable},
		{"distinctable", o.Distinctable},
	}
	for _, l := range lists {
		for _, name := range l.fields {
			if _, ok := schema.field(name); !ok {
				return fmt.Errorf("resource %q: %s field %q is not a schema field", schema.Name, l.name, name)
			}
		}
	}
	return nil
}

// Option configures engine infrastructure.
type Option func(*settings)

type settings struct {
	logger *slog.Logger
	keys   KeyGenerator
}

// WithLogger sets the engine logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKeyGenerator sets how keys are generated for string-keyed
// resources. The default is UUIDv7Keys.
func WithKeyGenerator(keys KeyGenerator) Option {
	return func(s *settings) {
		if keys != nil {
			s.keys = keys
		}
	}
}
