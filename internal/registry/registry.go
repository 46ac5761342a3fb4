// Package registry maps resource names to their services and wires the
// built-in and configured resources over a store.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/crudkit/internal/resource"
	"github.com/roach88/crudkit/internal/sample"
	"github.com/roach88/crudkit/internal/store"
	"github.com/roach88/crudkit/internal/value"
)

// Registry is a concurrency-safe name to Service map.
type Registry struct {
	mu       sync.RWMutex
	services map[string]resource.Service
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{services: make(map[string]resource.Service)}
}

// Register adds svc under name. Names are unique.
func (r *Registry) Register(name string, svc resource.Service) error {
	if !store.ValidIdent(name) {
		return fmt.Errorf("invalid resource name %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[name]; ok {
		return fmt.Errorf("resource %q already registered", name)
	}
	r.services[name] = svc
	return nil
}

// Lookup returns the service registered under name.
func (r *Registry) Lookup(name string) (resource.Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[name]
	return svc, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options configure Build.
type Options struct {
	Logger *slog.Logger
	Clock  sample.Clock          // for the sample resource's hooks; system time when nil
	Keys   resource.KeyGenerator // UUIDv7 when nil
	// WithoutSample skips the built-in "test" resource.
	WithoutSample bool
}

// Build migrates s, creates tables for defs, and registers an engine for
// the sample resource and each definition.
func Build(ctx context.Context, s *store.Store, defs []resource.Definition, opts Options) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	engineOpts := []resource.Option{resource.WithLogger(logger), resource.WithKeyGenerator(opts.Keys)}

	r := New()
	if !opts.WithoutSample {
		if err := s.Migrate(ctx, sample.Migrations, sample.MigrationsRoot); err != nil {
			return nil, fmt.Errorf("migrate %s: %w", sample.Name, err)
		}
		e, err := sample.NewEngine(s, opts.Clock, engineOpts...)
		if err != nil {
			return nil, err
		}
		if err := r.Register(sample.Name, e.Objects()); err != nil {
			return nil, err
		}
	}

	for _, d := range defs {
		e, err := resource.NewDocumentEngine(s, d, resource.Hooks[value.Object]{}, engineOpts...)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureTable(ctx, e.Table()); err != nil {
			return nil, err
		}
		if err := r.Register(d.Name, e.Objects()); err != nil {
			return nil, err
		}
		logger.Debug("resource registered", "resource", d.Name, "table", d.TableName())
	}
	return r, nil
}
