package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/crudkit/internal/config"
	"github.com/roach88/crudkit/internal/registry"
	"github.com/roach88/crudkit/internal/resource"
	"github.com/roach88/crudkit/internal/store"
)

// app is an opened database with every resource registered.
type app struct {
	store    *store.Store
	registry *registry.Registry
	logger   *slog.Logger
}

// openApp loads the configured definitions, opens the database, and
// migrates and registers every resource.
func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	logger := opts.logger()

	var defs []resource.Definition
	if path := opts.Config.ResourcesFile; path != "" {
		loaded, err := config.LoadResources(path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load resources", err)
		}
		defs = loaded
		logger.Debug("resources loaded", "path", path, "count", len(defs))
	}

	if opts.Config.DBPath == "" {
		return nil, NewExitError(ExitCommandError, "database path is required (--db or CRUDKIT_DB_PATH)")
	}
	logger.Debug("opening database", "path", opts.Config.DBPath)
	st, err := store.Open(opts.Config.DBPath, store.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	reg, err := registry.Build(ctx, st, defs, registry.Options{
		Logger: logger,
		Keys:   opts.Keys,
	})
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to register resources", err)
	}

	return &app{store: st, registry: reg, logger: logger}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

// service resolves a resource name.
func (a *app) service(name string) (resource.Service, error) {
	svc, ok := a.registry.Lookup(name)
	if !ok {
		return nil, &resource.Error{Code: resource.CodeNotFound, Message: resource.MsgNotFound}
	}
	return svc, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
