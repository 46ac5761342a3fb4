package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/crudkit/internal/httpapi"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve resources over HTTP",
		Long: `Serve every registered resource over HTTP until interrupted.

The database is created and migrated if needed. SIGINT or SIGTERM starts a
graceful shutdown bounded by CRUDKIT_SHUTDOWN_TIMEOUT.

Example:
  crudkit serve --db ./crudkit.db --resources ./resources.yaml
  crudkit serve --addr 127.0.0.1:9000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default $CRUDKIT_HTTP_ADDR or :8080)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := opts.Addr
	if addr == "" {
		addr = opts.Config.HTTPAddr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %v on %s\n", a.registry.Names(), addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	srv := httpapi.New(a.registry, a.logger)
	if err := srv.ListenAndServe(ctx, addr, opts.Config.ShutdownTimeout); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	a.logger.Info("server stopped gracefully")
	return nil
}
