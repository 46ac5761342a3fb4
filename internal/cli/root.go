package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/crudkit/internal/config"
	"github.com/roach88/crudkit/internal/resource"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	DBPath    string // --db, overrides CRUDKIT_DB_PATH
	Resources string // --resources, overrides CRUDKIT_RESOURCES

	// Config is loaded from the environment before any subcommand runs,
	// with the flags above applied on top.
	Config config.Config

	// Logger is built from Config. Commands constructed on their own
	// (tests) get a discarding logger.
	Logger *slog.Logger

	// Keys overrides key generation for string-keyed resources (for
	// testing). UUIDv7 when nil.
	Keys resource.KeyGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the crudkit CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "crudkit",
		Short: "crudkit - generic resource engine",
		Long: `A generic resource engine over SQLite.

Resources are declared in a yaml, cue or json file and served over HTTP
with create, get, update, delete, list and distinct operations. The same
operations are available from the command line.

Configuration comes from CRUDKIT_* environment variables; --db and
--resources override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "path to SQLite database (default $CRUDKIT_DB_PATH or crudkit.db)")
	cmd.PersistentFlags().StringVar(&opts.Resources, "resources", "", "resource definitions file (default $CRUDKIT_RESOURCES)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	for _, sub := range NewRecordCommands(opts) {
		cmd.AddCommand(sub)
	}

	return cmd
}

// load reads the environment configuration, applies flag overrides and
// builds the logger. Logs go to stderr so JSON output stays parseable.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = o.DBPath
	}
	if flags.Changed("resources") {
		cfg.ResourcesFile = o.Resources
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	logger, err := config.NewLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	o.Config = cfg
	o.Logger = logger
	return nil
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
