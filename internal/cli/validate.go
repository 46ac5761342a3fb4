package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/crudkit/internal/config"
	"github.com/roach88/crudkit/internal/registry"
	"github.com/roach88/crudkit/internal/resource"
	"github.com/roach88/crudkit/internal/store"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool     `json:"valid"`
	Resources []string `json:"resources,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <resources-file>",
		Short: "Validate resource definitions",
		Long: `Validate a resource definitions file without touching a database.

The file is decoded (yaml, cue or json by extension), every definition is
checked, and the resulting tables are created in a scratch in-memory
database to catch anything SQLite rejects.

Exit codes:
  0 - All definitions valid
  1 - One or more definitions invalid
  2 - Command error (file missing, unsupported format)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	defs, err := config.LoadResources(path)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) || errors.Is(err, config.ErrUnsupportedFormat) {
			return WrapExitError(ExitCommandError, "failed to load resources", err)
		}
		return outputValidationErrors(formatter, splitErrors(err))
	}
	formatter.VerboseLog("Loaded %d resource(s) from %s", len(defs), path)

	names, err := dryRun(commandContext(cmd), opts, defs)
	if err != nil {
		return outputValidationErrors(formatter, splitErrors(err))
	}

	result := ValidationResult{Valid: true, Resources: names}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %d resource(s) valid: %s\n", len(names), strings.Join(names, ", "))
	return nil
}

// dryRun registers defs, next to the built-in sample resource, against a
// scratch in-memory database and returns their names in file order.
func dryRun(ctx context.Context, opts *RootOptions, defs []resource.Definition) ([]string, error) {
	st, err := store.Open(":memory:", store.WithLogger(opts.logger()))
	if err != nil {
		return nil, err
	}
	defer st.Close()

	if _, err := registry.Build(ctx, st, defs, registry.Options{Logger: opts.logger()}); err != nil {
		return nil, err
	}
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names, nil
}

// splitErrors breaks a joined error into one message per line.
func splitErrors(err error) []string {
	var out []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []string) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    ErrCodeInvalidDefinition,
				Message: errs[0],
			},
		}
		if err := formatter.encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", e)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
