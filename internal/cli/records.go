package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/crudkit/internal/queryspec"
	"github.com/roach88/crudkit/internal/resource"
	"github.com/roach88/crudkit/internal/value"
)

// NewRecordCommands creates the create, get, update, delete, list and
// distinct commands. Each opens the database, runs one operation and
// prints its result.
func NewRecordCommands(rootOpts *RootOptions) []*cobra.Command {
	return []*cobra.Command{
		recordCommand(rootOpts, &cobra.Command{
			Use:   "create <resource> <json|->",
			Short: "Create an entity",
			Long: `Create an entity from a JSON object. "-" reads the body from stdin.

Example:
  crudkit create items '{"name":"alpha","count":1}'`,
			Args: cobra.ExactArgs(2),
		}, func(ctx context.Context, svc resource.Service, cmd *cobra.Command, args []string) (any, error) {
			body, err := readBody(cmd, args[1])
			if err != nil {
				return nil, err
			}
			return svc.Create(ctx, body)
		}),
		recordCommand(rootOpts, &cobra.Command{
			Use:   "get <resource> <id>",
			Short: "Get an entity by key",
			Args:  cobra.ExactArgs(2),
		}, func(ctx context.Context, svc resource.Service, _ *cobra.Command, args []string) (any, error) {
			return svc.Get(ctx, args[1])
		}),
		recordCommand(rootOpts, &cobra.Command{
			Use:   "update <resource> <id> <json|->",
			Short: "Merge fields onto an entity",
			Long: `Merge the fields of a JSON object onto an existing entity. Omitted
fields keep their values. "-" reads the body from stdin.

Example:
  crudkit update items 0190a5c2-... '{"count":2}'`,
			Args: cobra.ExactArgs(3),
		}, func(ctx context.Context, svc resource.Service, cmd *cobra.Command, args []string) (any, error) {
			body, err := readBody(cmd, args[2])
			if err != nil {
				return nil, err
			}
			return svc.Update(ctx, args[1], body)
		}),
		recordCommand(rootOpts, &cobra.Command{
			Use:   "delete <resource> <id>",
			Short: "Delete an entity and print it",
			Args:  cobra.ExactArgs(2),
		}, func(ctx context.Context, svc resource.Service, _ *cobra.Command, args []string) (any, error) {
			return svc.Delete(ctx, args[1])
		}),
		recordCommand(rootOpts, &cobra.Command{
			Use:   "list <resource> [key=value ...]",
			Short: "List entities",
			Long: `List one page of entities. Parameters are the same as the HTTP query
string: page, pageSize, search, order, and any filterable field.

Example:
  crudkit list items search=alp count=1 order="name desc" pageSize=10`,
			Args: cobra.MinimumNArgs(1),
		}, func(ctx context.Context, svc resource.Service, _ *cobra.Command, args []string) (any, error) {
			params, err := parseParams(args[1:])
			if err != nil {
				return nil, err
			}
			return svc.List(ctx, params)
		}),
		recordCommand(rootOpts, &cobra.Command{
			Use:   "distinct <resource> <field>",
			Short: "List the distinct values of a field",
			Args:  cobra.ExactArgs(2),
		}, func(ctx context.Context, svc resource.Service, _ *cobra.Command, args []string) (any, error) {
			return svc.Distinct(ctx, args[1])
		}),
	}
}

type recordFunc func(ctx context.Context, svc resource.Service, cmd *cobra.Command, args []string) (any, error)

// recordCommand completes cmd with the shared open, lookup, run and
// print sequence. args[0] is always the resource name.
func recordCommand(rootOpts *RootOptions, cmd *cobra.Command, run recordFunc) *cobra.Command {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		formatter := rootOpts.formatter(cmd)
		ctx := commandContext(cmd)

		a, err := openApp(ctx, rootOpts)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.service(args[0])
		if err != nil {
			return formatter.Fail(err)
		}
		formatter.VerboseLog("%s %s", cmd.Name(), strings.Join(args, " "))

		out, err := run(ctx, svc, cmd, args)
		if err != nil {
			var exitErr *ExitError
			if errors.As(err, &exitErr) {
				return exitErr
			}
			return formatter.Fail(err)
		}
		return formatter.Success(out)
	}
	return cmd
}

// readBody decodes a JSON body argument; "-" reads stdin.
func readBody(cmd *cobra.Command, arg string) (value.Value, error) {
	data := []byte(arg)
	if arg == "-" {
		var err error
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read stdin", err)
		}
	}
	body, err := value.Decode(data)
	if err != nil {
		return nil, &resource.Error{Code: resource.CodeInvalidInput, Message: resource.MsgExpectedJSON, Cause: err}
	}
	return body, nil
}

// parseParams turns key=value arguments into list parameters. A
// repeated key keeps its first value, as the HTTP query string does.
func parseParams(args []string) (queryspec.Params, error) {
	params := queryspec.Params{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, &ArgsError{Message: fmt.Sprintf("invalid parameter %q: want key=value", arg)}
		}
		if _, seen := params[k]; !seen {
			params[k] = v
		}
	}
	return params, nil
}
