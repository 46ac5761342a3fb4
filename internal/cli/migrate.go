package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// MigrateResult is the output of the migrate command.
type MigrateResult struct {
	Database  string   `json:"database"`
	Resources []string `json:"resources"`
}

func (r MigrateResult) String() string {
	return fmt.Sprintf("Migrated %s: %s", r.Database, strings.Join(r.Resources, ", "))
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Apply the built-in migrations and create a table for every configured
resource that does not have one yet. Safe to run repeatedly.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(commandContext(cmd), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			return rootOpts.formatter(cmd).Success(MigrateResult{
				Database:  rootOpts.Config.DBPath,
				Resources: a.registry.Names(),
			})
		},
	}
}
