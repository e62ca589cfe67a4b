package cli

import (
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the `migrate` command: apply pending schema
// migrations to the scoring store.
func NewMigrateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := requireContext(cmd)
			if err != nil {
				return err
			}

			dir := path
			if dir == "" {
				dir = cliCtx.Config.Database.MigrationPath
			}

			conn, _, err := openStore(cliCtx)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := conn.RunMigrations(dir); err != nil {
				return err
			}
			PrintSuccess(cmd, "migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "migrations directory (default: database.migration_path)")
	return cmd
}
