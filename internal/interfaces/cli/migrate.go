package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/database/postgres"
)

var migrateSteps int

// NewMigrateCmd creates the schema-migration command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the record store schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RunMigrations(postgres.BuildDSN(cliCtx.Config.Database)); err != nil {
				return err
			}
			PrintSuccess(cmd, "migrations applied")
			return nil
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RollbackMigration(postgres.BuildDSN(cliCtx.Config.Database), migrateSteps); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", migrateSteps))
			return nil
		},
	}
	downCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationVersion(postgres.BuildDSN(cliCtx.Config.Database))
			if err != nil {
				return err
			}
			state := "clean"
			if dirty {
				state = "dirty"
			}
			return PrintResult(cmd, fmt.Sprintf("schema version %d (%s)", version, state))
		},
	}

	cmd.AddCommand(upCmd, downCmd, versionCmd)
	return cmd
}
