package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCmd returns the mallctl migrate subcommand.  Migrations are read
// from database.migration_path.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m MigrationRunner) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printMigrationState(cmd, m)
			})
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			return withMigrator(cmd, func(m MigrationRunner) error {
				if err := m.Down(steps); err != nil {
					return err
				}
				return printMigrationState(cmd, m)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m MigrationRunner) error {
				return printMigrationState(cmd, m)
			})
		},
	}

	var version int
	force := &cobra.Command{
		Use:   "force",
		Short: "Record a schema version without running migrations, clearing the dirty flag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m MigrationRunner) error {
				if err := m.Force(version); err != nil {
					return err
				}
				return printMigrationState(cmd, m)
			})
		},
	}
	force.Flags().IntVar(&version, "version", 0, "schema version to record")
	_ = force.MarkFlagRequired("version")

	cmd.AddCommand(up, down, status, force)
	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(MigrationRunner) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	m, err := cliCtx.Migrator()
	if err != nil {
		return err
	}
	return fn(m)
}

func printMigrationState(cmd *cobra.Command, m MigrationRunner) error {
	st, err := m.Status()
	if err != nil {
		return err
	}
	if cliCtx, cerr := GetCLIContext(cmd); cerr == nil && cliCtx.OutputFormat == "json" {
		return printJSON(cmd, st)
	}
	dirty := ""
	if st.Dirty {
		dirty = " (dirty)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d%s\n", st.Version, dirty)
	return nil
}

//Personal.AI order the ending
