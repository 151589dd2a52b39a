package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// migrator is implemented by the SQL backends
type migrator interface {
	MigrateUp(ctx context.Context) error
	MigrateDown(ctx context.Context) error
	MigrationStatus(ctx context.Context) error
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the SQL schema migrations",
}

func init() {
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: runMigration(func(ctx context.Context, m migrator) error {
			return m.MigrateUp(ctx)
		}),
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: runMigration(func(ctx context.Context, m migrator) error {
			return m.MigrateDown(ctx)
		}),
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the state of every migration",
		RunE: runMigration(func(ctx context.Context, m migrator) error {
			return m.MigrationStatus(ctx)
		}),
	})
}

func runMigration(fn func(ctx context.Context, m migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		e, err := open(ctx, false)
		if err != nil {
			return err
		}
		defer e.Close()

		m, ok := e.database.(migrator)
		if !ok {
			return fmt.Errorf("database type %q has no migrations", e.cfg.Database.Type)
		}
		return fn(ctx, m)
	}
}
