package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/leafsii/leafsii-cms/internal/config"
	gdb "github.com/leafsii/leafsii-cms/internal/db"
	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
	"github.com/leafsii/leafsii-cms/internal/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "cmsctl",
	Short: "Operator tasks for the CMS",
	Long: `cmsctl runs maintenance tasks against the configured CMS database.

Configuration is read from CMS_* environment variables and .env files,
the same way the server reads it.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(seedCmd)
}

// env is what every subcommand works with
type env struct {
	cfg      *config.Config
	logger   *zap.SugaredLogger
	database interfaces.Database
}

func (e *env) Close() {
	e.database.Disconnect(context.Background())
	e.logger.Sync()
}

// open loads config and connects; migrate runs the schema migrations too
func open(ctx context.Context, migrate bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	database, err := gdb.NewDatabase(&gdb.Config{
		Type:         cfg.Database.Type,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	}, logger)
	if err != nil {
		return nil, err
	}
	if migrate {
		err = gdb.ConnectAndMigrate(ctx, database, gdb.AllSchemas())
	} else {
		err = database.Connect(ctx)
	}
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, database: database}, nil
}
