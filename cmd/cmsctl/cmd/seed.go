package cmd

import (
	"fmt"

	gdb "github.com/leafsii/leafsii-cms/internal/db"
	"github.com/leafsii/leafsii-cms/internal/identity"
	"github.com/spf13/cobra"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample or fixture content",
	Long: `Seed upserts categories and posts by slug, authored by the configured
admin account. Without --file the built-in demo content is loaded.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML fixture file")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := open(ctx, true)
	if err != nil {
		return err
	}
	defer e.Close()

	seed := gdb.DemoSeed()
	if seedFile != "" {
		if seed, err = gdb.LoadSeedFile(seedFile); err != nil {
			return err
		}
	}

	svc := identity.NewService(e.database, identity.Options{}, nil, e.logger)
	author, _, err := svc.EnsureAdmin(ctx, e.cfg.Admin.Username, e.cfg.Admin.Email, e.cfg.Admin.Password)
	if err != nil {
		return fmt.Errorf("resolve author: %w", err)
	}

	result, err := gdb.ApplySeed(ctx, e.database, author.ID, seed)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d categories and %d posts\n", result.Categories, result.Posts)
	return nil
}
