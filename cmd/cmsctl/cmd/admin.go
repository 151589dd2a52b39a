package cmd

import (
	"fmt"

	"github.com/leafsii/leafsii-cms/internal/identity"
	"github.com/spf13/cobra"
)

var (
	adminUsername string
	adminEmail    string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account unless the username already exists",
	RunE:  runCreateAdmin,
}

func init() {
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "", "Admin username (default CMS_ADMIN_USERNAME)")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email (default CMS_ADMIN_EMAIL)")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Admin password (default CMS_ADMIN_PASSWORD)")
}

func runCreateAdmin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := open(ctx, true)
	if err != nil {
		return err
	}
	defer e.Close()

	username, email, password := adminUsername, adminEmail, adminPassword
	if username == "" {
		username = e.cfg.Admin.Username
	}
	if email == "" {
		email = e.cfg.Admin.Email
	}
	if password == "" {
		password = e.cfg.Admin.Password
	}

	svc := identity.NewService(e.database, identity.Options{ResetTokenTTL: e.cfg.Session.ResetTokenTTL}, nil, e.logger)
	user, created, err := svc.EnsureAdmin(ctx, username, email, password)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s <%s>\n", user.Username, user.Email)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "user %s already exists\n", user.Username)
	}
	return nil
}
