package main

import (
	"fmt"
	"time"

	"produce-market/internal/repository"
	"produce-market/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAdminCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage back-office accounts",
	}

	var email, password, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account or promote an existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.db()
			if err != nil {
				return err
			}
			users := service.NewUserService(
				repository.NewUserRepository(db),
				repository.NewRefreshTokenRepository(db),
				a.cfg.JWT.Secret,
				service.WithTokenExpiry(
					time.Duration(a.cfg.JWT.AccessExpiry)*time.Minute,
					time.Duration(a.cfg.JWT.RefreshExpiry)*24*time.Hour,
				),
			)

			user, err := users.CreateAdmin(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}
			a.logger.Info("Admin ready", zap.String("user_id", user.ID.String()), zap.String("email", user.Email))
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "admin email")
	create.Flags().StringVar(&password, "password", "", "password, at least 8 characters")
	create.Flags().StringVar(&name, "name", "Store Admin", "full name")
	create.MarkFlagRequired("email")
	create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}
