package main

import (
	"fmt"
	"strings"
	"time"

	"produce-market/internal/repository"

	"github.com/spf13/cobra"
)

func newTokensCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Maintain refresh tokens",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete refresh tokens that have expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.db()
			if err != nil {
				return err
			}
			n, err := repository.NewRefreshTokenRepository(db).DeleteExpired(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired tokens\n", n)
			return nil
		},
	})

	var email string
	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Sign a user out of every session",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.db()
			if err != nil {
				return err
			}
			user, err := repository.NewUserRepository(db).FindByEmail(cmd.Context(), strings.ToLower(strings.TrimSpace(email)))
			if err != nil {
				return err
			}
			if err := repository.NewRefreshTokenRepository(db).RevokeAllForUser(cmd.Context(), user.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked sessions for %s\n", user.Email)
			return nil
		},
	}
	revoke.Flags().StringVar(&email, "email", "", "account email")
	revoke.MarkFlagRequired("email")

	cmd.AddCommand(revoke)
	return cmd
}
