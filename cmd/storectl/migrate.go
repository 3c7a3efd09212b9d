package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"produce-market/internal/database"

	"github.com/spf13/cobra"
)

func newMigrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.db()
			if err != nil {
				return err
			}
			return database.RunMigrations(cmd.Context(), db, a.logger)
		},
	}, &cobra.Command{
		Use:   "status",
		Short: "Print applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.db()
			if err != nil {
				return err
			}
			statuses, err := database.MigrationStatus(cmd.Context(), db)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
			for _, st := range statuses {
				applied := "-"
				if !st.AppliedAt.IsZero() {
					applied = st.AppliedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, filepath.Base(st.Source.Path))
			}
			return tw.Flush()
		},
	})
	return cmd
}
