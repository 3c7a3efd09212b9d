// Command storectl runs operational tasks against the store database.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"produce-market/internal/config"
	"produce-market/internal/database"
	"produce-market/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app carries what every subcommand needs
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	dbSvc  *database.Service
}

func (a *app) db() (*sql.DB, error) {
	if a.dbSvc == nil {
		svc, err := database.New(a.cfg.Database)
		if err != nil {
			return nil, err
		}
		a.dbSvc = svc
	}
	return a.dbSvc.DB(), nil
}

func (a *app) close() {
	if a.dbSvc != nil {
		if err := a.dbSvc.Close(); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func newRootCommand(a *app) *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "storectl",
		Short:         "Operate the produce market backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.Load()
			// Logs go to stderr so exports can stream CSV on stdout.
			level := zapcore.InfoLevel
			if verbose {
				level = zapcore.DebugLevel
			}
			a.logger = logger.NewJSON(cmd.ErrOrStderr(), level)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newMigrateCommand(a),
		newSeedCommand(a),
		newAdminCommand(a),
		newExportCommand(a),
		newTokensCommand(a),
	)
	return root
}

func main() {
	a := &app{}
	if err := newRootCommand(a).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
