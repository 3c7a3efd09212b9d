package main

import (
	"fmt"

	"produce-market/internal/repository"
	"produce-market/internal/seed"
	"produce-market/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSeedCommand(a *app) *cobra.Command {
	var (
		products int
		seedVal  uint64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a demo catalogue and default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.db()
			if err != nil {
				return err
			}
			catalog := service.NewCatalogService(repository.NewProductRepository(db), repository.NewCategoryRepository(db))
			settings := service.NewSettingsService(repository.NewSettingsRepository(db))

			res, err := seed.New(catalog, settings, seedVal, a.logger).Run(cmd.Context(), products)
			if err != nil {
				return err
			}
			a.logger.Info("Seed complete",
				zap.Int("categories", res.Categories),
				zap.Int("subcategories", res.Subcategories),
				zap.Int("products", res.Products),
				zap.Int("skipped", res.Skipped),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "created %d products in %d new categories\n", res.Products, res.Categories)
			return nil
		},
	}

	cmd.Flags().IntVar(&products, "products", 40, "number of products to create")
	cmd.Flags().Uint64Var(&seedVal, "seed", 0, "random seed (0 for random)")
	return cmd
}
