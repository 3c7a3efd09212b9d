package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"produce-market/internal/domain"
	"produce-market/internal/repository"
	"produce-market/internal/service"

	"github.com/spf13/cobra"
)

func newExportCommand(a *app) *cobra.Command {
	var out, from, to string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an admin report as CSV",
	}
	cmd.PersistentFlags().StringVar(&out, "out", "", "output file (stdout when empty)")
	cmd.PersistentFlags().StringVar(&from, "from", "", "orders placed on or after YYYY-MM-DD")
	cmd.PersistentFlags().StringVar(&to, "to", "", "orders placed on or before YYYY-MM-DD")

	run := func(write func(ctx context.Context, w io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := write(cmd.Context(), w); err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
			}
			return nil
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "orders",
		Short: "Export orders",
		RunE: run(func(ctx context.Context, w io.Writer) error {
			db, err := a.db()
			if err != nil {
				return err
			}
			filter, err := dateFilter(from, to)
			if err != nil {
				return err
			}
			orders := service.NewOrderService(service.OrderDeps{Orders: repository.NewOrderRepository(db), Logger: a.logger})
			return orders.ExportOrders(ctx, filter, w)
		}),
	}, &cobra.Command{
		Use:   "customers",
		Short: "Export customers with their segment",
		RunE: run(func(ctx context.Context, w io.Writer) error {
			db, err := a.db()
			if err != nil {
				return err
			}
			customers := service.NewCustomerService(repository.NewCustomerRepository(db))
			return customers.ExportCustomers(ctx, domain.CustomerFilter{}, w)
		}),
	}, &cobra.Command{
		Use:   "preorders",
		Short: "Export pre-orders",
		RunE: run(func(ctx context.Context, w io.Writer) error {
			db, err := a.db()
			if err != nil {
				return err
			}
			preorders := service.NewPreOrderService(repository.NewPreOrderRepository(db), nil, nil, nil, nil, nil, a.logger)
			return preorders.ExportPreOrders(ctx, domain.PreOrderFilter{}, w)
		}),
	})
	return cmd
}

// dateFilter turns inclusive day bounds into the half-open range the
// order listing expects.
func dateFilter(from, to string) (domain.OrderFilter, error) {
	var filter domain.OrderFilter
	if from != "" {
		t, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return filter, fmt.Errorf("invalid --from: %w", err)
		}
		filter.From = &t
	}
	if to != "" {
		t, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return filter, fmt.Errorf("invalid --to: %w", err)
		}
		end := t.AddDate(0, 0, 1)
		filter.To = &end
	}
	return filter, nil
}
