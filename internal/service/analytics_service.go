package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"produce-market/internal/domain"
	"produce-market/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidDateRange = errors.New("date range end must not be before its start")

const (
	DefaultDashboardDays = 30
	MaxDashboardDays     = 366
	TopProductsLimit     = 5
)

// AnalyticsService builds the admin dashboard
type AnalyticsService interface {
	Dashboard(ctx context.Context, from, to time.Time) (*domain.Dashboard, error)
	LowStock(ctx context.Context) ([]*domain.StockAlert, error)
}

type analyticsService struct {
	analytics repository.AnalyticsRepository
	activity  repository.ActivityRepository
	settings  SettingsService
	now       func() time.Time
}

func NewAnalyticsService(analytics repository.AnalyticsRepository, activity repository.ActivityRepository, settings SettingsService) AnalyticsService {
	return &analyticsService{analytics: analytics, activity: activity, settings: settings, now: time.Now}
}

// Dashboard aggregates [from, to] inclusive of both days. Zero bounds
// default to the last DefaultDashboardDays days.
func (s *analyticsService) Dashboard(ctx context.Context, from, to time.Time) (*domain.Dashboard, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -(DefaultDashboardDays - 1))
	}
	from, to = startOfDay(from), startOfDay(to)
	if to.Before(from) {
		return nil, ErrInvalidDateRange
	}
	if to.Sub(from) > MaxDashboardDays*24*time.Hour {
		from = to.AddDate(0, 0, -(MaxDashboardDays - 1))
	}
	end := to.AddDate(0, 0, 1)

	var (
		totals    *repository.RevenueTotals
		byStatus  map[domain.OrderStatus]int
		byMethod  map[domain.PaymentMethod]int
		customers int
		top       []*domain.ProductSales
		daily     []*domain.DailyRevenue
		visitors  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = s.analytics.Revenue(gctx, from, end)
		return err
	})
	g.Go(func() (err error) {
		byStatus, err = s.analytics.OrdersByStatus(gctx, from, end)
		return err
	})
	g.Go(func() (err error) {
		byMethod, err = s.analytics.OrdersByPaymentMethod(gctx, from, end)
		return err
	})
	g.Go(func() (err error) {
		customers, err = s.analytics.NewCustomers(gctx, from, end)
		return err
	})
	g.Go(func() (err error) {
		top, err = s.analytics.TopProducts(gctx, from, end, TopProductsLimit)
		return err
	})
	g.Go(func() (err error) {
		daily, err = s.analytics.RevenueByDay(gctx, from, end)
		return err
	})
	g.Go(func() (err error) {
		visitors, err = s.activity.UniqueSessions(gctx, from, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}

	dashboard := &domain.Dashboard{
		From:              from,
		To:                to,
		Revenue:           totals.Revenue,
		OrderCount:        totals.Orders,
		AverageOrderValue: decimal.Zero,
		OrdersByStatus:    byStatus,
		NewCustomers:      customers,
		TopProducts:       top,
		RevenueByDay:      domain.FillRevenueDays(from, to, daily),
		UniqueVisitors:    visitors,
		ConversionRate:    conversionRate(totals.Orders, visitors),
		PaymentMethods:    byMethod,
	}
	if totals.Orders > 0 {
		dashboard.AverageOrderValue = totals.Revenue.Div(decimal.NewFromInt(int64(totals.Orders))).Round(2)
	}
	if dashboard.TopProducts == nil {
		dashboard.TopProducts = []*domain.ProductSales{}
	}
	return dashboard, nil
}

// conversionRate is orders per unique visit session as a percentage.
func conversionRate(orders, sessions int) decimal.Decimal {
	if sessions <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(orders)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(sessions))).
		Round(2)
}

func (s *analyticsService) LowStock(ctx context.Context) ([]*domain.StockAlert, error) {
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	alerts, err := s.analytics.LowStock(ctx, settings.LowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to load low stock report: %w", err)
	}
	if alerts == nil {
		alerts = []*domain.StockAlert{}
	}
	return alerts, nil
}
