package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"produce-market/internal/domain"
	"produce-market/internal/export"
	"produce-market/internal/repository"
)

// CustomerService segments customers by purchase history
type CustomerService interface {
	ListCustomers(ctx context.Context, filter domain.CustomerFilter) (*Page[*domain.CustomerStats], error)
	SegmentSummary(ctx context.Context) ([]*domain.SegmentSummary, error)
	ExportCustomers(ctx context.Context, filter domain.CustomerFilter, w io.Writer) error
}

type customerService struct {
	customers repository.CustomerRepository
	now       func() time.Time
}

func NewCustomerService(customers repository.CustomerRepository) CustomerService {
	return &customerService{customers: customers, now: time.Now}
}

// load returns classified customers, highest spend first. Segments depend
// on the current time so filtering happens here rather than in SQL.
func (s *customerService) load(ctx context.Context, filter domain.CustomerFilter) ([]*domain.CustomerStats, error) {
	stats, err := s.customers.ListStats(ctx, strings.TrimSpace(filter.Search))
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}

	now := s.now()
	out := stats[:0]
	for _, c := range stats {
		c.Finalize(now)
		if filter.Segment != nil && c.Segment != *filter.Segment {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalSpend.GreaterThan(out[j].TotalSpend)
	})
	return out, nil
}

func (s *customerService) ListCustomers(ctx context.Context, filter domain.CustomerFilter) (*Page[*domain.CustomerStats], error) {
	customers, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}

	page, pageSize := clampPage(filter.Page, filter.PageSize)
	start := (page - 1) * pageSize
	if start > len(customers) {
		start = len(customers)
	}
	end := start + pageSize
	if end > len(customers) {
		end = len(customers)
	}
	return newPage(customers[start:end], len(customers), page, pageSize), nil
}

func (s *customerService) SegmentSummary(ctx context.Context) ([]*domain.SegmentSummary, error) {
	customers, err := s.load(ctx, domain.CustomerFilter{})
	if err != nil {
		return nil, err
	}
	return domain.SummarizeSegments(customers), nil
}

func (s *customerService) ExportCustomers(ctx context.Context, filter domain.CustomerFilter, w io.Writer) error {
	customers, err := s.load(ctx, filter)
	if err != nil {
		return err
	}
	return export.WriteCustomers(w, customers)
}
