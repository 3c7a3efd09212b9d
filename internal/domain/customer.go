package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Segment buckets customers by purchase behaviour
type Segment string

const (
	SegmentNew      Segment = "new"
	SegmentRepeat   Segment = "repeat"
	SegmentLoyal    Segment = "loyal"
	SegmentAtRisk   Segment = "at_risk"
	SegmentInactive Segment = "inactive"
)

var AllSegments = []Segment{SegmentNew, SegmentRepeat, SegmentLoyal, SegmentAtRisk, SegmentInactive}

func (s Segment) IsValid() bool {
	for _, seg := range AllSegments {
		if seg == s {
			return true
		}
	}
	return false
}

// Segmentation thresholds
const (
	AtRiskAfter      = 60 * 24 * time.Hour
	LoyalOrderCount  = 5
	RepeatOrderCount = 2
)

// LoyalSpend is the lifetime spend that makes a customer loyal regardless of order count.
var LoyalSpend = decimal.NewFromInt(10000)

// CustomerStats summarises one customer's order history
type CustomerStats struct {
	UserID            uuid.UUID       `json:"user_id"`
	Email             string          `json:"email"`
	FullName          string          `json:"full_name"`
	Phone             string          `json:"phone"`
	JoinedAt          time.Time       `json:"joined_at"`
	OrderCount        int             `json:"order_count"`
	TotalSpend        decimal.Decimal `json:"total_spend"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	FirstOrderAt      *time.Time      `json:"first_order_at,omitempty"`
	LastOrderAt       *time.Time      `json:"last_order_at,omitempty"`
	Segment           Segment         `json:"segment"`
}

// Classify assigns a segment. Rules are checked in order: no orders,
// lapsed, high value, returning, first-time.
func Classify(orderCount int, spend decimal.Decimal, lastOrderAt *time.Time, now time.Time) Segment {
	switch {
	case orderCount == 0 || lastOrderAt == nil:
		return SegmentInactive
	case now.Sub(*lastOrderAt) > AtRiskAfter:
		return SegmentAtRisk
	case orderCount >= LoyalOrderCount || spend.GreaterThanOrEqual(LoyalSpend):
		return SegmentLoyal
	case orderCount >= RepeatOrderCount:
		return SegmentRepeat
	default:
		return SegmentNew
	}
}

// Finalize fills derived fields.
func (c *CustomerStats) Finalize(now time.Time) {
	if c.OrderCount > 0 {
		c.AverageOrderValue = c.TotalSpend.Div(decimal.NewFromInt(int64(c.OrderCount))).Round(2)
	} else {
		c.AverageOrderValue = decimal.Zero
	}
	c.Segment = Classify(c.OrderCount, c.TotalSpend, c.LastOrderAt, now)
}

// SegmentSummary is one row of the segment overview
type SegmentSummary struct {
	Segment   Segment         `json:"segment"`
	Customers int             `json:"customers"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// SummarizeSegments counts customers and revenue per segment, in AllSegments order.
func SummarizeSegments(customers []*CustomerStats) []*SegmentSummary {
	index := make(map[Segment]*SegmentSummary, len(AllSegments))
	out := make([]*SegmentSummary, 0, len(AllSegments))
	for _, seg := range AllSegments {
		row := &SegmentSummary{Segment: seg, Revenue: decimal.Zero}
		index[seg] = row
		out = append(out, row)
	}
	for _, c := range customers {
		row, ok := index[c.Segment]
		if !ok {
			continue
		}
		row.Customers++
		row.Revenue = row.Revenue.Add(c.TotalSpend)
	}
	return out
}

// CustomerFilter narrows the admin customer listing
type CustomerFilter struct {
	Segment  *Segment
	Search   string
	Page     int
	PageSize int
}
