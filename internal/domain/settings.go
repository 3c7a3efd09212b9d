package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SiteSettings is the single row of store-wide configuration
type SiteSettings struct {
	StoreName             string          `json:"store_name" db:"store_name"`
	SupportEmail          string          `json:"support_email" db:"support_email"`
	SupportPhone          string          `json:"support_phone" db:"support_phone"`
	OriginLat             float64         `json:"origin_lat" db:"origin_lat"`
	OriginLng             float64         `json:"origin_lng" db:"origin_lng"`
	OriginPostalCode      string          `json:"origin_postal_code" db:"origin_postal_code"`
	PerKMCharge           decimal.Decimal `json:"per_km_charge" db:"per_km_charge"`
	FreeDeliveryThreshold decimal.Decimal `json:"free_delivery_threshold" db:"free_delivery_threshold"`
	MinOrderAmount        decimal.Decimal `json:"min_order_amount" db:"min_order_amount"`
	MaxDeliveryKM         decimal.Decimal `json:"max_delivery_km" db:"max_delivery_km"`
	LowStockThreshold     int             `json:"low_stock_threshold" db:"low_stock_threshold"`
	PreordersEnabled      bool            `json:"preorders_enabled" db:"preorders_enabled"`
	UpdatedAt             time.Time       `json:"updated_at" db:"updated_at"`
}

// PublicSettings is the subset the storefront may read anonymously
type PublicSettings struct {
	StoreName             string          `json:"store_name"`
	SupportEmail          string          `json:"support_email"`
	SupportPhone          string          `json:"support_phone"`
	FreeDeliveryThreshold decimal.Decimal `json:"free_delivery_threshold"`
	MinOrderAmount        decimal.Decimal `json:"min_order_amount"`
	PreordersEnabled      bool            `json:"preorders_enabled"`
}

func (s *SiteSettings) Public() PublicSettings {
	return PublicSettings{
		StoreName:             s.StoreName,
		SupportEmail:          s.SupportEmail,
		SupportPhone:          s.SupportPhone,
		FreeDeliveryThreshold: s.FreeDeliveryThreshold,
		MinOrderAmount:        s.MinOrderAmount,
		PreordersEnabled:      s.PreordersEnabled,
	}
}
