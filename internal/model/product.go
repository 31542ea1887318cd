package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is owned by the catalog; this service reads it and writes only stock/in_stock.
type Product struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	SKU       string          `db:"sku" json:"sku"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Stock     int             `db:"stock" json:"stock"`
	InStock   bool            `db:"in_stock" json:"in_stock"`
	IsActive  bool            `db:"is_active" json:"is_active"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

type OrderLine struct {
	Quantity  int       `db:"quantity"`
	CreatedAt time.Time `db:"created_at"`
}

type SupplierLink struct {
	SupplierID              string          `db:"supplier_id"`
	LeadTime                *int            `db:"lead_time"` // Nullable, falls back to supplier default
	Cost                    decimal.Decimal `db:"cost"`
	SupplierLeadTimeDefault int             `db:"supplier_lead_time_default"`
}

// EffectiveLeadTime returns the link override or the supplier default, in days.
func (s SupplierLink) EffectiveLeadTime() int {
	if s.LeadTime != nil {
		return *s.LeadTime
	}
	return s.SupplierLeadTimeDefault
}
