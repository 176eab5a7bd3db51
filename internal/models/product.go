package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus is the soft lifecycle state of a product. Products are never hard-deleted.
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

func (s ProductStatus) String() string {
	return string(s)
}

// Valid reports whether s is a known status.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusActive, ProductStatusInactive, ProductStatusDiscontinued:
		return true
	}
	return false
}

// Product is a stocked consumable.
type Product struct {
	ID             string
	Name           string
	Category       string // "dairy", "grain", "produce"
	Unit           string // "kg", "l", "pcs"
	StockQuantity  decimal.Decimal
	MinStockLevel  decimal.Decimal
	MaxStockLevel  decimal.Decimal
	PricePerUnit   decimal.Decimal
	ExpirationDate *time.Time
	BatchNumber    *string
	Status         ProductStatus
	Version        int64 // incremented on every stock write
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsLowStock reports whether stock has fallen below the minimum level.
func (p *Product) IsLowStock() bool {
	return p.StockQuantity.LessThan(p.MinStockLevel)
}

// Covers reports whether current stock can satisfy qty.
func (p *Product) Covers(qty decimal.Decimal) bool {
	return p.StockQuantity.GreaterThanOrEqual(qty)
}

// IsExpired reports whether the product is past its expiration date.
func (p *Product) IsExpired(now time.Time) bool {
	if p.ExpirationDate == nil {
		return false
	}
	return now.After(*p.ExpirationDate)
}

// ExpiresWithin reports whether the product expires within days of now but is not yet expired.
func (p *Product) ExpiresWithin(now time.Time, days int) bool {
	if p.ExpirationDate == nil || p.IsExpired(now) {
		return false
	}
	return !p.ExpirationDate.After(now.AddDate(0, 0, days))
}

// DaysUntilExpiration returns whole days until expiration, -1 if the product does not expire.
func (p *Product) DaysUntilExpiration(now time.Time) int {
	if p.ExpirationDate == nil {
		return -1
	}
	return int(p.ExpirationDate.Sub(now).Hours() / 24)
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Category string
	Status   *ProductStatus
	Search   string
}

// ProductList is a page of products.
type ProductList struct {
	Products   []*Product
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// PurchaseRecord is a stock receipt. Recording one increases product stock.
type PurchaseRecord struct {
	ID           string
	ProductID    string
	Quantity     decimal.Decimal
	PricePerUnit decimal.Decimal
	Supplier     string
	PurchasedAt  time.Time
	CreatedAt    time.Time
}

// Cost returns quantity times unit price.
func (r *PurchaseRecord) Cost() decimal.Decimal {
	return r.Quantity.Mul(r.PricePerUnit)
}
