package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductInput contains data for registering a product.
type CreateProductInput struct {
	Name           string
	Category       string
	Unit           string
	InitialStock   decimal.Decimal
	MinStockLevel  decimal.Decimal
	MaxStockLevel  decimal.Decimal
	PricePerUnit   decimal.Decimal
	ExpirationDate *time.Time
	BatchNumber    *string
}

// UpdateProductInput replaces a product's descriptive fields. Stock is never touched.
type UpdateProductInput struct {
	Name           string
	Category       string
	Unit           string
	MinStockLevel  decimal.Decimal
	MaxStockLevel  decimal.Decimal
	PricePerUnit   decimal.Decimal
	ExpirationDate *time.Time
	BatchNumber    *string
}

// RecordPurchaseInput contains data for a stock receipt.
type RecordPurchaseInput struct {
	ProductID    string
	Quantity     decimal.Decimal
	PricePerUnit decimal.Decimal
	Supplier     string
	PurchasedAt  time.Time
}
