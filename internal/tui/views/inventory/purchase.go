package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sunnyside/kitchen/internal/models"
	"github.com/sunnyside/kitchen/internal/services/inventory"
	"github.com/sunnyside/kitchen/internal/tui/components"
)

const (
	fieldQuantity = "Quantity"
	fieldPrice    = "Price per unit"
	fieldSupplier = "Supplier"
)

// PurchaseForm collects a stock receipt for one product.
type PurchaseForm struct {
	*components.Form
	product *models.Product
}

// NewPurchaseForm creates a receipt form prefilled with the product's current price.
func NewPurchaseForm(p *models.Product, styles components.Styles) *PurchaseForm {
	form := components.NewForm(fmt.Sprintf("RECEIVE %s (%s)", p.Name, p.Unit)).SetStyles(styles)
	form.AddField(components.NewInput(fieldQuantity).SetRequired(true).SetNumeric(true).SetMaxLength(12))
	form.AddField(components.NewInput(fieldPrice).SetNumeric(true).SetMaxLength(12).
		SetValue(p.PricePerUnit.String()))
	form.AddField(components.NewInput(fieldSupplier).SetWidth(30).SetMaxLength(80))
	return &PurchaseForm{Form: form, product: p}
}

// Product returns the product being received.
func (f *PurchaseForm) Product() *models.Product {
	return f.product
}

// Input parses the fields into a purchase. An empty price keeps the product's price.
func (f *PurchaseForm) Input(at time.Time) (inventory.RecordPurchaseInput, error) {
	qty, err := decimal.NewFromString(f.Field(fieldQuantity).Value())
	if err != nil {
		return inventory.RecordPurchaseInput{}, models.NewValidationError("quantity", "must be a number")
	}

	price := f.product.PricePerUnit
	if s := f.Field(fieldPrice).Value(); s != "" {
		if price, err = decimal.NewFromString(s); err != nil {
			return inventory.RecordPurchaseInput{}, models.NewValidationError("price_per_unit", "must be a number")
		}
	}

	return inventory.RecordPurchaseInput{
		ProductID:    f.product.ID,
		Quantity:     qty,
		PricePerUnit: price,
		Supplier:     f.Field(fieldSupplier).Value(),
		PurchasedAt:  at,
	}, nil
}
