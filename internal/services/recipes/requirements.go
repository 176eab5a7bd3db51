package recipes

import (
	"github.com/shopspring/decimal"

	"github.com/sunnyside/kitchen/internal/models"
)

// Requirement is the accumulated demand for one product.
type Requirement struct {
	ProductID   string
	ProductName string
	Unit        string
	Required    decimal.Decimal
	Available   decimal.Decimal
	MealTypes   []models.MealType
}

// Shortage returns max(0, Required-Available).
func (r *Requirement) Shortage() decimal.Decimal {
	if r.Available.GreaterThanOrEqual(r.Required) {
		return decimal.Zero
	}
	return r.Required.Sub(r.Available)
}

// Sufficient reports whether current stock covers the requirement.
func (r *Requirement) Sufficient() bool {
	return r.Available.GreaterThanOrEqual(r.Required)
}

func (r *Requirement) addMealType(mt models.MealType) {
	if mt == "" {
		return
	}
	for _, existing := range r.MealTypes {
		if existing == mt {
			return
		}
	}
	r.MealTypes = append(r.MealTypes, mt)
}

// MissingProduct is an ingredient whose product could not be resolved.
type MissingProduct struct {
	DishID    string
	DishName  string
	ProductID string
}

// Requirements accumulates quantityPerServing x childCount per product,
// merging repeated references by summation.
type Requirements struct {
	byID    map[string]*Requirement
	order   []string
	Missing []MissingProduct
}

// NewRequirements returns an empty accumulator.
func NewRequirements() *Requirements {
	return &Requirements{byID: make(map[string]*Requirement)}
}

// AddDish adds every ingredient of d scaled by childCount.
// Ingredients without a resolved product contribute nothing and are listed in Missing.
func (r *Requirements) AddDish(d *models.Dish, childCount int, mt models.MealType) {
	count := decimal.NewFromInt(int64(childCount))
	for _, ing := range d.Ingredients {
		if ing.Product == nil {
			r.Missing = append(r.Missing, MissingProduct{DishID: d.ID, DishName: d.Name, ProductID: ing.ProductID})
			continue
		}

		req, ok := r.byID[ing.ProductID]
		if !ok {
			unit := ing.Product.Unit
			if unit == "" {
				unit = ing.Unit
			}
			req = &Requirement{
				ProductID:   ing.ProductID,
				ProductName: ing.Product.Name,
				Unit:        unit,
				Available:   ing.Product.StockQuantity,
			}
			r.byID[ing.ProductID] = req
			r.order = append(r.order, ing.ProductID)
		}
		req.Required = req.Required.Add(ing.QuantityPerServing.Mul(count))
		req.addMealType(mt)
	}
}

// Items returns requirements in first-seen order.
func (r *Requirements) Items() []*Requirement {
	items := make([]*Requirement, len(r.order))
	for i, id := range r.order {
		items[i] = r.byID[id]
	}
	return items
}

// Get returns the requirement for productID.
func (r *Requirements) Get(productID string) (*Requirement, bool) {
	req, ok := r.byID[productID]
	return req, ok
}

// Shortages returns the requirements stock cannot cover, in first-seen order.
func (r *Requirements) Shortages() []*Requirement {
	var short []*Requirement
	for _, req := range r.Items() {
		if !req.Sufficient() {
			short = append(short, req)
		}
	}
	return short
}

// Len returns the number of distinct products.
func (r *Requirements) Len() int {
	return len(r.order)
}
