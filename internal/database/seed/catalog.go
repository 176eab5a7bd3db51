// Package seed loads a kitchen catalog of products, dishes and weekly templates
// from YAML and imports it through the services.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/sunnyside/kitchen/internal/models"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Quantity wraps decimal.Decimal for YAML unmarshaling from numbers or strings.
type Quantity decimal.Decimal

// UnmarshalYAML implements yaml.Unmarshaler for Quantity.
func (q *Quantity) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: quantity must be a scalar", value.Line)
	}
	d, err := decimal.NewFromString(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid quantity %q", value.Line, value.Value)
	}
	*q = Quantity(d)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Quantity.
func (q Quantity) MarshalYAML() (interface{}, error) {
	return decimal.Decimal(q).String(), nil
}

// Decimal returns the underlying decimal.
func (q Quantity) Decimal() decimal.Decimal {
	return decimal.Decimal(q)
}

// Catalog is the root of a seed file.
type Catalog struct {
	Version   string         `yaml:"version"`
	Products  []ProductSpec  `yaml:"products"`
	Dishes    []DishSpec     `yaml:"dishes"`
	Templates []TemplateSpec `yaml:"templates"`
}

// ProductSpec describes a product and its opening stock.
type ProductSpec struct {
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
	Unit     string   `yaml:"unit"`
	Stock    Quantity `yaml:"stock"`
	Min      Quantity `yaml:"min"`
	Max      Quantity `yaml:"max,omitempty"`
	Price    Quantity `yaml:"price"`
	Batch    string   `yaml:"batch,omitempty"`

	// ExpiresInDays is relative to the import time; zero means no expiration
	ExpiresInDays int `yaml:"expires_in_days,omitempty"`
}

// IngredientSpec references a product by name.
type IngredientSpec struct {
	Product string   `yaml:"product"`
	Qty     Quantity `yaml:"qty"`
	Unit    string   `yaml:"unit,omitempty"`
}

// DishSpec describes a recipe.
type DishSpec struct {
	Name        string           `yaml:"name"`
	Category    string           `yaml:"category"`
	Description string           `yaml:"description,omitempty"`
	Servings    int              `yaml:"servings,omitempty"`
	Ingredients []IngredientSpec `yaml:"ingredients"`
}

// TemplateSpec describes a week of meals: weekday name, then meal type, then dish names.
type TemplateSpec struct {
	Name              string                         `yaml:"name"`
	Description       string                         `yaml:"description,omitempty"`
	DefaultChildCount int                            `yaml:"default_child_count"`
	CreatedBy         string                         `yaml:"created_by"`
	Days              map[string]map[string][]string `yaml:"days"`
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks names, categories and cross references. All problems are reported together.
func (c *Catalog) Validate() error {
	var errs []error

	products := make(map[string]bool, len(c.Products))
	for i, p := range c.Products {
		switch {
		case p.Name == "":
			errs = append(errs, fmt.Errorf("products[%d]: name is required", i))
		case products[p.Name]:
			errs = append(errs, fmt.Errorf("products[%d]: duplicate name %q", i, p.Name))
		}
		if p.Unit == "" {
			errs = append(errs, fmt.Errorf("product %q: unit is required", p.Name))
		}
		if p.Stock.Decimal().IsNegative() {
			errs = append(errs, fmt.Errorf("product %q: stock cannot be negative", p.Name))
		}
		products[p.Name] = true
	}

	dishes := make(map[string]bool, len(c.Dishes))
	for i, d := range c.Dishes {
		switch {
		case d.Name == "":
			errs = append(errs, fmt.Errorf("dishes[%d]: name is required", i))
		case dishes[d.Name]:
			errs = append(errs, fmt.Errorf("dishes[%d]: duplicate name %q", i, d.Name))
		}
		if !models.MealType(d.Category).Valid() {
			errs = append(errs, fmt.Errorf("dish %q: invalid category %q", d.Name, d.Category))
		}
		if len(d.Ingredients) == 0 {
			errs = append(errs, fmt.Errorf("dish %q: at least one ingredient is required", d.Name))
		}
		for _, ing := range d.Ingredients {
			if !products[ing.Product] {
				errs = append(errs, fmt.Errorf("dish %q: unknown product %q", d.Name, ing.Product))
			}
			if !ing.Qty.Decimal().IsPositive() {
				errs = append(errs, fmt.Errorf("dish %q: quantity of %q must be positive", d.Name, ing.Product))
			}
		}
		dishes[d.Name] = true
	}

	for i, t := range c.Templates {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("templates[%d]: name is required", i))
		}
		for day, meals := range t.Days {
			if _, err := models.ParseWeekday(day); err != nil {
				errs = append(errs, fmt.Errorf("template %q: unknown weekday %q", t.Name, day))
			}
			for meal, names := range meals {
				if !models.MealType(meal).Valid() {
					errs = append(errs, fmt.Errorf("template %q: unknown meal %q on %s", t.Name, meal, day))
				}
				for _, name := range names {
					if !dishes[name] {
						errs = append(errs, fmt.Errorf("template %q: unknown dish %q", t.Name, name))
					}
				}
			}
		}
	}

	return errors.Join(errs...)
}
