package repository

import (
	"strings"

	"github.com/iyhunko/product-catalog/internal/model"
)

// ProductFilter is a conjunctive product predicate. Nil fields impose no constraint.
type ProductFilter struct {
	// Name matches as a case-insensitive substring.
	Name     *string
	MinPrice *float64
	MaxPrice *float64
}

// NewProductFilter builds a filter from optional search values. A blank name
// is treated as absent.
func NewProductFilter(name string, minPrice, maxPrice *float64) ProductFilter {
	f := ProductFilter{MinPrice: minPrice, MaxPrice: maxPrice}
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		f.Name = &trimmed
	}
	return f
}

// IsEmpty reports whether the filter has no predicates.
func (f ProductFilter) IsEmpty() bool {
	return f.Name == nil && f.MinPrice == nil && f.MaxPrice == nil
}

// Matches evaluates the filter against a product in memory.
func (f ProductFilter) Matches(p *model.Product) bool {
	if f.Name != nil && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(*f.Name)) {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	return true
}
