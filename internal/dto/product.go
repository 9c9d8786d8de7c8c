// Package dto holds the external representation of a product and its mapping
// to and from the stored record.
package dto

import (
	"time"

	"github.com/iyhunko/product-catalog/internal/model"
)

// Product is the caller-facing shape of a product, used both as request body
// and response. Pointer fields distinguish an absent value from zero.
type Product struct {
	ID          int64               `json:"id,omitempty"`
	Name        string              `json:"name" validate:"required,notblank"`
	Description string              `json:"description"`
	Price       *float64            `json:"price" validate:"required,gt=0"`
	Quantity    *int                `json:"quantity" validate:"required,gt=0"`
	Status      model.ProductStatus `json:"status,omitempty" validate:"omitempty,oneof=ACTIVE INACTIVE DISCONTINUED"`
	CreatedAt   *time.Time          `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time          `json:"updatedAt,omitempty"`
}

// ToExternal maps a stored record to its external shape.
func ToExternal(p *model.Product) Product {
	price := p.Price
	quantity := p.Quantity
	createdAt := p.CreatedAt
	updatedAt := p.UpdatedAt
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       &price,
		Quantity:    &quantity,
		Status:      p.Status,
		CreatedAt:   &createdAt,
		UpdatedAt:   &updatedAt,
	}
}

// ToExternalList maps records preserving their order.
func ToExternalList(products []*model.Product) []Product {
	result := make([]Product, 0, len(products))
	for _, p := range products {
		result = append(result, ToExternal(p))
	}
	return result
}

// ToRecord maps an input to a new record. The id is carried through when
// present; timestamps are left for the store to assign.
func ToRecord(in Product) *model.Product {
	p := &model.Product{ID: in.ID}
	ApplyUpdate(p, in)
	return p
}

// ApplyUpdate overwrites the mutable fields of p with those of in, leaving the
// id and timestamps untouched. An absent status becomes ACTIVE.
func ApplyUpdate(p *model.Product, in Product) {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = valueOf(in.Price)
	p.Quantity = valueOf(in.Quantity)
	p.Status = in.Status
	if p.Status == "" {
		p.Status = model.ProductStatusActive
	}
}

func valueOf[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}
