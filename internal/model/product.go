package model

import (
	"time"
)

// ProductStatus is the lifecycle state of a catalog product.
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "ACTIVE"
	ProductStatusInactive     ProductStatus = "INACTIVE"
	ProductStatusDiscontinued ProductStatus = "DISCONTINUED"
)

// Valid reports whether s is one of the known statuses.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusActive, ProductStatusInactive, ProductStatusDiscontinued:
		return true
	}
	return false
}

// Product represents a product entity with its properties and metadata.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	Quantity    int
	Status      ProductStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InitMeta initializes the product timestamps. The ID is assigned by the store.
func (p *Product) InitMeta() {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = ProductStatusActive
	}
}

// Touch refreshes the update timestamp.
func (p *Product) Touch() {
	p.UpdatedAt = time.Now().UTC()
}
