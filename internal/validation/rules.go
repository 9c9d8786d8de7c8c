package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/iyhunko/product-catalog/internal/dto"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
)

const (
	msgNameEmpty       = "Product name cannot be empty"
	msgPriceInvalid    = "Product price must be greater than 0"
	msgQuantityInvalid = "Product quantity must be greater than 0"
)

// Rules checks the business rules of a product input against a store. Build
// it over the transaction-bound store so uniqueness is checked in the same
// transaction as the write.
type Rules struct {
	products repository.ProductStore
}

func NewRules(products repository.ProductStore) *Rules {
	return &Rules{products: products}
}

// CheckCreate returns a *BusinessError for the first violated rule: blank
// name, non-positive price, non-positive quantity, then a name already in use.
func (r *Rules) CheckCreate(ctx context.Context, in dto.Product) error {
	if err := checkFields(in); err != nil {
		return err
	}

	exists, err := r.products.ExistsByName(ctx, in.Name)
	if err != nil {
		return fmt.Errorf("check name uniqueness: %w", err)
	}
	if exists {
		return nameTaken(in.Name)
	}
	return nil
}

// CheckUpdate runs the field checks of CheckCreate; uniqueness is checked only
// when the name changes, and only against other products.
func (r *Rules) CheckUpdate(ctx context.Context, existing *model.Product, in dto.Product) error {
	if err := checkFields(in); err != nil {
		return err
	}
	if in.Name == existing.Name {
		return nil
	}

	exists, err := r.products.ExistsByNameExcludingID(ctx, in.Name, existing.ID)
	if err != nil {
		return fmt.Errorf("check name uniqueness: %w", err)
	}
	if exists {
		return nameTaken(in.Name)
	}
	return nil
}

func checkFields(in dto.Product) error {
	if strings.TrimSpace(in.Name) == "" {
		return businessError(msgNameEmpty)
	}
	if in.Price == nil || *in.Price <= 0 {
		return businessError(msgPriceInvalid)
	}
	if in.Quantity == nil || *in.Quantity <= 0 {
		return businessError(msgQuantityInvalid)
	}
	return nil
}

func nameTaken(name string) *BusinessError {
	return businessError(fmt.Sprintf("Product with name '%s' already exists", name))
}
