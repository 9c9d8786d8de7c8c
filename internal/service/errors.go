package service

import "fmt"

// NotFoundError is returned when no product has the requested id.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Product not found with id: %d", e.ID)
}
