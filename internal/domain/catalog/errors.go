// internal/domain/catalog/errors.go
package catalog

import (
	"errors"
	"fmt"
)

// ErrProductHasSales is returned when deleting a product whose variants are
// referenced by recorded sales. Blocking here keeps the movement ledger's
// references intact.
var ErrProductHasSales = errors.New("product has recorded sales and cannot be deleted")

// InsufficientStockError is returned when a quantity change would drive a
// variant's on-hand quantity negative
type InsufficientStockError struct {
	VariantID uint
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s: available %d, requested %d",
		e.SKU, e.Available, e.Requested)
}

// Shortfall returns how many units the request exceeded the stock by
func (e *InsufficientStockError) Shortfall() int {
	return e.Requested - e.Available
}

// IsInsufficientStock reports whether err is an InsufficientStockError
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
