package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

type ProductRepository interface {
	// FindByIDWithVariants loads the product and all of its variants.
	FindByIDWithVariants(ctx context.Context, id int64) (model.Product, error)

	// AdjustVariantStock is the stock ledger: one conditional update matched
	// on (productID, variantID). A reservation subtracts quantity and adds to
	// the variant and product sold counts; a restoration inverts the signs.
	// Returns ErrNotFound when no variant row matches. It does not enforce a
	// stock floor; callers pre-check against a snapshot and accept the race.
	AdjustVariantStock(ctx context.Context, productID int64, variantID int64, qty int64, reservation bool) error
}

// StockReconciliationRepository stores ledger adjustments that failed after
// their order was persisted, for later retry.
type StockReconciliationRepository interface {
	Create(ctx context.Context, rec model.StockReconciliation) error
	ListUnresolved(ctx context.Context, limit int) ([]model.StockReconciliation, error)
}
