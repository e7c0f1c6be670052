package stock

import "context"

// Store persists stock rows. Save and SaveAll perform a version
// compare-and-swap: they fail with ErrVersionConflict when the row changed
// since it was loaded, and SaveAll is atomic across all rows so a multi-item
// allocation never leaves partial reservations behind.
type Store interface {
	Save(ctx context.Context, s *Stock) error
	SaveAll(ctx context.Context, rows []*Stock) error
	FindByID(ctx context.Context, id string) (*Stock, error)
	FindByProductAndWarehouse(ctx context.Context, productID, warehouseID string) (*Stock, error)
	FindByProduct(ctx context.Context, productID string) ([]*Stock, error)
	FindByProducts(ctx context.Context, productIDs []string) (map[string][]*Stock, error)
	SumAvailableByProduct(ctx context.Context, productID string) (int, error)
	SumReservedByProduct(ctx context.Context, productID string) (int, error)
}
