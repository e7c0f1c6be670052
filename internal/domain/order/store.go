package order

import "context"

// Store persists orders. Paged queries return the matching slice plus the
// total number of matches.
type Store interface {
	Save(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	FindByUser(ctx context.Context, userID string, limit, offset int) ([]*Order, int, error)
	FindAll(ctx context.Context, limit, offset int) ([]*Order, int, error)
}
