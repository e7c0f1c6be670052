package shipment

import "context"

type Store interface {
	Save(ctx context.Context, s *Shipment) error
	FindByID(ctx context.Context, id string) (*Shipment, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*Shipment, error)
	FindByOrder(ctx context.Context, orderID string, limit, offset int) ([]*Shipment, int, error)
}
