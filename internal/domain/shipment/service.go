package shipment

import (
	"context"
	"time"

	"github.com/example/fulfillment/internal/domain/event"
	"github.com/example/fulfillment/internal/sequence"
)

type Service struct {
	store   Store
	numbers sequence.Generator
	bus     event.Publisher
}

func NewService(store Store, numbers sequence.Generator, bus event.Publisher) *Service {
	return &Service{store: store, numbers: numbers, bus: bus}
}

func (s *Service) Create(ctx context.Context, orderID, warehouseID, destinationAddress string) (*Shipment, error) {
	trackingNumber, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, err
	}
	sh, err := Create(trackingNumber, orderID, warehouseID, destinationAddress)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sh); err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, sh.DrainFacts()...)
	return sh, nil
}

func (s *Service) UpdateStatus(ctx context.Context, shipmentID string, target Status, location, notes string) error {
	sh, err := s.store.FindByID(ctx, shipmentID)
	if err != nil {
		return err
	}
	if err := sh.UpdateStatus(target, location, notes); err != nil {
		return err
	}
	if err := s.store.Save(ctx, sh); err != nil {
		return err
	}
	s.bus.Publish(ctx, sh.DrainFacts()...)
	return nil
}

func (s *Service) SetEstimatedDelivery(ctx context.Context, shipmentID string, estimate time.Time) error {
	sh, err := s.store.FindByID(ctx, shipmentID)
	if err != nil {
		return err
	}
	sh.SetEstimatedDelivery(estimate)
	return s.store.Save(ctx, sh)
}

func (s *Service) Track(ctx context.Context, trackingNumber string) (*Shipment, error) {
	return s.store.FindByTrackingNumber(ctx, trackingNumber)
}

func (s *Service) ListByOrder(ctx context.Context, orderID string, limit, offset int) ([]*Shipment, int, error) {
	return s.store.FindByOrder(ctx, orderID, limit, offset)
}
