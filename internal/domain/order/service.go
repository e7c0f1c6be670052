package order

import (
	"context"

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

// Place creates a new PENDING order. The caller supplies items with the
// warehouse id already stamped by allocation.
func (s *Service) Place(ctx context.Context, userID, shippingAddress string, items []Item) (*Order, error) {
	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, err
	}
	o, err := Place(number, userID, shippingAddress, items)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, o); err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, o.DrainFacts()...)
	return o, nil
}

func (s *Service) Confirm(ctx context.Context, orderID string) error {
	return s.mutate(ctx, orderID, (*Order).Confirm)
}

func (s *Service) MarkProcessing(ctx context.Context, orderID string) error {
	return s.mutate(ctx, orderID, (*Order).MarkProcessing)
}

func (s *Service) Ship(ctx context.Context, orderID string) error {
	return s.mutate(ctx, orderID, (*Order).Ship)
}

func (s *Service) Deliver(ctx context.Context, orderID string) error {
	return s.mutate(ctx, orderID, (*Order).Deliver)
}

func (s *Service) Cancel(ctx context.Context, orderID, reason string) error {
	return s.mutate(ctx, orderID, func(o *Order) error {
		return o.Cancel(reason)
	})
}

func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.store.FindByID(ctx, orderID)
}

func (s *Service) GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return s.store.FindByOrderNumber(ctx, orderNumber)
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Order, int, error) {
	return s.store.FindByUser(ctx, userID, limit, offset)
}

func (s *Service) mutate(ctx context.Context, orderID string, op func(*Order) error) error {
	o, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := op(o); err != nil {
		return err
	}
	if err := s.store.Save(ctx, o); err != nil {
		return err
	}
	s.bus.Publish(ctx, o.DrainFacts()...)
	return nil
}
