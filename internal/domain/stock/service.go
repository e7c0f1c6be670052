package stock

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/example/fulfillment/internal/domain/event"
	"github.com/example/fulfillment/internal/domain/money"
)

// maxRetries bounds the reload-and-reapply loop on version conflicts.
const maxRetries = 3

type Service struct {
	store  Store
	bus    event.Publisher
	logger zerolog.Logger
}

func NewService(store Store, bus event.Publisher, logger zerolog.Logger) *Service {
	return &Service{store: store, bus: bus, logger: logger}
}

func (s *Service) Create(ctx context.Context, productID, warehouseID string, initial money.Quantity) (*Stock, error) {
	row, err := New(productID, warehouseID, initial)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *Service) Replenish(ctx context.Context, productID, warehouseID string, amount money.Quantity) error {
	return s.mutate(ctx, productID, warehouseID, func(row *Stock) error {
		return row.Replenish(amount)
	})
}

func (s *Service) Reserve(ctx context.Context, productID, warehouseID string, amount money.Quantity) error {
	return s.mutate(ctx, productID, warehouseID, func(row *Stock) error {
		return row.Reserve(amount)
	})
}

func (s *Service) Release(ctx context.Context, productID, warehouseID string, amount money.Quantity) error {
	return s.mutate(ctx, productID, warehouseID, func(row *Stock) error {
		return row.Release(amount)
	})
}

func (s *Service) ConfirmReservation(ctx context.Context, productID, warehouseID string, amount money.Quantity) error {
	return s.mutate(ctx, productID, warehouseID, func(row *Stock) error {
		return row.ConfirmReservation(amount)
	})
}

// mutate loads the row, applies the operation and saves under the version
// compare-and-swap, retrying a bounded number of times when another flow
// touched the same row in between. Facts are published only after the save
// succeeded.
func (s *Service) mutate(ctx context.Context, productID, warehouseID string, op func(*Stock) error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		row, err := s.store.FindByProductAndWarehouse(ctx, productID, warehouseID)
		if err != nil {
			return err
		}
		if err := op(row); err != nil {
			return err
		}
		if err := s.store.Save(ctx, row); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				s.logger.Debug().
					Str("product_id", productID).
					Str("warehouse_id", warehouseID).
					Int("attempt", attempt+1).
					Msg("stock version conflict, retrying")
				continue
			}
			return err
		}
		s.bus.Publish(ctx, row.DrainFacts()...)
		return nil
	}
	return lastErr
}
