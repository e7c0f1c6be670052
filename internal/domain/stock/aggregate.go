package stock

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/fulfillment/internal/domain/event"
	"github.com/example/fulfillment/internal/domain/money"
)

var (
	ErrStockNotFound          = errors.New("stock not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrBlankProduct           = errors.New("product id is required")
	ErrBlankWarehouse         = errors.New("warehouse id is required")
	ErrReleaseExceedsReserved = errors.New("cannot release more than reserved")
	ErrVersionConflict        = errors.New("stock was modified concurrently")
)

// InsufficientStockError reports a reservation that cannot be satisfied,
// with enough context for the caller to render an actionable message.
type InsufficientStockError struct {
	ProductID   string
	WarehouseID string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	if e.WarehouseID == "" {
		return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
			e.ProductID, e.Available, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for product %s at warehouse %s: available %d, requested %d",
		e.ProductID, e.WarehouseID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Stock is the per (product, warehouse) ledger row. Reserved units are held
// against Available without being deducted; ConfirmReservation turns a hold
// into a permanent deduction and Release undoes it. All mutation goes through
// the methods below so that 0 <= reserved <= quantity always holds.
type Stock struct {
	event.Recorder

	ID          string
	ProductID   string
	WarehouseID string
	Quantity    money.Quantity
	Reserved    money.Quantity
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func New(productID, warehouseID string, initial money.Quantity) (*Stock, error) {
	if productID == "" {
		return nil, ErrBlankProduct
	}
	if warehouseID == "" {
		return nil, ErrBlankWarehouse
	}
	now := time.Now()
	return &Stock{
		ID:          uuid.New().String(),
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    initial,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Stock) Available() money.Quantity {
	available, err := s.Quantity.Subtract(s.Reserved)
	if err != nil {
		// reserved > quantity cannot happen through the ledger operations
		return money.Quantity{}
	}
	return available
}

// Replenish adds units to the on-hand quantity. Replenishing by zero is a
// no-op and records no fact.
func (s *Stock) Replenish(amount money.Quantity) error {
	if amount.IsZero() {
		return nil
	}
	s.Quantity = s.Quantity.Add(amount)
	s.UpdatedAt = time.Now()
	s.Record(event.StockReplenished{
		StockID:     s.ID,
		ProductID:   s.ProductID,
		WarehouseID: s.WarehouseID,
		Amount:      amount.Value(),
		NewQuantity: s.Quantity.Value(),
		OccurredAt:  s.UpdatedAt,
	})
	return nil
}

// Reserve places a hold on available units. Reserving the last available
// unit additionally records a depletion fact.
func (s *Stock) Reserve(amount money.Quantity) error {
	if amount.IsZero() {
		return ErrInvalidAmount
	}
	if !s.Available().GreaterOrEqual(amount) {
		return &InsufficientStockError{
			ProductID:   s.ProductID,
			WarehouseID: s.WarehouseID,
			Available:   s.Available().Value(),
			Requested:   amount.Value(),
		}
	}
	s.Reserved = s.Reserved.Add(amount)
	s.UpdatedAt = time.Now()
	s.Record(event.StockReserved{
		StockID:     s.ID,
		ProductID:   s.ProductID,
		WarehouseID: s.WarehouseID,
		Amount:      amount.Value(),
		Available:   s.Available().Value(),
		OccurredAt:  s.UpdatedAt,
	})
	if s.Available().IsZero() {
		s.Record(event.StockDepleted{
			StockID:     s.ID,
			ProductID:   s.ProductID,
			WarehouseID: s.WarehouseID,
			OccurredAt:  s.UpdatedAt,
		})
	}
	return nil
}

// Release undoes a hold. Releasing more than is currently reserved is a
// programming or data error, not a business condition.
func (s *Stock) Release(amount money.Quantity) error {
	if amount.IsZero() {
		return ErrInvalidAmount
	}
	reserved, err := s.Reserved.Subtract(amount)
	if err != nil {
		return fmt.Errorf("%w: reserved %d, releasing %d", ErrReleaseExceedsReserved,
			s.Reserved.Value(), amount.Value())
	}
	s.Reserved = reserved
	s.UpdatedAt = time.Now()
	s.Record(event.StockReleased{
		StockID:     s.ID,
		ProductID:   s.ProductID,
		WarehouseID: s.WarehouseID,
		Amount:      amount.Value(),
		Available:   s.Available().Value(),
		OccurredAt:  s.UpdatedAt,
	})
	return nil
}

// ConfirmReservation converts a hold into a permanent deduction. It assumes
// the amount was previously reserved and does not re-check Available.
func (s *Stock) ConfirmReservation(amount money.Quantity) error {
	if amount.IsZero() {
		return ErrInvalidAmount
	}
	reserved, err := s.Reserved.Subtract(amount)
	if err != nil {
		return fmt.Errorf("%w: reserved %d, confirming %d", ErrReleaseExceedsReserved,
			s.Reserved.Value(), amount.Value())
	}
	quantity, err := s.Quantity.Subtract(amount)
	if err != nil {
		return fmt.Errorf("confirm reservation: %w", err)
	}
	s.Reserved = reserved
	s.Quantity = quantity
	s.UpdatedAt = time.Now()
	return nil
}
