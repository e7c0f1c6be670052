package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/fulfillment/internal/domain/event"
	"github.com/example/fulfillment/internal/domain/money"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order must have at least one item")
	ErrBlankUser         = errors.New("user id is required")
	ErrBlankAddress      = errors.New("shipping address is required")
	ErrInvalidItem       = errors.New("order item is invalid")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusShipped, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {}, // terminal state
	StatusCancelled:  {}, // terminal state
}

// InvalidTransitionError names both the current and the requested state so
// callers can render an actionable message.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition: cannot transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// Item is one order line. Product name and unit price are snapshots taken at
// placement; later catalog changes never affect an existing order. The
// warehouse id is stamped by the allocation engine.
type Item struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   money.Money
	WarehouseID string
}

func (i Item) Subtotal() (money.Money, error) {
	return i.UnitPrice.Multiply(i.Quantity)
}

// Order is the customer order aggregate. The item list is owned by the
// aggregate and only mutated through its methods; TotalAmount is computed
// once at placement and frozen.
type Order struct {
	event.Recorder

	ID                 string
	OrderNumber        string
	UserID             string
	Items              []Item
	ShippingAddress    string
	Status             Status
	TotalAmount        money.Money
	CreatedAt          time.Time
	UpdatedAt          time.Time
	PaidAt             *time.Time
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string
}

// Place is the only constructor. It validates the input, freezes the total
// and records the OrderPlaced fact.
func Place(orderNumber, userID, shippingAddress string, items []Item) (*Order, error) {
	if userID == "" {
		return nil, ErrBlankUser
	}
	if shippingAddress == "" {
		return nil, ErrBlankAddress
	}
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	total := money.Zero(items[0].UnitPrice.Currency())
	for _, item := range items {
		if item.ProductID == "" || item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %q quantity %d", ErrInvalidItem, item.ProductID, item.Quantity)
		}
		subtotal, err := item.Subtotal()
		if err != nil {
			return nil, err
		}
		total, err = total.Add(subtotal)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	o := &Order{
		ID:              uuid.New().String(),
		OrderNumber:     orderNumber,
		UserID:          userID,
		Items:           append([]Item(nil), items...),
		ShippingAddress: shippingAddress,
		Status:          StatusPending,
		TotalAmount:     total,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.Record(event.OrderPlaced{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Items:           o.itemFacts(),
		TotalAmount:     total.Amount().String(),
		Currency:        total.Currency(),
		ShippingAddress: shippingAddress,
		PlacedAt:        now,
	})
	return o, nil
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

func (o *Order) transition(target Status) error {
	if !o.CanTransitionTo(target) {
		return &InvalidTransitionError{From: o.Status, To: target}
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

// Confirm marks the order as paid.
func (o *Order) Confirm() error {
	if err := o.transition(StatusConfirmed); err != nil {
		return err
	}
	now := o.UpdatedAt
	o.PaidAt = &now
	o.Record(event.OrderConfirmed{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Items:           o.itemFacts(),
		TotalAmount:     o.TotalAmount.Amount().String(),
		Currency:        o.TotalAmount.Currency(),
		ShippingAddress: o.ShippingAddress,
		ConfirmedAt:     now,
	})
	return nil
}

// MarkProcessing moves a confirmed order into fulfillment.
func (o *Order) MarkProcessing() error {
	return o.transition(StatusProcessing)
}

func (o *Order) Ship() error {
	if err := o.transition(StatusShipped); err != nil {
		return err
	}
	now := o.UpdatedAt
	o.ShippedAt = &now
	o.Record(event.OrderShipped{OrderID: o.ID, UserID: o.UserID, ShippedAt: now})
	return nil
}

func (o *Order) Deliver() error {
	if err := o.transition(StatusDelivered); err != nil {
		return err
	}
	now := o.UpdatedAt
	o.DeliveredAt = &now
	o.Record(event.OrderDelivered{OrderID: o.ID, UserID: o.UserID, DeliveredAt: now})
	return nil
}

// Cancel is allowed from PENDING, CONFIRMED and PROCESSING, but not once the
// order has shipped.
func (o *Order) Cancel(reason string) error {
	if err := o.transition(StatusCancelled); err != nil {
		return err
	}
	now := o.UpdatedAt
	o.CancelledAt = &now
	o.CancellationReason = reason
	o.Record(event.OrderCancelled{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Items:       o.itemFacts(),
		Reason:      reason,
		CancelledAt: now,
	})
	return nil
}

// ItemCount is the total number of units across all lines.
func (o *Order) ItemCount() int {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}

func (o *Order) itemFacts() []event.ItemFact {
	facts := make([]event.ItemFact, len(o.Items))
	for i, item := range o.Items {
		facts[i] = event.ItemFact{
			ProductID:   item.ProductID,
			WarehouseID: item.WarehouseID,
			Quantity:    item.Quantity,
		}
	}
	return facts
}
