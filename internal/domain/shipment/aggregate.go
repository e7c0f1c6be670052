package shipment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/fulfillment/internal/domain/event"
)

type Status string

const (
	StatusCreated        Status = "CREATED"
	StatusPicked         Status = "PICKED"
	StatusPacked         Status = "PACKED"
	StatusShipped        Status = "SHIPPED"
	StatusInTransit      Status = "IN_TRANSIT"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusFailed         Status = "FAILED"
)

var (
	ErrShipmentNotFound  = errors.New("shipment not found")
	ErrBlankTracking     = errors.New("tracking number is required")
	ErrBlankOrder        = errors.New("order id is required")
	ErrBlankWarehouse    = errors.New("warehouse id is required")
	ErrBlankDestination  = errors.New("destination address is required")
	ErrInvalidTransition = errors.New("invalid shipment status transition")
)

// nextStatus is the single forward step from each non-terminal status. FAILED
// is reachable from every non-terminal status; no step may be skipped.
var nextStatus = map[Status]Status{
	StatusCreated:        StatusPicked,
	StatusPicked:         StatusPacked,
	StatusPacked:         StatusShipped,
	StatusShipped:        StatusInTransit,
	StatusInTransit:      StatusOutForDelivery,
	StatusOutForDelivery: StatusDelivered,
}

// InvalidTransitionError names both the current and the requested status.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid shipment status transition: cannot transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// StatusChange is one entry in the append-only history. The history is never
// pruned or reordered; it is the durable audit trail for tracking queries.
type StatusChange struct {
	Status    Status
	Timestamp time.Time
	Location  string
	Notes     string
}

// Shipment delivers (part of) one order from one warehouse. Its status walks
// a fixed line from CREATED to DELIVERED, and the last history entry always
// mirrors the current status.
type Shipment struct {
	event.Recorder

	ID                 string
	TrackingNumber     string
	OrderID            string
	WarehouseID        string
	DestinationAddress string
	Status             Status
	History            []StatusChange
	EstimatedDelivery  *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Create seeds the history with a single CREATED entry.
func Create(trackingNumber, orderID, warehouseID, destinationAddress string) (*Shipment, error) {
	if trackingNumber == "" {
		return nil, ErrBlankTracking
	}
	if orderID == "" {
		return nil, ErrBlankOrder
	}
	if warehouseID == "" {
		return nil, ErrBlankWarehouse
	}
	if destinationAddress == "" {
		return nil, ErrBlankDestination
	}
	now := time.Now()
	sh := &Shipment{
		ID:                 uuid.New().String(),
		TrackingNumber:     trackingNumber,
		OrderID:            orderID,
		WarehouseID:        warehouseID,
		DestinationAddress: destinationAddress,
		Status:             StatusCreated,
		History: []StatusChange{
			{Status: StatusCreated, Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	sh.Record(event.ShipmentCreated{
		ShipmentID:         sh.ID,
		TrackingNumber:     trackingNumber,
		OrderID:            orderID,
		WarehouseID:        warehouseID,
		DestinationAddress: destinationAddress,
		CreatedAt:          now,
	})
	return sh, nil
}

func (s *Shipment) IsTerminal() bool {
	return s.Status == StatusDelivered || s.Status == StatusFailed
}

// CanTransitionTo checks if the shipment can transition to the target status
func (s *Shipment) CanTransitionTo(target Status) bool {
	if s.IsTerminal() {
		return false
	}
	if target == StatusFailed {
		return true
	}
	return nextStatus[s.Status] == target
}

// UpdateStatus advances the shipment one step (or fails it) and appends a
// history entry. Location and notes are optional free text.
func (s *Shipment) UpdateStatus(target Status, location, notes string) error {
	if !s.CanTransitionTo(target) {
		return &InvalidTransitionError{From: s.Status, To: target}
	}
	old := s.Status
	now := time.Now()
	s.Status = target
	s.UpdatedAt = now
	s.History = append(s.History, StatusChange{
		Status:    target,
		Timestamp: now,
		Location:  location,
		Notes:     notes,
	})
	s.Record(event.ShipmentStatusUpdated{
		ShipmentID:     s.ID,
		TrackingNumber: s.TrackingNumber,
		OrderID:        s.OrderID,
		OldStatus:      string(old),
		NewStatus:      string(target),
		Location:       location,
		Notes:          notes,
		OccurredAt:     now,
	})
	switch target {
	case StatusDelivered:
		s.Record(event.ShipmentDelivered{
			ShipmentID:     s.ID,
			TrackingNumber: s.TrackingNumber,
			OrderID:        s.OrderID,
			DeliveredAt:    now,
		})
	case StatusFailed:
		s.Record(event.ShipmentFailed{
			ShipmentID:     s.ID,
			TrackingNumber: s.TrackingNumber,
			OrderID:        s.OrderID,
			Reason:         notes,
			FailedAt:       now,
		})
	}
	return nil
}

// SetEstimatedDelivery records or revises the delivery estimate.
func (s *Shipment) SetEstimatedDelivery(estimate time.Time) {
	s.EstimatedDelivery = &estimate
	s.UpdatedAt = time.Now()
}
