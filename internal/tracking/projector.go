// Package tracking maintains the read model that tracking queries hit: one
// entry per tracking number, updated from shipment facts. The projector can
// run in-process on the bus or out-of-process off the Kafka topic.
package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/fulfillment/internal/domain/event"
)

var ErrEntryNotFound = errors.New("tracking entry not found")

type HistoryEntry struct {
	Status   string    `json:"status"`
	Location string    `json:"location,omitempty"`
	Notes    string    `json:"notes,omitempty"`
	At       time.Time `json:"at"`
}

type Entry struct {
	TrackingNumber string         `json:"tracking_number"`
	ShipmentID     string         `json:"shipment_id"`
	OrderID        string         `json:"order_id"`
	Status         string         `json:"status"`
	History        []HistoryEntry `json:"history"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type Store interface {
	Put(ctx context.Context, e *Entry) error
	Get(ctx context.Context, trackingNumber string) (*Entry, error)
}

type Projector struct {
	store  Store
	logger zerolog.Logger
}

func NewProjector(store Store, logger zerolog.Logger) *Projector {
	return &Projector{store: store, logger: logger}
}

// HandleEnvelope processes one fact envelope from Kafka.
func (p *Projector) HandleEnvelope(ctx context.Context, key, value []byte) error {
	var env event.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		p.logger.Error().Err(err).Msg("unmarshal envelope")
		return err
	}

	switch env.FactType {
	case event.FactShipmentCreated:
		var f event.ShipmentCreated
		if err := json.Unmarshal(env.Payload, &f); err != nil {
			return err
		}
		return p.applyCreated(ctx, f)
	case event.FactShipmentStatusUpdated:
		var f event.ShipmentStatusUpdated
		if err := json.Unmarshal(env.Payload, &f); err != nil {
			return err
		}
		return p.applyStatusUpdated(ctx, f)
	}
	// ShipmentDelivered/ShipmentFailed are notification hooks; the status
	// change itself always arrives as ShipmentStatusUpdated.
	return nil
}

// HandleFact is the in-process equivalent, attachable with Bus.Subscribe.
func (p *Projector) HandleFact(ctx context.Context, f event.Fact) error {
	switch fact := f.(type) {
	case event.ShipmentCreated:
		return p.applyCreated(ctx, fact)
	case event.ShipmentStatusUpdated:
		return p.applyStatusUpdated(ctx, fact)
	}
	return nil
}

func (p *Projector) applyCreated(ctx context.Context, f event.ShipmentCreated) error {
	entry := &Entry{
		TrackingNumber: f.TrackingNumber,
		ShipmentID:     f.ShipmentID,
		OrderID:        f.OrderID,
		Status:         "CREATED",
		History: []HistoryEntry{
			{Status: "CREATED", At: f.CreatedAt},
		},
		UpdatedAt: f.CreatedAt,
	}
	return p.store.Put(ctx, entry)
}

func (p *Projector) applyStatusUpdated(ctx context.Context, f event.ShipmentStatusUpdated) error {
	entry, err := p.store.Get(ctx, f.TrackingNumber)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			// created fact was lost or not yet applied, rebuild what we can
			entry = &Entry{
				TrackingNumber: f.TrackingNumber,
				ShipmentID:     f.ShipmentID,
				OrderID:        f.OrderID,
			}
		} else {
			return err
		}
	}
	entry.Status = f.NewStatus
	entry.History = append(entry.History, HistoryEntry{
		Status:   f.NewStatus,
		Location: f.Location,
		Notes:    f.Notes,
		At:       f.OccurredAt,
	})
	entry.UpdatedAt = f.OccurredAt
	return p.store.Put(ctx, entry)
}
