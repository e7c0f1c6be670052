package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire form of a fact as published to Kafka. In-process
// subscribers receive the typed Fact directly; out-of-process consumers
// unmarshal the payload by fact type.
type Envelope struct {
	ID          string          `json:"id"`
	FactType    string          `json:"fact_type"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func Wrap(f Fact) (Envelope, error) {
	payload, err := json.Marshal(f)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:          uuid.New().String(),
		FactType:    f.FactType(),
		AggregateID: f.AggregateID(),
		Payload:     payload,
		OccurredAt:  time.Now(),
	}, nil
}
