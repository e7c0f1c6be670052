// Package eventbus fans facts out to subscribers. Publication happens after
// the triggering aggregate was saved, and every handler runs in its own unit
// of work: one handler failing is logged and never rolls back the triggering
// state change or stops the remaining handlers.
package eventbus

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/example/fulfillment/internal/domain/event"
)

type Handler func(ctx context.Context, f event.Fact) error

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	all      []Handler
	logger   zerolog.Logger
}

func New(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for one fact type.
func (b *Bus) Subscribe(factType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[factType] = append(b.handlers[factType], h)
}

// SubscribeAll registers a handler for every fact type. Used by the Kafka
// bridge and other taps that forward the whole stream.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish delivers facts synchronously, in recording order. Handler errors
// are logged and swallowed; delivery is at-least-once from the subscriber's
// point of view, so handlers must tolerate replays.
func (b *Bus) Publish(ctx context.Context, facts ...event.Fact) {
	for _, f := range facts {
		b.mu.RLock()
		typed := b.handlers[f.FactType()]
		all := b.all
		b.mu.RUnlock()

		for _, h := range typed {
			if err := h(ctx, f); err != nil {
				b.logger.Error().Err(err).
					Str("fact_type", f.FactType()).
					Str("aggregate_id", f.AggregateID()).
					Msg("fact handler failed")
			}
		}
		for _, h := range all {
			if err := h(ctx, f); err != nil {
				b.logger.Error().Err(err).
					Str("fact_type", f.FactType()).
					Str("aggregate_id", f.AggregateID()).
					Msg("fact tap failed")
			}
		}
	}
}
