package eventbus

import (
	"context"
	"fmt"

	"github.com/example/fulfillment/internal/domain/event"
)

// EnvelopeWriter is the outbound side of the Kafka producer.
type EnvelopeWriter interface {
	Publish(ctx context.Context, key string, payload any) error
}

// NewKafkaBridge returns a tap that forwards every fact to Kafka as an
// envelope keyed by aggregate id, so per-aggregate ordering survives
// partitioning. Attach it with Bus.SubscribeAll.
func NewKafkaBridge(writer EnvelopeWriter) Handler {
	return func(ctx context.Context, f event.Fact) error {
		env, err := event.Wrap(f)
		if err != nil {
			return fmt.Errorf("wrap %s: %w", f.FactType(), err)
		}
		return writer.Publish(ctx, f.AggregateID(), env)
	}
}
