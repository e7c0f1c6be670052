package event

import "context"

// Publisher delivers facts to subscribers. Implementations must tolerate
// being called with zero facts.
type Publisher interface {
	Publish(ctx context.Context, facts ...Fact)
}

// NopPublisher discards all facts. Useful in tests and partial wirings.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, facts ...Fact) {}
