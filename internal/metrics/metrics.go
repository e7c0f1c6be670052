package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the fulfillment counters. A nil *Metrics is valid and makes
// every increment a no-op, so tests and partial wirings can skip registration.
type Metrics struct {
	Allocations      *prometheus.CounterVec
	StockDepletions  prometheus.Counter
	ReactionFailures *prometheus.CounterVec
}

func New(service string) *Metrics {
	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Subsystem: service,
		Name:      "allocations_total",
		Help:      "Total number of allocation calls by outcome.",
	}, []string{"outcome"})
	depletions := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Subsystem: service,
		Name:      "stock_depletions_total",
		Help:      "Total number of stock rows driven to zero available.",
	})
	reactionFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Subsystem: service,
		Name:      "reaction_failures_total",
		Help:      "Total number of failed orchestration reactions.",
	}, []string{"reaction"})

	prometheus.MustRegister(allocations, depletions, reactionFailures)
	return &Metrics{
		Allocations:      allocations,
		StockDepletions:  depletions,
		ReactionFailures: reactionFailures,
	}
}

func (m *Metrics) IncAllocation(outcome string) {
	if m == nil {
		return
	}
	m.Allocations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncStockDepletion() {
	if m == nil {
		return
	}
	m.StockDepletions.Inc()
}

func (m *Metrics) IncReactionFailure(reaction string) {
	if m == nil {
		return
	}
	m.ReactionFailures.WithLabelValues(reaction).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
