// Package orchestration reacts to order facts and keeps stock and shipments
// eventually consistent with the order's state. There is no cross-aggregate
// transaction: each per-item effect commits on its own, and a failed effect
// is logged and counted, never propagated back to the order.
package orchestration

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/example/fulfillment/internal/domain/event"
	"github.com/example/fulfillment/internal/domain/money"
	"github.com/example/fulfillment/internal/domain/shipment"
	"github.com/example/fulfillment/internal/domain/stock"
	"github.com/example/fulfillment/internal/eventbus"
	"github.com/example/fulfillment/internal/metrics"
)

type Handler struct {
	stocks             *stock.Service
	shipments          *shipment.Service
	defaultWarehouseID string
	metrics            *metrics.Metrics
	logger             zerolog.Logger
}

func NewHandler(stocks *stock.Service, shipments *shipment.Service, defaultWarehouseID string, m *metrics.Metrics, logger zerolog.Logger) *Handler {
	return &Handler{
		stocks:             stocks,
		shipments:          shipments,
		defaultWarehouseID: defaultWarehouseID,
		metrics:            m,
		logger:             logger,
	}
}

// Register subscribes the reactions on the bus.
func (h *Handler) Register(bus *eventbus.Bus) {
	bus.Subscribe(event.FactOrderConfirmed, h.HandleOrderConfirmed)
	bus.Subscribe(event.FactOrderCancelled, h.HandleOrderCancelled)
}

// HandleOrderConfirmed converts each item's reservation into a permanent
// deduction and creates one shipment for the order. Items are handled
// independently: one failure does not abort the others.
func (h *Handler) HandleOrderConfirmed(ctx context.Context, f event.Fact) error {
	fact, ok := f.(event.OrderConfirmed)
	if !ok {
		return nil
	}

	for _, item := range fact.Items {
		warehouseID := h.warehouseFor(item)
		qty, err := money.NewQuantity(item.Quantity)
		if err != nil {
			h.reactionFailed("confirm_reservation", fact.OrderID, item.ProductID, warehouseID, err)
			continue
		}
		if err := h.stocks.ConfirmReservation(ctx, item.ProductID, warehouseID, qty); err != nil {
			h.reactionFailed("confirm_reservation", fact.OrderID, item.ProductID, warehouseID, err)
		}
	}

	shipFrom := h.defaultWarehouseID
	if len(fact.Items) > 0 && fact.Items[0].WarehouseID != "" {
		shipFrom = fact.Items[0].WarehouseID
	}
	sh, err := h.shipments.Create(ctx, fact.OrderID, shipFrom, fact.ShippingAddress)
	if err != nil {
		h.reactionFailed("create_shipment", fact.OrderID, "", shipFrom, err)
		return nil
	}
	h.logger.Info().
		Str("order_id", fact.OrderID).
		Str("tracking_number", sh.TrackingNumber).
		Msg("shipment created for confirmed order")
	return nil
}

// HandleOrderCancelled releases each item's reservation.
func (h *Handler) HandleOrderCancelled(ctx context.Context, f event.Fact) error {
	fact, ok := f.(event.OrderCancelled)
	if !ok {
		return nil
	}

	for _, item := range fact.Items {
		warehouseID := h.warehouseFor(item)
		qty, err := money.NewQuantity(item.Quantity)
		if err != nil {
			h.reactionFailed("release", fact.OrderID, item.ProductID, warehouseID, err)
			continue
		}
		if err := h.stocks.Release(ctx, item.ProductID, warehouseID, qty); err != nil {
			h.reactionFailed("release", fact.OrderID, item.ProductID, warehouseID, err)
		}
	}
	return nil
}

func (h *Handler) warehouseFor(item event.ItemFact) string {
	if item.WarehouseID != "" {
		return item.WarehouseID
	}
	return h.defaultWarehouseID
}

func (h *Handler) reactionFailed(reaction, orderID, productID, warehouseID string, err error) {
	h.metrics.IncReactionFailure(reaction)
	h.logger.Error().Err(err).
		Str("reaction", reaction).
		Str("order_id", orderID).
		Str("product_id", productID).
		Str("warehouse_id", warehouseID).
		Msg("orchestration reaction failed")
}
