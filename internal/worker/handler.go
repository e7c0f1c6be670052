// Package worker drives the fulfillment core from external triggers: order
// placement requests, simulated payment outcomes and operator shipment
// updates arrive as JSON commands on a Kafka topic.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/example/fulfillment/internal/allocation"
	"github.com/example/fulfillment/internal/domain/money"
	"github.com/example/fulfillment/internal/domain/order"
	"github.com/example/fulfillment/internal/domain/shipment"
	"github.com/example/fulfillment/internal/domain/stock"
)

const (
	CommandPlaceOrder     = "place_order"
	CommandConfirmOrder   = "confirm_order"
	CommandCancelOrder    = "cancel_order"
	CommandUpdateShipment = "update_shipment"
	CommandReplenishStock = "replenish_stock"
)

type Command struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type PlaceOrder struct {
	UserID          string           `json:"user_id"`
	ShippingAddress string           `json:"shipping_address"`
	Items           []PlaceOrderItem `json:"items"`
}

type PlaceOrderItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Currency    string `json:"currency"`
}

type ConfirmOrder struct {
	OrderID string `json:"order_id"`
}

type CancelOrder struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type UpdateShipment struct {
	ShipmentID string `json:"shipment_id"`
	Status     string `json:"status"`
	Location   string `json:"location,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

type ReplenishStock struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Amount      int    `json:"amount"`
}

// Handler dispatches commands to the fulfillment services. Command failures
// are returned to the consumer loop, which logs them; commands are not
// retried beyond Kafka redelivery.
type Handler struct {
	engine    *allocation.Engine
	orders    *order.Service
	shipments *shipment.Service
	stocks    *stock.Service
	logger    zerolog.Logger
}

func NewHandler(engine *allocation.Engine, orders *order.Service, shipments *shipment.Service, stocks *stock.Service, logger zerolog.Logger) *Handler {
	return &Handler{engine: engine, orders: orders, shipments: shipments, stocks: stocks, logger: logger}
}

// HandleMessage processes one command message from Kafka.
func (h *Handler) HandleMessage(ctx context.Context, key, value []byte) error {
	var cmd Command
	if err := json.Unmarshal(value, &cmd); err != nil {
		return fmt.Errorf("unmarshal command: %w", err)
	}

	switch cmd.Type {
	case CommandPlaceOrder:
		var c PlaceOrder
		if err := json.Unmarshal(cmd.Payload, &c); err != nil {
			return err
		}
		return h.placeOrder(ctx, c)
	case CommandConfirmOrder:
		var c ConfirmOrder
		if err := json.Unmarshal(cmd.Payload, &c); err != nil {
			return err
		}
		return h.orders.Confirm(ctx, c.OrderID)
	case CommandCancelOrder:
		var c CancelOrder
		if err := json.Unmarshal(cmd.Payload, &c); err != nil {
			return err
		}
		return h.orders.Cancel(ctx, c.OrderID, c.Reason)
	case CommandUpdateShipment:
		var c UpdateShipment
		if err := json.Unmarshal(cmd.Payload, &c); err != nil {
			return err
		}
		return h.shipments.UpdateStatus(ctx, c.ShipmentID, shipment.Status(c.Status), c.Location, c.Notes)
	case CommandReplenishStock:
		var c ReplenishStock
		if err := json.Unmarshal(cmd.Payload, &c); err != nil {
			return err
		}
		amount, err := money.NewQuantity(c.Amount)
		if err != nil {
			return err
		}
		return h.stocks.Replenish(ctx, c.ProductID, c.WarehouseID, amount)
	default:
		h.logger.Warn().Str("type", cmd.Type).Msg("unknown command type, skipping")
		return nil
	}
}

// placeOrder parses every line, allocates stock, stamps the chosen
// warehouses onto the items and places the order. All parsing happens before
// Allocate so a bad line cannot strand reservations with no order to cancel.
func (h *Handler) placeOrder(ctx context.Context, c PlaceOrder) error {
	items := make([]order.Item, len(c.Items))
	requests := make([]allocation.Request, len(c.Items))
	for i, item := range c.Items {
		amount, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return fmt.Errorf("item %s price: %w", item.ProductID, err)
		}
		price, err := money.New(amount, item.Currency)
		if err != nil {
			return err
		}
		qty, err := money.NewQuantity(item.Quantity)
		if err != nil {
			return err
		}
		items[i] = order.Item{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   price,
		}
		requests[i] = allocation.Request{ProductID: item.ProductID, Quantity: qty}
	}

	results, err := h.engine.Allocate(ctx, requests)
	if err != nil {
		return fmt.Errorf("allocate order for user %s: %w", c.UserID, err)
	}
	for i := range items {
		items[i].WarehouseID = results[i].WarehouseID
	}

	o, err := h.orders.Place(ctx, c.UserID, c.ShippingAddress, items)
	if err != nil {
		// no order exists to cancel, so undo the holds here
		for i := range requests {
			if relErr := h.stocks.Release(ctx, requests[i].ProductID, results[i].WarehouseID, requests[i].Quantity); relErr != nil {
				h.logger.Error().Err(relErr).
					Str("product_id", requests[i].ProductID).
					Str("warehouse_id", results[i].WarehouseID).
					Msg("failed to release stock after rejected placement")
			}
		}
		return err
	}
	h.logger.Info().
		Str("order_id", o.ID).
		Str("order_number", o.OrderNumber).
		Int("item_count", o.ItemCount()).
		Msg("order placed")
	return nil
}
