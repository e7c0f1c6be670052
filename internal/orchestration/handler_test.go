package orchestration

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fulfillment/internal/domain/event"
	"github.com/example/fulfillment/internal/domain/money"
	"github.com/example/fulfillment/internal/domain/shipment"
	"github.com/example/fulfillment/internal/domain/stock"
	"github.com/example/fulfillment/internal/eventbus"
	"github.com/example/fulfillment/internal/infrastructure/store"
	"github.com/example/fulfillment/internal/sequence"
)

type fixture struct {
	handler   *Handler
	bus       *eventbus.Bus
	stocks    *store.MemoryStockStore
	shipments *store.MemoryShipmentStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	bus := eventbus.New(logger)
	stocks := store.NewMemoryStockStore()
	shipments := store.NewMemoryShipmentStore()

	stockSvc := stock.NewService(stocks, bus, logger)
	shipmentSvc := shipment.NewService(shipments, sequence.NewMemory(sequence.TrackingPrefix), bus)

	handler := NewHandler(stockSvc, shipmentSvc, "wh-default", nil, logger)
	handler.Register(bus)
	return &fixture{handler: handler, bus: bus, stocks: stocks, shipments: shipments}
}

func (f *fixture) seedStock(t *testing.T, productID, warehouseID string, quantity, reserved int) {
	t.Helper()
	row, err := stock.New(productID, warehouseID, money.MustQuantity(quantity))
	require.NoError(t, err)
	if reserved > 0 {
		require.NoError(t, row.Reserve(money.MustQuantity(reserved)))
		row.DrainFacts()
	}
	require.NoError(t, f.stocks.Save(context.Background(), row))
}

func (f *fixture) stockRow(t *testing.T, productID, warehouseID string) *stock.Stock {
	t.Helper()
	row, err := f.stocks.FindByProductAndWarehouse(context.Background(), productID, warehouseID)
	require.NoError(t, err)
	return row
}

func confirmedFact(orderID string, items ...event.ItemFact) event.OrderConfirmed {
	return event.OrderConfirmed{
		OrderID:         orderID,
		OrderNumber:     "ORD-2026-00001",
		UserID:          "user-1",
		Items:           items,
		TotalAmount:     "35",
		Currency:        "USD",
		ShippingAddress: "1 Main St",
		ConfirmedAt:     time.Now(),
	}
}

// ============================================
// Order Confirmed Tests
// ============================================

func TestHandler_OrderConfirmed_DeductsAndCreatesShipment(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "prod-1", "wh-1", 10, 2)

	fact := confirmedFact("order-1", event.ItemFact{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 2})
	f.bus.Publish(context.Background(), fact)

	row := f.stockRow(t, "prod-1", "wh-1")
	assert.Equal(t, 8, row.Quantity.Value())
	assert.Equal(t, 0, row.Reserved.Value())

	shipments, total, err := f.shipments.FindByOrder(context.Background(), "order-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, shipments, 1)
	assert.Equal(t, shipment.StatusCreated, shipments[0].Status)
	assert.Equal(t, "wh-1", shipments[0].WarehouseID)
	assert.Equal(t, "1 Main St", shipments[0].DestinationAddress)
}

func TestHandler_OrderConfirmed_MultipleItems(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "prod-1", "wh-1", 10, 2)
	f.seedStock(t, "prod-2", "wh-2", 20, 3)

	fact := confirmedFact("order-1",
		event.ItemFact{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 2},
		event.ItemFact{ProductID: "prod-2", WarehouseID: "wh-2", Quantity: 3},
	)
	f.bus.Publish(context.Background(), fact)

	assert.Equal(t, 8, f.stockRow(t, "prod-1", "wh-1").Quantity.Value())
	assert.Equal(t, 17, f.stockRow(t, "prod-2", "wh-2").Quantity.Value())

	_, total, err := f.shipments.FindByOrder(context.Background(), "order-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total) // one shipment per order, not per item
}

func TestHandler_OrderConfirmed_ItemFailureDoesNotAbortOthers(t *testing.T) {
	f := newFixture(t)
	// prod-1 has nothing reserved, so confirming its reservation fails
	f.seedStock(t, "prod-1", "wh-1", 10, 0)
	f.seedStock(t, "prod-2", "wh-1", 20, 3)

	fact := confirmedFact("order-1",
		event.ItemFact{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 2},
		event.ItemFact{ProductID: "prod-2", WarehouseID: "wh-1", Quantity: 3},
	)
	err := f.handler.HandleOrderConfirmed(context.Background(), fact)

	require.NoError(t, err) // reactions never propagate failures
	assert.Equal(t, 10, f.stockRow(t, "prod-1", "wh-1").Quantity.Value())
	assert.Equal(t, 17, f.stockRow(t, "prod-2", "wh-1").Quantity.Value())

	// the shipment is still created
	_, total, err := f.shipments.FindByOrder(context.Background(), "order-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestHandler_OrderConfirmed_FallsBackToDefaultWarehouse(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "prod-1", "wh-default", 10, 2)

	fact := confirmedFact("order-1", event.ItemFact{ProductID: "prod-1", Quantity: 2})
	f.bus.Publish(context.Background(), fact)

	assert.Equal(t, 8, f.stockRow(t, "prod-1", "wh-default").Quantity.Value())

	shipments, _, err := f.shipments.FindByOrder(context.Background(), "order-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, shipments, 1)
	assert.Equal(t, "wh-default", shipments[0].WarehouseID)
}

// ============================================
// Order Cancelled Tests
// ============================================

func TestHandler_OrderCancelled_ReleasesReservations(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "prod-1", "wh-1", 10, 2)

	fact := event.OrderCancelled{
		OrderID: "order-1",
		UserID:  "user-1",
		Items: []event.ItemFact{
			{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 2},
		},
		Reason:      "changed my mind",
		CancelledAt: time.Now(),
	}
	f.bus.Publish(context.Background(), fact)

	row := f.stockRow(t, "prod-1", "wh-1")
	assert.Equal(t, 10, row.Quantity.Value())
	assert.Equal(t, 0, row.Reserved.Value())
	assert.Equal(t, 10, row.Available().Value())
}

func TestHandler_OrderCancelled_UnknownRowIsLoggedNotFatal(t *testing.T) {
	f := newFixture(t)

	fact := event.OrderCancelled{
		OrderID: "order-1",
		Items: []event.ItemFact{
			{ProductID: "prod-404", WarehouseID: "wh-1", Quantity: 2},
		},
	}
	err := f.handler.HandleOrderCancelled(context.Background(), fact)

	assert.NoError(t, err)
}

func TestHandler_OrderCancelled_NoShipmentCreated(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "prod-1", "wh-1", 10, 2)

	fact := event.OrderCancelled{
		OrderID: "order-1",
		Items:   []event.ItemFact{{ProductID: "prod-1", WarehouseID: "wh-1", Quantity: 2}},
	}
	f.bus.Publish(context.Background(), fact)

	_, total, err := f.shipments.FindByOrder(context.Background(), "order-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}
