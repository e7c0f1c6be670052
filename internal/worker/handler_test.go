package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fulfillment/internal/allocation"
	"github.com/example/fulfillment/internal/domain/money"
	"github.com/example/fulfillment/internal/domain/order"
	"github.com/example/fulfillment/internal/domain/shipment"
	"github.com/example/fulfillment/internal/domain/stock"
	"github.com/example/fulfillment/internal/domain/warehouse"
	"github.com/example/fulfillment/internal/eventbus"
	"github.com/example/fulfillment/internal/infrastructure/store"
	"github.com/example/fulfillment/internal/orchestration"
	"github.com/example/fulfillment/internal/sequence"
)

type fixture struct {
	handler   *Handler
	stocks    *store.MemoryStockStore
	orders    *store.MemoryOrderStore
	shipments *store.MemoryShipmentStore
}

// newFixture wires the full in-memory pipeline, orchestration included, so
// command tests observe end-to-end effects.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	bus := eventbus.New(logger)

	stocks := store.NewMemoryStockStore()
	warehouses := store.NewMemoryWarehouseStore()
	orders := store.NewMemoryOrderStore()
	shipments := store.NewMemoryShipmentStore()

	stockSvc := stock.NewService(stocks, bus, logger)
	orderSvc := order.NewService(orders, sequence.NewMemory(sequence.OrderPrefix), bus)
	shipmentSvc := shipment.NewService(shipments, sequence.NewMemory(sequence.TrackingPrefix), bus)
	engine := allocation.NewEngine(stocks, warehouses, bus, nil, logger)
	orchestration.NewHandler(stockSvc, shipmentSvc, "wh-1", nil, logger).Register(bus)

	now := time.Now()
	require.NoError(t, warehouses.Save(context.Background(), &warehouse.Warehouse{
		ID: "wh-1", Name: "wh-1", Address: "somewhere", Active: true, CreatedAt: now, UpdatedAt: now,
	}))

	return &fixture{
		handler:   NewHandler(engine, orderSvc, shipmentSvc, stockSvc, logger),
		stocks:    stocks,
		orders:    orders,
		shipments: shipments,
	}
}

func (f *fixture) seedStock(t *testing.T, productID string, quantity int) {
	t.Helper()
	row, err := stock.New(productID, "wh-1", money.MustQuantity(quantity))
	require.NoError(t, err)
	require.NoError(t, f.stocks.Save(context.Background(), row))
}

func command(t *testing.T, cmdType string, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(Command{Type: cmdType, Payload: raw})
	require.NoError(t, err)
	return data
}

func (f *fixture) placeOrder(t *testing.T, quantity int) *order.Order {
	t.Helper()
	msg := command(t, CommandPlaceOrder, PlaceOrder{
		UserID:          "user-1",
		ShippingAddress: "1 Main St",
		Items: []PlaceOrderItem{
			{ProductID: "prod-1", ProductName: "Keyboard", Quantity: quantity, UnitPrice: "10.00", Currency: "USD"},
		},
	})
	require.NoError(t, f.handler.HandleMessage(context.Background(), nil, msg))

	orders, total, err := f.orders.FindByUser(context.Background(), "user-1", 1, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	return orders[0]
}

// ============================================
// Place Order Tests
// ============================================

func TestHandler_PlaceOrder(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "prod-1", 10)

	o := f.placeOrder(t, 2)

	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, "wh-1", o.Items[0].WarehouseID)
	assert.True(t, o.TotalAmount.Equals(money.MustNew("20.00", "USD")))

	row, err := f.stocks.FindByProductAndWarehouse(context.Background(), "prod-1", "wh-1")
	require.NoError(t, err)
	assert.Equal(t, 2, row.Reserved.Value())
}

func TestHandler_PlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "prod-1", 1)

	msg := command(t, CommandPlaceOrder, PlaceOrder{
		UserID:          "user-1",
		ShippingAddress: "1 Main St",
		Items: []PlaceOrderItem{
			{ProductID: "prod-1", ProductName: "Keyboard", Quantity: 5, UnitPrice: "10.00", Currency: "USD"},
		},
	})
	err := f.handler.HandleMessage(context.Background(), nil, msg)

	assert.ErrorIs(t, err, stock.ErrInsufficientStock)
	_, total, findErr := f.orders.FindByUser(context.Background(), "user-1", 10, 0)
	require.NoError(t, findErr)
	assert.Equal(t, 0, total)
}

func TestHandler_PlaceOrder_BadPriceLeavesStockUntouched(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "prod-1", 10)

	msg := command(t, CommandPlaceOrder, PlaceOrder{
		UserID:          "user-1",
		ShippingAddress: "1 Main St",
		Items: []PlaceOrderItem{
			{ProductID: "prod-1", ProductName: "Keyboard", Quantity: 3, UnitPrice: "ten dollars", Currency: "USD"},
		},
	})
	err := f.handler.HandleMessage(context.Background(), nil, msg)

	assert.Error(t, err)
	row, findErr := f.stocks.FindByProductAndWarehouse(context.Background(), "prod-1", "wh-1")
	require.NoError(t, findErr)
	assert.Equal(t, 0, row.Reserved.Value())
}

func TestHandler_PlaceOrder_RejectedPlacementReleasesHolds(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "prod-1", 10)

	// parses cleanly, allocates, then placement rejects the blank address
	msg := command(t, CommandPlaceOrder, PlaceOrder{
		UserID: "user-1",
		Items: []PlaceOrderItem{
			{ProductID: "prod-1", ProductName: "Keyboard", Quantity: 3, UnitPrice: "10.00", Currency: "USD"},
		},
	})
	err := f.handler.HandleMessage(context.Background(), nil, msg)

	assert.ErrorIs(t, err, order.ErrBlankAddress)
	row, findErr := f.stocks.FindByProductAndWarehouse(context.Background(), "prod-1", "wh-1")
	require.NoError(t, findErr)
	assert.Equal(t, 0, row.Reserved.Value())
	assert.Equal(t, 10, row.Available().Value())
}

// ============================================
// Payment Outcome Tests
// ============================================

func TestHandler_ConfirmOrder_RunsSaga(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "prod-1", 10)
	o := f.placeOrder(t, 2)

	msg := command(t, CommandConfirmOrder, ConfirmOrder{OrderID: o.ID})
	require.NoError(t, f.handler.HandleMessage(context.Background(), nil, msg))

	saved, err := f.orders.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, saved.Status)

	// orchestration converted the hold into a deduction and cut a shipment
	row, err := f.stocks.FindByProductAndWarehouse(context.Background(), "prod-1", "wh-1")
	require.NoError(t, err)
	assert.Equal(t, 8, row.Quantity.Value())
	assert.Equal(t, 0, row.Reserved.Value())

	_, total, err := f.shipments.FindByOrder(context.Background(), o.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestHandler_CancelOrder_ReleasesStock(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "prod-1", 10)
	o := f.placeOrder(t, 2)

	msg := command(t, CommandCancelOrder, CancelOrder{OrderID: o.ID, Reason: "payment declined"})
	require.NoError(t, f.handler.HandleMessage(context.Background(), nil, msg))

	saved, err := f.orders.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, saved.Status)
	assert.Equal(t, "payment declined", saved.CancellationReason)

	row, err := f.stocks.FindByProductAndWarehouse(context.Background(), "prod-1", "wh-1")
	require.NoError(t, err)
	assert.Equal(t, 10, row.Available().Value())
}

// ============================================
// Operational Command Tests
// ============================================

func TestHandler_UpdateShipment(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "prod-1", 10)
	o := f.placeOrder(t, 2)
	msg := command(t, CommandConfirmOrder, ConfirmOrder{OrderID: o.ID})
	require.NoError(t, f.handler.HandleMessage(context.Background(), nil, msg))

	shipments, _, err := f.shipments.FindByOrder(context.Background(), o.ID, 1, 0)
	require.NoError(t, err)
	require.Len(t, shipments, 1)

	msg = command(t, CommandUpdateShipment, UpdateShipment{
		ShipmentID: shipments[0].ID,
		Status:     string(shipment.StatusPicked),
		Location:   "Tokyo DC",
	})
	require.NoError(t, f.handler.HandleMessage(context.Background(), nil, msg))

	saved, err := f.shipments.FindByID(context.Background(), shipments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, shipment.StatusPicked, saved.Status)
}

func TestHandler_ReplenishStock(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "prod-1", 10)

	msg := command(t, CommandReplenishStock, ReplenishStock{
		ProductID: "prod-1", WarehouseID: "wh-1", Amount: 15,
	})
	require.NoError(t, f.handler.HandleMessage(context.Background(), nil, msg))

	row, err := f.stocks.FindByProductAndWarehouse(context.Background(), "prod-1", "wh-1")
	require.NoError(t, err)
	assert.Equal(t, 25, row.Quantity.Value())
}

// ============================================
// Dispatch Tests
// ============================================

func TestHandler_UnknownCommandIsSkipped(t *testing.T) {
	f := newFixture(t)

	msg := command(t, "explode", struct{}{})
	err := f.handler.HandleMessage(context.Background(), nil, msg)

	assert.NoError(t, err)
}

func TestHandler_MalformedMessage(t *testing.T) {
	f := newFixture(t)

	err := f.handler.HandleMessage(context.Background(), nil, []byte("not json"))

	assert.Error(t, err)
}
