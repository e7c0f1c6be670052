package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fulfillment/internal/domain/event"
	"github.com/example/fulfillment/internal/domain/money"
)

func testItems() []Item {
	return []Item{
		{ProductID: "prod-1", ProductName: "Keyboard", Quantity: 2, UnitPrice: money.MustNew("10.00", "USD"), WarehouseID: "wh-1"},
		{ProductID: "prod-2", ProductName: "Mouse", Quantity: 3, UnitPrice: money.MustNew("5.00", "USD"), WarehouseID: "wh-2"},
	}
}

func placeTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := Place("ORD-2026-00001", "user-1", "1 Main St, Springfield", testItems())
	require.NoError(t, err)
	o.DrainFacts()
	return o
}

// ============================================
// Place Tests
// ============================================

func TestPlace_ComputesTotal(t *testing.T) {
	o, err := Place("ORD-2026-00001", "user-1", "1 Main St, Springfield", testItems())

	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, o.TotalAmount.Equals(money.MustNew("35.00", "USD")), "got %s", o.TotalAmount)
	assert.Equal(t, 5, o.ItemCount())
}

func TestPlace_RecordsOrderPlaced(t *testing.T) {
	o, err := Place("ORD-2026-00001", "user-1", "1 Main St, Springfield", testItems())

	require.NoError(t, err)
	facts := o.PendingFacts()
	require.Len(t, facts, 1)
	placed, ok := facts[0].(event.OrderPlaced)
	require.True(t, ok)
	assert.Equal(t, o.ID, placed.OrderID)
	assert.Equal(t, "ORD-2026-00001", placed.OrderNumber)
	assert.Equal(t, "35", placed.TotalAmount)
	assert.Equal(t, "USD", placed.Currency)
	require.Len(t, placed.Items, 2)
	assert.Equal(t, "wh-1", placed.Items[0].WarehouseID)
}

func TestPlace_BlankUser(t *testing.T) {
	_, err := Place("ORD-2026-00001", "", "1 Main St", testItems())

	assert.ErrorIs(t, err, ErrBlankUser)
}

func TestPlace_BlankAddress(t *testing.T) {
	_, err := Place("ORD-2026-00001", "user-1", "", testItems())

	assert.ErrorIs(t, err, ErrBlankAddress)
}

func TestPlace_NoItems(t *testing.T) {
	_, err := Place("ORD-2026-00001", "user-1", "1 Main St", nil)

	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestPlace_InvalidItem(t *testing.T) {
	items := []Item{
		{ProductID: "prod-1", Quantity: 0, UnitPrice: money.MustNew("10.00", "USD")},
	}

	_, err := Place("ORD-2026-00001", "user-1", "1 Main St", items)

	assert.ErrorIs(t, err, ErrInvalidItem)
}

func TestPlace_MixedCurrencies(t *testing.T) {
	items := []Item{
		{ProductID: "prod-1", Quantity: 1, UnitPrice: money.MustNew("10.00", "USD")},
		{ProductID: "prod-2", Quantity: 1, UnitPrice: money.MustNew("10.00", "EUR")},
	}

	_, err := Place("ORD-2026-00001", "user-1", "1 Main St", items)

	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

// ============================================
// State Machine Tests
// ============================================

func TestOrder_HappyPath(t *testing.T) {
	o := placeTestOrder(t)

	require.NoError(t, o.Confirm())
	assert.Equal(t, StatusConfirmed, o.Status)
	require.NotNil(t, o.PaidAt)

	require.NoError(t, o.MarkProcessing())
	assert.Equal(t, StatusProcessing, o.Status)

	require.NoError(t, o.Ship())
	assert.Equal(t, StatusShipped, o.Status)
	require.NotNil(t, o.ShippedAt)

	require.NoError(t, o.Deliver())
	assert.Equal(t, StatusDelivered, o.Status)
	require.NotNil(t, o.DeliveredAt)

	assert.Equal(t, []string{
		event.FactOrderConfirmed,
		event.FactOrderShipped,
		event.FactOrderDelivered,
	}, pendingTypes(o))
}

func TestOrder_ConfirmedCanShipDirectly(t *testing.T) {
	o := placeTestOrder(t)
	require.NoError(t, o.Confirm())

	assert.NoError(t, o.Ship())
}

func TestOrder_CancelFromPending(t *testing.T) {
	o := placeTestOrder(t)

	err := o.Cancel("changed my mind")

	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, "changed my mind", o.CancellationReason)
	require.NotNil(t, o.CancelledAt)

	facts := o.PendingFacts()
	require.Len(t, facts, 1)
	cancelled, ok := facts[0].(event.OrderCancelled)
	require.True(t, ok)
	assert.Equal(t, "changed my mind", cancelled.Reason)
	assert.Len(t, cancelled.Items, 2)
}

func TestOrder_ConfirmAfterCancelFails(t *testing.T) {
	o := placeTestOrder(t)
	require.NoError(t, o.Cancel("changed my mind"))
	o.DrainFacts()

	err := o.Confirm()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Empty(t, o.PendingFacts())

	var transition *InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, StatusCancelled, transition.From)
	assert.Equal(t, StatusConfirmed, transition.To)
}

func TestOrder_CancelAfterShipFails(t *testing.T) {
	o := placeTestOrder(t)
	require.NoError(t, o.Confirm())
	require.NoError(t, o.Ship())
	o.DrainFacts()

	err := o.Cancel("too late")

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusShipped, o.Status)
	assert.Nil(t, o.CancelledAt)
}

func TestOrder_DeliverIsTerminal(t *testing.T) {
	o := placeTestOrder(t)
	require.NoError(t, o.Confirm())
	require.NoError(t, o.Ship())
	require.NoError(t, o.Deliver())

	assert.ErrorIs(t, o.Cancel("nope"), ErrInvalidTransition)
	assert.ErrorIs(t, o.Ship(), ErrInvalidTransition)
}

func TestOrder_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusShipped, false},
		{StatusConfirmed, StatusProcessing, true},
		{StatusConfirmed, StatusShipped, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusShipped, false},
		{StatusCancelled, StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			o := &Order{Status: tt.from}
			assert.Equal(t, tt.allowed, o.CanTransitionTo(tt.to))
		})
	}
}

// ============================================
// Frozen Total Tests
// ============================================

func TestOrder_TotalFrozenAtPlacement(t *testing.T) {
	items := testItems()
	o, err := Place("ORD-2026-00001", "user-1", "1 Main St", items)
	require.NoError(t, err)
	before := o.TotalAmount

	// a later catalog price change must not affect the placed order
	items[0].UnitPrice = money.MustNew("99.00", "USD")

	assert.True(t, o.TotalAmount.Equals(before))
}

func TestOrder_ItemSnapshotsIndependentOfCallerSlice(t *testing.T) {
	items := testItems()
	o, err := Place("ORD-2026-00001", "user-1", "1 Main St", items)
	require.NoError(t, err)

	items[0].Quantity = 99
	items[0].ProductName = "Renamed"

	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, "Keyboard", o.Items[0].ProductName)
}

func pendingTypes(o *Order) []string {
	facts := o.PendingFacts()
	types := make([]string, len(facts))
	for i, f := range facts {
		types[i] = f.FactType()
	}
	return types
}
