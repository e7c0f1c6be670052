package event

import "time"

// Fact type names as they appear on the wire.
const (
	FactOrderPlaced    = "OrderPlaced"
	FactOrderConfirmed = "OrderConfirmed"
	FactOrderCancelled = "OrderCancelled"
	FactOrderShipped   = "OrderShipped"
	FactOrderDelivered = "OrderDelivered"

	FactStockReplenished = "StockReplenished"
	FactStockReserved    = "StockReserved"
	FactStockDepleted    = "StockDepleted"
	FactStockReleased    = "StockReleased"

	FactShipmentCreated       = "ShipmentCreated"
	FactShipmentStatusUpdated = "ShipmentStatusUpdated"
	FactShipmentDelivered     = "ShipmentDelivered"
	FactShipmentFailed        = "ShipmentFailed"
)

// Fact is an immutable record of a state change on one aggregate. Facts are
// queued on the aggregate and published by the owning service only after the
// aggregate has been durably saved.
type Fact interface {
	FactType() string
	AggregateID() string
}

// ItemFact carries one order line as seen by stock reactions.
type ItemFact struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int    `json:"quantity"`
}

type OrderPlaced struct {
	OrderID         string     `json:"order_id"`
	OrderNumber     string     `json:"order_number"`
	UserID          string     `json:"user_id"`
	Items           []ItemFact `json:"items"`
	TotalAmount     string     `json:"total_amount"`
	Currency        string     `json:"currency"`
	ShippingAddress string     `json:"shipping_address"`
	PlacedAt        time.Time  `json:"placed_at"`
}

func (f OrderPlaced) FactType() string    { return FactOrderPlaced }
func (f OrderPlaced) AggregateID() string { return f.OrderID }

type OrderConfirmed struct {
	OrderID         string     `json:"order_id"`
	OrderNumber     string     `json:"order_number"`
	UserID          string     `json:"user_id"`
	Items           []ItemFact `json:"items"`
	TotalAmount     string     `json:"total_amount"`
	Currency        string     `json:"currency"`
	ShippingAddress string     `json:"shipping_address"`
	ConfirmedAt     time.Time  `json:"confirmed_at"`
}

func (f OrderConfirmed) FactType() string    { return FactOrderConfirmed }
func (f OrderConfirmed) AggregateID() string { return f.OrderID }

type OrderCancelled struct {
	OrderID     string     `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	UserID      string     `json:"user_id"`
	Items       []ItemFact `json:"items"`
	Reason      string     `json:"reason"`
	CancelledAt time.Time  `json:"cancelled_at"`
}

func (f OrderCancelled) FactType() string    { return FactOrderCancelled }
func (f OrderCancelled) AggregateID() string { return f.OrderID }

type OrderShipped struct {
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	ShippedAt time.Time `json:"shipped_at"`
}

func (f OrderShipped) FactType() string    { return FactOrderShipped }
func (f OrderShipped) AggregateID() string { return f.OrderID }

type OrderDelivered struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

func (f OrderDelivered) FactType() string    { return FactOrderDelivered }
func (f OrderDelivered) AggregateID() string { return f.OrderID }

type StockReplenished struct {
	StockID     string    `json:"stock_id"`
	ProductID   string    `json:"product_id"`
	WarehouseID string    `json:"warehouse_id"`
	Amount      int       `json:"amount"`
	NewQuantity int       `json:"new_quantity"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (f StockReplenished) FactType() string    { return FactStockReplenished }
func (f StockReplenished) AggregateID() string { return f.StockID }

type StockReserved struct {
	StockID     string    `json:"stock_id"`
	ProductID   string    `json:"product_id"`
	WarehouseID string    `json:"warehouse_id"`
	Amount      int       `json:"amount"`
	Available   int       `json:"available"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (f StockReserved) FactType() string    { return FactStockReserved }
func (f StockReserved) AggregateID() string { return f.StockID }

type StockDepleted struct {
	StockID     string    `json:"stock_id"`
	ProductID   string    `json:"product_id"`
	WarehouseID string    `json:"warehouse_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (f StockDepleted) FactType() string    { return FactStockDepleted }
func (f StockDepleted) AggregateID() string { return f.StockID }

type StockReleased struct {
	StockID     string    `json:"stock_id"`
	ProductID   string    `json:"product_id"`
	WarehouseID string    `json:"warehouse_id"`
	Amount      int       `json:"amount"`
	Available   int       `json:"available"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (f StockReleased) FactType() string    { return FactStockReleased }
func (f StockReleased) AggregateID() string { return f.StockID }

type ShipmentCreated struct {
	ShipmentID         string    `json:"shipment_id"`
	TrackingNumber     string    `json:"tracking_number"`
	OrderID            string    `json:"order_id"`
	WarehouseID        string    `json:"warehouse_id"`
	DestinationAddress string    `json:"destination_address"`
	CreatedAt          time.Time `json:"created_at"`
}

func (f ShipmentCreated) FactType() string    { return FactShipmentCreated }
func (f ShipmentCreated) AggregateID() string { return f.ShipmentID }

type ShipmentStatusUpdated struct {
	ShipmentID     string    `json:"shipment_id"`
	TrackingNumber string    `json:"tracking_number"`
	OrderID        string    `json:"order_id"`
	OldStatus      string    `json:"old_status"`
	NewStatus      string    `json:"new_status"`
	Location       string    `json:"location,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (f ShipmentStatusUpdated) FactType() string    { return FactShipmentStatusUpdated }
func (f ShipmentStatusUpdated) AggregateID() string { return f.ShipmentID }

type ShipmentDelivered struct {
	ShipmentID     string    `json:"shipment_id"`
	TrackingNumber string    `json:"tracking_number"`
	OrderID        string    `json:"order_id"`
	DeliveredAt    time.Time `json:"delivered_at"`
}

func (f ShipmentDelivered) FactType() string    { return FactShipmentDelivered }
func (f ShipmentDelivered) AggregateID() string { return f.ShipmentID }

type ShipmentFailed struct {
	ShipmentID     string    `json:"shipment_id"`
	TrackingNumber string    `json:"tracking_number"`
	OrderID        string    `json:"order_id"`
	Reason         string    `json:"reason"`
	FailedAt       time.Time `json:"failed_at"`
}

func (f ShipmentFailed) FactType() string    { return FactShipmentFailed }
func (f ShipmentFailed) AggregateID() string { return f.ShipmentID }
