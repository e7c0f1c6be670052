package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/example/fulfillment/internal/domain/money"
	"github.com/example/fulfillment/internal/domain/order"
	"github.com/example/fulfillment/internal/domain/shipment"
	"github.com/example/fulfillment/internal/domain/stock"
	"github.com/example/fulfillment/internal/domain/warehouse"
)

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PostgresStockStore implements stock.Store on PostgreSQL. The version
// column backs the compare-and-swap; SaveAll runs in one transaction so a
// multi-item allocation commits all reservations or none.
type PostgresStockStore struct {
	db *sql.DB
}

func NewPostgresStockStore(db *sql.DB) *PostgresStockStore {
	return &PostgresStockStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (ps *PostgresStockStore) Save(ctx context.Context, s *stock.Stock) error {
	return saveStock(ctx, ps.db, s)
}

func saveStock(ctx context.Context, db execer, s *stock.Stock) error {
	if s.Version == 0 {
		_, err := db.ExecContext(ctx,
			`INSERT INTO stocks (id, product_id, warehouse_id, quantity, reserved, version, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, 1, $6, $7)`,
			s.ID, s.ProductID, s.WarehouseID, s.Quantity.Value(), s.Reserved.Value(), s.CreatedAt, s.UpdatedAt,
		)
		if err != nil {
			return err
		}
		s.Version = 1
		return nil
	}

	result, err := db.ExecContext(ctx,
		`UPDATE stocks SET quantity = $1, reserved = $2, version = version + 1, updated_at = $3
		 WHERE id = $4 AND version = $5`,
		s.Quantity.Value(), s.Reserved.Value(), s.UpdatedAt, s.ID, s.Version,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return stock.ErrVersionConflict
	}
	s.Version++
	return nil
}

func (ps *PostgresStockStore) SaveAll(ctx context.Context, rows []*stock.Stock) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, s := range rows {
		if err := saveStock(ctx, tx, s); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const stockColumns = `id, product_id, warehouse_id, quantity, reserved, version, created_at, updated_at`

func scanStock(row interface{ Scan(...any) error }) (*stock.Stock, error) {
	var s stock.Stock
	var quantity, reserved int
	if err := row.Scan(&s.ID, &s.ProductID, &s.WarehouseID, &quantity, &reserved, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if s.Quantity, err = money.NewQuantity(quantity); err != nil {
		return nil, err
	}
	if s.Reserved, err = money.NewQuantity(reserved); err != nil {
		return nil, err
	}
	return &s, nil
}

func (ps *PostgresStockStore) FindByID(ctx context.Context, id string) (*stock.Stock, error) {
	row := ps.db.QueryRowContext(ctx, `SELECT `+stockColumns+` FROM stocks WHERE id = $1`, id)
	s, err := scanStock(row)
	if err == sql.ErrNoRows {
		return nil, stock.ErrStockNotFound
	}
	return s, err
}

func (ps *PostgresStockStore) FindByProductAndWarehouse(ctx context.Context, productID, warehouseID string) (*stock.Stock, error) {
	row := ps.db.QueryRowContext(ctx,
		`SELECT `+stockColumns+` FROM stocks WHERE product_id = $1 AND warehouse_id = $2`,
		productID, warehouseID)
	s, err := scanStock(row)
	if err == sql.ErrNoRows {
		return nil, stock.ErrStockNotFound
	}
	return s, err
}

func (ps *PostgresStockStore) FindByProduct(ctx context.Context, productID string) ([]*stock.Stock, error) {
	rows, err := ps.db.QueryContext(ctx,
		`SELECT `+stockColumns+` FROM stocks WHERE product_id = $1 ORDER BY warehouse_id`,
		productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*stock.Stock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (ps *PostgresStockStore) FindByProducts(ctx context.Context, productIDs []string) (map[string][]*stock.Stock, error) {
	out := make(map[string][]*stock.Stock, len(productIDs))
	for _, id := range productIDs {
		rows, err := ps.FindByProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = rows
	}
	return out, nil
}

func (ps *PostgresStockStore) SumAvailableByProduct(ctx context.Context, productID string) (int, error) {
	var sum int
	err := ps.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity - reserved), 0) FROM stocks WHERE product_id = $1`,
		productID).Scan(&sum)
	return sum, err
}

func (ps *PostgresStockStore) SumReservedByProduct(ctx context.Context, productID string) (int, error) {
	var sum int
	err := ps.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(reserved), 0) FROM stocks WHERE product_id = $1`,
		productID).Scan(&sum)
	return sum, err
}

type PostgresWarehouseStore struct {
	db *sql.DB
}

func NewPostgresWarehouseStore(db *sql.DB) *PostgresWarehouseStore {
	return &PostgresWarehouseStore{db: db}
}

func (ps *PostgresWarehouseStore) Save(ctx context.Context, w *warehouse.Warehouse) error {
	_, err := ps.db.ExecContext(ctx,
		`INSERT INTO warehouses (id, name, address, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET name = $2, address = $3, active = $4, updated_at = $6`,
		w.ID, w.Name, w.Address, w.Active, w.CreatedAt, w.UpdatedAt,
	)
	return err
}

func (ps *PostgresWarehouseStore) FindByID(ctx context.Context, id string) (*warehouse.Warehouse, error) {
	var w warehouse.Warehouse
	err := ps.db.QueryRowContext(ctx,
		`SELECT id, name, address, active, created_at, updated_at FROM warehouses WHERE id = $1`,
		id).Scan(&w.ID, &w.Name, &w.Address, &w.Active, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, warehouse.ErrWarehouseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (ps *PostgresWarehouseStore) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := ps.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM warehouses WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (ps *PostgresWarehouseStore) FindAll(ctx context.Context) ([]*warehouse.Warehouse, error) {
	rows, err := ps.db.QueryContext(ctx,
		`SELECT id, name, address, active, created_at, updated_at FROM warehouses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*warehouse.Warehouse
	for rows.Next() {
		var w warehouse.Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.Address, &w.Active, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}

// PostgresOrderStore stores the order row and its items. Items are rewritten
// on every save; the aggregate owns them outright so there is nothing to
// merge.
type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

func (ps *PostgresOrderStore) Save(ctx context.Context, o *order.Order) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, order_number, user_id, shipping_address, status, total_amount, currency,
		                     created_at, updated_at, paid_at, shipped_at, delivered_at, cancelled_at, cancellation_reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (id) DO UPDATE SET
		   status = $5, updated_at = $9, paid_at = $10, shipped_at = $11,
		   delivered_at = $12, cancelled_at = $13, cancellation_reason = $14`,
		o.ID, o.OrderNumber, o.UserID, o.ShippingAddress, string(o.Status),
		o.TotalAmount.Amount().String(), o.TotalAmount.Currency(),
		o.CreatedAt, o.UpdatedAt, o.PaidAt, o.ShippedAt, o.DeliveredAt, o.CancelledAt, o.CancellationReason,
	)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
		return err
	}
	for i, item := range o.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, position, product_id, product_name, quantity, unit_price, currency, warehouse_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			o.ID, i, item.ProductID, item.ProductName, item.Quantity,
			item.UnitPrice.Amount().String(), item.UnitPrice.Currency(), item.WarehouseID,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

const orderColumns = `id, order_number, user_id, shipping_address, status, total_amount, currency,
	created_at, updated_at, paid_at, shipped_at, delivered_at, cancelled_at, cancellation_reason`

func (ps *PostgresOrderStore) scanOrder(ctx context.Context, row interface{ Scan(...any) error }) (*order.Order, error) {
	var o order.Order
	var status, totalAmount, currency string
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.ShippingAddress, &status, &totalAmount, &currency,
		&o.CreatedAt, &o.UpdatedAt, &o.PaidAt, &o.ShippedAt, &o.DeliveredAt, &o.CancelledAt, &o.CancellationReason); err != nil {
		return nil, err
	}
	o.Status = order.Status(status)

	amount, err := decimal.NewFromString(totalAmount)
	if err != nil {
		return nil, fmt.Errorf("order %s total: %w", o.ID, err)
	}
	if o.TotalAmount, err = money.New(amount, currency); err != nil {
		return nil, err
	}
	if err := ps.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (ps *PostgresOrderStore) loadItems(ctx context.Context, o *order.Order) error {
	rows, err := ps.db.QueryContext(ctx,
		`SELECT product_id, product_name, quantity, unit_price, currency, warehouse_id
		 FROM order_items WHERE order_id = $1 ORDER BY position`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item order.Item
		var unitPrice, currency string
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &unitPrice, &currency, &item.WarehouseID); err != nil {
			return err
		}
		amount, err := decimal.NewFromString(unitPrice)
		if err != nil {
			return fmt.Errorf("order %s item price: %w", o.ID, err)
		}
		if item.UnitPrice, err = money.New(amount, currency); err != nil {
			return err
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

func (ps *PostgresOrderStore) FindByID(ctx context.Context, id string) (*order.Order, error) {
	row := ps.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := ps.scanOrder(ctx, row)
	if err == sql.ErrNoRows {
		return nil, order.ErrOrderNotFound
	}
	return o, err
}

func (ps *PostgresOrderStore) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	row := ps.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber)
	o, err := ps.scanOrder(ctx, row)
	if err == sql.ErrNoRows {
		return nil, order.ErrOrderNotFound
	}
	return o, err
}

func (ps *PostgresOrderStore) FindByUser(ctx context.Context, userID string, limit, offset int) ([]*order.Order, int, error) {
	var total int
	if err := ps.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return ps.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		total, userID, limit, offset)
}

func (ps *PostgresOrderStore) FindAll(ctx context.Context, limit, offset int) ([]*order.Order, int, error) {
	var total int
	if err := ps.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return ps.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		total, limit, offset)
}

func (ps *PostgresOrderStore) listOrders(ctx context.Context, query string, total int, args ...any) ([]*order.Order, int, error) {
	rows, err := ps.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := ps.scanOrder(ctx, rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// PostgresShipmentStore stores the shipment row and its status history. The
// history is append-only, so saves only insert entries past the persisted
// count.
type PostgresShipmentStore struct {
	db *sql.DB
}

func NewPostgresShipmentStore(db *sql.DB) *PostgresShipmentStore {
	return &PostgresShipmentStore{db: db}
}

func (ps *PostgresShipmentStore) Save(ctx context.Context, s *shipment.Shipment) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO shipments (id, tracking_number, order_id, warehouse_id, destination_address, status,
		                        estimated_delivery, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET status = $6, estimated_delivery = $7, updated_at = $9`,
		s.ID, s.TrackingNumber, s.OrderID, s.WarehouseID, s.DestinationAddress, string(s.Status),
		s.EstimatedDelivery, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return err
	}

	var persisted int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shipment_status_changes WHERE shipment_id = $1`, s.ID).Scan(&persisted); err != nil {
		return err
	}
	for i := persisted; i < len(s.History); i++ {
		change := s.History[i]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO shipment_status_changes (shipment_id, position, status, occurred_at, location, notes)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			s.ID, i, string(change.Status), change.Timestamp, change.Location, change.Notes,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

const shipmentColumns = `id, tracking_number, order_id, warehouse_id, destination_address, status,
	estimated_delivery, created_at, updated_at`

func (ps *PostgresShipmentStore) scanShipment(ctx context.Context, row interface{ Scan(...any) error }) (*shipment.Shipment, error) {
	var s shipment.Shipment
	var status string
	if err := row.Scan(&s.ID, &s.TrackingNumber, &s.OrderID, &s.WarehouseID, &s.DestinationAddress, &status,
		&s.EstimatedDelivery, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Status = shipment.Status(status)

	rows, err := ps.db.QueryContext(ctx,
		`SELECT status, occurred_at, location, notes
		 FROM shipment_status_changes WHERE shipment_id = $1 ORDER BY position`, s.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var change shipment.StatusChange
		var changeStatus string
		if err := rows.Scan(&changeStatus, &change.Timestamp, &change.Location, &change.Notes); err != nil {
			return nil, err
		}
		change.Status = shipment.Status(changeStatus)
		s.History = append(s.History, change)
	}
	return &s, rows.Err()
}

func (ps *PostgresShipmentStore) FindByID(ctx context.Context, id string) (*shipment.Shipment, error) {
	row := ps.db.QueryRowContext(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id)
	s, err := ps.scanShipment(ctx, row)
	if err == sql.ErrNoRows {
		return nil, shipment.ErrShipmentNotFound
	}
	return s, err
}

func (ps *PostgresShipmentStore) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*shipment.Shipment, error) {
	row := ps.db.QueryRowContext(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE tracking_number = $1`, trackingNumber)
	s, err := ps.scanShipment(ctx, row)
	if err == sql.ErrNoRows {
		return nil, shipment.ErrShipmentNotFound
	}
	return s, err
}

func (ps *PostgresShipmentStore) FindByOrder(ctx context.Context, orderID string, limit, offset int) ([]*shipment.Shipment, int, error) {
	var total int
	if err := ps.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shipments WHERE order_id = $1`, orderID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := ps.db.QueryContext(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE order_id = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		orderID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*shipment.Shipment
	for rows.Next() {
		s, err := ps.scanShipment(ctx, rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}
