// Package store provides the persistence adapters behind the domain store
// contracts: mutex-guarded in-memory implementations used by tests and the
// default wiring, and PostgreSQL implementations for durable deployments.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/example/fulfillment/internal/domain/event"
	"github.com/example/fulfillment/internal/domain/order"
	"github.com/example/fulfillment/internal/domain/shipment"
	"github.com/example/fulfillment/internal/domain/stock"
	"github.com/example/fulfillment/internal/domain/warehouse"
)

// MemoryStockStore keeps stock rows in a map. Save performs the version
// compare-and-swap; SaveAll applies all writes or none under one lock, which
// is what makes multi-item allocation atomic against concurrent callers.
type MemoryStockStore struct {
	mu   sync.RWMutex
	rows map[string]*stock.Stock // keyed by stock id
}

func NewMemoryStockStore() *MemoryStockStore {
	return &MemoryStockStore{rows: make(map[string]*stock.Stock)}
}

func cloneStock(s *stock.Stock) *stock.Stock {
	cp := *s
	cp.Recorder = event.Recorder{}
	return &cp
}

func (ms *MemoryStockStore) Save(ctx context.Context, s *stock.Stock) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.saveLocked(s)
}

func (ms *MemoryStockStore) saveLocked(s *stock.Stock) error {
	existing, ok := ms.rows[s.ID]
	if ok && existing.Version != s.Version {
		return stock.ErrVersionConflict
	}
	cp := cloneStock(s)
	cp.Version = s.Version + 1
	ms.rows[s.ID] = cp
	s.Version = cp.Version
	return nil
}

func (ms *MemoryStockStore) SaveAll(ctx context.Context, rows []*stock.Stock) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, s := range rows {
		if existing, ok := ms.rows[s.ID]; ok && existing.Version != s.Version {
			return stock.ErrVersionConflict
		}
	}
	for _, s := range rows {
		if err := ms.saveLocked(s); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MemoryStockStore) FindByID(ctx context.Context, id string) (*stock.Stock, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	s, ok := ms.rows[id]
	if !ok {
		return nil, stock.ErrStockNotFound
	}
	return cloneStock(s), nil
}

func (ms *MemoryStockStore) FindByProductAndWarehouse(ctx context.Context, productID, warehouseID string) (*stock.Stock, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	for _, s := range ms.rows {
		if s.ProductID == productID && s.WarehouseID == warehouseID {
			return cloneStock(s), nil
		}
	}
	return nil, stock.ErrStockNotFound
}

func (ms *MemoryStockStore) FindByProduct(ctx context.Context, productID string) ([]*stock.Stock, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	var out []*stock.Stock
	for _, s := range ms.rows {
		if s.ProductID == productID {
			out = append(out, cloneStock(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID < out[j].WarehouseID })
	return out, nil
}

func (ms *MemoryStockStore) FindByProducts(ctx context.Context, productIDs []string) (map[string][]*stock.Stock, error) {
	out := make(map[string][]*stock.Stock, len(productIDs))
	for _, id := range productIDs {
		rows, err := ms.FindByProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = rows
	}
	return out, nil
}

func (ms *MemoryStockStore) SumAvailableByProduct(ctx context.Context, productID string) (int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	total := 0
	for _, s := range ms.rows {
		if s.ProductID == productID {
			total += s.Available().Value()
		}
	}
	return total, nil
}

func (ms *MemoryStockStore) SumReservedByProduct(ctx context.Context, productID string) (int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	total := 0
	for _, s := range ms.rows {
		if s.ProductID == productID {
			total += s.Reserved.Value()
		}
	}
	return total, nil
}

type MemoryWarehouseStore struct {
	mu   sync.RWMutex
	rows map[string]*warehouse.Warehouse
}

func NewMemoryWarehouseStore() *MemoryWarehouseStore {
	return &MemoryWarehouseStore{rows: make(map[string]*warehouse.Warehouse)}
}

func (ms *MemoryWarehouseStore) Save(ctx context.Context, w *warehouse.Warehouse) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	cp := *w
	ms.rows[w.ID] = &cp
	return nil
}

func (ms *MemoryWarehouseStore) FindByID(ctx context.Context, id string) (*warehouse.Warehouse, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	w, ok := ms.rows[id]
	if !ok {
		return nil, warehouse.ErrWarehouseNotFound
	}
	cp := *w
	return &cp, nil
}

func (ms *MemoryWarehouseStore) ExistsByID(ctx context.Context, id string) (bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	_, ok := ms.rows[id]
	return ok, nil
}

func (ms *MemoryWarehouseStore) FindAll(ctx context.Context) ([]*warehouse.Warehouse, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]*warehouse.Warehouse, 0, len(ms.rows))
	for _, w := range ms.rows {
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type MemoryOrderStore struct {
	mu   sync.RWMutex
	rows map[string]*order.Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{rows: make(map[string]*order.Order)}
}

func cloneOrder(o *order.Order) *order.Order {
	cp := *o
	cp.Recorder = event.Recorder{}
	cp.Items = append([]order.Item(nil), o.Items...)
	return &cp
}

func (ms *MemoryOrderStore) Save(ctx context.Context, o *order.Order) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.rows[o.ID] = cloneOrder(o)
	return nil
}

func (ms *MemoryOrderStore) FindByID(ctx context.Context, id string) (*order.Order, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	o, ok := ms.rows[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (ms *MemoryOrderStore) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	for _, o := range ms.rows {
		if o.OrderNumber == orderNumber {
			return cloneOrder(o), nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (ms *MemoryOrderStore) FindByUser(ctx context.Context, userID string, limit, offset int) ([]*order.Order, int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	var matched []*order.Order
	for _, o := range ms.rows {
		if o.UserID == userID {
			matched = append(matched, o)
		}
	}
	return pageOrders(matched, limit, offset)
}

func (ms *MemoryOrderStore) FindAll(ctx context.Context, limit, offset int) ([]*order.Order, int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	matched := make([]*order.Order, 0, len(ms.rows))
	for _, o := range ms.rows {
		matched = append(matched, o)
	}
	return pageOrders(matched, limit, offset)
}

// pageOrders sorts newest-first and applies limit/offset.
func pageOrders(matched []*order.Order, limit, offset int) ([]*order.Order, int, error) {
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*order.Order, 0, end-offset)
	for _, o := range matched[offset:end] {
		out = append(out, cloneOrder(o))
	}
	return out, total, nil
}

type MemoryShipmentStore struct {
	mu   sync.RWMutex
	rows map[string]*shipment.Shipment
}

func NewMemoryShipmentStore() *MemoryShipmentStore {
	return &MemoryShipmentStore{rows: make(map[string]*shipment.Shipment)}
}

func cloneShipment(s *shipment.Shipment) *shipment.Shipment {
	cp := *s
	cp.Recorder = event.Recorder{}
	cp.History = append([]shipment.StatusChange(nil), s.History...)
	return &cp
}

func (ms *MemoryShipmentStore) Save(ctx context.Context, s *shipment.Shipment) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.rows[s.ID] = cloneShipment(s)
	return nil
}

func (ms *MemoryShipmentStore) FindByID(ctx context.Context, id string) (*shipment.Shipment, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	s, ok := ms.rows[id]
	if !ok {
		return nil, shipment.ErrShipmentNotFound
	}
	return cloneShipment(s), nil
}

func (ms *MemoryShipmentStore) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*shipment.Shipment, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	for _, s := range ms.rows {
		if s.TrackingNumber == trackingNumber {
			return cloneShipment(s), nil
		}
	}
	return nil, shipment.ErrShipmentNotFound
}

func (ms *MemoryShipmentStore) FindByOrder(ctx context.Context, orderID string, limit, offset int) ([]*shipment.Shipment, int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	var matched []*shipment.Shipment
	for _, s := range ms.rows {
		if s.OrderID == orderID {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*shipment.Shipment, 0, end-offset)
	for _, s := range matched[offset:end] {
		out = append(out, cloneShipment(s))
	}
	return out, total, nil
}
