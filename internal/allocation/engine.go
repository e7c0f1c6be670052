// Package allocation picks, for each requested product, the warehouse that
// will serve it and reserves stock there. A multi-item request is
// all-or-nothing: if any line cannot be satisfied, no reservation from the
// call is persisted.
package allocation

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/example/fulfillment/internal/domain/event"
	"github.com/example/fulfillment/internal/domain/money"
	"github.com/example/fulfillment/internal/domain/stock"
	"github.com/example/fulfillment/internal/domain/warehouse"
	"github.com/example/fulfillment/internal/metrics"
)

var (
	ErrNoRequests = errors.New("allocation requires at least one request")
)

// maxRetries bounds re-runs after a concurrent writer invalidated the rows
// loaded by this call.
const maxRetries = 3

type Request struct {
	ProductID string
	Quantity  money.Quantity
}

// Result names the warehouse chosen for one request, for the caller to stamp
// onto the order item.
type Result struct {
	ProductID   string
	WarehouseID string
	Quantity    money.Quantity
}

type Engine struct {
	stocks     stock.Store
	warehouses warehouse.Store
	bus        event.Publisher
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

func NewEngine(stocks stock.Store, warehouses warehouse.Store, bus event.Publisher, m *metrics.Metrics, logger zerolog.Logger) *Engine {
	return &Engine{stocks: stocks, warehouses: warehouses, bus: bus, metrics: m, logger: logger}
}

// Allocate reserves stock for every request or for none. For each product it
// considers active warehouses whose available stock covers the requested
// quantity and picks the one with the most available units, ties going to the
// lower warehouse id. Requests are processed in caller order, so two lines
// for the same product draw down the same in-flight view of its rows.
func (e *Engine) Allocate(ctx context.Context, requests []Request) ([]Result, error) {
	if len(requests) == 0 {
		return nil, ErrNoRequests
	}
	for _, req := range requests {
		if req.Quantity.IsZero() {
			return nil, stock.ErrInvalidAmount
		}
	}

	active, err := e.activeWarehouses(ctx)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		results, touched, err := e.tryAllocate(ctx, requests, active)
		if err != nil {
			if errors.Is(err, stock.ErrInsufficientStock) {
				e.metrics.IncAllocation("insufficient")
			}
			return nil, err
		}

		if err := e.stocks.SaveAll(ctx, touched); err != nil {
			if errors.Is(err, stock.ErrVersionConflict) {
				lastErr = err
				e.logger.Debug().Int("attempt", attempt+1).Msg("allocation raced a concurrent writer, retrying")
				continue
			}
			return nil, err
		}

		for _, row := range touched {
			e.bus.Publish(ctx, row.DrainFacts()...)
		}
		e.metrics.IncAllocation("ok")
		return results, nil
	}
	e.metrics.IncAllocation("conflict")
	return nil, lastErr
}

// tryAllocate computes reservations against freshly loaded rows. Nothing is
// persisted here; reservations live on the loaded copies until SaveAll.
func (e *Engine) tryAllocate(ctx context.Context, requests []Request, active map[string]bool) ([]Result, []*stock.Stock, error) {
	productIDs := make([]string, 0, len(requests))
	seen := make(map[string]bool, len(requests))
	for _, req := range requests {
		if !seen[req.ProductID] {
			seen[req.ProductID] = true
			productIDs = append(productIDs, req.ProductID)
		}
	}

	rowsByProduct, err := e.stocks.FindByProducts(ctx, productIDs)
	if err != nil {
		return nil, nil, err
	}

	results := make([]Result, 0, len(requests))
	touchedSet := make(map[string]*stock.Stock)
	var touched []*stock.Stock

	for _, req := range requests {
		row := pickWarehouse(rowsByProduct[req.ProductID], active, req.Quantity)
		if row == nil {
			return nil, nil, &stock.InsufficientStockError{
				ProductID: req.ProductID,
				Available: sumAvailable(rowsByProduct[req.ProductID], active),
				Requested: req.Quantity.Value(),
			}
		}
		if err := row.Reserve(req.Quantity); err != nil {
			return nil, nil, err
		}
		if _, ok := touchedSet[row.ID]; !ok {
			touchedSet[row.ID] = row
			touched = append(touched, row)
		}
		results = append(results, Result{
			ProductID:   req.ProductID,
			WarehouseID: row.WarehouseID,
			Quantity:    req.Quantity,
		})
	}
	return results, touched, nil
}

// pickWarehouse selects the eligible row with maximal available stock. Rows
// arrive sorted by warehouse id, so keeping the strictly-greater winner makes
// ties fall to the lower id.
func pickWarehouse(rows []*stock.Stock, active map[string]bool, quantity money.Quantity) *stock.Stock {
	var best *stock.Stock
	for _, row := range rows {
		if !active[row.WarehouseID] {
			continue
		}
		if !row.Available().GreaterOrEqual(quantity) {
			continue
		}
		if best == nil || row.Available().Value() > best.Available().Value() {
			best = row
		}
	}
	return best
}

func sumAvailable(rows []*stock.Stock, active map[string]bool) int {
	total := 0
	for _, row := range rows {
		if active[row.WarehouseID] {
			total += row.Available().Value()
		}
	}
	return total
}

func (e *Engine) activeWarehouses(ctx context.Context) (map[string]bool, error) {
	all, err := e.warehouses.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	active := make(map[string]bool, len(all))
	for _, w := range all {
		active[w.ID] = w.Active
	}
	return active, nil
}
