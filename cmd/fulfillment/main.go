package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/example/fulfillment/internal/allocation"
	"github.com/example/fulfillment/internal/config"
	"github.com/example/fulfillment/internal/domain/event"
	"github.com/example/fulfillment/internal/domain/order"
	"github.com/example/fulfillment/internal/domain/shipment"
	"github.com/example/fulfillment/internal/domain/stock"
	"github.com/example/fulfillment/internal/domain/warehouse"
	"github.com/example/fulfillment/internal/eventbus"
	"github.com/example/fulfillment/internal/infrastructure/kafka"
	"github.com/example/fulfillment/internal/infrastructure/store"
	"github.com/example/fulfillment/internal/metrics"
	"github.com/example/fulfillment/internal/orchestration"
	"github.com/example/fulfillment/internal/sequence"
	"github.com/example/fulfillment/internal/tracking"
	"github.com/example/fulfillment/internal/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.ServiceName).Logger()

	logger.Info().
		Strs("kafka_brokers", cfg.KafkaBrokers).
		Str("kafka_topic", cfg.KafkaTopic).
		Msg("starting fulfillment service")

	// Stores: PostgreSQL when configured, in-memory otherwise.
	var (
		stockStore     stock.Store
		warehouseStore warehouse.Store
		orderStore     order.Store
		shipmentStore  shipment.Store
	)
	if cfg.PostgresDSN != "" {
		db, err := store.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect postgres")
		}
		defer db.Close()
		stockStore = store.NewPostgresStockStore(db)
		warehouseStore = store.NewPostgresWarehouseStore(db)
		orderStore = store.NewPostgresOrderStore(db)
		shipmentStore = store.NewPostgresShipmentStore(db)
		logger.Info().Msg("connected to postgres")
	} else {
		stockStore = store.NewMemoryStockStore()
		warehouseStore = store.NewMemoryWarehouseStore()
		orderStore = store.NewMemoryOrderStore()
		shipmentStore = store.NewMemoryShipmentStore()
		logger.Warn().Msg("POSTGRES_DSN not set, using in-memory stores")
	}

	// Number generators: Redis for cross-process monotonicity when available.
	var orderNumbers, trackingNumbers sequence.Generator
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		orderNumbers = sequence.NewRedis(rdb, sequence.OrderPrefix)
		trackingNumbers = sequence.NewRedis(rdb, sequence.TrackingPrefix)
	} else {
		orderNumbers = sequence.NewMemory(sequence.OrderPrefix)
		trackingNumbers = sequence.NewMemory(sequence.TrackingPrefix)
	}

	m := metrics.New(cfg.ServiceName)
	bus := eventbus.New(logger)
	bus.Subscribe(event.FactStockDepleted, func(ctx context.Context, f event.Fact) error {
		m.IncStockDepletion()
		return nil
	})

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()
	bus.SubscribeAll(eventbus.NewKafkaBridge(producer))

	stockSvc := stock.NewService(stockStore, bus, logger)
	warehouseSvc := warehouse.NewService(warehouseStore)
	orderSvc := order.NewService(orderStore, orderNumbers, bus)
	shipmentSvc := shipment.NewService(shipmentStore, trackingNumbers, bus)
	engine := allocation.NewEngine(stockStore, warehouseStore, bus, m, logger)

	// Dev fixture: with in-memory stores there is nothing to allocate from,
	// so seed one warehouse and use it as the saga fallback.
	if cfg.PostgresDSN == "" {
		w, err := warehouseSvc.Create(ctx, "Default Warehouse", "1 Depot Way")
		if err != nil {
			logger.Fatal().Err(err).Msg("seed default warehouse")
		}
		if cfg.DefaultWarehouseID == "" {
			cfg.DefaultWarehouseID = w.ID
		}
	}

	saga := orchestration.NewHandler(stockSvc, shipmentSvc, cfg.DefaultWarehouseID, m, logger)
	saga.Register(bus)

	// In-process tracking projection; a standalone projector can run off the
	// Kafka topic instead (cmd/tracking-projector).
	projector := tracking.NewProjector(tracking.NewMemoryStore(), logger)
	bus.Subscribe(event.FactShipmentCreated, projector.HandleFact)
	bus.Subscribe(event.FactShipmentStatusUpdated, projector.HandleFact)

	// Command consumer: order placement, simulated payment outcomes and
	// operator shipment updates arrive on the command topic.
	commands := worker.NewHandler(engine, orderSvc, shipmentSvc, stockSvc, logger)
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.CommandTopic, cfg.CommandGroup, logger)
	defer consumer.Close()
	go func() {
		if err := consumer.Consume(ctx, commands.HandleMessage); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("command consumer stopped")
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics endpoint listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown metrics server")
	}
	cancel()
}
