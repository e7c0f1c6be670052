package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"

	"github.com/example/fulfillment/internal/config"
	"github.com/example/fulfillment/internal/infrastructure/kafka"
	"github.com/example/fulfillment/internal/tracking"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "tracking-projector").Logger()

	logger.Info().
		Strs("kafka_brokers", cfg.KafkaBrokers).
		Str("kafka_topic", cfg.KafkaTopic).
		Str("consumer_group", cfg.ConsumerGroup).
		Str("backend", cfg.TrackingBackend).
		Msg("starting tracking projector")

	var store tracking.Store
	switch cfg.TrackingBackend {
	case "dynamo":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("load aws config")
		}
		store = tracking.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.TrackingTable)
		logger.Info().Str("table", cfg.TrackingTable).Msg("using dynamodb tracking store")
	default:
		store = tracking.NewMemoryStore()
		logger.Warn().Msg("using in-memory tracking store, entries are lost on restart")
	}

	projector := tracking.NewProjector(store, logger)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ConsumerGroup, logger)
	defer consumer.Close()

	go func() {
		if err := consumer.Consume(ctx, projector.HandleEnvelope); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("consumer stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info().Msg("shutting down")
	cancel()
}
