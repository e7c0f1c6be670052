package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MetricsAddr        string
	PostgresDSN        string
	RedisAddr          string
	KafkaBrokers       []string
	KafkaTopic         string
	CommandTopic       string
	CommandGroup       string
	ConsumerGroup      string
	DefaultWarehouseID string
	TrackingBackend    string
	TrackingTable      string
	ServiceName        string
}

// Load reads configuration from the environment, with an optional .env file
// for local development.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		MetricsAddr:        getenv("METRICS_ADDR", ":9102"),
		PostgresDSN:        getenv("POSTGRES_DSN", ""),
		RedisAddr:          getenv("REDIS_ADDR", ""),
		KafkaBrokers:       splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:         getenv("KAFKA_TOPIC", "fulfillment-facts"),
		CommandTopic:       getenv("KAFKA_COMMAND_TOPIC", "fulfillment-commands"),
		CommandGroup:       getenv("KAFKA_COMMAND_GROUP", "fulfillment-worker"),
		ConsumerGroup:      getenv("KAFKA_CONSUMER_GROUP", "tracking-projector"),
		DefaultWarehouseID: getenv("DEFAULT_WAREHOUSE_ID", ""),
		TrackingBackend:    getenv("TRACKING_BACKEND", "memory"),
		TrackingTable:      getenv("TRACKING_TABLE", "shipment-tracking"),
		ServiceName:        getenv("SERVICE_NAME", "fulfillment"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
