package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Kafka    KafkaConfig
	Purchase PurchaseConfig
	Search   SearchConfig
	Media    MediaConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DBConfig struct {
	Path string
}

type KafkaConfig struct {
	// Brokers is a comma-separated list like "kafka:9092". Empty disables
	// the Kafka notification path; notifications are then written straight
	// to the chat store.
	Brokers     string
	OutboxTopic string
	DLQTopic    string
}

// Brokerlist splits Brokers into its addresses.
func (k KafkaConfig) Brokerlist() []string {
	if k.Brokers == "" {
		return nil
	}
	parts := strings.Split(k.Brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type PurchaseConfig struct {
	ConfirmWindowSeconds int // seconds the seller has after first reading a raise
}

type SearchConfig struct {
	PageSize    int // default page size
	MaxPageSize int
}

type MediaConfig struct {
	Dir string // where item pictures are stored
}

// Load returns application configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		DB: DBConfig{
			Path: getEnv("DB_PATH", "bookmarket.db"),
		},
		Kafka: KafkaConfig{
			Brokers:     getEnv("KAFKA_BROKERS", ""),
			OutboxTopic: getEnv("KAFKA_NOTIFY_TOPIC", "notify-outbox"),
			DLQTopic:    getEnv("KAFKA_NOTIFY_DLQ_TOPIC", "notify-dlq"),
		},
		Purchase: PurchaseConfig{
			ConfirmWindowSeconds: getEnvInt("PURCHASE_CONFIRM_WINDOW_SECONDS", 30),
		},
		Search: SearchConfig{
			PageSize:    getEnvInt("SEARCH_PAGE_SIZE", 12),
			MaxPageSize: getEnvInt("SEARCH_MAX_PAGE_SIZE", 100),
		},
		Media: MediaConfig{
			Dir: getEnv("MEDIA_DIR", "media"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
