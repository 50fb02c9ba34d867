package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries read from the environment. Money
// amounts are integer paisa, same as everywhere else in the system.
type Config struct {
	Port        string
	PostgresURL string

	KafkaBrokers []string
	OrderTopic   string

	GatewayBaseURL   string
	GatewayKeyID     string
	GatewayKeySecret string

	InRegionShippingPaisa      int64
	RestOfCountryShippingPaisa int64
	FreeShippingThresholdPaisa int64
	HomeState                  string
}

// Load reads a .env file when one exists, then the environment, applying
// defaults for everything except POSTGRES_URL.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			// malformed .env is worth surfacing; a missing one is not
			os.Stderr.WriteString("warning: could not parse .env: " + err.Error() + "\n")
		}
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		PostgresURL: os.Getenv("POSTGRES_URL"),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		OrderTopic:   getEnv("ORDER_EVENTS_TOPIC", "order.events"),

		GatewayBaseURL:   getEnv("PAYMENT_GATEWAY_URL", "https://api.razorpay.com/v1"),
		GatewayKeyID:     getEnv("PAYMENT_GATEWAY_KEY_ID", ""),
		GatewayKeySecret: getEnv("PAYMENT_GATEWAY_KEY_SECRET", ""),

		InRegionShippingPaisa:      getEnvInt64("SHIPPING_IN_REGION_PAISA", 5000),
		RestOfCountryShippingPaisa: getEnvInt64("SHIPPING_REST_PAISA", 10000),
		FreeShippingThresholdPaisa: getEnvInt64("FREE_SHIPPING_THRESHOLD_PAISA", 150000),
		HomeState:                  getEnv("HOME_STATE", "Jammu and Kashmir"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
