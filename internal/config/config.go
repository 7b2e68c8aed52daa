// Package config builds the process configuration once at startup from
// environment variables. The resulting struct is passed by reference to the
// components that need it; nothing in this codebase reads the environment
// after main has finished wiring.
package config

import (
	"os"
	"strconv"
)

type Config struct {
	ServiceName string
	Environment string
	HTTPAddr    string

	MongoURI      string
	MongoDatabase string

	RedisAddr string

	// AMQPURL enables the RabbitMQ event publisher when non-empty.
	AMQPURL string

	// SagaLogPath enables the durable saga audit log when non-empty.
	SagaLogPath string

	// TaxRate is the fraction of the subtotal charged as tax.
	TaxRate float64
	// DeliveryFee is the flat delivery fee applied to every order.
	DeliveryFee float64
}

// Load reads configuration from the environment, falling back to local
// development defaults.
func Load() *Config {
	return &Config{
		ServiceName:   getEnv("SERVICE_NAME", "bakehouse"),
		Environment:   getEnv("ENVIRONMENT", "local"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "bakehouse"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		AMQPURL:       os.Getenv("AMQP_URL"),
		SagaLogPath:   getEnv("SAGA_LOG_PATH", "./data/saga.db"),
		TaxRate:       getEnvFloat("TAX_RATE", 0.10),
		DeliveryFee:   getEnvFloat("DELIVERY_FEE", 5.0),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
