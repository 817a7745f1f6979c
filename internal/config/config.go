package config

import (
	"os"
	"strconv"
)

type Config struct {
	DB_USERNAME string
	DB_PASSWORD string
	DB_HOST     string
	DB_PORT     string
	DB_NAME     string
	DISABLE_TLS string

	// HTTP listen port
	PORT string

	// Access token signing
	JWT_SECRET      string
	TOKEN_TTL_HOURS int

	// Optional Redis-backed token denylist. Logout is best-effort
	// when REDIS_HOST is empty.
	REDIS_HOST     string
	REDIS_PORT     string
	REDIS_PASSWORD string

	// Otel
	OTEL_EXPORTER_OTLP_ENDPOINT string
}

func ReadConfig() *Config {
	tokenTTL := 24
	if ttlStr := os.Getenv("TOKEN_TTL_HOURS"); ttlStr != "" {
		if ttl, err := strconv.Atoi(ttlStr); err == nil {
			tokenTTL = ttl
		}
	}

	return &Config{
		DB_USERNAME: os.Getenv("DB_USERNAME"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_NAME:     os.Getenv("DB_NAME"),
		DISABLE_TLS: os.Getenv("DISABLE_TLS"),

		PORT: GetEnvOrDefault("PORT", "8080"),

		JWT_SECRET:      os.Getenv("JWT_SECRET"),
		TOKEN_TTL_HOURS: tokenTTL,

		REDIS_HOST:     os.Getenv("REDIS_HOST"),
		REDIS_PORT:     GetEnvOrDefault("REDIS_PORT", "6379"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),

		OTEL_EXPORTER_OTLP_ENDPOINT: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
