// Package config loads app config from env and an optional .env file
// using Viper.
package config

import (
	"errors"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// KafkaBrokers is the broker address the consumer connects to.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic is the device-telemetry topic.
	KafkaTopic string `mapstructure:"KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group; the group offset is the
	// processing checkpoint.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// MigrationsPath is the directory holding the SQL migrations.
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`
	// DeviceID is the single recognized device identity; events keyed by
	// any other identity are checkpointed and ignored.
	DeviceID string `mapstructure:"DEVICE_ID"`
	// ListenAddr is the HTTP address for the REST API and the websocket
	// gateway (e.g. :8080).
	ListenAddr string `mapstructure:"LISTEN_ADDR"`
}

// Load reads .env (if present), then builds Config from the environment.
// Missing .env is ignored; env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_TOPIC", "device-telemetry")
	v.SetDefault("KAFKA_GROUP_ID", "asset-tracking-ingest")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MIGRATIONS_PATH", "internal/store/migrations")
	v.SetDefault("DEVICE_ID", "asset-tracker-01")
	v.SetDefault("LISTEN_ADDR", ":8080")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL must be set")
	}
	if cfg.DeviceID == "" {
		return nil, errors.New("config: DEVICE_ID must be set")
	}

	return &cfg, nil
}
