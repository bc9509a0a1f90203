package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the full process configuration.
type Config struct {
	Server    Server
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Lifecycle LifecycleConfig
	Outbox    OutboxConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// PostgresConfig selects the Postgres stores; an empty URL runs in memory,
// with the directory loaded from SeedFile.
type PostgresConfig struct {
	URL         string
	AutoMigrate bool
	SeedFile    string
}

// RedisConfig configures the display id sequence; an empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the outbox relay target; no brokers disables it.
type KafkaConfig struct {
	Brokers           string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
}

// LifecycleConfig tunes request creation and the invoice cascade.
type LifecycleConfig struct {
	DedupWindow           time.Duration
	AllocationMaxAttempts int
	VATRate               decimal.Decimal
	CascadeTriggerStatus  string
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ADDR", ":8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AUTO_MIGRATE", true)
	v.SetDefault("DIRECTORY_SEED_FILE", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 2)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "expertdesk.events")
	v.SetDefault("KAFKA_PARTITIONS", 3)
	v.SetDefault("KAFKA_REPLICATION_FACTOR", 1)
	v.SetDefault("DEDUP_WINDOW", "10s")
	v.SetDefault("ALLOCATION_MAX_ATTEMPTS", 5)
	v.SetDefault("VAT_RATE", "0.15")
	v.SetDefault("CASCADE_TRIGGER_STATUS", "NEW")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "1s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)
}

// Load reads configuration from the environment, optionally layered over the
// file named by CONFIG_FILE.
func Load() (Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	vat, err := decimal.NewFromString(v.GetString("VAT_RATE"))
	if err != nil {
		return Config{}, fmt.Errorf("VAT_RATE: %w", err)
	}

	cfg := Config{
		Server: Server{
			Addr:            v.GetString("ADDR"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
			AllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Postgres: PostgresConfig{
			URL:         v.GetString("DATABASE_URL"),
			AutoMigrate: v.GetBool("AUTO_MIGRATE"),
			SeedFile:    v.GetString("DIRECTORY_SEED_FILE"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("REDIS_URL"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
		},
		Kafka: KafkaConfig{
			Brokers:           v.GetString("KAFKA_BROKERS"),
			Topic:             v.GetString("KAFKA_TOPIC"),
			Partitions:        v.GetInt32("KAFKA_PARTITIONS"),
			ReplicationFactor: int16(v.GetInt("KAFKA_REPLICATION_FACTOR")),
		},
		Lifecycle: LifecycleConfig{
			DedupWindow:           v.GetDuration("DEDUP_WINDOW"),
			AllocationMaxAttempts: v.GetInt("ALLOCATION_MAX_ATTEMPTS"),
			VATRate:               vat,
			CascadeTriggerStatus:  strings.ToUpper(strings.TrimSpace(v.GetString("CASCADE_TRIGGER_STATUS"))),
		},
		Outbox: OutboxConfig{
			PollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
			BatchSize:    v.GetInt("OUTBOX_BATCH_SIZE"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the services cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return fmt.Errorf("ADDR must not be empty")
	case c.Lifecycle.DedupWindow < 0:
		return fmt.Errorf("DEDUP_WINDOW must not be negative")
	case c.Lifecycle.AllocationMaxAttempts < 1:
		return fmt.Errorf("ALLOCATION_MAX_ATTEMPTS must be at least 1")
	case c.Lifecycle.VATRate.IsNegative():
		return fmt.Errorf("VAT_RATE must not be negative")
	case c.Outbox.PollInterval <= 0:
		return fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive")
	case c.Outbox.BatchSize < 1:
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be at least 1")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
