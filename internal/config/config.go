// Package config loads the framework's runtime knobs from environment
// variables, mirroring the ambient config layer's LoadConfig/Validate/
// Print/LogConfig shape.
package config

import (
	"fmt"
	"time"

	"github.com/adred-codev/etfw/internal/broker"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds every configurable knob the framework exposes: pool
// sizing, child/subscription bounds, queue depth, and the ambient
// logging/metrics settings.
type Config struct {
	// Pool
	PoolCapacity int `env:"ETFW_POOL_CAPACITY" envDefault:"256"`

	// Service tree bounds
	MaxChildServices       int `env:"ETFW_MAX_CHILD_SERVICES" envDefault:"32"`
	MaxSubscriptionsPerPipe int `env:"ETFW_MAX_SUBSCRIPTIONS_PER_PIPE" envDefault:"64"` // documented, unenforced: subscription sets are unbounded dynamic sets

	// Queue
	QueueDepthLimit int `env:"ETFW_QUEUE_DEPTH_LIMIT" envDefault:"64"`

	// Message size
	LogMessageMaxBytes int `env:"ETFW_LOG_MESSAGE_MAX_BYTES" envDefault:"4096"`

	// Resource auto-sizing
	MemoryLimitBytes int64   `env:"ETFW_MEMORY_LIMIT_BYTES" envDefault:"0"` // 0 = auto-detect from cgroup
	SendRatePerSec   float64 `env:"ETFW_SEND_RATE_PER_SEC" envDefault:"5000"`

	// Monitoring
	MetricsInterval time.Duration `env:"ETFW_METRICS_INTERVAL" envDefault:"15s"`

	// Logging
	LogLevel  string `env:"ETFW_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"ETFW_LOG_FORMAT" envDefault:"json"`

	// Environment
	Environment string `env:"ETFW_ENVIRONMENT" envDefault:"development"`

	// HTTP
	MetricsAddr string `env:"ETFW_METRICS_ADDR" envDefault:":9090"`

	// External collaborators (examples/collectors). Empty values disable
	// the collaborator entirely; etfwd only wires the ones configured.
	KafkaBrokers       string `env:"ETFW_KAFKA_BROKERS" envDefault:""`
	KafkaConsumerGroup string `env:"ETFW_KAFKA_CONSUMER_GROUP" envDefault:"etfw"`
	KafkaTopics        string `env:"ETFW_KAFKA_TOPICS" envDefault:""`
	NatsURL            string `env:"ETFW_NATS_URL" envDefault:""`
	NatsSubject        string `env:"ETFW_NATS_SUBJECT" envDefault:"etfw.cmd"`
	WSPublishAddr      string `env:"ETFW_WS_PUBLISH_ADDR" envDefault:""`
}

// Load reads configuration from a .env file (if present) and the
// environment, then validates it. Priority: env vars > .env file >
// defaults.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("no .env file found, using environment variables only")
		}
	} else if logger != nil {
		logger.Info().Msg("loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks the loaded configuration for internally consistent,
// in-range values.
func (c *Config) Validate() error {
	if c.PoolCapacity < 1 {
		return fmt.Errorf("ETFW_POOL_CAPACITY must be > 0, got %d", c.PoolCapacity)
	}
	if c.MaxChildServices < 1 {
		return fmt.Errorf("ETFW_MAX_CHILD_SERVICES must be > 0, got %d", c.MaxChildServices)
	}
	if c.QueueDepthLimit < 1 || c.QueueDepthLimit > broker.MaxQueueDepth {
		return fmt.Errorf("ETFW_QUEUE_DEPTH_LIMIT must be in (0, %d], got %d", broker.MaxQueueDepth, c.QueueDepthLimit)
	}
	if c.LogMessageMaxBytes < 1 {
		return fmt.Errorf("ETFW_LOG_MESSAGE_MAX_BYTES must be > 0, got %d", c.LogMessageMaxBytes)
	}
	if c.MemoryLimitBytes < 0 {
		return fmt.Errorf("ETFW_MEMORY_LIMIT_BYTES must be >= 0, got %d", c.MemoryLimitBytes)
	}
	if c.SendRatePerSec <= 0 {
		return fmt.Errorf("ETFW_SEND_RATE_PER_SEC must be > 0, got %.1f", c.SendRatePerSec)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warning": true, "error": true, "critical": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("ETFW_LOG_LEVEL must be one of debug, info, warning, error, critical (got %s)", c.LogLevel)
	}
	validFormats := map[string]bool{"json": true, "pretty": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("ETFW_LOG_FORMAT must be one of json, pretty (got %s)", c.LogFormat)
	}
	return nil
}

// Print writes a human-readable configuration dump to stdout, for local
// debugging.
func (c *Config) Print() {
	fmt.Println("=== etfw configuration ===")
	fmt.Printf("Environment:          %s\n", c.Environment)
	fmt.Printf("Pool capacity:        %d\n", c.PoolCapacity)
	fmt.Printf("Max child services:   %d\n", c.MaxChildServices)
	fmt.Printf("Queue depth limit:    %d\n", c.QueueDepthLimit)
	fmt.Printf("Log message max:      %d bytes\n", c.LogMessageMaxBytes)
	fmt.Printf("Memory limit:         %d bytes (0 = auto-detect)\n", c.MemoryLimitBytes)
	fmt.Printf("Send rate limit:      %.1f/sec\n", c.SendRatePerSec)
	fmt.Printf("Metrics interval:     %s\n", c.MetricsInterval)
	fmt.Printf("Log level/format:     %s/%s\n", c.LogLevel, c.LogFormat)
	fmt.Printf("Metrics address:      %s\n", c.MetricsAddr)
	if c.KafkaBrokers != "" {
		fmt.Printf("Kafka ingest:         brokers=%s group=%s topics=%s\n", c.KafkaBrokers, c.KafkaConsumerGroup, c.KafkaTopics)
	}
	if c.NatsURL != "" {
		fmt.Printf("NATS relay:           url=%s subject=%s\n", c.NatsURL, c.NatsSubject)
	}
	if c.WSPublishAddr != "" {
		fmt.Printf("WebSocket publish:    addr=%s\n", c.WSPublishAddr)
	}
	fmt.Println("===========================")
}

// LogConfig emits the same configuration via structured logging.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("environment", c.Environment).
		Int("pool_capacity", c.PoolCapacity).
		Int("max_child_services", c.MaxChildServices).
		Int("queue_depth_limit", c.QueueDepthLimit).
		Int("log_message_max_bytes", c.LogMessageMaxBytes).
		Int64("memory_limit_bytes", c.MemoryLimitBytes).
		Float64("send_rate_per_sec", c.SendRatePerSec).
		Dur("metrics_interval", c.MetricsInterval).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("etfw configuration loaded")
}
