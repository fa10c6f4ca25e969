// Package configs loads the node's YAML configuration file and layers
// environment variables over it, following the original project's
// config.yml-plus-env convention.
package configs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sola-hq/sonar/internal/pipeline"
)

// Config is the top-level shape of config.yml. Per-datasource and
// per-sink detail lives in their owning packages' env-driven loaders
// (internal/datasource, internal/sink); this struct only holds settings
// that are naturally file-based rather than secret/per-deploy.
type Config struct {
	Node      NodeYAMLData      `yaml:"node"`
	Scheduler SchedulerYAMLData `yaml:"scheduler"`
}

type NodeYAMLData struct {
	Variant                   string `yaml:"variant"`           // rpc | geyser | helius
	PipelineChannelBufferSize int    `yaml:"pipelineChannelBufferSize"`
	ShutdownStrategy          string `yaml:"shutdownStrategy"` // immediate | drop_newest
}

type SchedulerYAMLData struct {
	ShutdownTimeoutSec int `yaml:"shutdownTimeoutSec"`
}

// LoadConfig reads and parses config.yml into a Config struct, loading a
// .env file first (if present) so RPC/ClickHouse/Redis secrets referenced
// by the rest of the process are already in the environment.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if config.Node.PipelineChannelBufferSize <= 0 {
		config.Node.PipelineChannelBufferSize = envInt("PIPELINE_CHANNEL_BUFFER_SIZE", 10_000)
	}
	if config.Node.ShutdownStrategy == "" {
		config.Node.ShutdownStrategy = "immediate"
	}
	if config.Scheduler.ShutdownTimeoutSec <= 0 {
		config.Scheduler.ShutdownTimeoutSec = 10
	}

	return &config, nil
}

// Strategy translates the node's YAML-configured backpressure policy into
// the pipeline package's ShutdownStrategy enum. Anything other than
// "drop_newest" is treated as "immediate", matching the spec's default.
func (c *Config) Strategy() pipeline.ShutdownStrategy {
	if c.Node.ShutdownStrategy == "drop_newest" {
		return pipeline.DropNewest
	}
	return pipeline.Immediate
}

// ShutdownTimeout is the graceful-drain timeout the candlestick scheduler
// waits for its cron jobs to finish before returning.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Scheduler.ShutdownTimeoutSec) * time.Second
}

// ClickHouseConfig holds the analytical-store client's settings; read
// directly from the environment since these are secrets, not file-based
// settings.
type ClickHouseConfig struct {
	URL              string
	User             string
	Password         string
	Database         string
	MaxSwapEventRows int
	MaxTokenRows     int
}

func LoadClickHouseConfig() (ClickHouseConfig, error) {
	url := os.Getenv("CLICKHOUSE_URL")
	if url == "" {
		return ClickHouseConfig{}, fmt.Errorf("CLICKHOUSE_URL is required")
	}
	return ClickHouseConfig{
		URL:              url,
		User:             os.Getenv("CLICKHOUSE_USER"),
		Password:         os.Getenv("CLICKHOUSE_PASSWORD"),
		Database:         os.Getenv("CLICKHOUSE_DATABASE"),
		MaxSwapEventRows: envInt("CLICKHOUSE_MAX_SWAP_EVENTS_ROWS", 1000),
		MaxTokenRows:     envInt("CLICKHOUSE_MAX_TOKEN_ROWS", 1),
	}, nil
}

// RedisConfig holds the KV store and pub/sub client settings, which use
// two separate Redis endpoints.
type RedisConfig struct {
	KVURL      string
	AdapterURL string
}

func LoadRedisConfig() (RedisConfig, error) {
	kv := os.Getenv("REDIS_URL")
	if kv == "" {
		return RedisConfig{}, fmt.Errorf("REDIS_URL is required")
	}
	adapter := os.Getenv("REDIS_ADAPTER_URL")
	if adapter == "" {
		adapter = kv
	}
	return RedisConfig{KVURL: kv, AdapterURL: adapter}, nil
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
