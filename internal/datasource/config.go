// Package datasource holds the connection-level configuration and
// reconnect/backoff plumbing for the three upstream transaction feeds: an
// RPC block crawler, a Geyser gRPC stream, and a Helius enhanced-websocket
// stream. Decoding the wire payload each one carries
// into decoder.Instruction trees is a library-provided framed decoder and
// is out of scope here; each datasource exposes a Translate hook the
// caller wires up to that decoder.
package datasource

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// RPCConfig configures the block-crawler datasource.
type RPCConfig struct {
	URL                     string
	WSURL                   string
	StartSlot               uint64
	EndSlot                 *uint64
	BlockInterval           time.Duration
	MaxConcurrentRequests   int
	ChannelBufferSize       int
}

// GeyserConfig configures the gRPC push datasource.
type GeyserConfig struct {
	URL    string
	XToken string
}

// HeliusConfig configures the enhanced-websocket push datasource.
type HeliusConfig struct {
	APIKey                string
	PingInterval          time.Duration
	PongTimeout           time.Duration
	TransactionIdleTimeout time.Duration
}

func LoadRPCConfig() (RPCConfig, error) {
	url := os.Getenv("RPC_URL")
	if url == "" {
		return RPCConfig{}, fmt.Errorf("RPC_URL is required")
	}
	startSlot, err := parseUint(os.Getenv("RPC_START_SLOT"), 0)
	if err != nil {
		return RPCConfig{}, fmt.Errorf("RPC_START_SLOT: %w", err)
	}
	blockInterval, err := parseDurationSeconds(os.Getenv("RPC_BLOCK_INTERVAL"), 400*time.Millisecond)
	if err != nil {
		return RPCConfig{}, fmt.Errorf("RPC_BLOCK_INTERVAL: %w", err)
	}
	maxConcurrent, err := parseInt(os.Getenv("RPC_MAX_CONCURRENT_REQUESTS"), 8)
	if err != nil {
		return RPCConfig{}, fmt.Errorf("RPC_MAX_CONCURRENT_REQUESTS: %w", err)
	}
	bufSize, err := parseInt(os.Getenv("RPC_CHANNEL_BUFFER_SIZE"), 10_000)
	if err != nil {
		return RPCConfig{}, fmt.Errorf("RPC_CHANNEL_BUFFER_SIZE: %w", err)
	}

	cfg := RPCConfig{
		URL:                   url,
		WSURL:                 os.Getenv("RPC_WS_URL"),
		StartSlot:             startSlot,
		BlockInterval:         blockInterval,
		MaxConcurrentRequests: maxConcurrent,
		ChannelBufferSize:     bufSize,
	}
	if raw := os.Getenv("RPC_END_SLOT"); raw != "" {
		end, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return RPCConfig{}, fmt.Errorf("RPC_END_SLOT: %w", err)
		}
		cfg.EndSlot = &end
	}
	return cfg, nil
}

func LoadGeyserConfig() (GeyserConfig, error) {
	url := os.Getenv("GEYSER_URL")
	if url == "" {
		return GeyserConfig{}, fmt.Errorf("GEYSER_URL is required")
	}
	return GeyserConfig{URL: url, XToken: os.Getenv("GEYSER_X_TOKEN")}, nil
}

func LoadHeliusConfig() (HeliusConfig, error) {
	key := os.Getenv("HELIUS_ATLAS_API_KEY")
	if key == "" {
		return HeliusConfig{}, fmt.Errorf("HELIUS_ATLAS_API_KEY is required")
	}
	ping, err := parseDurationSeconds(os.Getenv("HELIUS_PING_INTERVAL_SECS"), 10*time.Second)
	if err != nil {
		return HeliusConfig{}, fmt.Errorf("HELIUS_PING_INTERVAL_SECS: %w", err)
	}
	pong, err := parseDurationSeconds(os.Getenv("HELIUS_PONG_TIMEOUT_SECS"), 30*time.Second)
	if err != nil {
		return HeliusConfig{}, fmt.Errorf("HELIUS_PONG_TIMEOUT_SECS: %w", err)
	}
	idle, err := parseDurationSeconds(os.Getenv("HELIUS_TRANSACTION_IDLE_TIMEOUT_SECS"), 10*time.Second)
	if err != nil {
		return HeliusConfig{}, fmt.Errorf("HELIUS_TRANSACTION_IDLE_TIMEOUT_SECS: %w", err)
	}
	return HeliusConfig{APIKey: key, PingInterval: ping, PongTimeout: pong, TransactionIdleTimeout: idle}, nil
}

func parseUint(raw string, def uint64) (uint64, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

func parseInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func parseDurationSeconds(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}
