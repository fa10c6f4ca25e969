package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sola-hq/sonar/internal/model"
)

const (
	priceTTL    = 24 * time.Hour
	metadataTTL = 24 * time.Hour

	tradeTopic = "trade"
)

func priceKey(mint string) string        { return "solana:price:" + mint }
func priceHistoryKey(mint string) string { return "solana:price:history:" + mint }
func metadataKey(mint string) string     { return "solana:metadata:" + mint }

// NewRedisPool applies the pool tuning: max size 200, min idle 20,
// max connection lifetime 15 min, idle timeout 5 min.
func NewRedisPool(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.PoolSize = 200
	opt.MinIdleConns = 20
	opt.ConnMaxLifetime = 15 * time.Minute
	opt.ConnMaxIdleTime = 5 * time.Minute
	return redis.NewClient(opt), nil
}

// KVCache is the Redis-backed sink for latest-price caching and the
// metadata resolver's KV level.
type KVCache struct {
	client *redis.Client
}

func NewKVCache(client *redis.Client) *KVCache { return &KVCache{client: client} }

// CacheLatestPrice implements swap.Sinks: upsert the latest Trade under
// solana:price:<mint>, TTL 24h.
func (c *KVCache) CacheLatestPrice(ctx context.Context, t model.Trade) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}
	return c.client.Set(ctx, priceKey(t.BaseMint), payload, priceTTL).Err()
}

// GetToken implements metadata.KVStore's cache read.
func (c *KVCache) GetToken(ctx context.Context, mint string) (*model.Token, error) {
	raw, err := c.client.Get(ctx, metadataKey(mint)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token from kv: %w", err)
	}
	var token model.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("unmarshal cached token: %w", err)
	}
	return &token, nil
}

// SetToken implements metadata.KVStore's cache write, TTL 24h.
func (c *KVCache) SetToken(ctx context.Context, mint string, token model.Token) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	return c.client.Set(ctx, metadataKey(mint), payload, metadataTTL).Err()
}

// RecordPriceHistory implements priceservice.TradeSink's historical write:
// a sorted set keyed by (mint, score=ts, member=price).
func (c *KVCache) RecordPriceHistory(ctx context.Context, mint string, ts int64, price float64) error {
	return c.client.ZAdd(ctx, priceHistoryKey(mint), redis.Z{
		Score:  float64(ts),
		Member: strconv.FormatFloat(price, 'f', -1, 64),
	}).Err()
}

// NearestPriceAtOrBefore implements priceservice.HistoryStore: the zset
// entry with the greatest score <= ts.
func (c *KVCache) NearestPriceAtOrBefore(ctx context.Context, mint string, ts int64) (float64, bool, error) {
	members, err := c.client.ZRevRangeByScore(ctx, priceHistoryKey(mint), &redis.ZRangeBy{
		Min:    "-inf",
		Max:    strconv.FormatInt(ts, 10),
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return 0, false, fmt.Errorf("query price history: %w", err)
	}
	if len(members) == 0 {
		return 0, false, nil
	}
	price, err := strconv.ParseFloat(members[0], 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse historical price: %w", err)
	}
	return price, true, nil
}

// PubSub is the Redis-backed fire-and-forget publisher for the trade
// topic.
type PubSub struct {
	client *redis.Client
}

func NewPubSub(client *redis.Client) *PubSub { return &PubSub{client: client} }

// PublishTrade implements swap.Sinks and priceservice.TradeSink: publish
// the Trade as JSON on the "trade" channel.
func (p *PubSub) PublishTrade(ctx context.Context, t model.Trade) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}
	return p.client.Publish(ctx, tradeTopic, payload).Err()
}
