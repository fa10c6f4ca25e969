package sink

import (
	"context"

	"github.com/sola-hq/sonar/internal/model"
)

// Sinks composes the three adapters into the trio swap.Handler fans out
// to: analytical store, pub/sub, KV.
type Sinks struct {
	Analytics *AnalyticsStore
	PubSub    *PubSub
	KV        *KVCache
}

func (s Sinks) InsertSwapEvent(ctx context.Context, e model.SwapEvent) error {
	return s.Analytics.InsertSwapEvent(ctx, e)
}

func (s Sinks) PublishTrade(ctx context.Context, t model.Trade) error {
	return s.PubSub.PublishTrade(ctx, t)
}

func (s Sinks) CacheLatestPrice(ctx context.Context, t model.Trade) error {
	return s.KV.CacheLatestPrice(ctx, t)
}

// PriceTradeSink composes PubSub and KV into the pair of effects
// priceservice.TradeSink needs on every price change: publish plus a
// history-store write, mirroring the order the original price-stream task
// performs them in.
type PriceTradeSink struct {
	PubSub *PubSub
	KV     *KVCache
}

func (s PriceTradeSink) PublishTrade(ctx context.Context, t model.Trade) error {
	return s.PubSub.PublishTrade(ctx, t)
}

func (s PriceTradeSink) RecordPriceHistory(ctx context.Context, mint string, ts int64, price float64) error {
	return s.KV.RecordPriceHistory(ctx, mint, ts, price)
}
