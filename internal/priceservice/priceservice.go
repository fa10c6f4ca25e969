// Package priceservice maintains a process-wide USD price for the
// wrapped-native coin: a websocket trade stream with REST fallback and an
// optional historical-lookup mode backed by the KV store's sorted sets.
package priceservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sola-hq/sonar/internal/model"
)

const (
	tradeStreamURL = "wss://fstream.binance.com/ws/solusdt@aggTrade"
	restPriceURL   = "https://api.binance.com/api/v3/ticker/price?symbol=SOLUSDT"

	heartbeatInterval  = 60 * time.Second
	reconnectOnClose   = 1 * time.Second
	reconnectOnError   = 5 * time.Second
)

// HistoryStore is the subset of the KV cache the historical-lookup mode
// needs: a per-mint ordered set of (timestamp, price) samples.
type HistoryStore interface {
	NearestPriceAtOrBefore(ctx context.Context, mint string, ts int64) (float64, bool, error)
}

// TradeSink receives every synthesized "binance_websocket" trade and the
// corresponding history-store write; both mirror the original service's
// side effects on each price change.
type TradeSink interface {
	PublishTrade(ctx context.Context, t model.Trade) error
	RecordPriceHistory(ctx context.Context, mint string, ts int64, price float64) error
}

// Service holds the process-wide cache cell and drives the reconnecting
// websocket stream. The zero value is not usable; construct with New.
type Service struct {
	price atomic.Uint64 // bits of a float64; 0 means "unpriced"

	history HistoryStore
	sink    TradeSink
	log     *zap.Logger
	httpCli *http.Client

	dialer *websocket.Dialer
}

func New(history HistoryStore, sink TradeSink, log *zap.Logger) *Service {
	return &Service{
		history: history,
		sink:    sink,
		log:     log,
		httpCli: &http.Client{Timeout: 10 * time.Second},
		dialer:  websocket.DefaultDialer,
	}
}

func (s *Service) cachedPrice() float64 {
	bits := s.price.Load()
	if bits == 0 {
		return 0
	}
	return math.Float64frombits(bits)
}

func (s *Service) setPrice(p float64) {
	s.price.Store(math.Float64bits(p))
}

// GetPrice returns the cached price if positive, otherwise falls back to
// the REST endpoint; a REST failure returns the stale (possibly zero)
// cached value.
func (s *Service) GetPrice(ctx context.Context) float64 {
	if cached := s.cachedPrice(); cached > 0 {
		return cached
	}
	p, err := s.fetchREST(ctx)
	if err != nil {
		if s.log != nil {
			s.log.Warn("rest price fallback failed", zap.Error(err))
		}
		return s.cachedPrice()
	}
	s.setPrice(p)
	return p
}

// PriceForMint implements swap.PriceSource: USD-stables are always 1.0,
// the wrapped-native mint uses the live cache, everything else is
// unpriced (0), which causes the caller to reject the swap downstream.
func (s *Service) PriceForMint(ctx context.Context, mint string) float64 {
	switch {
	case model.IsUSDStable(mint):
		return 1.0
	case mint == model.WrappedNativeMint:
		return s.GetPrice(ctx)
	default:
		return 0
	}
}

func (s *Service) fetchREST(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, restPriceURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := s.httpCli.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	var payload struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("decode rest price response: %w", err)
	}
	var p float64
	if _, err := fmt.Sscanf(payload.Price, "%f", &p); err != nil {
		return 0, fmt.Errorf("parse rest price %q: %w", payload.Price, err)
	}
	return p, nil
}

type aggTrade struct {
	Price string `json:"p"`
	Time  int64  `json:"T"`
}

// StartPriceStream runs the reconnecting websocket loop until ctx is
// canceled. Each received trade is compared to the cached price; on
// change, the cache updates and a synthetic Trade is published alongside a
// history-store write.
func (s *Service) StartPriceStream(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		closedGracefully, err := s.runOnce(ctx)
		if err != nil {
			if s.log != nil {
				s.log.Error("price stream connection failed", zap.Error(err))
			}
			sleepOrDone(ctx, reconnectOnError)
			continue
		}
		if closedGracefully {
			sleepOrDone(ctx, reconnectOnClose)
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (s *Service) runOnce(ctx context.Context) (closedGracefully bool, err error) {
	conn, _, err := s.dialer.DialContext(ctx, tradeStreamURL, nil)
	if err != nil {
		return false, fmt.Errorf("dial price stream: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go s.heartbeat(ctx, conn, done)
	defer close(done)

	for {
		if ctx.Err() != nil {
			return true, nil
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true, nil
			}
			return false, err
		}
		var trade aggTrade
		if err := json.Unmarshal(raw, &trade); err != nil {
			if s.log != nil {
				s.log.Warn("malformed trade message", zap.Error(err))
			}
			continue
		}
		var price float64
		if _, err := fmt.Sscanf(trade.Price, "%f", &price); err != nil {
			continue
		}
		s.onTrade(ctx, price, trade.Time)
	}
}

func (s *Service) onTrade(ctx context.Context, price float64, unixMillis int64) {
	if price == s.cachedPrice() {
		return
	}
	s.setPrice(price)

	ts := unixMillis / 1000
	t := model.Trade{
		Pair:      "binance_websocket",
		BaseMint:  model.WrappedNativeMint,
		Price:     price,
		Timestamp: ts,
	}
	if s.sink == nil {
		return
	}
	if err := s.sink.PublishTrade(ctx, t); err != nil && s.log != nil {
		s.log.Warn("publish price-stream trade failed", zap.Error(err))
	}
	if err := s.sink.RecordPriceHistory(ctx, model.WrappedNativeMint, ts, price); err != nil && s.log != nil {
		s.log.Warn("record price history failed", zap.Error(err))
	}
}

func (s *Service) heartbeat(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	conn.SetPongHandler(func(string) error { return nil })
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// GetPriceAtTimestamp implements the feature-gated historical-lookup mode.
func (s *Service) GetPriceAtTimestamp(ctx context.Context, mint string, ts int64) float64 {
	switch {
	case model.IsUSDStable(mint):
		return 1.0
	case mint == model.WrappedNativeMint:
		if s.history == nil {
			return s.GetPrice(ctx)
		}
		price, found, err := s.history.NearestPriceAtOrBefore(ctx, mint, ts)
		if err != nil || !found {
			return s.GetPrice(ctx)
		}
		return price
	default:
		return 0
	}
}
