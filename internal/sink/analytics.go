// Package sink implements the three downstream writers a reconstructed
// swap is fanned out to: a batched ClickHouse analytical store, a Redis
// pub/sub publisher, and a Redis KV cache.
package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"github.com/sola-hq/sonar/internal/model"
)

// batchThresholds describes a batched writer that flushes once any one
// of its limits is exceeded.
type batchThresholds struct {
	maxRows   int
	maxBytes  int
	maxPeriod time.Duration
}

var swapEventThresholds = batchThresholds{maxRows: 1000, maxBytes: 1 << 20, maxPeriod: 15 * time.Second}
var tokenThresholds = batchThresholds{maxRows: 1, maxBytes: 1 << 20, maxPeriod: 3 * time.Second}

// rowSizer estimates a row's serialized size for the byte threshold,
// avoiding a real marshal on every write.
const approxSwapEventRowBytes = 256
const approxTokenRowBytes = 512

// shouldFlush implements the "any threshold exceeded" rule, factored out
// as a pure function so it can be unit tested without a live connection.
func shouldFlush(rows, bytes int, elapsed time.Duration, t batchThresholds) bool {
	return rows >= t.maxRows || bytes >= t.maxBytes || elapsed >= t.maxPeriod
}

// AnalyticsStore is the ClickHouse-backed columnar sink. Writes are
// idempotent at the granularity of (signature, pair, base mint): the store
// is append-only and duplicate rows from at-least-once retries are
// deduplicated at read time, so the batched writer here never needs to
// check for existing rows before inserting.
type AnalyticsStore struct {
	conn clickhouse.Conn
	log  *zap.Logger

	mu         sync.Mutex
	swapBuffer []model.SwapEvent
	swapBytes  int
	swapSince  time.Time

	tokenMu     sync.Mutex
	tokenBuffer []model.Token
	tokenBytes  int
	tokenSince  time.Time
}

func NewAnalyticsStore(conn clickhouse.Conn, log *zap.Logger) *AnalyticsStore {
	now := time.Now()
	return &AnalyticsStore{conn: conn, log: log, swapSince: now, tokenSince: now}
}

func Dial(ctx context.Context, addr, database, user, password string) (clickhouse.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{Database: database, Username: user, Password: password},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	return conn, nil
}

// InsertSwapEvent buffers e and flushes the swap-event batch once any
// threshold in swapEventThresholds is exceeded.
func (s *AnalyticsStore) InsertSwapEvent(ctx context.Context, e model.SwapEvent) error {
	s.mu.Lock()
	s.swapBuffer = append(s.swapBuffer, e)
	s.swapBytes += approxSwapEventRowBytes
	needsFlush := shouldFlush(len(s.swapBuffer), s.swapBytes, time.Since(s.swapSince), swapEventThresholds)
	s.mu.Unlock()

	if needsFlush {
		return s.FlushSwapEvents(ctx)
	}
	return nil
}

// FlushSwapEvents writes the buffered swap events unconditionally; called
// both by the threshold check above and during graceful shutdown drain.
func (s *AnalyticsStore) FlushSwapEvents(ctx context.Context) error {
	s.mu.Lock()
	batch := s.swapBuffer
	s.swapBuffer = nil
	s.swapBytes = 0
	s.swapSince = time.Now()
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	b, err := s.conn.PrepareBatch(ctx, "INSERT INTO swap_events")
	if err != nil {
		return fmt.Errorf("prepare swap_events batch: %w", err)
	}
	for _, e := range batch {
		if err := b.AppendStruct(e); err != nil {
			return fmt.Errorf("append swap event row: %w", err)
		}
	}
	if err := b.Send(); err != nil {
		return fmt.Errorf("send swap_events batch: %w", err)
	}
	return nil
}

// InsertToken buffers token and flushes per tokenThresholds (a much
// shorter period than swap events, since metadata resolution is latency
// sensitive for callers waiting on the lookup cascade).
func (s *AnalyticsStore) InsertToken(ctx context.Context, token model.Token) error {
	s.tokenMu.Lock()
	s.tokenBuffer = append(s.tokenBuffer, token)
	s.tokenBytes += approxTokenRowBytes
	needsFlush := shouldFlush(len(s.tokenBuffer), s.tokenBytes, time.Since(s.tokenSince), tokenThresholds)
	s.tokenMu.Unlock()

	if needsFlush {
		return s.FlushTokens(ctx)
	}
	return nil
}

func (s *AnalyticsStore) FlushTokens(ctx context.Context) error {
	s.tokenMu.Lock()
	batch := s.tokenBuffer
	s.tokenBuffer = nil
	s.tokenBytes = 0
	s.tokenSince = time.Now()
	s.tokenMu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	b, err := s.conn.PrepareBatch(ctx, "INSERT INTO tokens")
	if err != nil {
		return fmt.Errorf("prepare tokens batch: %w", err)
	}
	for _, t := range batch {
		if err := b.AppendStruct(t); err != nil {
			return fmt.Errorf("append token row: %w", err)
		}
	}
	if err := b.Send(); err != nil {
		return fmt.Errorf("send tokens batch: %w", err)
	}
	return nil
}

// GetToken implements metadata.TokenStore's point lookup. A miss (no rows)
// is reported as (nil, nil), matching the KV store's GetToken contract so
// the resolver's cascade can treat both the same way.
func (s *AnalyticsStore) GetToken(ctx context.Context, mint string) (*model.Token, error) {
	var token model.Token
	row := s.conn.QueryRow(ctx, "SELECT * FROM tokens WHERE token = ? ORDER BY retrieval_timestamp DESC LIMIT 1", mint)
	if err := row.ScanStruct(&token); err != nil {
		return nil, nil
	}
	return &token, nil
}

// Flush drains both buffers; called during graceful shutdown.
func (s *AnalyticsStore) Flush(ctx context.Context) error {
	if err := s.FlushSwapEvents(ctx); err != nil {
		return err
	}
	return s.FlushTokens(ctx)
}

// DropPartition runs `DROP PARTITION <yyyymmdd>` on swap_events for
// day-granularity retention cleanup.
func (s *AnalyticsStore) DropPartition(ctx context.Context, yyyymmdd string) error {
	return s.conn.Exec(ctx, fmt.Sprintf("ALTER TABLE swap_events DROP PARTITION '%s'", yyyymmdd))
}
