package sink

import (
	"context"
	"fmt"

	"github.com/sola-hq/sonar/internal/model"
)

// AggregateIntoCandlesticks executes a group-by producing one candlestick
// per (pair, base mint, bucket) over raw swap events in
// [start, end). Re-running the same [start, end) interval is idempotent —
// ClickHouse's ReplacingMergeTree semantics (assumed schema-side) converge
// duplicate bucket rows to the same final content on merge.
func (s *AnalyticsStore) AggregateIntoCandlesticks(ctx context.Context, start, end int64, interval model.CandlestickInterval) error {
	query := fmt.Sprintf(`
		INSERT INTO candlesticks
		SELECT
			pair,
			base_mint,
			%d AS interval_seconds,
			%d AS bucket_ts,
			argMin(price, timestamp) AS open,
			max(price) AS high,
			min(price) AS low,
			argMax(price, timestamp) AS close,
			sum(base_amount) AS volume,
			sum(swap_amount_us) AS turnover
		FROM swap_events
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY pair, base_mint
	`, interval.Seconds(), start)

	return s.conn.Exec(ctx, query, start, end)
}

// GetCandlesticksByToken returns candlesticks for a base mint across the
// given pairs (or all pairs, when empty) and interval.
func (s *AnalyticsStore) GetCandlesticksByToken(ctx context.Context, token string, pairs []string, interval model.CandlestickInterval, limit int, from, to *int64) ([]model.Candlestick, error) {
	return s.queryCandlesticks(ctx, "base_mint = ?", token, interval, limit, from, to)
}

// GetCandlesticksByPair returns candlesticks for one pair and interval.
func (s *AnalyticsStore) GetCandlesticksByPair(ctx context.Context, pair string, interval model.CandlestickInterval, limit int, from, to *int64) ([]model.Candlestick, error) {
	return s.queryCandlesticks(ctx, "pair = ?", pair, interval, limit, from, to)
}

func (s *AnalyticsStore) queryCandlesticks(ctx context.Context, predicate, value string, interval model.CandlestickInterval, limit int, from, to *int64) ([]model.Candlestick, error) {
	query := fmt.Sprintf("SELECT pair, base_mint, bucket_ts, open, high, low, close, volume, turnover FROM candlesticks WHERE %s AND interval_seconds = ?", predicate)
	args := []any{value, interval.Seconds()}
	if from != nil {
		query += " AND bucket_ts >= ?"
		args = append(args, *from)
	}
	if to != nil {
		query += " AND bucket_ts < ?"
		args = append(args, *to)
	}
	query += " ORDER BY bucket_ts ASC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candlesticks: %w", err)
	}
	defer rows.Close()

	var out []model.Candlestick
	for rows.Next() {
		var c model.Candlestick
		if err := rows.Scan(&c.Pair, &c.BaseMint, &c.BucketTS, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Turnover); err != nil {
			return nil, fmt.Errorf("scan candlestick row: %w", err)
		}
		c.Interval = interval
		out = append(out, c)
	}
	return out, rows.Err()
}
