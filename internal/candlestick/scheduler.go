// Package candlestick drives the three cron-triggered roll-up jobs
// (minute, hour, day) that turn raw swap events into Candlestick rows.
package candlestick

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sola-hq/sonar/internal/model"
)

// Aggregator is the subset of the analytical store the scheduler needs.
type Aggregator interface {
	AggregateIntoCandlesticks(ctx context.Context, start, end int64, interval model.CandlestickInterval) error
}

// job pairs a cron expression with the interval it ticks for. Expressions
// use the 6-field (with seconds) form robfig/cron/v3 supports via
// cron.WithSeconds().
var jobs = []struct {
	interval model.CandlestickInterval
	expr     string
}{
	{model.IntervalMinute, "0 * * * * *"},
	{model.IntervalHour, "0 0 * * * *"},
	{model.IntervalDay, "0 0 0 * * *"},
}

// Scheduler owns the cron runtime and the shutdown-drain timeout.
type Scheduler struct {
	cron        *cron.Cron
	agg         Aggregator
	log         *zap.Logger
	shutdownTO  time.Duration
	nowFn       func() time.Time
}

func New(agg Aggregator, log *zap.Logger, shutdownTimeout time.Duration) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{cron: c, agg: agg, log: log, shutdownTO: shutdownTimeout, nowFn: time.Now}
}

// Start registers the three cron jobs and begins running them.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, j := range jobs {
		interval := j.interval
		_, err := s.cron.AddFunc(j.expr, func() { s.runTick(ctx, interval) })
		if err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

// runTick computes [start, end) for the firing interval and aggregates
// it. A single tick's failure is logged; the scheduler keeps running, and
// the next tick's window is independent (no retry within the tick).
func (s *Scheduler) runTick(ctx context.Context, interval model.CandlestickInterval) {
	now := s.nowFn().Unix()
	end := model.BucketStart(now, interval)
	start := end - interval.Seconds()

	if err := s.agg.AggregateIntoCandlesticks(ctx, start, end, interval); err != nil {
		if s.log != nil {
			s.log.Error("candlestick aggregation tick failed",
				zap.String("interval", interval.String()),
				zap.Int64("start", start),
				zap.Int64("end", end),
				zap.Error(err))
		}
	}
}

// Stop removes pending jobs and waits up to the configured timeout for
// in-flight ticks to finish before returning.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(s.shutdownTO):
	}
}
