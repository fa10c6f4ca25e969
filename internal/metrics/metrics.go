// Package metrics tracks the pipeline's closed set of skip/fail counters
// and exposes them both as Prometheus gauges and as a periodic structured
// log line, matching the cadence the original node used (every 5,000
// processed swaps).
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sola-hq/sonar/internal/model"
)

// NodeMetrics holds every counter the swap-reconstruction pipeline
// increments. All fields are accessed with atomic ops so the hot path never
// takes a lock.
type NodeMetrics struct {
	TotalSwapsProcessed  atomic.Uint64
	SucceedSwaps         atomic.Uint64
	FailedSwaps          atomic.Uint64
	SkippedTinySwaps     atomic.Uint64
	SkippedZeroSwaps     atomic.Uint64
	SkippedNoMetadata    atomic.Uint64
	SkippedUnexpected    atomic.Uint64
	SkippedUnknownSwaps  atomic.Uint64
	MessageSendSuccess   atomic.Uint64
	MessageSendFailure   atomic.Uint64
	DBInsertSuccess      atomic.Uint64
	DBInsertFailure      atomic.Uint64
	KVInsertSuccess      atomic.Uint64
	KVInsertFailure      atomic.Uint64

	log *zap.Logger
	reg prometheus.Registerer

	total        prometheus.Counter
	succeed      prometheus.Counter
	failed       prometheus.Counter
	skippedByKind *prometheus.CounterVec
	sinkByKind    *prometheus.CounterVec
}

// logEvery matches the original node's periodic structured-log cadence.
const logEvery = 5000

// New constructs a NodeMetrics and registers its Prometheus series against
// reg. reg may be nil, in which case Prometheus registration is skipped
// (useful in unit tests).
func New(log *zap.Logger, reg prometheus.Registerer) *NodeMetrics {
	m := &NodeMetrics{
		log: log,
		reg: reg,
		total: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sonar_swaps_processed_total",
			Help: "Total swap candidates observed by the pipeline.",
		}),
		succeed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sonar_swaps_succeeded_total",
			Help: "Swaps that produced an emitted SwapEvent.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sonar_swaps_failed_total",
			Help: "Swaps that failed due to a sink write error.",
		}),
		skippedByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sonar_swaps_skipped_total",
			Help: "Swaps skipped, labeled by skip reason.",
		}, []string{"reason"}),
		sinkByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sonar_sink_writes_total",
			Help: "Sink writes, labeled by sink and outcome.",
		}, []string{"sink", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.total, m.succeed, m.failed, m.skippedByKind, m.sinkByKind)
	}
	return m
}

// IncrementTotal records one more swap candidate observed and, every
// logEvery increments, emits the periodic summary log line.
func (m *NodeMetrics) IncrementTotal() {
	n := m.TotalSwapsProcessed.Add(1)
	m.total.Inc()
	if n%logEvery == 0 {
		m.logSummary(n)
	}
}

func (m *NodeMetrics) Succeed() {
	m.SucceedSwaps.Add(1)
	m.succeed.Inc()
}

func (m *NodeMetrics) Failed() {
	m.FailedSwaps.Add(1)
	m.failed.Inc()
}

// Skip increments both the typed counter and the Prometheus series for the
// given reason.
func (m *NodeMetrics) Skip(reason model.SkipReason) {
	switch reason {
	case model.SkipTinySwap:
		m.SkippedTinySwaps.Add(1)
	case model.SkipZeroSwap:
		m.SkippedZeroSwaps.Add(1)
	case model.SkipNoMetadata:
		m.SkippedNoMetadata.Add(1)
	case model.SkipUnexpectedSwap:
		m.SkippedUnexpected.Add(1)
	case model.SkipUnexpectedCount:
		m.SkippedUnknownSwaps.Add(1)
	}
	if m.skippedByKind != nil {
		m.skippedByKind.WithLabelValues(reason.String()).Inc()
	}
}

func (m *NodeMetrics) SinkOutcome(kind string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	switch kind {
	case "message":
		if ok {
			m.MessageSendSuccess.Add(1)
		} else {
			m.MessageSendFailure.Add(1)
		}
	case "db":
		if ok {
			m.DBInsertSuccess.Add(1)
		} else {
			m.DBInsertFailure.Add(1)
		}
	case "kv":
		if ok {
			m.KVInsertSuccess.Add(1)
		} else {
			m.KVInsertFailure.Add(1)
		}
	}
	if m.sinkByKind != nil {
		m.sinkByKind.WithLabelValues(kind, outcome).Inc()
	}
}

func (m *NodeMetrics) logSummary(total uint64) {
	succeed := m.SucceedSwaps.Load()
	failed := m.FailedSwaps.Load()
	successRate := 0.0
	if total > 0 {
		successRate = float64(succeed) / float64(total) * 100
	}
	if m.log == nil {
		return
	}
	m.log.Info("pipeline metrics",
		zap.Uint64("total_swaps_processed", total),
		zap.Uint64("succeed_swaps", succeed),
		zap.Uint64("failed_swaps", failed),
		zap.Uint64("skipped_tiny_swaps", m.SkippedTinySwaps.Load()),
		zap.Uint64("skipped_zero_swaps", m.SkippedZeroSwaps.Load()),
		zap.Uint64("skipped_no_metadata", m.SkippedNoMetadata.Load()),
		zap.Uint64("skipped_unexpected_swaps", m.SkippedUnexpected.Load()),
		zap.Uint64("skipped_unknown_swaps", m.SkippedUnknownSwaps.Load()),
		zap.Uint64("message_send_success", m.MessageSendSuccess.Load()),
		zap.Uint64("message_send_failure", m.MessageSendFailure.Load()),
		zap.Uint64("db_insert_success", m.DBInsertSuccess.Load()),
		zap.Uint64("db_insert_failure", m.DBInsertFailure.Load()),
		zap.Uint64("kv_insert_success", m.KVInsertSuccess.Load()),
		zap.Uint64("kv_insert_failure", m.KVInsertFailure.Load()),
		zap.Float64("success_rate", successRate),
	)
}
