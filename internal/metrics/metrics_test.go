package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sola-hq/sonar/internal/model"
)

func TestSkipIncrementsTypedCounterAndSeries(t *testing.T) {
	m := New(nil, nil)

	m.Skip(model.SkipTinySwap)
	m.Skip(model.SkipZeroSwap)
	m.Skip(model.SkipZeroSwap)

	require.Equal(t, uint64(1), m.SkippedTinySwaps.Load())
	assert.Equal(t, uint64(2), m.SkippedZeroSwaps.Load())
}

func TestMetricsConservation(t *testing.T) {
	m := New(nil, nil)

	for i := 0; i < 10; i++ {
		m.IncrementTotal()
	}
	m.Succeed()
	m.Succeed()
	m.Skip(model.SkipTinySwap)
	m.Skip(model.SkipZeroSwap)
	m.Skip(model.SkipUnexpectedSwap)
	m.Skip(model.SkipUnexpectedCount)
	m.Skip(model.SkipNoMetadata)
	m.Failed()
	m.Failed()
	m.Failed()

	total := m.TotalSwapsProcessed.Load()
	sum := m.SucceedSwaps.Load() + m.FailedSwaps.Load() +
		m.SkippedTinySwaps.Load() + m.SkippedZeroSwaps.Load() +
		m.SkippedUnexpected.Load() + m.SkippedUnknownSwaps.Load() +
		m.SkippedNoMetadata.Load()

	assert.Equal(t, total, sum)
}

func TestSinkOutcomeCounters(t *testing.T) {
	m := New(nil, nil)

	m.SinkOutcome("db", true)
	m.SinkOutcome("db", false)
	m.SinkOutcome("kv", true)
	m.SinkOutcome("message", false)

	assert.Equal(t, uint64(1), m.DBInsertSuccess.Load())
	assert.Equal(t, uint64(1), m.DBInsertFailure.Load())
	assert.Equal(t, uint64(1), m.KVInsertSuccess.Load())
	assert.Equal(t, uint64(1), m.MessageSendFailure.Load())
}

func TestLogSummaryFiresEveryFiveThousand(t *testing.T) {
	m := New(nil, nil)
	for i := 0; i < logEvery-1; i++ {
		m.IncrementTotal()
	}
	require.Equal(t, uint64(logEvery-1), m.TotalSwapsProcessed.Load())
	m.IncrementTotal()
	assert.Equal(t, uint64(logEvery), m.TotalSwapsProcessed.Load())
}
