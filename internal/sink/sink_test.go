package sink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldFlushOnRowThreshold(t *testing.T) {
	assert.True(t, shouldFlush(1000, 10, time.Second, swapEventThresholds))
	assert.False(t, shouldFlush(1, 10, time.Second, swapEventThresholds))
}

func TestShouldFlushOnByteThreshold(t *testing.T) {
	assert.True(t, shouldFlush(1, 1<<20, time.Second, swapEventThresholds))
}

func TestShouldFlushOnPeriodThreshold(t *testing.T) {
	assert.True(t, shouldFlush(1, 10, 16*time.Second, swapEventThresholds))
	assert.False(t, shouldFlush(1, 10, 1*time.Second, swapEventThresholds))
}

func TestTokenThresholdsFlushEveryRow(t *testing.T) {
	assert.True(t, shouldFlush(1, 10, 0, tokenThresholds))
}

func TestKeyNaming(t *testing.T) {
	assert.Equal(t, "solana:price:mintX", priceKey("mintX"))
	assert.Equal(t, "solana:price:history:mintX", priceHistoryKey("mintX"))
	assert.Equal(t, "solana:metadata:mintX", metadataKey("mintX"))
}
