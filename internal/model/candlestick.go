package model

import "fmt"

// CandlestickInterval is one of the three roll-up granularities the
// aggregator supports.
type CandlestickInterval int

const (
	IntervalMinute CandlestickInterval = iota
	IntervalHour
	IntervalDay
)

// Seconds returns the bucket width for the interval.
func (i CandlestickInterval) Seconds() int64 {
	switch i {
	case IntervalMinute:
		return 60
	case IntervalHour:
		return 3600
	case IntervalDay:
		return 86400
	default:
		return 0
	}
}

func (i CandlestickInterval) String() string {
	switch i {
	case IntervalMinute:
		return "minute"
	case IntervalHour:
		return "hour"
	case IntervalDay:
		return "day"
	default:
		return "unknown"
	}
}

// ParseCandlestickInterval parses the cron-job name back into an interval.
func ParseCandlestickInterval(s string) (CandlestickInterval, error) {
	switch s {
	case "minute":
		return IntervalMinute, nil
	case "hour":
		return IntervalHour, nil
	case "day":
		return IntervalDay, nil
	default:
		return 0, fmt.Errorf("unknown candlestick interval %q", s)
	}
}

// BucketStart floors a unix timestamp to the start of its interval bucket.
func BucketStart(ts int64, interval CandlestickInterval) int64 {
	secs := interval.Seconds()
	if secs == 0 {
		return ts
	}
	return (ts / secs) * secs
}

// Candlestick is one (pair, base mint, interval, bucket) roll-up row.
type Candlestick struct {
	Pair      string              `json:"pair"`
	BaseMint  string              `json:"base_mint"`
	Interval  CandlestickInterval `json:"interval"`
	BucketTS  int64               `json:"t"`
	Open      float64             `json:"o"`
	High      float64             `json:"h"`
	Low       float64             `json:"l"`
	Close     float64             `json:"c"`
	Volume    float64             `json:"v"`
	Turnover  float64             `json:"vc"`
}
