package swap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sola-hq/sonar/internal/decoder"
	"github.com/sola-hq/sonar/internal/metrics"
	"github.com/sola-hq/sonar/internal/model"
)

type fixedPrice float64

func (p fixedPrice) PriceForMint(_ context.Context, mint string) float64 {
	if model.IsUSDStable(mint) {
		return 1.0
	}
	return float64(p)
}

type fixedSupply struct {
	supply float64
	err    error
}

func (s fixedSupply) Supply(_ context.Context, _ string) (float64, error) { return s.supply, s.err }

type captureSinks struct {
	events []model.SwapEvent
	trades []model.Trade
	dbErr  error
}

func (c *captureSinks) InsertSwapEvent(_ context.Context, e model.SwapEvent) error {
	if c.dbErr != nil {
		return c.dbErr
	}
	c.events = append(c.events, e)
	return nil
}
func (c *captureSinks) PublishTrade(_ context.Context, t model.Trade) error {
	c.trades = append(c.trades, t)
	return nil
}
func (c *captureSinks) CacheLatestPrice(_ context.Context, t model.Trade) error { return nil }

func transferIx(src, dst, authority string, amount uint64, mint string, decimals uint8) decoder.InnerInstruction {
	return decoder.InnerInstruction{Instruction: decoder.Instruction{
		ProgramID: model.LegacyTokenProgram,
		Kind:      decoder.KindTransferChecked,
		Accounts:  []string{src, mint, dst, authority},
		Amount:    amount,
		Decimals:  decimals,
		Mint:      mint,
	}}
}

func newHandler(priceUSD float64, supply float64) (*Handler, *captureSinks) {
	sinks := &captureSinks{}
	h := New(fixedPrice(priceUSD), fixedSupply{supply: supply}, sinks, metrics.New(nil, nil), nil)
	return h, sinks
}

func TestAMMv4SellScenario(t *testing.T) {
	const pumpMint = "9BB6qSBsmv6pump"
	desc := model.NewSwapAccountDescriptor("pair1", []string{"userBase", "userQuote"}, []string{"vaultBase", "vaultQuote"}, nil)
	tc := TxContext{
		Signature:             "sig1",
		NumRequiredSignatures: 1,
		StaticAccountKeys:     []string{"feePayer"},
		FeePayer:              "feePayer",
		Instructions: []decoder.InnerInstruction{
			transferIx("userBase", "vaultBase", "userOwner", 6_000_000_000, pumpMint, 6),
			transferIx("vaultQuote", "userQuote", "vaultAuthority", 16_337_636_830, model.WrappedNativeMint, 9),
		},
	}

	h, sinks := newHandler(160.0, 1000)
	require.NoError(t, h.Handle(context.Background(), desc, tc))
	require.Len(t, sinks.events, 1)

	e := sinks.events[0]
	assert.Equal(t, pumpMint, e.BaseMint)
	assert.True(t, e.IsPump)
	assert.False(t, e.IsBuy)
	assert.InDelta(t, 6000.0, e.BaseAmount, 1e-6)
	assert.InDelta(t, 16.33763683, e.QuoteAmount, 1e-6)
	expectedPrice := (16.33763683 / 6000.0) * 160.0
	assert.InDelta(t, expectedPrice, e.Price, 1e-9)
}

func TestUSDStableInputIsBuy(t *testing.T) {
	desc := model.NewSwapAccountDescriptor("pair2", []string{"userBase", "userQuote"}, []string{"vaultBase", "vaultQuote"}, nil)
	tc := TxContext{
		Signature:             "sig2",
		NumRequiredSignatures: 1,
		StaticAccountKeys:     []string{"feePayer"},
		Instructions: []decoder.InnerInstruction{
			transferIx("userQuote", "vaultQuote", "owner", 200_000_000, model.USDStableMintA, 6),
			transferIx("vaultBase", "userBase", "vaultAuth", 18_143_267, "baseMintXYZ", 6),
		},
	}

	h, sinks := newHandler(160.0, 0)
	require.NoError(t, h.Handle(context.Background(), desc, tc))
	require.Len(t, sinks.events, 1)

	e := sinks.events[0]
	assert.True(t, e.IsBuy)
	assert.InDelta(t, 200.0, e.SwapAmountUS, 1e-6)
}

func TestWrappedNativeVsUSDStableQuotePriority(t *testing.T) {
	desc := model.NewSwapAccountDescriptor("pair3", []string{"userA", "userB"}, []string{"vaultA", "vaultB"}, nil)
	tc := TxContext{
		Signature:             "sig3",
		NumRequiredSignatures: 1,
		StaticAccountKeys:     []string{"feePayer"},
		Instructions: []decoder.InnerInstruction{
			transferIx("userA", "vaultA", "owner", 1_949_327, model.USDStableMintA, 6),
			transferIx("vaultB", "userB", "vaultAuth", 15_135_932, model.WrappedNativeMint, 9),
		},
	}

	h, sinks := newHandler(160.0, 0)
	require.NoError(t, h.Handle(context.Background(), desc, tc))
	require.Len(t, sinks.events, 1)
	assert.Equal(t, model.WrappedNativeMint, sinks.events[0].BaseMint)
}

func TestZeroAmountTransferIsSkippedNotEmitted(t *testing.T) {
	desc := model.NewSwapAccountDescriptor("pair4", []string{"userA", "userB"}, []string{"vaultA", "vaultB"}, nil)
	tc := TxContext{
		Instructions: []decoder.InnerInstruction{
			transferIx("userA", "vaultA", "owner", 0, "mintX", 6),
			transferIx("vaultB", "userB", "vaultAuth", 5_000_000, model.WrappedNativeMint, 9),
		},
	}

	h, sinks := newHandler(160.0, 0)
	require.NoError(t, h.Handle(context.Background(), desc, tc))
	assert.Empty(t, sinks.events)
	assert.Equal(t, uint64(1), h.metrics.SkippedZeroSwaps.Load())
}

func TestTinyAndZeroSurvivorReportsTinyNotZero(t *testing.T) {
	desc := model.NewSwapAccountDescriptor("pair4b", []string{"userA", "userB"}, []string{"vaultA", "vaultB"}, nil)
	tc := TxContext{
		Instructions: []decoder.InnerInstruction{
			transferIx("userA", "vaultA", "owner", 0, "mintX", 6),
			transferIx("vaultB", "userB", "vaultAuth", 1, model.WrappedNativeMint, 9),
		},
	}

	h, sinks := newHandler(160.0, 0)
	require.NoError(t, h.Handle(context.Background(), desc, tc))
	assert.Empty(t, sinks.events)
	assert.Equal(t, uint64(1), h.metrics.SkippedTinySwaps.Load())
	assert.Equal(t, uint64(0), h.metrics.SkippedZeroSwaps.Load())
}

func TestFeeAccountIsExcludedFromFilter(t *testing.T) {
	desc := model.NewSwapAccountDescriptor("pair5", []string{"userA", "userB"}, []string{"vaultA", "vaultB"}, []string{"feeAcct"})
	tc := TxContext{
		Signature:             "sig5",
		NumRequiredSignatures: 1,
		StaticAccountKeys:     []string{"feePayer"},
		Instructions: []decoder.InnerInstruction{
			transferIx("userA", "vaultA", "owner", 24_000_000_000, "basemintpump", 6),
			transferIx("vaultB", "userB", "vaultAuth", 65_256_388_526, model.WrappedNativeMint, 9),
			transferIx("vaultB", "feeAcct", "vaultAuth", 100_000, model.WrappedNativeMint, 9),
		},
	}

	h, sinks := newHandler(160.0, 0)
	require.NoError(t, h.Handle(context.Background(), desc, tc))
	require.Len(t, sinks.events, 1)
}

func TestMetadataFailureSoftFallsBackToZeroSupply(t *testing.T) {
	desc := model.NewSwapAccountDescriptor("pair6", []string{"userA", "userB"}, []string{"vaultA", "vaultB"}, nil)
	tc := TxContext{
		Signature:             "sig6",
		NumRequiredSignatures: 1,
		StaticAccountKeys:     []string{"feePayer"},
		Instructions: []decoder.InnerInstruction{
			transferIx("userA", "vaultA", "owner", 24_000_000_000, "basemint", 6),
			transferIx("vaultB", "userB", "vaultAuth", 65_256_388_526, model.WrappedNativeMint, 9),
		},
	}

	sinks := &captureSinks{}
	h := New(fixedPrice(160.0), fixedSupply{supply: 0, err: assertError{}}, sinks, metrics.New(nil, nil), nil)
	require.NoError(t, h.Handle(context.Background(), desc, tc))
	require.Len(t, sinks.events, 1)
	assert.Equal(t, 0.0, sinks.events[0].MarketCap)
}

type assertError struct{}

func (assertError) Error() string { return "metadata rpc failure" }

func TestSinkFailureCountsAsFailedNotSucceededAndPreservesConservation(t *testing.T) {
	desc := model.NewSwapAccountDescriptor("pair7", []string{"userA", "userB"}, []string{"vaultA", "vaultB"}, nil)
	tc := TxContext{
		Signature:             "sig7",
		NumRequiredSignatures: 1,
		StaticAccountKeys:     []string{"feePayer"},
		Instructions: []decoder.InnerInstruction{
			transferIx("userA", "vaultA", "owner", 24_000_000_000, "basemint", 6),
			transferIx("vaultB", "userB", "vaultAuth", 65_256_388_526, model.WrappedNativeMint, 9),
		},
	}

	sinks := &captureSinks{dbErr: assertError{}}
	m := metrics.New(nil, nil)
	h := New(fixedPrice(160.0), fixedSupply{supply: 1000}, sinks, m, nil)

	err := h.Handle(context.Background(), desc, tc)
	require.Error(t, err)
	assert.Empty(t, sinks.events)

	assert.Equal(t, uint64(0), m.SucceedSwaps.Load())
	assert.Equal(t, uint64(1), m.FailedSwaps.Load())

	total := m.TotalSwapsProcessed.Load()
	succeed := m.SucceedSwaps.Load()
	failed := m.FailedSwaps.Load()
	skipped := m.SkippedTinySwaps.Load() + m.SkippedZeroSwaps.Load() + m.SkippedNoMetadata.Load() +
		m.SkippedUnexpected.Load() + m.SkippedUnknownSwaps.Load()
	assert.Equal(t, total, succeed+failed+skipped)
}
