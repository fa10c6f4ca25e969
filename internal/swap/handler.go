// Package swap reconstructs a canonical model.SwapEvent from a DEX
// processor's SwapAccountDescriptor plus the surrounding transaction's
// decoded transfers, then fans the result out to the metadata resolver,
// quote-price service, and three sinks.
package swap

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sola-hq/sonar/internal/decoder"
	"github.com/sola-hq/sonar/internal/metrics"
	"github.com/sola-hq/sonar/internal/model"
)

// PriceSource supplies the current USD price of the quote-priced asset a
// transfer's mint resolves to (1.0 for USD-stables, live price for
// wrapped-native, 0 otherwise).
type PriceSource interface {
	PriceForMint(ctx context.Context, mint string) float64
}

// SupplySource resolves a mint's whole-unit token supply; a lookup failure
// is handled by the caller, which substitutes 0 and proceeds (see
// SPEC_FULL.md's restored TokenMetadataFailure behavior).
type SupplySource interface {
	Supply(ctx context.Context, mint string) (float64, error)
}

// Sinks is the trio of downstream writers a reconstructed SwapEvent is
// fanned out to. Each call is independent: one sink failing does not stop
// the others from being attempted.
type Sinks interface {
	InsertSwapEvent(ctx context.Context, e model.SwapEvent) error
	PublishTrade(ctx context.Context, t model.Trade) error
	CacheLatestPrice(ctx context.Context, t model.Trade) error
}

// TxContext is the transaction-level context a DEX processor hands off
// alongside a SwapAccountDescriptor: the raw inner-instruction tree to
// decode transfers from, plus header fields needed to build a SwapEvent.
type TxContext struct {
	Signature             string
	Slot                   uint64
	BlockTime              *int64 // nil when absent from the source
	NumRequiredSignatures  int
	StaticAccountKeys      []string
	FeePayer               string
	Instructions           []decoder.InnerInstruction
	PreTokenBalances       []decoder.TokenBalance
	PostTokenBalances      []decoder.TokenBalance
	LoadedWritableAddrs    []string
	LoadedReadonlyAddrs    []string
}

func (tc TxContext) accountKeys() []string {
	keys := make([]string, 0, len(tc.StaticAccountKeys)+len(tc.LoadedWritableAddrs)+len(tc.LoadedReadonlyAddrs))
	keys = append(keys, tc.StaticAccountKeys...)
	keys = append(keys, tc.LoadedWritableAddrs...)
	keys = append(keys, tc.LoadedReadonlyAddrs...)
	return keys
}

func (tc TxContext) signers() []string {
	n := tc.NumRequiredSignatures
	if n > len(tc.StaticAccountKeys) {
		n = len(tc.StaticAccountKeys)
	}
	if n < 0 {
		n = 0
	}
	return tc.StaticAccountKeys[:n]
}

// Handler ties the reconstruction algorithm to its collaborators.
type Handler struct {
	price   PriceSource
	supply  SupplySource
	sinks   Sinks
	metrics *metrics.NodeMetrics
	log     *zap.Logger
	now     func() time.Time
}

func New(price PriceSource, supply SupplySource, sinks Sinks, m *metrics.NodeMetrics, log *zap.Logger) *Handler {
	return &Handler{price: price, supply: supply, sinks: sinks, metrics: m, log: log, now: time.Now}
}

// Handle runs the full reconstruct -> filter -> enrich -> fan-out
// algorithm for one recognized swap instruction. It returns a non-nil
// error only for genuine sink failures (model.SinkError); every other
// rejection is represented as a model.SwapSkipError and already counted.
func (h *Handler) Handle(ctx context.Context, desc model.SwapAccountDescriptor, tc TxContext) error {
	h.metrics.IncrementTotal()

	event, skip := h.reconstruct(ctx, desc, tc)
	if skip != nil {
		h.metrics.Skip(skip.Reason)
		if h.log != nil {
			h.log.Debug("swap skipped", zap.String("signature", tc.Signature), zap.String("reason", skip.Reason.String()))
		}
		return nil
	}

	if err := h.fanOut(ctx, *event); err != nil {
		return err
	}
	h.metrics.Succeed()
	return nil
}

// reconstruct filters, classifies, and prices the two surviving transfers
// of a recognized swap instruction into a SwapEvent.
func (h *Handler) reconstruct(ctx context.Context, desc model.SwapAccountDescriptor, tc TxContext) (*model.SwapEvent, *model.SwapSkipError) {
	enrichment := decoder.BuildEnrichment(tc.PreTokenBalances, tc.PostTokenBalances, tc.accountKeys(), h.log)
	transfers := decoder.DecodeTransfers(tc.Instructions, enrichment, h.log)

	survivors := filterTransfers(transfers, desc)

	if len(survivors) != 2 {
		return nil, model.NewSkip(model.SkipUnexpectedCount, "")
	}

	allTiny := true
	anyZero := false
	for _, t := range survivors {
		if t.UIAmount >= model.TinySwapUIAmount {
			allTiny = false
		}
		if t.UIAmount == 0 {
			anyZero = true
		}
	}
	if allTiny {
		return nil, model.NewSkip(model.SkipTinySwap, "")
	}
	if anyZero {
		return nil, model.NewSkip(model.SkipZeroSwap, "")
	}

	baseIdx, quoteIdx, ok := classifyBaseQuote(survivors, desc.QuoteMints)
	if !ok {
		return nil, model.NewSkip(model.SkipUnexpectedSwap, "")
	}
	base, quote := survivors[baseIdx], survivors[quoteIdx]

	isBuy := inSet(desc.VaultAccounts, quote.Destination) || inSet(desc.VaultAccounts, base.Source)

	quotePrice := h.price.PriceForMint(ctx, quote.Mint)
	price := 0.0
	if base.UIAmount != 0 {
		price = (quote.UIAmount / base.UIAmount) * quotePrice
	}
	swapAmountUSD := quote.UIAmount * quotePrice

	if swapAmountUSD < model.TinySwapUSDAmount {
		return nil, model.NewSkip(model.SkipTinySwap, "notional below threshold")
	}

	supply, err := h.supply.Supply(ctx, base.Mint)
	if err != nil {
		if h.log != nil {
			h.log.Warn("metadata resolution failed, defaulting supply to 0", zap.String("mint", base.Mint), zap.Error(err))
		}
		supply = 0
	}

	ts := h.now().Unix()
	if tc.BlockTime != nil {
		ts = *tc.BlockTime
	}

	event := &model.SwapEvent{
		Pair:         desc.Pair,
		BaseMint:     base.Mint,
		Price:        price,
		BaseAmount:   base.UIAmount,
		QuoteAmount:  quote.UIAmount,
		SwapAmountUS: swapAmountUSD,
		Owner:        tc.FeePayer,
		Signature:    tc.Signature,
		Signers:      tc.signers(),
		Slot:         tc.Slot,
		Timestamp:    ts,
		IsBuy:        isBuy,
		IsPump:       model.IsPumpMint(base.Mint),
	}
	event.UpdateMarketCap(supply)

	return event, nil
}

// filterTransfers keeps transfer t iff (dest in user or src in user) AND
// (dest in vault or src in vault) AND, when fee_accounts is set, dest is
// not a fee account.
func filterTransfers(transfers []model.Transfer, desc model.SwapAccountDescriptor) []model.Transfer {
	var out []model.Transfer
	for _, t := range transfers {
		touchesUser := inSet(desc.UserAccounts, t.Destination) || inSet(desc.UserAccounts, t.Source)
		touchesVault := inSet(desc.VaultAccounts, t.Destination) || inSet(desc.VaultAccounts, t.Source)
		if !touchesUser || !touchesVault {
			continue
		}
		if desc.FeeAccounts != nil && inSet(desc.FeeAccounts, t.Destination) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// classifyBaseQuote implements the quote-priority rule: USD-stables outrank
// wrapped-native as quote. Index 1 is checked first, matching the
// original's transfer[1]-then-transfer[0] order.
func classifyBaseQuote(survivors []model.Transfer, quoteMints map[string]struct{}) (base, quote int, ok bool) {
	t0, t1 := survivors[0], survivors[1]

	switch {
	case inSet(quoteMints, t1.Mint):
		base, quote = 0, 1
	case inSet(quoteMints, t0.Mint):
		base, quote = 1, 0
	default:
		return 0, 0, false
	}

	// quote-priority: USD-stables beat wrapped-native as quote.
	quoted := survivors[quote].Mint
	based := survivors[base].Mint
	if quoted == model.WrappedNativeMint && model.IsUSDStable(based) {
		base, quote = quote, base
	}

	return base, quote, true
}

func inSet(set map[string]struct{}, key string) bool {
	if set == nil {
		return false
	}
	_, ok := set[key]
	return ok
}

// fanOut writes the reconstructed event to all three sinks independently,
// counting and logging each outcome, and returns the first genuine sink
// error encountered (if any) without skipping the remaining sinks.
func (h *Handler) fanOut(ctx context.Context, event model.SwapEvent) error {
	trade := event.ToTrade()
	var firstErr error

	if err := h.sinks.InsertSwapEvent(ctx, event); err != nil {
		h.metrics.SinkOutcome("db", false)
		if h.log != nil {
			h.log.Error("db insert failed", zap.String("signature", event.Signature), zap.Error(err))
		}
		if firstErr == nil {
			firstErr = &model.SinkError{Kind: model.SinkDB, Signature: event.Signature, Err: err}
		}
	} else {
		h.metrics.SinkOutcome("db", true)
	}

	if err := h.sinks.PublishTrade(ctx, trade); err != nil {
		h.metrics.SinkOutcome("message", false)
		if h.log != nil {
			h.log.Error("trade publish failed", zap.String("signature", event.Signature), zap.Error(err))
		}
		if firstErr == nil {
			firstErr = &model.SinkError{Kind: model.SinkMessage, Signature: event.Signature, Err: err}
		}
	} else {
		h.metrics.SinkOutcome("message", true)
	}

	if err := h.sinks.CacheLatestPrice(ctx, trade); err != nil {
		h.metrics.SinkOutcome("kv", false)
		if h.log != nil {
			h.log.Error("kv cache failed", zap.String("signature", event.Signature), zap.Error(err))
		}
		if firstErr == nil {
			firstErr = &model.SinkError{Kind: model.SinkKV, Signature: event.Signature, Err: err}
		}
	} else {
		h.metrics.SinkOutcome("kv", true)
	}

	if firstErr != nil {
		h.metrics.Failed()
	}
	return firstErr
}
