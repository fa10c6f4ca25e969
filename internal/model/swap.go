package model

import "strings"

// SwapAccountDescriptor is the output of a per-DEX processor: the set of
// accounts involved in one swap instruction, enough for the reconstruction
// stage to pick out the two real transfers from the surrounding noise.
type SwapAccountDescriptor struct {
	Pair          string
	UserAccounts  map[string]struct{}
	VaultAccounts map[string]struct{}
	FeeAccounts   map[string]struct{} // nil when the variant has no in-band fee accounts
	QuoteMints    map[string]struct{}
}

// NewSwapAccountDescriptor builds a descriptor with the canonical quote-mint
// set pre-populated; DEX processors only need to supply pair/user/vault/fee.
func NewSwapAccountDescriptor(pair string, user, vault, fee []string) SwapAccountDescriptor {
	d := SwapAccountDescriptor{
		Pair:          pair,
		UserAccounts:  toSet(user),
		VaultAccounts: toSet(vault),
		QuoteMints:    toSet(QuoteMints()),
	}
	if fee != nil {
		d.FeeAccounts = toSet(fee)
	}
	return d
}

func toSet(vals []string) map[string]struct{} {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

// SwapEvent is the canonical trade produced by reconstruction. It is
// created once and never mutated after emission except by UpdateMarketCap.
type SwapEvent struct {
	Pair         string
	BaseMint     string
	Price        float64
	MarketCap    float64
	BaseAmount   float64
	QuoteAmount  float64
	SwapAmountUS float64
	Owner        string
	Signature    string
	Signers      []string
	Slot         uint64
	Timestamp    int64
	IsBuy        bool
	IsPump       bool
}

// UpdateMarketCap recomputes MarketCap from a freshly resolved supply.
func (e *SwapEvent) UpdateMarketCap(supply float64) {
	e.MarketCap = e.Price * supply
}

// IsPumpMint reports whether mint belongs to the pump-style launch family,
// case-insensitively, by suffix.
func IsPumpMint(mint string) bool {
	return strings.HasSuffix(strings.ToLower(mint), PumpSuffix)
}

// Trade is the on-wire variant of SwapEvent published to the pub/sub bus.
// It mirrors SwapEvent field-for-field; kept as a distinct type solely so
// the wire shape can evolve independently of the in-process model.
type Trade struct {
	Pair         string   `json:"pair"`
	BaseMint     string   `json:"base_mint"`
	Price        float64  `json:"price"`
	MarketCap    float64  `json:"market_cap"`
	BaseAmount   float64  `json:"base_amount"`
	QuoteAmount  float64  `json:"quote_amount"`
	SwapAmountUS float64  `json:"swap_amount_usd"`
	Owner        string   `json:"owner"`
	Signature    string   `json:"signature"`
	Signers      []string `json:"signers"`
	Slot         uint64   `json:"slot"`
	Timestamp    int64    `json:"timestamp"`
	IsBuy        bool     `json:"is_buy"`
	IsPump       bool     `json:"is_pump"`
}

// ToTrade copies a SwapEvent's fields into the wire representation.
func (e SwapEvent) ToTrade() Trade {
	return Trade{
		Pair:         e.Pair,
		BaseMint:     e.BaseMint,
		Price:        e.Price,
		MarketCap:    e.MarketCap,
		BaseAmount:   e.BaseAmount,
		QuoteAmount:  e.QuoteAmount,
		SwapAmountUS: e.SwapAmountUS,
		Owner:        e.Owner,
		Signature:    e.Signature,
		Signers:      e.Signers,
		Slot:         e.Slot,
		Timestamp:    e.Timestamp,
		IsBuy:        e.IsBuy,
		IsPump:       e.IsPump,
	}
}

// NewPoolEvent is emitted by variants whose initialize-style instruction
// creates a new pool (e.g. Raydium AMM v4's Initialize2).
type NewPoolEvent struct {
	Pair      string
	BaseMint  string
	QuoteMint string
	Slot      uint64
	Timestamp int64
}
