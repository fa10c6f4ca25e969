package model

// Canonical mint and program addresses the pipeline treats as constants.
const (
	WrappedNativeMint = "So11111111111111111111111111111111111111112"
	USDStableMintA    = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDStableMintB    = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"

	LegacyTokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022Program   = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"

	// TinySwapUIAmount is the per-transfer dust threshold, in UI units.
	TinySwapUIAmount = 0.01
	// TinySwapUSDAmount is the notional-USD dust threshold.
	TinySwapUSDAmount = 0.1

	// PumpSuffix flags a base mint as belonging to the pump-style launch family.
	PumpSuffix = "pump"
)

// QuoteMints returns the canonical set of quote-eligible mints, in priority
// order (USD-stables before wrapped-native).
func QuoteMints() []string {
	return []string{USDStableMintA, USDStableMintB, WrappedNativeMint}
}

// IsQuoteMint reports whether mint is one of the three canonical quote mints.
func IsQuoteMint(mint string) bool {
	switch mint {
	case USDStableMintA, USDStableMintB, WrappedNativeMint:
		return true
	default:
		return false
	}
}

// IsUSDStable reports whether mint is one of the two USD-pegged stablecoins.
func IsUSDStable(mint string) bool {
	return mint == USDStableMintA || mint == USDStableMintB
}
