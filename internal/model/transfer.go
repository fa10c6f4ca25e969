package model

// TokenProgramKind distinguishes the two SPL-token program families a
// Transfer may have come from.
type TokenProgramKind int

const (
	LegacyToken TokenProgramKind = iota
	Token2022
)

func (k TokenProgramKind) String() string {
	if k == Token2022 {
		return "token2022"
	}
	return "legacy"
}

// Transfer is a normalized token movement extracted from one decoded inner
// instruction. Mint and Decimals are empty/zero until the enrichment pass
// (see decoder.EnrichTransfers) fills them in from the surrounding
// transaction's pre/post token-balance lists.
type Transfer struct {
	Program     TokenProgramKind
	Source      string
	Destination string
	Authority   string
	Mint        string
	Decimals    uint8
	Amount      uint64
	UIAmount    float64
}

// Enriched reports whether the transfer carries a resolved mint.
func (t Transfer) Enriched() bool {
	return t.Mint != ""
}

// MintDetail is (mint, owner, decimals) derived from one entry of a
// transaction's pre- or post-token-balance list, keyed by account index.
type MintDetail struct {
	Mint     string
	Owner    string
	Decimals uint8
}
