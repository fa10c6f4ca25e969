package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sola-hq/sonar/internal/model"
)

func TestDecodeTransferChecked(t *testing.T) {
	ix := Instruction{
		ProgramID: model.LegacyTokenProgram,
		Kind:      KindTransferChecked,
		Accounts:  []string{"src", "mintAcc", "dst", "authority"},
		Amount:    6_000_000_000,
		Decimals:  9,
		Mint:      "9BB6pumpmintaddress",
	}

	xfer, ok := DecodeTransfer(ix, nil)
	require.True(t, ok)
	assert.Equal(t, "src", xfer.Source)
	assert.Equal(t, "dst", xfer.Destination)
	assert.InDelta(t, 6.0, xfer.UIAmount, 1e-9)
}

func TestDecodeTransferRejectsUnknownProgram(t *testing.T) {
	ix := Instruction{ProgramID: "SomeOtherProgram111", Kind: KindTransfer, Accounts: []string{"a", "b", "c"}}
	_, ok := DecodeTransfer(ix, nil)
	assert.False(t, ok)
}

func TestEnrichLooksUpSourceThenDestination(t *testing.T) {
	bare := model.Transfer{Program: model.LegacyToken, Source: "acctA", Destination: "acctB", Amount: 1_000_000}
	enrichment := BalanceEnrichment{
		"acctB": {Mint: "mintX", Owner: "ownerB", Decimals: 6},
	}
	enriched := Enrich(bare, enrichment)
	assert.Equal(t, "mintX", enriched.Mint)
	assert.InDelta(t, 1.0, enriched.UIAmount, 1e-9)
}

func TestBuildEnrichmentSkipsOutOfRangeIndex(t *testing.T) {
	pre := []TokenBalance{{AccountIndex: 0, Mint: "m1", Decimals: 6}}
	post := []TokenBalance{{AccountIndex: 99, Mint: "m2", Decimals: 6}}
	keys := []string{"acct0"}

	enrichment := BuildEnrichment(pre, post, keys, nil)
	require.Len(t, enrichment, 1)
	assert.Equal(t, "m1", enrichment["acct0"].Mint)
}

func TestDecodeTransfersFlattensDepthFirst(t *testing.T) {
	leaf := InnerInstruction{Instruction: Instruction{
		ProgramID: model.LegacyTokenProgram, Kind: KindTransfer, Accounts: []string{"s2", "d2", "auth2"}, Amount: 2,
	}}
	root := InnerInstruction{
		Instruction: Instruction{ProgramID: model.LegacyTokenProgram, Kind: KindTransfer, Accounts: []string{"s1", "d1", "auth1"}, Amount: 1},
		Children:    []InnerInstruction{leaf},
	}

	transfers := DecodeTransfers([]InnerInstruction{root}, BalanceEnrichment{}, nil)
	require.Len(t, transfers, 2)
	assert.Equal(t, uint64(1), transfers[0].Amount)
	assert.Equal(t, uint64(2), transfers[1].Amount)
}
