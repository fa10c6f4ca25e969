package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sola-hq/sonar/internal/decoder"
)

func TestRegistryDispatchesByProgramID(t *testing.T) {
	reg := Default()

	ix := decoder.Instruction{
		ProgramID:    raydiumAMMv4ProgramID,
		Discriminant: "SwapBaseIn",
		Accounts:     []string{"pair", "authority", "userSrc", "userDst", "vaultA", "vaultB"},
	}

	res, ok := reg.Dispatch(ix)
	require.True(t, ok)
	require.NotNil(t, res.Descriptor)
	assert.Equal(t, "pair", res.Descriptor.Pair)
	_, hasUserSrc := res.Descriptor.UserAccounts["userSrc"]
	assert.True(t, hasUserSrc)
}

func TestRegistryUnrecognizedProgramIsNotDispatched(t *testing.T) {
	reg := Default()
	ix := decoder.Instruction{ProgramID: "UnknownProgram111", Discriminant: "Swap"}
	_, ok := reg.Dispatch(ix)
	assert.False(t, ok)
}

func TestReservedVariantIsAlwaysANoOp(t *testing.T) {
	p := NewRaydiumCPMMReserved()
	ix := decoder.Instruction{ProgramID: p.ProgramID(), Discriminant: "Swap", Accounts: []string{"a", "b", "c", "d", "e", "f"}}
	_, ok := p.Process(ix)
	assert.False(t, ok)
}

func TestPumpAMMCarriesTwoFeeAccounts(t *testing.T) {
	p := NewPumpAMM()
	ix := decoder.Instruction{
		ProgramID:    p.ProgramID(),
		Discriminant: "Buy",
		Accounts:     []string{"pair", "authority", "userBase", "userQuote", "poolBase", "poolQuote", "protocolFee", "creatorFee"},
	}
	res, ok := p.Process(ix)
	require.True(t, ok)
	require.NotNil(t, res.Descriptor)
	assert.Len(t, res.Descriptor.FeeAccounts, 2)
}

func TestMeteoraPoolsCarriesOneFeeAccount(t *testing.T) {
	p := NewMeteoraPools()
	ix := decoder.Instruction{
		ProgramID:    p.ProgramID(),
		Discriminant: "Swap",
		Accounts:     []string{"pair", "authority", "userSrc", "userDst", "vaultA", "vaultB", "protocolFee"},
	}
	res, ok := p.Process(ix)
	require.True(t, ok)
	assert.Len(t, res.Descriptor.FeeAccounts, 1)
}

func TestRaydiumAMMv4InitializeEmitsNewPool(t *testing.T) {
	p := NewRaydiumAMMv4()
	ix := decoder.Instruction{ProgramID: p.ProgramID(), Discriminant: "Initialize2", Accounts: []string{"newPair"}}
	res, ok := p.Process(ix)
	require.True(t, ok)
	require.NotNil(t, res.NewPool)
	assert.Equal(t, "newPair", res.NewPool.Pair)
}
