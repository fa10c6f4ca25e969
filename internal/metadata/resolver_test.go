package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sola-hq/sonar/internal/model"
)

type fakeKV struct {
	tokens map[string]model.Token
	setErr error
}

func newFakeKV() *fakeKV { return &fakeKV{tokens: map[string]model.Token{}} }

func (f *fakeKV) GetToken(_ context.Context, mint string) (*model.Token, error) {
	if t, ok := f.tokens[mint]; ok {
		return &t, nil
	}
	return nil, nil
}
func (f *fakeKV) SetToken(_ context.Context, mint string, token model.Token) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.tokens[mint] = token
	return nil
}

type fakeDB struct {
	tokens  map[string]model.Token
	inserts int
}

func newFakeDB() *fakeDB { return &fakeDB{tokens: map[string]model.Token{}} }

func (f *fakeDB) GetToken(_ context.Context, mint string) (*model.Token, error) {
	if t, ok := f.tokens[mint]; ok {
		return &t, nil
	}
	return nil, nil
}
func (f *fakeDB) InsertToken(_ context.Context, token model.Token) error {
	f.inserts++
	f.tokens[token.Token] = token
	return nil
}

type fakeRPC struct {
	account MintAccount
	mpl     *OnChainMetadata
	mplErr  error
	err     error
	calls   int
}

func (f *fakeRPC) GetMintAccount(_ context.Context, _ string) (MintAccount, error) {
	f.calls++
	return f.account, f.err
}
func (f *fakeRPC) GetMPLMetadata(_ context.Context, _ string) (*OnChainMetadata, error) {
	return f.mpl, f.mplErr
}

func TestGetReturnsCachedKVHitWithoutHittingRPC(t *testing.T) {
	kv := newFakeKV()
	kv.tokens["mintA"] = model.Token{Token: "mintA", Symbol: "CACHED"}
	rpc := &fakeRPC{}

	r := New(kv, nil, rpc, nil)
	token, err := r.Get(context.Background(), "mintA")
	require.NoError(t, err)
	assert.Equal(t, "CACHED", token.Symbol)
	assert.Equal(t, 0, rpc.calls)
}

func TestGetPopulatesKVFromDBHit(t *testing.T) {
	kv := newFakeKV()
	db := newFakeDB()
	db.tokens["mintB"] = model.Token{Token: "mintB", Symbol: "FROMDB"}
	rpc := &fakeRPC{}

	r := New(kv, db, rpc, nil)
	token, err := r.Get(context.Background(), "mintB")
	require.NoError(t, err)
	assert.Equal(t, "FROMDB", token.Symbol)
	assert.Equal(t, 0, rpc.calls)

	cached, err := kv.GetToken(context.Background(), "mintB")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "FROMDB", cached.Symbol)
}

func TestGetFallsBackToExtensionMetadataThenInsertsAndCaches(t *testing.T) {
	kv := newFakeKV()
	db := newFakeDB()
	rpc := &fakeRPC{
		account: MintAccount{
			Decimals: 6,
			Supply:   9_999_998_118_661_610_216 / 1_000_000, // scaled down to fit comfortably
			ExtensionMetadata: &OnChainMetadata{Name: "Extension Token", Symbol: "EXT"},
		},
	}

	r := New(kv, db, rpc, nil)
	token, err := r.Get(context.Background(), "mintC")
	require.NoError(t, err)
	assert.Equal(t, "Extension Token", token.Name)
	assert.Equal(t, "EXT", token.Symbol)
	assert.Equal(t, 1, db.inserts)

	cached, _ := kv.GetToken(context.Background(), "mintC")
	require.NotNil(t, cached)
}

func TestGetFallsBackToMPLPDAWhenExtensionAbsent(t *testing.T) {
	kv := newFakeKV()
	rpc := &fakeRPC{
		account: MintAccount{Decimals: 9, Supply: 1_000_000_000},
		mpl:     &OnChainMetadata{Name: "Off-chain", Symbol: "PDA"},
	}

	r := New(kv, nil, rpc, nil)
	token, err := r.Get(context.Background(), "mintD")
	require.NoError(t, err)
	assert.Equal(t, "Off-chain", token.Name)
}

func TestGetDegradesAllFieldsWhenBothMetadataSourcesAbsent(t *testing.T) {
	kv := newFakeKV()
	rpc := &fakeRPC{account: MintAccount{Decimals: 0, Supply: 1}, mplErr: errors.New("no pda")}

	r := New(kv, nil, rpc, nil)
	token, err := r.Get(context.Background(), "mintE")
	require.NoError(t, err)
	assert.True(t, token.IsNFT)
	assert.Equal(t, "", token.Name)
}

func TestSupplyErrorsPropagateForCallerToSoftFallback(t *testing.T) {
	kv := newFakeKV()
	rpc := &fakeRPC{err: errors.New("rpc down")}

	r := New(kv, nil, rpc, nil)
	_, err := r.Supply(context.Background(), "mintF")
	assert.Error(t, err)
}

func TestWholeUnitsConversion(t *testing.T) {
	assert.InDelta(t, 99999.98, wholeUnits(9999998, 2), 1e-6)
	assert.Equal(t, float64(5), wholeUnits(5, 0))
}
