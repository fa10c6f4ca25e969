// Package metadata resolves a mint to a model.Token via the KV-cache ->
// analytical-store -> RPC cascade, caching the result at every level it
// passed through on its way back up.
package metadata

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sola-hq/sonar/internal/model"
)

// KVStore is the subset of the KV cache the resolver needs.
type KVStore interface {
	GetToken(ctx context.Context, mint string) (*model.Token, error)
	SetToken(ctx context.Context, mint string, token model.Token) error
}

// TokenStore is the subset of the analytical store the resolver needs.
type TokenStore interface {
	GetToken(ctx context.Context, mint string) (*model.Token, error)
	InsertToken(ctx context.Context, token model.Token) error
}

// MintAccount is the raw on-chain account the RPC fetch decodes, already
// split by owning program so the resolver doesn't need to know SPL's wire
// format.
type MintAccount struct {
	Decimals uint8
	Supply   uint64
	// ExtensionMetadata is populated only for Token-2022 mints that carry a
	// token-metadata-pointer extension payload.
	ExtensionMetadata *OnChainMetadata
}

// OnChainMetadata is the subset of MPL/Token-2022 metadata fields the
// resolver cares about; every field participates in the
// primary-or-fallback-or-default resolution described in SPEC_FULL.md.
type OnChainMetadata struct {
	UpdateAuthority      string
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	PrimarySaleHappened  bool
	IsMutable            bool
}

// RPCClient is the on-chain fallback: read the mint account, then (for
// Token-2022 mints lacking extension metadata) the off-chain MPL PDA.
type RPCClient interface {
	GetMintAccount(ctx context.Context, mint string) (MintAccount, error)
	GetMPLMetadata(ctx context.Context, mint string) (*OnChainMetadata, error)
}

// Resolver implements the KV-then-store-then-RPC lookup cascade.
type Resolver struct {
	kv  KVStore
	db  TokenStore
	rpc RPCClient
	log *zap.Logger
	now func() time.Time
}

func New(kv KVStore, db TokenStore, rpc RPCClient, log *zap.Logger) *Resolver {
	return &Resolver{kv: kv, db: db, rpc: rpc, log: log, now: time.Now}
}

// Get resolves mint through the cascade: KV cache, then analytical store,
// then RPC (which itself cascades legacy -> extension -> off-chain PDA).
func (r *Resolver) Get(ctx context.Context, mint string) (model.Token, error) {
	if r.kv != nil {
		if token, err := r.kv.GetToken(ctx, mint); err != nil {
			if r.log != nil {
				r.log.Warn("kv metadata lookup failed", zap.String("mint", mint), zap.Error(err))
			}
		} else if token != nil {
			return *token, nil
		}
	}

	if r.db != nil {
		if token, err := r.db.GetToken(ctx, mint); err != nil {
			if r.log != nil {
				r.log.Warn("db metadata lookup failed", zap.String("mint", mint), zap.Error(err))
			}
		} else if token != nil {
			r.cacheInKV(ctx, mint, *token)
			return *token, nil
		}
	}

	account, err := r.rpc.GetMintAccount(ctx, mint)
	if err != nil {
		return model.Token{}, fmt.Errorf("fetch mint account from rpc: %w", err)
	}

	onChain := account.ExtensionMetadata
	if onChain == nil {
		// Fall back to the off-chain MPL metadata PDA when the mint has no
		// Token-2022 metadata-pointer extension (or isn't Token-2022 at all).
		onChain, err = r.rpc.GetMPLMetadata(ctx, mint)
		if err != nil {
			onChain = nil // best-effort; every field below degrades to its zero value
		}
	}

	token := packToken(mint, account, onChain, r.now())

	if r.db != nil {
		if err := r.db.InsertToken(ctx, token); err != nil && r.log != nil {
			r.log.Warn("db metadata insert failed", zap.String("mint", mint), zap.Error(err))
		}
	}
	r.cacheInKV(ctx, mint, token)

	return token, nil
}

// Supply implements swap.SupplySource.
func (r *Resolver) Supply(ctx context.Context, mint string) (float64, error) {
	token, err := r.Get(ctx, mint)
	if err != nil {
		return 0, err
	}
	return token.Supply, nil
}

func (r *Resolver) cacheInKV(ctx context.Context, mint string, token model.Token) {
	if r.kv == nil {
		return
	}
	if err := r.kv.SetToken(ctx, mint, token); err != nil && r.log != nil {
		r.log.Warn("kv metadata cache write failed", zap.String("mint", mint), zap.Error(err))
	}
}

func packToken(mint string, account MintAccount, onChain *OnChainMetadata, now time.Time) model.Token {
	supply := wholeUnits(account.Supply, account.Decimals)
	return model.Token{
		RetrievalTimestamp:   now.Unix(),
		IsNFT:                account.Decimals == 0,
		Token:                mint,
		UpdateAuthority:      fieldOrDefault(onChain, func(m OnChainMetadata) string { return m.UpdateAuthority }, ""),
		Name:                 fieldOrDefault(onChain, func(m OnChainMetadata) string { return m.Name }, ""),
		Symbol:               fieldOrDefault(onChain, func(m OnChainMetadata) string { return m.Symbol }, ""),
		Decimals:             account.Decimals,
		Supply:               supply,
		URI:                  fieldOrDefault(onChain, func(m OnChainMetadata) string { return m.URI }, ""),
		SellerFeeBasisPoints: fieldOrDefault(onChain, func(m OnChainMetadata) uint16 { return m.SellerFeeBasisPoints }, 0),
		PrimarySaleHappened:  fieldOrDefault(onChain, func(m OnChainMetadata) bool { return m.PrimarySaleHappened }, false),
		IsMutable:            fieldOrDefault(onChain, func(m OnChainMetadata) bool { return m.IsMutable }, false),
	}
}

// fieldOrDefault is the generic primary-then-default field picker described
// in SPEC_FULL.md: if onChain is nil, every field degrades to its default.
func fieldOrDefault[T any](onChain *OnChainMetadata, get func(OnChainMetadata) T, def T) T {
	if onChain == nil {
		return def
	}
	return get(*onChain)
}

func wholeUnits(raw uint64, decimals uint8) float64 {
	if decimals == 0 {
		return float64(raw)
	}
	div := 1.0
	for i := uint8(0); i < decimals; i++ {
		div *= 10
	}
	return float64(raw) / div
}
