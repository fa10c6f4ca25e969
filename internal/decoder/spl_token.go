// Package decoder turns decoded SPL-token instructions (Legacy and
// Token-2022, Transfer and TransferChecked) into model.Transfer values and
// enriches them from a transaction's pre/post token-balance lists.
package decoder

import (
	"go.uber.org/zap"

	"github.com/sola-hq/sonar/internal/model"
)

// Instruction is the minimal shape the decoder needs from an already
// account-resolved instruction: which program owns it, which discriminant
// it carries, and its ordered account list.
type Instruction struct {
	ProgramID string
	Kind      InstructionKind
	Accounts  []string // [source, destination, authority, ...] per SPL layout
	Amount    uint64
	Decimals  uint8 // only meaningful for TransferChecked
	Mint      string // only meaningful for TransferChecked (account at index 1)

	// Discriminant is the raw instruction-data discriminator (e.g. the
	// anchor/native discriminator byte(s) decoded to a name such as
	// "SwapBaseIn" or "Buy"). DEX processors switch on this; the SPL-token
	// decoder above ignores it in favor of Kind.
	Discriminant string
	// InnerInstructions are the nested instructions attached to this
	// top-level instruction, handed to the decoder for transfer extraction.
	InnerInstructions []InnerInstruction
}

// InstructionKind enumerates the token-instruction variants the decoder
// recognizes; everything else (approve, mint, burn, ...) yields no transfer.
type InstructionKind int

const (
	KindOther InstructionKind = iota
	KindTransfer
	KindTransferChecked
)

// DecodeTransfer converts one token-family instruction into a Transfer, or
// returns (zero, false) if it isn't a transfer from a recognized program.
func DecodeTransfer(ix Instruction, log *zap.Logger) (model.Transfer, bool) {
	programKind, ok := programKindFor(ix.ProgramID)
	if !ok {
		return model.Transfer{}, false
	}

	switch ix.Kind {
	case KindTransfer:
		if len(ix.Accounts) < 3 {
			if log != nil {
				log.Debug("transfer instruction has too few accounts", zap.Int("count", len(ix.Accounts)))
			}
			return model.Transfer{}, false
		}
		return model.Transfer{
			Program:     programKind,
			Source:      ix.Accounts[0],
			Destination: ix.Accounts[1],
			Authority:   ix.Accounts[2],
			Amount:      ix.Amount,
		}, true

	case KindTransferChecked:
		if len(ix.Accounts) < 4 {
			if log != nil {
				log.Debug("transfer_checked instruction has too few accounts", zap.Int("count", len(ix.Accounts)))
			}
			return model.Transfer{}, false
		}
		decimals := ix.Decimals
		t := model.Transfer{
			Program:     programKind,
			Source:      ix.Accounts[0],
			Destination: ix.Accounts[2],
			Authority:   ix.Accounts[3],
			Mint:        ix.Mint,
			Decimals:    decimals,
			Amount:      ix.Amount,
		}
		t.UIAmount = uiAmount(t.Amount, t.Decimals)
		return t, true

	default:
		return model.Transfer{}, false
	}
}

func programKindFor(programID string) (model.TokenProgramKind, bool) {
	switch programID {
	case model.LegacyTokenProgram:
		return model.LegacyToken, true
	case model.Token2022Program:
		return model.Token2022, true
	default:
		return 0, false
	}
}

func uiAmount(amount uint64, decimals uint8) float64 {
	if decimals == 0 {
		return float64(amount)
	}
	div := 1.0
	for i := uint8(0); i < decimals; i++ {
		div *= 10
	}
	return float64(amount) / div
}

// TokenBalance is one entry of a transaction's pre- or post-token-balance
// list, as reported by the RPC/Geyser layer.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Decimals     uint8
}

// BalanceEnrichment is a flattened account-index -> MintDetail table built
// from both the pre- and post-token-balance lists of one transaction.
type BalanceEnrichment map[string]model.MintDetail

// BuildEnrichment maps account addresses (looked up via accountKeys, the
// concatenation of static keys followed by writable then readonly loaded
// addresses) to their MintDetail, from both balance lists. Out-of-range
// account indices are logged and skipped rather than causing a panic.
func BuildEnrichment(pre, post []TokenBalance, accountKeys []string, log *zap.Logger) BalanceEnrichment {
	enrichment := make(BalanceEnrichment)
	add := func(balances []TokenBalance) {
		for _, b := range balances {
			if b.AccountIndex < 0 || b.AccountIndex >= len(accountKeys) {
				if log != nil {
					log.Warn("token balance account_index out of range",
						zap.Int("account_index", b.AccountIndex),
						zap.Int("account_keys_len", len(accountKeys)))
				}
				continue
			}
			account := accountKeys[b.AccountIndex]
			enrichment[account] = model.MintDetail{Mint: b.Mint, Owner: b.Owner, Decimals: b.Decimals}
		}
	}
	add(pre)
	add(post)
	return enrichment
}

// Enrich fills in Mint/Decimals/UIAmount on a bare Transfer decoded from a
// plain Transfer instruction, by looking up source first, then destination,
// in the enrichment table. Transfers that already carry a mint
// (TransferChecked) are returned unchanged.
func Enrich(t model.Transfer, enrichment BalanceEnrichment) model.Transfer {
	if t.Enriched() {
		return t
	}
	if detail, ok := enrichment[t.Source]; ok {
		t.Mint = detail.Mint
		t.Decimals = detail.Decimals
		t.UIAmount = uiAmount(t.Amount, t.Decimals)
		return t
	}
	if detail, ok := enrichment[t.Destination]; ok {
		t.Mint = detail.Mint
		t.Decimals = detail.Decimals
		t.UIAmount = uiAmount(t.Amount, t.Decimals)
		return t
	}
	return t
}

// InnerInstruction is one node of the instruction tree handed to the
// decoder by a DEX processor; children are walked depth-first with an
// explicit stack rather than recursion, so deeply nested instruction trees
// can't blow the goroutine stack.
type InnerInstruction struct {
	Instruction Instruction
	Children    []InnerInstruction
}

// DecodeTransfers flattens a tree of inner instructions into the Transfers
// they decode to (in depth-first order), enriching each one along the way.
func DecodeTransfers(roots []InnerInstruction, enrichment BalanceEnrichment, log *zap.Logger) []model.Transfer {
	var out []model.Transfer
	stack := make([]InnerInstruction, 0, len(roots))
	// push in reverse so the first root is processed first (stack is LIFO)
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if t, ok := DecodeTransfer(node.Instruction, log); ok {
			out = append(out, Enrich(t, enrichment))
		}
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}
	return out
}
