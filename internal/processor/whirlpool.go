package processor

import (
	"github.com/sola-hq/sonar/internal/decoder"
	"github.com/sola-hq/sonar/internal/model"
)

// whirlpoolProgramID is the concentrated-liquidity v1 program.
const whirlpoolProgramID = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"

// whirlpoolProcessor handles Swap/SwapV2: [whirlpool(pair), tokenAuthority,
// tokenOwnerAccountA, tokenVaultA, tokenOwnerAccountB, tokenVaultB, ...].
type whirlpoolProcessor struct{}

func NewWhirlpool() Processor { return whirlpoolProcessor{} }

func (whirlpoolProcessor) ProgramID() string { return whirlpoolProgramID }

func (whirlpoolProcessor) Process(ix decoder.Instruction) (Result, bool) {
	switch ix.Discriminant {
	case "Swap", "SwapV2":
		if len(ix.Accounts) < 6 {
			return Result{}, false
		}
		pair := ix.Accounts[0]
		user := []string{ix.Accounts[2], ix.Accounts[4]}
		vault := []string{ix.Accounts[3], ix.Accounts[5]}
		d := model.NewSwapAccountDescriptor(pair, user, vault, nil)
		return Result{Descriptor: &d}, true
	default:
		return Result{}, false
	}
}
