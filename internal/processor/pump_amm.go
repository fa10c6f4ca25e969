package processor

import (
	"github.com/sola-hq/sonar/internal/decoder"
	"github.com/sola-hq/sonar/internal/model"
)

const pumpAMMProgramID = "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA"

// pumpAMMProcessor handles the pump-style AMM's Buy/Sell instructions:
// [pool(pair), ..., userBaseTokenAccount, userQuoteTokenAccount,
// poolBaseTokenAccount, poolQuoteTokenAccount, protocolFeeRecipientAta,
// creatorFeeRecipientAta, ...]. Two in-band fee accounts distinguish this
// variant from the rest of the closed set.
type pumpAMMProcessor struct{}

func NewPumpAMM() Processor { return pumpAMMProcessor{} }

func (pumpAMMProcessor) ProgramID() string { return pumpAMMProgramID }

func (pumpAMMProcessor) Process(ix decoder.Instruction) (Result, bool) {
	switch ix.Discriminant {
	case "Buy", "Sell":
		if len(ix.Accounts) < 8 {
			return Result{}, false
		}
		pair := ix.Accounts[0]
		user := []string{ix.Accounts[2], ix.Accounts[3]}
		vault := []string{ix.Accounts[4], ix.Accounts[5]}
		fee := []string{ix.Accounts[6], ix.Accounts[7]}
		d := model.NewSwapAccountDescriptor(pair, user, vault, fee)
		return Result{Descriptor: &d}, true
	default:
		return Result{}, false
	}
}
