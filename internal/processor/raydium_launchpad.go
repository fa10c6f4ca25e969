package processor

import (
	"github.com/sola-hq/sonar/internal/decoder"
	"github.com/sola-hq/sonar/internal/model"
)

const raydiumLaunchpadProgramID = "LanMV9sAd7wArD4vJFi2qDdfnVhFxYSUg6eADduJ3uj"

// raydiumLaunchpadProcessor handles SellExactIn/SellExactOut: [poolState(pair),
// ..., userBaseTokenAccount, userQuoteTokenAccount, baseVault, quoteVault, ...].
type raydiumLaunchpadProcessor struct{}

func NewRaydiumLaunchpad() Processor { return raydiumLaunchpadProcessor{} }

func (raydiumLaunchpadProcessor) ProgramID() string { return raydiumLaunchpadProgramID }

func (raydiumLaunchpadProcessor) Process(ix decoder.Instruction) (Result, bool) {
	switch ix.Discriminant {
	case "SellExactIn", "SellExactOut":
		if len(ix.Accounts) < 6 {
			return Result{}, false
		}
		pair := ix.Accounts[0]
		user := []string{ix.Accounts[2], ix.Accounts[3]}
		vault := []string{ix.Accounts[4], ix.Accounts[5]}
		d := model.NewSwapAccountDescriptor(pair, user, vault, nil)
		return Result{Descriptor: &d}, true
	default:
		return Result{}, false
	}
}
