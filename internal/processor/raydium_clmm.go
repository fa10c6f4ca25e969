package processor

import (
	"github.com/sola-hq/sonar/internal/decoder"
	"github.com/sola-hq/sonar/internal/model"
)

// raydiumCLMMProgramID is the concentrated-liquidity "v3" program, whose
// Swap/SwapV2 account layout mirrors Whirlpool's.
const raydiumCLMMProgramID = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"

type raydiumCLMMProcessor struct{}

func NewRaydiumCLMM() Processor { return raydiumCLMMProcessor{} }

func (raydiumCLMMProcessor) ProgramID() string { return raydiumCLMMProgramID }

func (raydiumCLMMProcessor) Process(ix decoder.Instruction) (Result, bool) {
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
