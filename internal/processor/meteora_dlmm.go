package processor

import (
	"github.com/sola-hq/sonar/internal/decoder"
	"github.com/sola-hq/sonar/internal/model"
)

const meteoraDLMMProgramID = "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo"

// meteoraDLMMProcessor handles the bin-based liquidity DEX's Swap
// instruction: [lbPair(pair), ..., userTokenIn, userTokenOut, reserveX,
// reserveY, ...].
type meteoraDLMMProcessor struct{}

func NewMeteoraDLMM() Processor { return meteoraDLMMProcessor{} }

func (meteoraDLMMProcessor) ProgramID() string { return meteoraDLMMProgramID }

func (meteoraDLMMProcessor) Process(ix decoder.Instruction) (Result, bool) {
	if ix.Discriminant != "Swap" {
		return Result{}, false
	}
	if len(ix.Accounts) < 6 {
		return Result{}, false
	}
	pair := ix.Accounts[0]
	user := []string{ix.Accounts[2], ix.Accounts[3]}
	vault := []string{ix.Accounts[4], ix.Accounts[5]}
	d := model.NewSwapAccountDescriptor(pair, user, vault, nil)
	return Result{Descriptor: &d}, true
}
