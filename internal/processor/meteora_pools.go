package processor

import (
	"github.com/sola-hq/sonar/internal/decoder"
	"github.com/sola-hq/sonar/internal/model"
)

const meteoraPoolsProgramID = "Eo7WjKq67rjJQSZxS6z3YkapzY3eMj6Xy8X5EQVn5UaB"

// meteoraPoolsProcessor handles the classic constant-product pools' Swap
// instruction: [pool(pair), ..., userSource, userDestination, aVault,
// bVault, protocolFeeAccount, ...].
type meteoraPoolsProcessor struct{}

func NewMeteoraPools() Processor { return meteoraPoolsProcessor{} }

func (meteoraPoolsProcessor) ProgramID() string { return meteoraPoolsProgramID }

func (meteoraPoolsProcessor) Process(ix decoder.Instruction) (Result, bool) {
	if ix.Discriminant != "Swap" {
		return Result{}, false
	}
	if len(ix.Accounts) < 7 {
		return Result{}, false
	}
	pair := ix.Accounts[0]
	user := []string{ix.Accounts[2], ix.Accounts[3]}
	vault := []string{ix.Accounts[4], ix.Accounts[5]}
	fee := []string{ix.Accounts[6]}
	d := model.NewSwapAccountDescriptor(pair, user, vault, fee)
	return Result{Descriptor: &d}, true
}
