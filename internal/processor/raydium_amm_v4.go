package processor

import (
	"github.com/sola-hq/sonar/internal/decoder"
	"github.com/sola-hq/sonar/internal/model"
)

// raydiumAMMv4ProgramID is the constant-product AMM v4 program.
const raydiumAMMv4ProgramID = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"

// RaydiumAMMv4 accounts, by instruction-account position, for SwapBaseIn /
// SwapBaseOut: [ammId(pair), authority, userSourceTokenAccount,
// userDestTokenAccount, poolCoinVault, poolPcVault, userOwner, ...].
type raydiumAMMv4Processor struct{}

func NewRaydiumAMMv4() Processor { return raydiumAMMv4Processor{} }

func (raydiumAMMv4Processor) ProgramID() string { return raydiumAMMv4ProgramID }

func (raydiumAMMv4Processor) Process(ix decoder.Instruction) (Result, bool) {
	switch ix.Discriminant {
	case "SwapBaseIn", "SwapBaseOut":
		if len(ix.Accounts) < 6 {
			return Result{}, false
		}
		pair := ix.Accounts[0]
		user := []string{ix.Accounts[2], ix.Accounts[3]}
		vault := []string{ix.Accounts[4], ix.Accounts[5]}
		d := model.NewSwapAccountDescriptor(pair, user, vault, nil)
		return Result{Descriptor: &d}, true

	case "Initialize2":
		if len(ix.Accounts) < 1 {
			return Result{}, false
		}
		return Result{NewPool: &model.NewPoolEvent{Pair: ix.Accounts[0]}}, true

	default:
		return Result{}, false
	}
}
