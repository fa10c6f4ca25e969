package processor

import "github.com/sola-hq/sonar/internal/decoder"

// raydiumCPMMProgramID is Raydium's constant-product v2 ("CPMM") program.
// It occupies the closed set's eighth, reserved slot: the account layout
// for its Swap instruction is never recognized here because no fixture in
// this system's corpus exercises it (see DESIGN.md). Any instruction from
// this program is counted as an unexpected swap rather than guessed at.
const raydiumCPMMProgramID = "CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"

type raydiumCPMMReservedProcessor struct{}

func NewRaydiumCPMMReserved() Processor { return raydiumCPMMReservedProcessor{} }

func (raydiumCPMMReservedProcessor) ProgramID() string { return raydiumCPMMProgramID }

func (raydiumCPMMReservedProcessor) Process(decoder.Instruction) (Result, bool) {
	return Result{}, false
}
