// Package processor recognizes swap-kind instructions for the closed set
// of eight supported DEX program variants and derives each one's
// SwapAccountDescriptor. Dispatch is a static map built at pipeline-build
// time, not a dynamic lookup in the hot path.
package processor

import (
	"github.com/sola-hq/sonar/internal/decoder"
	"github.com/sola-hq/sonar/internal/model"
)

// Variant identifies one of the eight supported DEX program variants.
type Variant int

const (
	RaydiumAMMv4 Variant = iota
	Whirlpool             // concentrated-liquidity v1
	RaydiumCLMM           // constant-product v3 (same account shape as v1)
	RaydiumLaunchpad
	MeteoraDLMM // bin-based liquidity DEX
	MeteoraPools
	PumpAMM
	RaydiumCPMMReserved // no corresponding fixture or account layout; always a no-op
)

// Result is what a processor hands back to the swap-reconstruction stage:
// the account descriptor for a recognized swap instruction, and optionally
// a new-pool event for initialize-style instructions.
type Result struct {
	Descriptor *model.SwapAccountDescriptor
	NewPool    *model.NewPoolEvent
}

// Processor recognizes one program's instruction set.
type Processor interface {
	// Process inspects a decoded instruction and returns a Result when the
	// instruction is a recognized swap (or pool-creation) instruction.
	// ok=false means the instruction wasn't relevant to this variant;
	// it must not be treated as an error.
	Process(ix decoder.Instruction) (Result, bool)
	ProgramID() string
}

// Registry maps program ids to their Processor, built once at startup.
type Registry struct {
	byProgram map[string]Processor
}

func NewRegistry(processors ...Processor) *Registry {
	r := &Registry{byProgram: make(map[string]Processor, len(processors))}
	for _, p := range processors {
		r.byProgram[p.ProgramID()] = p
	}
	return r
}

// Dispatch routes an instruction to its owning processor by program id.
// ok=false means no registered processor owns this program (the
// instruction is not one of the eight supported variants).
func (r *Registry) Dispatch(ix decoder.Instruction) (Result, bool) {
	p, ok := r.byProgram[ix.ProgramID]
	if !ok {
		return Result{}, false
	}
	return p.Process(ix)
}

// Default wires up the registry with the full closed set, including the
// reserved no-op slot.
func Default() *Registry {
	return NewRegistry(
		NewRaydiumAMMv4(),
		NewWhirlpool(),
		NewRaydiumCLMM(),
		NewRaydiumLaunchpad(),
		NewMeteoraDLMM(),
		NewMeteoraPools(),
		NewPumpAMM(),
		NewRaydiumCPMMReserved(),
	)
}
