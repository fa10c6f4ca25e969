// Package pipeline wires one datasource to N per-program processors and
// runs the bounded-queue fan-in/fan-out, shutting down cleanly on
// cancellation.
package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sola-hq/sonar/internal/decoder"
	"github.com/sola-hq/sonar/internal/processor"
	"github.com/sola-hq/sonar/internal/swap"
)

// ShutdownStrategy controls what happens when the bounded inter-stage
// queue is full.
type ShutdownStrategy int

const (
	// Immediate blocks the upstream producer until the queue drains.
	Immediate ShutdownStrategy = iota
	// DropNewest discards the newest message rather than blocking.
	DropNewest
)

// DefaultChannelBufferSize is the default bounded-queue depth.
const DefaultChannelBufferSize = 10_000

// Datasource produces framed transaction updates until ctx is canceled or
// the upstream connection is exhausted, writing each one to out.
type Datasource interface {
	Run(ctx context.Context, out Sink) error
}

// Sink is the write side of the pipeline's bounded inter-stage queue. A
// datasource calls Send for every update it produces; Send applies
// whichever ShutdownStrategy the pipeline was built with rather than
// leaving each datasource to hand-roll its own queue-full handling.
type Sink interface {
	Send(ctx context.Context, update TxUpdate)
}

// TxUpdate is one framed transaction handed from a datasource to the
// pipeline: the top-level instructions to dispatch through the processor
// registry, plus the transaction context reconstruction needs.
type TxUpdate struct {
	Instructions []decoder.Instruction
	Context      swap.TxContext
}

// Pipeline multiplexes one datasource's output to the processor registry
// and the swap handler, with a bounded queue providing backpressure.
type Pipeline struct {
	datasource  Datasource
	registry    *processor.Registry
	handler     *swap.Handler
	bufferSize  int
	strategy    ShutdownStrategy
	log         *zap.Logger
}

func Build(ds Datasource, reg *processor.Registry, handler *swap.Handler, bufferSize int, strategy ShutdownStrategy, log *zap.Logger) *Pipeline {
	if bufferSize <= 0 {
		bufferSize = DefaultChannelBufferSize
	}
	return &Pipeline{datasource: ds, registry: reg, handler: handler, bufferSize: bufferSize, strategy: strategy, log: log}
}

// Run blocks until the datasource terminates or ctx is canceled, fanning
// each decoded instruction out to its owning processor and, for
// recognized swaps, into the reconstruction handler. A processor/handler
// error is logged and the pipeline continues; it never terminates on a
// per-message error.
func (p *Pipeline) Run(ctx context.Context) error {
	queue := make(chan TxUpdate, p.bufferSize)
	sink := &queueSink{queue: queue, strategy: p.strategy, log: p.log}

	var wg sync.WaitGroup
	wg.Add(1)
	var dsErr error
	go func() {
		defer wg.Done()
		dsErr = p.datasource.Run(ctx, sink)
		close(queue)
	}()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case update, ok := <-queue:
			if !ok {
				wg.Wait()
				return dsErr
			}
			p.process(ctx, update)
		}
	}
}

// queueSink is the Sink every Datasource writes through; it applies the
// pipeline's configured ShutdownStrategy on every send so no datasource
// implementation needs its own queue-full handling.
type queueSink struct {
	queue    chan<- TxUpdate
	strategy ShutdownStrategy
	log      *zap.Logger
}

func (s *queueSink) Send(ctx context.Context, update TxUpdate) {
	switch s.strategy {
	case DropNewest:
		select {
		case s.queue <- update:
		default:
			if s.log != nil {
				s.log.Warn("dropping update: queue full")
			}
		}
	default: // Immediate: block until there's room or ctx is canceled
		select {
		case s.queue <- update:
		case <-ctx.Done():
		}
	}
}

func (p *Pipeline) process(ctx context.Context, update TxUpdate) {
	for _, ix := range update.Instructions {
		result, ok := p.registry.Dispatch(ix)
		if !ok {
			continue
		}
		if result.Descriptor == nil {
			continue // new-pool-only result; nothing for reconstruction to do
		}
		update.Context.Instructions = flattenInnerInstructions(ix)
		if err := p.handler.Handle(ctx, *result.Descriptor, update.Context); err != nil {
			if p.log != nil {
				p.log.Error("swap handler failed", zap.String("signature", update.Context.Signature), zap.Error(err))
			}
		}
	}
}

func flattenInnerInstructions(ix decoder.Instruction) []decoder.InnerInstruction {
	return ix.InnerInstructions
}
