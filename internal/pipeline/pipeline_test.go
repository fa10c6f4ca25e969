package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sola-hq/sonar/internal/decoder"
	"github.com/sola-hq/sonar/internal/metrics"
	"github.com/sola-hq/sonar/internal/model"
	"github.com/sola-hq/sonar/internal/processor"
	"github.com/sola-hq/sonar/internal/swap"
)

type fakeDatasource struct {
	updates []TxUpdate
}

func (f *fakeDatasource) Run(ctx context.Context, out Sink) error {
	for _, u := range f.updates {
		out.Send(ctx, u)
	}
	return nil
}

type fakeProcessor struct {
	programID string
	desc      *model.SwapAccountDescriptor
}

func (p *fakeProcessor) ProgramID() string { return p.programID }

func (p *fakeProcessor) Process(ix decoder.Instruction) (processor.Result, bool) {
	if p.desc == nil {
		return processor.Result{}, false
	}
	return processor.Result{Descriptor: p.desc}, true
}

type fakePrice struct{}

func (fakePrice) PriceForMint(ctx context.Context, mint string) float64 { return 150.0 }

type fakeSupply struct{}

func (fakeSupply) Supply(ctx context.Context, mint string) (float64, error) { return 1_000_000_000, nil }

type fakeSinks struct {
	inserted []model.SwapEvent
}

func (f *fakeSinks) InsertSwapEvent(ctx context.Context, e model.SwapEvent) error {
	f.inserted = append(f.inserted, e)
	return nil
}
func (f *fakeSinks) PublishTrade(ctx context.Context, t model.Trade) error    { return nil }
func (f *fakeSinks) CacheLatestPrice(ctx context.Context, t model.Trade) error { return nil }

func TestPipelineDispatchesRecognizedSwap(t *testing.T) {
	desc := model.SwapAccountDescriptor{
		Pair:          "SOL/USDC",
		UserAccounts:  map[string]struct{}{"user-token": {}, "user-sol": {}},
		VaultAccounts: map[string]struct{}{"vault-token": {}, "vault-sol": {}},
		QuoteMints:    map[string]struct{}{model.WrappedNativeMint: {}},
	}
	proc := &fakeProcessor{programID: "prog-1", desc: &desc}
	reg := processor.NewRegistry(proc)

	sinks := &fakeSinks{}
	m := metrics.New(nil, nil)
	handler := swap.New(fakePrice{}, fakeSupply{}, sinks, m, nil)

	ix := decoder.Instruction{
		ProgramID: "prog-1",
		InnerInstructions: []decoder.InnerInstruction{
			{Instruction: decoder.Instruction{
				ProgramID: model.LegacyTokenProgram,
				Kind:      decoder.KindTransferChecked,
				Accounts:  []string{"user-token", "mintA", "vault-token", "authA"},
				Mint:      "baseMint111111111111111111111111111111111",
				Decimals:  6,
				Amount:    1_000_000_000,
			}},
			{Instruction: decoder.Instruction{
				ProgramID: model.LegacyTokenProgram,
				Kind:      decoder.KindTransferChecked,
				Accounts:  []string{"vault-sol", "mintB", "user-sol", "authB"},
				Mint:      model.WrappedNativeMint,
				Decimals:  9,
				Amount:    2_000_000_000,
			}},
		},
	}

	ds := &fakeDatasource{updates: []TxUpdate{{
		Instructions: []decoder.Instruction{ix},
		Context: swap.TxContext{
			Signature:             "sig-1",
			StaticAccountKeys:     []string{"fee-payer"},
			NumRequiredSignatures: 1,
			FeePayer:              "fee-payer",
		},
	}}}

	p := Build(ds, reg, handler, 10, Immediate, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, sinks.inserted, 1)
	assert.Equal(t, "SOL/USDC", sinks.inserted[0].Pair)
}

func TestPipelineIgnoresUnrecognizedProgram(t *testing.T) {
	proc := &fakeProcessor{programID: "prog-1", desc: nil}
	reg := processor.NewRegistry(proc)
	sinks := &fakeSinks{}
	m := metrics.New(nil, nil)
	handler := swap.New(fakePrice{}, fakeSupply{}, sinks, m, nil)

	ds := &fakeDatasource{updates: []TxUpdate{{
		Instructions: []decoder.Instruction{{ProgramID: "prog-unknown"}},
		Context:      swap.TxContext{Signature: "sig-2"},
	}}}

	p := Build(ds, reg, handler, 10, Immediate, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, sinks.inserted)
}

func TestDefaultBufferSizeAppliedWhenUnset(t *testing.T) {
	ds := &fakeDatasource{}
	reg := processor.NewRegistry()
	m := metrics.New(nil, nil)
	handler := swap.New(fakePrice{}, fakeSupply{}, &fakeSinks{}, m, nil)

	p := Build(ds, reg, handler, 0, Immediate, nil)
	assert.Equal(t, DefaultChannelBufferSize, p.bufferSize)
}

func TestQueueSinkDropNewestDiscardsWhenFull(t *testing.T) {
	queue := make(chan TxUpdate, 1)
	sink := &queueSink{queue: queue, strategy: DropNewest}

	ctx := context.Background()
	sink.Send(ctx, TxUpdate{Context: swap.TxContext{Signature: "fills-buffer"}})
	sink.Send(ctx, TxUpdate{Context: swap.TxContext{Signature: "dropped"}})

	require.Len(t, queue, 1)
	assert.Equal(t, "fills-buffer", (<-queue).Context.Signature)
}

func TestQueueSinkImmediateBlocksUntilContextCanceled(t *testing.T) {
	queue := make(chan TxUpdate, 1)
	sink := &queueSink{queue: queue, strategy: Immediate}

	ctx := context.Background()
	sink.Send(ctx, TxUpdate{Context: swap.TxContext{Signature: "fills-buffer"}})

	blockedCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		sink.Send(blockedCtx, TxUpdate{Context: swap.TxContext{Signature: "blocks-then-gives-up"}})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return after context cancellation")
	}
	require.Len(t, queue, 1)
	assert.Equal(t, "fills-buffer", (<-queue).Context.Signature)
}
