package datasource

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/sola-hq/sonar/internal/pipeline"
)

// Translate turns one fetched block's instruction/transaction payload into
// the decoder and swap inputs the pipeline needs. The actual block-to-
// instruction-tree decoding is the library-provided framed decoder and is
// supplied by the caller; Translate returning ok=false means the block
// contained nothing worth forwarding.
type Translate func(block *rpc.GetBlockResult, slot uint64) ([]pipeline.TxUpdate, bool)

// RPCCrawler polls blocks in [cfg.StartSlot, cfg.EndSlot] at cfg.BlockInterval,
// retrying connection failures with exponential backoff.
type RPCCrawler struct {
	cfg       RPCConfig
	client    *rpc.Client
	translate Translate
	log       *zap.Logger
}

func NewRPCCrawler(cfg RPCConfig, translate Translate, log *zap.Logger) *RPCCrawler {
	return &RPCCrawler{
		cfg:       cfg,
		client:    rpc.New(cfg.URL),
		translate: translate,
		log:       log,
	}
}

// Run implements pipeline.Datasource.
func (c *RPCCrawler) Run(ctx context.Context, out pipeline.Sink) error {
	slot := c.cfg.StartSlot
	ticker := time.NewTicker(c.cfg.BlockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if c.cfg.EndSlot != nil && slot > *c.cfg.EndSlot {
				return nil
			}
			block, err := c.fetchWithBackoff(ctx, slot)
			if err != nil {
				if c.log != nil {
					c.log.Error("rpc block fetch failed permanently", zap.Uint64("slot", slot), zap.Error(err))
				}
				slot++
				continue
			}
			if block != nil {
				c.emit(ctx, out, block, slot)
			}
			slot++
		}
	}
}

// fetchWithBackoff retries a single slot's block fetch with exponential
// backoff up to the ceiling set by backoff.DefaultMaxElapsedTime,
// surfacing a transient "block not available yet" error as retryable.
func (c *RPCCrawler) fetchWithBackoff(ctx context.Context, slot uint64) (*rpc.GetBlockResult, error) {
	var block *rpc.GetBlockResult
	op := func() error {
		b, err := c.client.GetBlock(ctx, slot)
		if err != nil {
			return err
		}
		block = b
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	return block, err
}

func (c *RPCCrawler) emit(ctx context.Context, out pipeline.Sink, block *rpc.GetBlockResult, slot uint64) {
	if c.translate == nil {
		return
	}
	updates, ok := c.translate(block, slot)
	if !ok {
		return
	}
	for _, u := range updates {
		out.Send(ctx, u)
	}
}
