package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sola-hq/sonar/internal/pipeline"
)

const heliusEndpoint = "wss://atlas-mainnet.helius-rpc.com"

// HeliusTranslate turns one enhanced-websocket transaction notification's
// raw bytes into pipeline updates; subscription-message shapes are
// library-provided and out of scope here.
type HeliusTranslate func(payload []byte) ([]pipeline.TxUpdate, bool)

// HeliusStream subscribes to Helius's enhanced-websocket transaction feed,
// answering server pings and reconnecting on this cadence: sleep 1s on
// clean close, sleep 5s on error, idle timeout closes and forces a
// reconnect.
type HeliusStream struct {
	cfg       HeliusConfig
	translate HeliusTranslate
	log       *zap.Logger
}

func NewHeliusStream(cfg HeliusConfig, translate HeliusTranslate, log *zap.Logger) *HeliusStream {
	return &HeliusStream{cfg: cfg, translate: translate, log: log}
}

// Run implements pipeline.Datasource.
func (h *HeliusStream) Run(ctx context.Context, out pipeline.Sink) error {
	for {
		closedClean, err := h.runOnce(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sleep := 5 * time.Second
		if err == nil && closedClean {
			sleep = 1 * time.Second
		}
		if h.log != nil {
			h.log.Warn("helius stream disconnected, reconnecting", zap.Bool("clean_close", closedClean), zap.Error(err))
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *HeliusStream) runOnce(ctx context.Context, out pipeline.Sink) (closedClean bool, err error) {
	url := fmt.Sprintf("%s/?api-key=%s", heliusEndpoint, h.cfg.APIKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})

	done := make(chan struct{})
	go h.heartbeat(ctx, conn, done)
	defer close(done)

	conn.SetReadDeadline(time.Now().Add(h.cfg.TransactionIdleTimeout))
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return true, nil
			}
			return false, err
		}
		conn.SetReadDeadline(time.Now().Add(h.cfg.TransactionIdleTimeout))
		h.emit(ctx, out, payload)
	}
}

func (h *HeliusStream) heartbeat(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = conn.WriteMessage(websocket.PingMessage, nil)
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *HeliusStream) emit(ctx context.Context, out pipeline.Sink, payload []byte) {
	if h.translate == nil {
		return
	}
	updates, ok := h.translate(payload)
	if !ok {
		return
	}
	for _, u := range updates {
		out.Send(ctx, u)
	}
}
