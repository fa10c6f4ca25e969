// Command sonar runs either a pipeline node against one upstream datasource
// variant, or the candlestick-aggregation scheduler.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sola-hq/sonar/configs"
	"github.com/sola-hq/sonar/internal/candlestick"
	"github.com/sola-hq/sonar/internal/datasource"
	"github.com/sola-hq/sonar/internal/metadata"
	"github.com/sola-hq/sonar/internal/metrics"
	"github.com/sola-hq/sonar/internal/pipeline"
	"github.com/sola-hq/sonar/internal/priceservice"
	"github.com/sola-hq/sonar/internal/processor"
	"github.com/sola-hq/sonar/internal/sink"
	"github.com/sola-hq/sonar/internal/swap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var metricsAddr string

	root := &cobra.Command{
		Use:   "sonar",
		Short: "ingests DEX swaps and aggregates them into candlesticks",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yml", "path to config.yml")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")

	root.AddCommand(newNodeCmd(&configPath, &metricsAddr))
	root.AddCommand(newSchedulerCmd(&configPath))
	return root
}

func newNodeCmd(configPath, metricsAddr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "node [rpc|geyser|helius]",
		Short: "run the swap-ingestion pipeline against one upstream datasource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cmd.Context(), args[0], *configPath, *metricsAddr)
		},
	}
}

func newSchedulerCmd(configPath *string) *cobra.Command {
	schedulerCmd := &cobra.Command{Use: "scheduler", Short: "run scheduled maintenance jobs"}
	schedulerCmd.AddCommand(&cobra.Command{
		Use:   "candlestick",
		Short: "run the minute/hour/day candlestick aggregation cron",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduler(cmd.Context(), *configPath)
		},
	})
	return schedulerCmd
}

func runNode(ctx context.Context, variant, configPath, metricsAddr string) error {
	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	conf, err := configs.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sinks, analytics, closeSinks, err := buildSinks(ctx, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	resolver, err := buildResolver(sinks.Analytics, sinks.KV, log)
	if err != nil {
		return err
	}

	price := priceservice.New(sinks.KV, sink.PriceTradeSink{PubSub: sinks.PubSub, KV: sinks.KV}, log)
	go price.StartPriceStream(ctx)

	reg := prometheus.NewRegistry()
	m := metrics.New(log, reg)
	serveMetrics(metricsAddr, reg, log)

	handler := swap.New(price, resolver, sinks, m, log)
	registry := processor.Default()

	ds, err := buildDatasource(variant, log)
	if err != nil {
		return err
	}

	p := pipeline.Build(ds, registry, handler, conf.Node.PipelineChannelBufferSize, conf.Strategy(), log)
	log.Info("starting pipeline node", zap.String("variant", variant))

	runErr := p.Run(ctx)
	if runErr != nil && runErr != context.Canceled {
		log.Error("pipeline exited with error", zap.Error(runErr))
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := analytics.Flush(flushCtx); err != nil {
		log.Warn("final analytics flush failed", zap.Error(err))
	}
	return nil
}

func runScheduler(ctx context.Context, configPath string) error {
	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	conf, err := configs.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	chConf, err := configs.LoadClickHouseConfig()
	if err != nil {
		return fmt.Errorf("load clickhouse config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := sink.Dial(ctx, chConf.URL, chConf.Database, chConf.User, chConf.Password)
	if err != nil {
		return fmt.Errorf("dial clickhouse: %w", err)
	}
	analytics := sink.NewAnalyticsStore(conn, log)

	sched := candlestick.New(analytics, log, conf.ShutdownTimeout())
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	log.Info("candlestick scheduler running")

	<-ctx.Done()
	log.Info("shutting down candlestick scheduler")
	sched.Stop()
	return nil
}

func buildSinks(ctx context.Context, log *zap.Logger) (sink.Sinks, *sink.AnalyticsStore, func(), error) {
	chConf, err := configs.LoadClickHouseConfig()
	if err != nil {
		return sink.Sinks{}, nil, nil, err
	}
	conn, err := sink.Dial(ctx, chConf.URL, chConf.Database, chConf.User, chConf.Password)
	if err != nil {
		return sink.Sinks{}, nil, nil, fmt.Errorf("dial clickhouse: %w", err)
	}
	analytics := sink.NewAnalyticsStore(conn, log)

	redisConf, err := configs.LoadRedisConfig()
	if err != nil {
		return sink.Sinks{}, nil, nil, err
	}
	kvClient, err := sink.NewRedisPool(redisConf.KVURL)
	if err != nil {
		return sink.Sinks{}, nil, nil, fmt.Errorf("dial redis kv: %w", err)
	}
	adapterClient, err := sink.NewRedisPool(redisConf.AdapterURL)
	if err != nil {
		return sink.Sinks{}, nil, nil, fmt.Errorf("dial redis pubsub: %w", err)
	}

	sinks := sink.Sinks{
		Analytics: analytics,
		KV:        sink.NewKVCache(kvClient),
		PubSub:    sink.NewPubSub(adapterClient),
	}

	closeFn := func() {
		_ = conn.Close()
		_ = kvClient.Close()
		_ = adapterClient.Close()
	}
	return sinks, analytics, closeFn, nil
}

func buildResolver(analytics *sink.AnalyticsStore, kv *sink.KVCache, log *zap.Logger) (*metadata.Resolver, error) {
	rpcConf, err := datasource.LoadRPCConfig()
	if err != nil {
		return nil, fmt.Errorf("load rpc config for metadata resolver: %w", err)
	}
	rpcClient := metadata.NewSolanaRPCClient(rpc.New(rpcConf.URL))
	return metadata.New(kv, analytics, rpcClient, log), nil
}

func buildDatasource(variant string, log *zap.Logger) (pipeline.Datasource, error) {
	switch variant {
	case "rpc":
		cfg, err := datasource.LoadRPCConfig()
		if err != nil {
			return nil, err
		}
		return datasource.NewRPCCrawler(cfg, nil, log), nil
	case "geyser":
		cfg, err := datasource.LoadGeyserConfig()
		if err != nil {
			return nil, err
		}
		return datasource.NewGeyserStream(cfg, nil, log), nil
	case "helius":
		cfg, err := datasource.LoadHeliusConfig()
		if err != nil {
			return nil, err
		}
		return datasource.NewHeliusStream(cfg, nil, log), nil
	default:
		return nil, fmt.Errorf("unknown datasource variant %q, want rpc|geyser|helius", variant)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
}
