package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"

	"staking_tracker/internal/bootstrap"
	"staking_tracker/internal/infrastructure/configloader"
	"staking_tracker/internal/infrastructure/walletloader"
	"staking_tracker/internal/pkg/logger"
	"staking_tracker/internal/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type runOptions struct {
	walletsPath string
	rpcURL      string
	batchSize   int
	configPath  string
	outPath     string
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Aggregate a staking snapshot for every wallet in a list and print it as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSnapshot(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.walletsPath, "wallets", "wallets.json", "wallet list (JSON array or {items})")
	cmd.Flags().StringVar(&opts.rpcURL, "rpc", "", "RPC endpoint; defaults to the configured network URL")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "wallets per batch; defaults to engine.batchSize")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML config file")
	cmd.Flags().StringVar(&opts.outPath, "out", "", "write the result to this file instead of stdout")
	return cmd
}

func runSnapshot(parent context.Context, opts *runOptions) error {
	cfg, err := configloader.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.rpcURL != "" {
		cfg.RPC.URL = opts.rpcURL
	}
	batchSize := cfg.Engine.BatchSize
	if opts.batchSize != 0 {
		batchSize = opts.batchSize
	}

	zapLogger, err := newZapLogger(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer zapLogger.Sync()
	logger.SetLogger(slog.New(zapslog.NewHandler(zapLogger.Core())))
	appLogger := logger.NewSlogAdapter()

	wallets, err := walletloader.NewLoader(appLogger).LoadFile(opts.walletsPath)
	if err != nil {
		return err
	}

	engine, err := bootstrap.BuildEngine(cfg, appLogger, metrics.New())
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshots, runErr := engine.Scheduler.Run(ctx, wallets, batchSize, opts.rpcURL)
	if snapshots == nil {
		return runErr
	}

	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshots: %w", err)
	}
	if opts.outPath == "" {
		fmt.Println(string(data))
	} else if err := os.WriteFile(opts.outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.outPath, err)
	}
	return runErr
}

// newZapLogger logs to stderr so stdout carries only the JSON result.
func newZapLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	lvl, _ := logger.ParseLevel(level)
	switch {
	case lvl <= slog.LevelDebug:
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case lvl <= slog.LevelInfo:
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case lvl <= slog.LevelWarn:
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	default:
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}
	return zcfg.Build()
}
