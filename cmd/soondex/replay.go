package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"soondex/internal/config"
	"soondex/internal/dex"
	"soondex/internal/exchange"
	"soondex/internal/metrics"
	"soondex/internal/replay"
	"soondex/internal/storage"
	"soondex/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	xcfg, err := exchangeConfig(cfg)
	if err != nil {
		return err
	}
	runCfg := replay.RunConfig{
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}
	if cfg.ProgramID != "" {
		if runCfg.ProgramID, err = replay.ParsePublicKey("program-id", cfg.ProgramID); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := storage.NewJsonlStorage(cfg.Out)
	m := metrics.New()
	out := replay.Outputs{Events: events, Metrics: m}
	if cfg.Errors != "" {
		out.Errors = storage.NewJsonlStorage(cfg.Errors)
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		out.Events = storage.Multi{events, store}
		out.State = store
		if cfg.CheckpointEnabled && cfg.Checkpoint == "" {
			out.Checkpoint = replay.StateCheckpoint{Store: store, Name: "replay"}
		}
	}
	if cfg.CheckpointEnabled && cfg.Checkpoint != "" {
		out.Checkpoint = replay.NewCheckpointStore(cfg.Checkpoint)
	}

	runner, err := replay.NewRunner(runCfg, xcfg, out, logger)
	if err != nil {
		return err
	}

	input, err := os.Open(cfg.Input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer input.Close()

	logger.Info("replay start",
		zap.String("in", cfg.Input),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	summary, err := runner.Run(ctx, input)
	if err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	logger.Info("replay complete",
		zap.Uint64("lines", summary.Lines),
		zap.Uint64("resumed", summary.Resumed),
		zap.Uint64("applied", summary.Applied),
		zap.Uint64("failed", summary.Failed),
		zap.Uint64("events", summary.Events),
		zap.Uint64("sequence", summary.Sequence),
	)
	return nil
}

func exchangeConfig(cfg config.ReplayConfig) (exchange.Config, error) {
	xcfg := exchange.DefaultConfig()
	xcfg.Params = dex.Params{
		MaxFeeRate:        cfg.MaxFeeRate,
		MaxRewardRate:     cfg.MaxRewardRate,
		RatioToleranceBps: cfg.RatioToleranceBps,
		VolumeWindow:      cfg.VolumeWindow,
		MaxOpenOrders:     cfg.MaxOpenOrders,
	}
	xcfg.DefaultRewardRate = cfg.DefaultRewardRate
	xcfg.ProtocolFee = cfg.ProtocolFee

	var err error
	if cfg.ProtocolFeeMint != "" {
		if xcfg.ProtocolFeeMint, err = replay.ParsePublicKey("protocol-fee-mint", cfg.ProtocolFeeMint); err != nil {
			return xcfg, err
		}
	}
	if cfg.ProtocolWallet != "" {
		if xcfg.ProtocolWallet, err = replay.ParsePublicKey("protocol-wallet", cfg.ProtocolWallet); err != nil {
			return xcfg, err
		}
	}
	return xcfg, nil
}
