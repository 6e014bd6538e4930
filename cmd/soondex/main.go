package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "soondex",
		Short:        "Hybrid AMM and order book pool engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply an instruction script and write pool events",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input instructions JSONL")
	replayCmd.Flags().String("out", "./data/events.jsonl", "output events JSONL")
	replayCmd.Flags().String("errors", "./data/replay_errors.jsonl", "rejected instructions JSONL")
	replayCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path, empty to keep it in Postgres")
	replayCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	replayCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for events, pools and snapshots")
	replayCmd.Flags().Uint64("batch-size", 500, "instructions per batch")
	replayCmd.Flags().Int("max-retries", 5, "maximum retry attempts for sink writes")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile after the run")
	replayCmd.Flags().String("program-id", "", "program id pool addresses are derived under")
	replayCmd.Flags().Uint64("default-reward-rate", 1, "reward rate of new pools")
	replayCmd.Flags().Uint64("protocol-fee", 0, "fee charged to pool creators")
	replayCmd.Flags().String("protocol-fee-mint", "", "mint the protocol fee is charged in (default wrapped SOL)")
	replayCmd.Flags().String("protocol-wallet", "", "account receiving protocol fees")
	replayCmd.Flags().Uint64("max-fee-rate", 5_000, "maximum pool fee in basis points")
	replayCmd.Flags().Uint64("max-reward-rate", 10_000, "maximum staking reward rate")
	replayCmd.Flags().Uint64("ratio-tolerance-bps", 100, "add-liquidity ratio tolerance in basis points")
	replayCmd.Flags().Int64("volume-window", 86_400, "rolling volume window in seconds")
	replayCmd.Flags().Int("max-open-orders", 1_000, "open orders allowed per pool")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate pool events into window metrics",
		RunE:  runReport,
	}

	reportCmd.Flags().String("in", "", "input events JSONL")
	reportCmd.Flags().String("window", "1h", "aggregation window (e.g. 5m, 1h, 24h)")
	reportCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	reportCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	reportCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	reportCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	reportCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(reportCmd)

	deriveCmd := &cobra.Command{
		Use:   "derive",
		Short: "Print pool, vault and user state addresses",
		RunE:  runDerive,
	}

	deriveCmd.Flags().String("program-id", "", "program id (default built-in)")
	deriveCmd.Flags().StringSlice("mint", nil, "the two mints of the pair (comma-separated)")
	deriveCmd.Flags().StringSlice("owner", nil, "owners to derive user state addresses for")

	root.AddCommand(deriveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
