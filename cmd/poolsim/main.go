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
		Use:          "poolsim",
		Short:        "Constant-product liquidity pool simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a JSONL operation file against a fresh pool",
		RunE:  runScenario,
	}

	runCmd.Flags().String("in", "", "input operations JSONL")
	runCmd.Flags().String("rejects", "", "optional JSONL path for rejected operations")
	runCmd.Flags().Bool("stop-on-error", false, "stop at the first rejected operation")
	runCmd.Flags().String("start", "", "simulation start time (unix seconds or RFC3339), default now")
	runCmd.Flags().String("ratio-tolerance", "0.000001", "relative liquidity ratio deviation that triggers a warning")
	addSinkFlags(runCmd)
	addSeedFlags(runCmd)
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a pool over HTTP",
		RunE:  runServe,
	}

	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().Duration("flush-interval", 2*time.Second, "how often new events are exported")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	serveCmd.Flags().String("ratio-tolerance", "0.000001", "relative liquidity ratio deviation that triggers a warning")
	addSinkFlags(serveCmd)
	addSeedFlags(serveCmd)
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap against given reserves without a pool",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("reserve-in", "", "reserve of the asset sold")
	quoteCmd.Flags().String("reserve-out", "", "reserve of the asset bought")
	quoteCmd.Flags().String("amount-in", "", "amount sold (forward quote)")
	quoteCmd.Flags().String("amount-out", "", "amount wanted (reverse quote)")
	quoteCmd.Flags().String("fee-lp", "0.0025", "LP fee rate")
	quoteCmd.Flags().String("fee-team", "0.0005", "team fee rate")

	root.AddCommand(quoteCmd)

	forkCmd := &cobra.Command{
		Use:   "fork",
		Short: "Read an on-chain V2 pair snapshot",
		RunE:  runFork,
	}

	forkCmd.Flags().String("out", "", "optional JSON output path, default stdout")
	forkCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	forkCmd.Flags().String("sim", "default", "simulation name for stored rows")
	addSeedFlags(forkCmd)
	forkCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(forkCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate pool events into window metrics",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("in", "", "input events JSONL")
	aggregateCmd.Flags().String("out", "", "output metrics JSONL")
	aggregateCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().String("pool", "default", "pool name stored with each window")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().String("sim", "default", "simulation name for stored rows")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for metric writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().Uint64("recompute-from", 0, "recompute from event seq, ignoring saved state")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(aggregateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSinkFlags(cmd *cobra.Command) {
	cmd.Flags().String("out", "", "output events JSONL")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("sim", "default", "simulation name for stored rows")
	cmd.Flags().Int("batch-size", 500, "events per storage write")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
}

func addSeedFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "EVM RPC URL for pair seeding")
	cmd.Flags().String("pair", "", "Uniswap V2 compatible pair address")
	cmd.Flags().Uint64("block", 0, "block to read the pair at, 0 means latest")
	cmd.Flags().Bool("invert", false, "map token1 to asset A and token0 to asset B")
	cmd.Flags().String("fee-lp", "0.0025", "LP fee rate of the seeded pool")
	cmd.Flags().String("fee-team", "0.0005", "team fee rate of the seeded pool")
	cmd.Flags().String("seed-provider", "seed", "provider credited with the seeded liquidity")
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
