package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolsim/internal/config"
	"poolsim/internal/pool"
	"poolsim/internal/scenario"
	"poolsim/internal/storage"
)

func runScenario(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRun(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seed, err := fetchSeed(ctx, cfg.Seed, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	switch {
	case cfg.StartTime > 0:
		start = time.Unix(int64(cfg.StartTime), 0)
	case seed != nil && seed.BlockTimestampLast > 0:
		start = time.Unix(int64(seed.BlockTimestampLast), 0)
	}
	clock := scenario.NewSimClock(start)
	engine := pool.NewEngine(pool.Options{
		Logger:         logger.Named("engine"),
		Clock:          clock.Now,
		RatioTolerance: cfg.RatioTolerance,
	})

	out, err := openSinks(ctx, cfg.Sink)
	if err != nil {
		return err
	}
	defer out.Close()
	if len(out.events) == 0 {
		return fmt.Errorf("out or pg-dsn is required")
	}

	runCfg := scenario.RunConfig{
		BatchSize:    cfg.Sink.BatchSize,
		StopOnError:  cfg.StopOnError,
		MaxRetries:   cfg.Sink.MaxRetries,
		RetryBackoff: cfg.Sink.RetryBackoff,
	}

	if seed != nil {
		if _, err := seedPool(engine, seed, cfg.Seed); err != nil {
			return fmt.Errorf("seed pool: %w", err)
		}
		if err := out.recordSeed(ctx, seed); err != nil {
			return fmt.Errorf("store seed pair: %w", err)
		}
		// The seeding CREATE goes out before the runner's own batches.
		if err := scenario.NewExporter(runCfg, engine, out.events, logger).Flush(ctx); err != nil {
			return err
		}
	}

	runner := scenario.NewRunner(runCfg, engine, clock, out.events, logger)
	if cfg.Rejects != "" {
		runner.SetRejectSink(storage.NewJsonlStorage(cfg.Rejects))
	}

	logger.Info("scenario start",
		zap.String("input", cfg.Input),
		zap.String("out", cfg.Sink.Out),
		zap.String("pg_dsn", redactDSN(cfg.Sink.PGDSN)),
		zap.String("sim", cfg.Sink.Sim),
		zap.Int("batch_size", cfg.Sink.BatchSize),
		zap.Bool("stop_on_error", cfg.StopOnError),
		zap.Bool("seeded", seed != nil),
		zap.Time("start", start.UTC()),
	)

	summary, err := runner.RunFile(ctx, cfg.Input)
	if err != nil {
		return err
	}

	snapshot := engine.Snapshot()
	logger.Info("final pool",
		zap.String("reserve_a", snapshot.ReserveA.String()),
		zap.String("reserve_b", snapshot.ReserveB.String()),
		zap.String("total_shares", snapshot.TotalShares.String()),
		zap.String("protocol_earnings_a", snapshot.ProtocolEarningsA.String()),
		zap.String("protocol_earnings_b", snapshot.ProtocolEarningsB.String()),
		zap.Int("rejected", summary.Rejected),
	)
	return nil
}
