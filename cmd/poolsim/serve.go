package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolsim/internal/api"
	"poolsim/internal/config"
	"poolsim/internal/metrics"
	"poolsim/internal/pool"
	"poolsim/internal/scenario"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
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

	engine := pool.NewEngine(pool.Options{
		Logger:         logger.Named("engine"),
		RatioTolerance: cfg.RatioTolerance,
	})
	poolMetrics, err := metrics.New()
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	seed, err := fetchSeed(ctx, cfg.Seed, logger)
	if err != nil {
		return err
	}
	if seed != nil {
		res, err := seedPool(engine, seed, cfg.Seed)
		poolMetrics.Observe("create", err, engine.Snapshot())
		if err != nil {
			return fmt.Errorf("seed pool: %w", err)
		}
		logger.Info("pool seeded", zap.String("pair", seed.Pair), zap.String("total_shares", res.Pool.TotalShares.String()))
	}

	out, err := openSinks(ctx, cfg.Sink)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := out.recordSeed(ctx, seed); err != nil {
		return fmt.Errorf("store seed pair: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(engine, api.Options{
		Logger:  logger.Named("api"),
		Metrics: poolMetrics,
		Pool:    poolName(seed, cfg.Seed),
	})
	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listen", zap.String("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("http shutdown")
		return httpServer.Shutdown(shutdownCtx)
	})
	if len(out.events) > 0 {
		exporter := scenario.NewExporter(scenario.RunConfig{
			BatchSize:    cfg.Sink.BatchSize,
			MaxRetries:   cfg.Sink.MaxRetries,
			RetryBackoff: cfg.Sink.RetryBackoff,
		}, engine, out.events, logger.Named("export"))
		g.Go(func() error {
			return exporter.Run(gctx, cfg.FlushInterval)
		})
	}

	return g.Wait()
}
