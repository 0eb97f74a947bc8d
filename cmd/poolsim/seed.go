package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"poolsim/internal/chain"
	"poolsim/internal/config"
	"poolsim/internal/dex"
	"poolsim/internal/model"
	"poolsim/internal/pool"
	"poolsim/internal/storage"
	"poolsim/internal/storage/postgres"
)

// fetchSeed reads the configured pair. It returns nil when seeding is off.
func fetchSeed(ctx context.Context, cfg config.SeedConfig, logger *zap.Logger) (*model.PairSnapshot, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	pair, err := dex.ParsePairAddress(cfg.Pair)
	if err != nil {
		return nil, err
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	snapshot, err := dex.FetchPairSnapshot(ctx, chainClient, pair, cfg.Block, dex.NewTokenMetaCache(), logger)
	if err != nil {
		return nil, fmt.Errorf("fetch pair: %w", err)
	}
	return &snapshot, nil
}

// seedPool creates the pool from a pair snapshot.
func seedPool(engine *pool.Engine, snapshot *model.PairSnapshot, cfg config.SeedConfig) (pool.Result, error) {
	amountA, amountB := snapshot.Reserve0, snapshot.Reserve1
	if cfg.Invert {
		amountA, amountB = amountB, amountA
	}
	return engine.CreatePool(amountA, amountB, cfg.FeeLPRate, cfg.FeeTeamRate, cfg.Provider)
}

// poolName labels the pool by token symbols when seeded.
func poolName(snapshot *model.PairSnapshot, cfg config.SeedConfig) string {
	if snapshot == nil || snapshot.Token0.Symbol == "" || snapshot.Token1.Symbol == "" {
		return "default"
	}
	if cfg.Invert {
		return snapshot.Token1.Symbol + "/" + snapshot.Token0.Symbol
	}
	return snapshot.Token0.Symbol + "/" + snapshot.Token1.Symbol
}

// sinks bundles the configured event outputs.
type sinks struct {
	events storage.Multi
	store  *postgres.Store
}

func openSinks(ctx context.Context, cfg config.SinkConfig) (*sinks, error) {
	s := &sinks{}
	if cfg.Out != "" {
		s.events = append(s.events, storage.NewJsonlStorage(cfg.Out))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN, cfg.Sim)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.store = store
		s.events = append(s.events, store)
	}
	return s, nil
}

func (s *sinks) Close() {
	if s.store != nil {
		s.store.Close()
	}
}

// recordSeed stores the pair a simulation started from.
func (s *sinks) recordSeed(ctx context.Context, snapshot *model.PairSnapshot) error {
	if s.store == nil || snapshot == nil {
		return nil
	}
	return s.store.UpsertPair(ctx, *snapshot)
}
