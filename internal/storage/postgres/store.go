package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolsim/internal/model"
)

// Store provides Postgres persistence for pool events, window metrics and
// seeded pairs. Every row is keyed by a simulation name so several runs can
// share one database.
type Store struct {
	pool *pgxpool.Pool
	sim  string
}

func NewStore(ctx context.Context, dsn, sim string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if sim == "" {
		sim = "default"
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, sim: sim}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutEventBatch inserts event records. Re-inserting a seq is a no-op, so a
// retried batch never duplicates rows.
func (s *Store) PutEventBatch(ctx context.Context, records []model.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range records {
		data, err := json.Marshal(record.Data)
		if err != nil {
			return fmt.Errorf("marshal event %d: %w", record.Seq, err)
		}
		batch.Queue(`
			INSERT INTO pool_events (
				sim, seq, kind, provider, event_ts, data,
				reserve_a, reserve_b, total_shares, earnings_a, earnings_b, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
			ON CONFLICT (sim, seq) DO NOTHING
		`,
			s.sim,
			int64(record.Seq),
			string(record.Kind),
			record.Provider,
			time.Unix(int64(record.Timestamp), 0).UTC(),
			data,
			record.Pool.ReserveA,
			record.Pool.ReserveB,
			record.Pool.TotalShares,
			record.Pool.ProtocolEarningsA,
			record.Pool.ProtocolEarningsB,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPair inserts or updates the on-chain pair a simulation was seeded from.
func (s *Store) UpsertPair(ctx context.Context, pair model.PairSnapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO seeded_pairs (
			sim, chain_id, pair_address, token0, token1, symbol0, symbol1,
			reserve0, reserve1, block_number, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())
		ON CONFLICT (sim)
		DO UPDATE SET
			chain_id = EXCLUDED.chain_id,
			pair_address = EXCLUDED.pair_address,
			token0 = EXCLUDED.token0,
			token1 = EXCLUDED.token1,
			symbol0 = EXCLUDED.symbol0,
			symbol1 = EXCLUDED.symbol1,
			reserve0 = EXCLUDED.reserve0,
			reserve1 = EXCLUDED.reserve1,
			block_number = EXCLUDED.block_number,
			updated_at = now()
	`,
		s.sim,
		int64(pair.ChainID),
		pair.Pair,
		pair.Token0.Address,
		pair.Token1.Address,
		pair.Token0.Symbol,
		pair.Token1.Symbol,
		pair.Reserve0,
		pair.Reserve1,
		int64(pair.BlockNumber),
	)
	return err
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				sim, pool, window_size_seconds, window_start_ts, window_end_ts,
				first_seq, last_seq, swap_count, volume_a, volume_b,
				fee_lp_a, fee_lp_b, fee_team_a, fee_team_b,
				reserve_a, reserve_b, fee_rate_a, fee_rate_b, apr, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,now(),now())
			ON CONFLICT (sim, pool, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				first_seq = LEAST(pool_window_metrics.first_seq, EXCLUDED.first_seq),
				last_seq = EXCLUDED.last_seq,
				swap_count = EXCLUDED.swap_count,
				volume_a = EXCLUDED.volume_a,
				volume_b = EXCLUDED.volume_b,
				fee_lp_a = EXCLUDED.fee_lp_a,
				fee_lp_b = EXCLUDED.fee_lp_b,
				fee_team_a = EXCLUDED.fee_team_a,
				fee_team_b = EXCLUDED.fee_team_b,
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				fee_rate_a = EXCLUDED.fee_rate_a,
				fee_rate_b = EXCLUDED.fee_rate_b,
				apr = EXCLUDED.apr,
				updated_at = now()
		`,
			s.sim,
			m.Pool,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.FirstSeq),
			int64(m.LastSeq),
			int64(m.SwapCount),
			m.VolumeA,
			m.VolumeB,
			m.FeeLPA,
			m.FeeLPB,
			m.FeeTeamA,
			m.FeeTeamB,
			m.ReserveA,
			m.ReserveB,
			m.FeeRateA,
			m.FeeRateB,
			m.APR,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last processed event seq for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var seq int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_seq FROM aggregate_state WHERE sim=$1 AND name=$2`, s.sim, name)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(seq), true, nil
}

// SaveState upserts the last processed event seq for a name.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO aggregate_state (sim, name, last_processed_seq, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (sim, name) DO UPDATE
		SET last_processed_seq = EXCLUDED.last_processed_seq, updated_at = now()
	`, s.sim, name, int64(seq))
	return err
}
