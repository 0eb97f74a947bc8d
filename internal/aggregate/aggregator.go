// Package aggregate folds pool event records into fixed time windows of swap
// volume, fees, closing TVL and APR.
package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"poolsim/internal/model"
	"poolsim/internal/storage"
)

// Config controls aggregation behavior.
type Config struct {
	Pool          string
	WindowSeconds uint64
	BatchSize     int
	// RecomputeFrom restarts from this seq, ignoring saved state.
	RecomputeFrom uint64
	StateStore    StateStore
}

// Aggregator aggregates event records into pool window metrics.
type Aggregator struct {
	cfg    Config
	store  storage.MetricsStore
	logger *zap.Logger
	acc    *Accumulator
}

func NewAggregator(cfg Config, store storage.MetricsStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Pool == "" {
		cfg.Pool = "default"
	}

	return &Aggregator{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

// Run executes aggregation over an events JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return a.RunReader(ctx, file)
}

// RunReader executes aggregation over events read from input.
func (a *Aggregator) RunReader(ctx context.Context, input io.Reader) error {
	if a.store == nil {
		return fmt.Errorf("store is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startSeq, err := a.loadStartSeq(ctx)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(input)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	var total, windows, skipped, failed int
	a.acc = nil

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.EventRecordJSON
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			a.logger.Warn("decode event", zap.Error(err))
			continue
		}
		if record.Seq <= startSeq {
			skipped++
			continue
		}

		if closed := a.add(record, &failed); closed != nil {
			batch = append(batch, *closed)
			windows++
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	resumeFrom := startSeq
	if a.acc != nil {
		batch = append(batch, a.acc.Metrics(a.cfg.WindowSeconds))
		windows++
		// The last window may still grow; the next run recomputes it.
		resumeFrom = a.acc.FirstSeq - 1
		a.acc = nil
	}
	if len(batch) > 0 {
		if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}
	if err := a.save(ctx, resumeFrom); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Uint64("resume_from_seq", resumeFrom),
	)

	return nil
}

// add folds record into the open window and returns the metrics of the window
// it closed, if any.
func (a *Aggregator) add(record model.EventRecordJSON, failed *int) *model.PoolWindowMetrics {
	start := windowStart(record.Timestamp, a.cfg.WindowSeconds)
	end := start + a.cfg.WindowSeconds

	var closed *model.PoolWindowMetrics
	switch {
	case a.acc == nil:
		a.acc = NewAccumulator(a.cfg.Pool, record, start, end)
	case a.acc.WindowStart != start:
		metrics := a.acc.Metrics(a.cfg.WindowSeconds)
		closed = &metrics
		a.acc = NewAccumulator(a.cfg.Pool, record, start, end)
	}

	if err := a.acc.AddEvent(record); err != nil {
		*failed++
		a.logger.Warn("aggregate event", zap.Error(err), zap.Uint64("seq", record.Seq), zap.String("kind", string(record.Kind)))
	}
	return closed
}

func (a *Aggregator) loadStartSeq(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

// saveState persists progress while a window is still open: everything
// before the open window is final.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.acc == nil {
		return nil
	}
	return a.save(ctx, a.acc.FirstSeq-1)
}

func (a *Aggregator) save(ctx context.Context, seq uint64) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	return a.cfg.StateStore.Save(ctx, seq)
}

// Aggregate computes window metrics for records already in memory, ordered
// by seq.
func Aggregate(pool string, records []model.EventRecordJSON, windowSeconds uint64) ([]model.PoolWindowMetrics, error) {
	if windowSeconds == 0 {
		return nil, fmt.Errorf("window seconds must be > 0")
	}
	var (
		out []model.PoolWindowMetrics
		acc *Accumulator
	)
	for _, record := range records {
		start := windowStart(record.Timestamp, windowSeconds)
		if acc == nil || acc.WindowStart != start {
			if acc != nil {
				out = append(out, acc.Metrics(windowSeconds))
			}
			acc = NewAccumulator(pool, record, start, start+windowSeconds)
		}
		if err := acc.AddEvent(record); err != nil {
			return nil, err
		}
	}
	if acc != nil {
		out = append(out, acc.Metrics(windowSeconds))
	}
	return out, nil
}
