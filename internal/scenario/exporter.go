package scenario

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"poolsim/internal/pool"
	"poolsim/internal/storage"
)

// Exporter copies new engine events to storage. It serves long-running
// engines that are driven by something other than a Runner. Flush, Run and
// LastSeq may be called from different goroutines.
type Exporter struct {
	cfg     RunConfig
	engine  *pool.Engine
	storage storage.Storage
	logger  *zap.Logger

	// mu serializes flushes and guards lastSeq.
	mu      sync.Mutex
	lastSeq uint64
}

func NewExporter(cfg RunConfig, engine *pool.Engine, storageSink storage.Storage, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		cfg:     cfg,
		engine:  engine,
		storage: storageSink,
		logger:  logger,
	}
}

// LastSeq returns the seq of the last exported event.
func (e *Exporter) LastSeq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSeq
}

// Flush writes every event recorded since the previous flush, in batches of
// BatchSize.
func (e *Exporter) Flush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	events := e.engine.EventsSince(e.lastSeq)
	batchSize := e.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(events)
	}

	for len(events) > 0 {
		n := batchSize
		if n > len(events) {
			n = len(events)
		}
		batch := events[:n]
		err := e.cfg.retry(ctx, e.logger, "export events", func(ctx context.Context) error {
			return e.storage.PutEventBatch(ctx, batch)
		})
		if err != nil {
			return fmt.Errorf("export events: %w", err)
		}
		e.lastSeq = batch[len(batch)-1].Seq
		events = events[n:]
	}
	return nil
}

// Run flushes every interval until ctx is done, then flushes once more with
// a fresh context so events recorded before shutdown are kept.
func (e *Exporter) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("export interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return e.Flush(final)
		case <-ticker.C:
			if err := e.Flush(ctx); err != nil {
				return err
			}
		}
	}
}
