// Package scenario replays JSONL operation files against a pool engine and
// streams the resulting events to storage.
package scenario

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"poolsim/internal/model"
	"poolsim/internal/pool"
	"poolsim/internal/storage"
)

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	BatchSize    int
	StopOnError  bool
	MaxRetries   int
	RetryBackoff time.Duration
}

// RejectSink receives operations the engine refused.
type RejectSink interface {
	PutRejected(ctx context.Context, rejected []model.RejectedOperation) error
}

// Observer is notified after every applied or rejected operation.
type Observer interface {
	Observe(op string, err error, snapshot model.PoolSnapshot)
}

// Summary counts what a replay did.
type Summary struct {
	Lines    int    `json:"lines"`
	Applied  int    `json:"applied"`
	Quotes   int    `json:"quotes"`
	Rejected int    `json:"rejected"`
	LastSeq  uint64 `json:"last_seq"`
}

// Runner applies operations to an engine and writes events to storage.
type Runner struct {
	cfg      RunConfig
	engine   *pool.Engine
	clock    *SimClock
	storage  storage.Storage
	rejects  RejectSink
	observer Observer
	logger   *zap.Logger

	pending  []model.EventRecord
	rejected []model.RejectedOperation
}

// NewRunner builds a Runner. clock may be nil when operations carry no
// timestamps and the engine uses its own clock.
func NewRunner(cfg RunConfig, engine *pool.Engine, clock *SimClock, storageSink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		engine:  engine,
		clock:   clock,
		storage: storageSink,
		logger:  logger,
	}
}

func (r *Runner) SetRejectSink(sink RejectSink) {
	r.rejects = sink
}

func (r *Runner) SetObserver(observer Observer) {
	r.observer = observer
}

// RunFile replays the operations in path.
func (r *Runner) RunFile(ctx context.Context, path string) (Summary, error) {
	file, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return r.Run(ctx, file)
}

// Run replays one operation per line of input. Blank lines and lines starting
// with '#' are skipped.
func (r *Runner) Run(ctx context.Context, input io.Reader) (Summary, error) {
	var summary Summary
	if r.engine == nil {
		return summary, fmt.Errorf("engine is nil")
	}
	if r.storage == nil {
		return summary, fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize <= 0 {
		return summary, fmt.Errorf("batch size must be greater than zero")
	}

	scanner := bufio.NewScanner(input)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		summary.Lines++

		var op model.Operation
		if err := json.Unmarshal(line, &op); err != nil {
			if stop := r.reject(ctx, &summary, lineNo, "", fmt.Errorf("decode operation: %w", err)); stop != nil {
				return summary, stop
			}
			continue
		}

		if op.Timestamp > 0 && r.clock != nil && !r.clock.Advance(op.Timestamp) {
			r.logger.Warn("timestamp went backwards, keeping clock",
				zap.Int("line", lineNo),
				zap.Uint64("ts", op.Timestamp),
				zap.Time("clock", r.clock.Now()),
			)
		}

		outcome, err := Apply(r.engine, op)
		if r.observer != nil {
			r.observer.Observe(op.Op, err, r.engine.Snapshot())
		}
		if err != nil {
			if stop := r.reject(ctx, &summary, lineNo, op.Op, err); stop != nil {
				return summary, stop
			}
			continue
		}

		if outcome.Quote != nil {
			summary.Quotes++
			r.logger.Info("quote",
				zap.Int("line", lineNo),
				zap.String("op", op.Op),
				zap.String("direction", string(op.Direction)),
				zap.String("amount_in", outcome.Quote.AmountIn.String()),
				zap.String("amount_out", outcome.Quote.AmountOut.String()),
				zap.String("slippage", outcome.Quote.Slippage.String()),
			)
			continue
		}

		summary.Applied++
		summary.LastSeq = outcome.Result.Event.Seq
		r.pending = append(r.pending, outcome.Result.Event)
		if len(r.pending) >= r.cfg.BatchSize {
			if err := r.flush(ctx); err != nil {
				return summary, err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("scan input: %w", err)
	}
	if err := r.flush(ctx); err != nil {
		return summary, err
	}

	r.logger.Info("scenario complete",
		zap.Int("lines", summary.Lines),
		zap.Int("applied", summary.Applied),
		zap.Int("quotes", summary.Quotes),
		zap.Int("rejected", summary.Rejected),
		zap.Uint64("last_seq", summary.LastSeq),
	)
	return summary, nil
}

// reject records a refused line. It returns a non-nil error when the replay
// must stop.
func (r *Runner) reject(ctx context.Context, summary *Summary, lineNo int, op string, cause error) error {
	summary.Rejected++
	r.logger.Warn("operation rejected",
		zap.Int("line", lineNo),
		zap.String("op", op),
		zap.String("code", pool.Code(cause)),
		zap.Error(cause),
	)
	r.rejected = append(r.rejected, model.RejectedOperation{Line: lineNo, Op: op, Error: cause.Error()})

	if !r.cfg.StopOnError {
		if len(r.rejected) >= r.cfg.BatchSize {
			return r.flush(ctx)
		}
		return nil
	}
	if err := r.flush(ctx); err != nil {
		return err
	}
	return fmt.Errorf("line %d: %w", lineNo, cause)
}

func (r *Runner) flush(ctx context.Context) error {
	if len(r.pending) > 0 {
		err := r.cfg.retry(ctx, r.logger, "store events", func(ctx context.Context) error {
			return r.storage.PutEventBatch(ctx, r.pending)
		})
		if err != nil {
			return fmt.Errorf("store events: %w", err)
		}
		r.logger.Debug("batch complete",
			zap.Int("events", len(r.pending)),
			zap.Uint64("from_seq", r.pending[0].Seq),
			zap.Uint64("to_seq", r.pending[len(r.pending)-1].Seq),
		)
		r.pending = r.pending[:0]
	}

	if len(r.rejected) > 0 {
		if r.rejects != nil {
			err := r.cfg.retry(ctx, r.logger, "store rejected", func(ctx context.Context) error {
				return r.rejects.PutRejected(ctx, r.rejected)
			})
			if err != nil {
				return fmt.Errorf("store rejected: %w", err)
			}
		}
		r.rejected = r.rejected[:0]
	}
	return nil
}
