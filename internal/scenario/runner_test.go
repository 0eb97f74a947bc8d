package scenario

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"poolsim/internal/model"
	"poolsim/internal/pool"
)

type memorySink struct {
	failures int
	calls    int
	records  []model.EventRecord
}

func (m *memorySink) PutEventBatch(ctx context.Context, records []model.EventRecord) error {
	m.calls++
	if m.failures > 0 {
		m.failures--
		return errors.New("sink unavailable")
	}
	m.records = append(m.records, records...)
	return nil
}

type memoryRejects struct {
	rejected []model.RejectedOperation
}

func (m *memoryRejects) PutRejected(ctx context.Context, rejected []model.RejectedOperation) error {
	m.rejected = append(m.rejected, rejected...)
	return nil
}

const exampleScenario = `
# seed the pool
{"op":"create","provider":"admin","amount_a":"1000","amount_b":"4800","fee_lp_rate":"0.002","fee_team_rate":"0.001","ts":1700000000}
{"op":"quote","direction":"a->b","amount_in":"10"}
{"op":"swap","direction":"A_TO_B","amount_in":"10","max_slippage":"1","ts":1700000060}
{"op":"swap","direction":"A_TO_B","amount_in":"500","max_slippage":"0.01","ts":1700000120}
{"op":"add","provider":"bob","amount_a":"100","amount_b":"480"}
{"op":"remove","provider":"carol","amount_a":"1","amount_b":"4.8"}
{"op":"quote_in","direction":"b_to_a","amount_out":"1"}
not json
`

func newTestRunner(cfg RunConfig, sink *memorySink) (*Runner, *pool.Engine, *SimClock) {
	clock := NewSimClock(time.Unix(1600000000, 0))
	engine := pool.NewEngine(pool.Options{Clock: clock.Now})
	return NewRunner(cfg, engine, clock, sink, nil), engine, clock
}

func TestRunnerReplay(t *testing.T) {
	sink := &memorySink{}
	runner, engine, _ := newTestRunner(RunConfig{BatchSize: 2}, sink)
	rejects := &memoryRejects{}
	runner.SetRejectSink(rejects)

	summary, err := runner.Run(context.Background(), strings.NewReader(exampleScenario))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Summary{Lines: 8, Applied: 3, Quotes: 2, Rejected: 3, LastSeq: 3}
	if summary != want {
		t.Fatalf("summary mismatch: %+v != %+v", summary, want)
	}

	if len(sink.records) != 3 {
		t.Fatalf("expected 3 stored events, got %d", len(sink.records))
	}
	kinds := []model.EventKind{model.EventCreate, model.EventSwap, model.EventAdd}
	for i, record := range sink.records {
		if record.Seq != uint64(i+1) || record.Kind != kinds[i] {
			t.Fatalf("event %d mismatch: seq=%d kind=%s", i, record.Seq, record.Kind)
		}
	}
	if sink.records[0].Timestamp != 1700000000 || sink.records[1].Timestamp != 1700000060 {
		t.Fatalf("timestamps not taken from ops: %d %d", sink.records[0].Timestamp, sink.records[1].Timestamp)
	}
	// The add line has no ts and keeps the clock at the rejected swap's ts.
	if sink.records[2].Timestamp != 1700000120 {
		t.Fatalf("add timestamp mismatch: %d", sink.records[2].Timestamp)
	}

	if len(rejects.rejected) != 3 {
		t.Fatalf("expected 3 rejected lines, got %+v", rejects.rejected)
	}
	if rejects.rejected[0].Line != 6 || !strings.Contains(rejects.rejected[0].Error, "slippage") {
		t.Fatalf("unexpected first rejection: %+v", rejects.rejected[0])
	}
	if rejects.rejected[1].Op != model.OpRemove || !strings.Contains(rejects.rejected[1].Error, "insufficient shares") {
		t.Fatalf("unexpected second rejection: %+v", rejects.rejected[1])
	}
	if rejects.rejected[2].Line != 10 || rejects.rejected[2].Op != "" {
		t.Fatalf("unexpected decode rejection: %+v", rejects.rejected[2])
	}

	if got := len(engine.Events()); got != 3 {
		t.Fatalf("engine events mismatch: %d", got)
	}
}

func TestRunnerStopOnError(t *testing.T) {
	sink := &memorySink{}
	runner, _, _ := newTestRunner(RunConfig{BatchSize: 100, StopOnError: true}, sink)

	summary, err := runner.Run(context.Background(), strings.NewReader(exampleScenario))
	if !errors.Is(err, pool.ErrSlippageExceeded) {
		t.Fatalf("expected slippage error, got %v", err)
	}
	if summary.Applied != 2 || summary.Rejected != 1 {
		t.Fatalf("summary mismatch: %+v", summary)
	}
	if len(sink.records) != 2 {
		t.Fatalf("pending events must be flushed before stopping, got %d", len(sink.records))
	}
}

func TestRunnerRetriesSink(t *testing.T) {
	sink := &memorySink{failures: 2}
	runner, _, _ := newTestRunner(RunConfig{BatchSize: 10, MaxRetries: 2, RetryBackoff: time.Millisecond}, sink)

	if _, err := runner.Run(context.Background(), strings.NewReader(exampleScenario)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sink.calls != 3 || len(sink.records) != 3 {
		t.Fatalf("expected 3 calls and 3 records, got %d calls %d records", sink.calls, len(sink.records))
	}
}

func TestRunnerSinkExhausted(t *testing.T) {
	sink := &memorySink{failures: 5}
	runner, _, _ := newTestRunner(RunConfig{BatchSize: 10, MaxRetries: 1, RetryBackoff: time.Millisecond}, sink)

	if _, err := runner.Run(context.Background(), strings.NewReader(exampleScenario)); err == nil {
		t.Fatalf("expected error when sink keeps failing")
	}
}

func TestRunnerValidatesConfig(t *testing.T) {
	runner, _, _ := newTestRunner(RunConfig{}, &memorySink{})
	if _, err := runner.Run(context.Background(), strings.NewReader("")); err == nil {
		t.Fatalf("expected batch size error")
	}
}

func TestSimClockNeverMovesBackwards(t *testing.T) {
	clock := NewSimClock(time.Unix(100, 0))
	if !clock.Advance(200) {
		t.Fatalf("forward advance rejected")
	}
	if clock.Advance(150) {
		t.Fatalf("backward advance accepted")
	}
	if got := clock.Now().Unix(); got != 200 {
		t.Fatalf("clock mismatch: %d", got)
	}
}
