package aggregate

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"poolsim/internal/model"
	"poolsim/internal/pool"
)

type memoryMetrics struct {
	calls   int
	metrics []model.PoolWindowMetrics
}

func (m *memoryMetrics) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	m.calls++
	m.metrics = append(m.metrics, metrics...)
	return nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// sampleEvents produces create@1000, swap A->B@1010, swap B->A@1100.
func sampleEvents(t *testing.T) []model.EventRecordJSON {
	t.Helper()
	now := time.Unix(1000, 0)
	engine := pool.NewEngine(pool.Options{Clock: func() time.Time { return now }})

	if _, err := engine.CreatePool(d("1000"), d("4800"), d("0.002"), d("0.001"), "admin"); err != nil {
		t.Fatalf("create: %v", err)
	}
	now = time.Unix(1010, 0)
	if _, err := engine.Swap(model.DirectionAToB, d("10"), d("1")); err != nil {
		t.Fatalf("swap a: %v", err)
	}
	now = time.Unix(1100, 0)
	if _, err := engine.Swap(model.DirectionBToA, d("48"), d("1")); err != nil {
		t.Fatalf("swap b: %v", err)
	}

	var out []model.EventRecordJSON
	for _, record := range engine.Events() {
		decoded, err := record.ToJSON()
		if err != nil {
			t.Fatalf("to json: %v", err)
		}
		out = append(out, decoded)
	}
	return out
}

func encodeLines(t *testing.T, records []model.EventRecordJSON) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return &buf
}

func TestAggregateWindows(t *testing.T) {
	records := sampleEvents(t)
	windows, err := Aggregate("A/B", records, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}

	first := windows[0]
	if first.WindowStart.Unix() != 960 || first.WindowEnd.Unix() != 1020 {
		t.Fatalf("window bounds mismatch: %s %s", first.WindowStart, first.WindowEnd)
	}
	if first.FirstSeq != 1 || first.LastSeq != 2 || first.SwapCount != 1 {
		t.Fatalf("first window counters mismatch: %+v", first)
	}
	if !first.VolumeA.Equal(d("10")) || !first.VolumeB.IsZero() {
		t.Fatalf("first window volume mismatch: %s %s", first.VolumeA, first.VolumeB)
	}
	if !first.FeeLPA.Equal(d("0.02")) || !first.FeeTeamA.Equal(d("0.01")) {
		t.Fatalf("first window fees mismatch: %s %s", first.FeeLPA, first.FeeTeamA)
	}
	if first.ReserveA == nil || !first.ReserveA.Equal(d("1009.99")) {
		t.Fatalf("closing reserve mismatch: %v", first.ReserveA)
	}
	if first.FeeRateA == nil || first.FeeRateB != nil {
		t.Fatalf("fee rates mismatch: %v %v", first.FeeRateA, first.FeeRateB)
	}
	if first.APR == nil || !first.APR.IsPositive() {
		t.Fatalf("expected positive apr, got %v", first.APR)
	}

	second := windows[1]
	if second.FirstSeq != 3 || second.SwapCount != 1 || second.Pool != "A/B" {
		t.Fatalf("second window mismatch: %+v", second)
	}
	if !second.VolumeB.Equal(d("48")) || !second.FeeLPB.Equal(d("0.096")) || !second.FeeTeamB.Equal(d("0.048")) {
		t.Fatalf("second window b side mismatch: %+v", second)
	}
}

func TestAggregatorResumesFromOpenWindow(t *testing.T) {
	records := sampleEvents(t)
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state.json"), Key: StateKey("A/B", 60)}
	store := &memoryMetrics{}
	agg := NewAggregator(Config{Pool: "A/B", WindowSeconds: 60, StateStore: state}, store, nil)

	if err := agg.RunReader(context.Background(), encodeLines(t, records)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(store.metrics) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(store.metrics))
	}

	seq, ok, err := state.Load(context.Background())
	if err != nil || !ok || seq != 2 {
		t.Fatalf("state mismatch: seq=%d ok=%v err=%v", seq, ok, err)
	}

	if err := agg.RunReader(context.Background(), encodeLines(t, records)); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(store.metrics) != 3 {
		t.Fatalf("second run should only recompute the open window, got %d", len(store.metrics))
	}
	if store.metrics[2].FirstSeq != 3 {
		t.Fatalf("recomputed window mismatch: %+v", store.metrics[2])
	}
}

func TestAggregatorSkipsBadLines(t *testing.T) {
	records := sampleEvents(t)
	input := encodeLines(t, records)
	input.WriteString("{broken\n")

	store := &memoryMetrics{}
	agg := NewAggregator(Config{WindowSeconds: 3600}, store, nil)
	if err := agg.RunReader(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.metrics) != 1 || store.metrics[0].SwapCount != 2 || store.metrics[0].Pool != "default" {
		t.Fatalf("unexpected metrics: %+v", store.metrics)
	}
}

func TestAggregatorRequiresWindow(t *testing.T) {
	agg := NewAggregator(Config{}, &memoryMetrics{}, nil)
	if err := agg.RunReader(context.Background(), &bytes.Buffer{}); err == nil {
		t.Fatalf("expected window error")
	}
}

func TestFileStateStoreKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	hourly := &FileStateStore{Path: path, Key: StateKey("A/B", 3600)}
	minutely := &FileStateStore{Path: path, Key: StateKey("A/B", 60)}
	ctx := context.Background()

	if err := hourly.Save(ctx, 10); err != nil {
		t.Fatalf("save hourly: %v", err)
	}
	if err := minutely.Save(ctx, 20); err != nil {
		t.Fatalf("save minutely: %v", err)
	}

	if seq, ok, _ := hourly.Load(ctx); !ok || seq != 10 {
		t.Fatalf("hourly mismatch: %d %v", seq, ok)
	}
	if seq, ok, _ := minutely.Load(ctx); !ok || seq != 20 {
		t.Fatalf("minutely mismatch: %d %v", seq, ok)
	}
}
