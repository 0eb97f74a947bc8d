package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"poolsim/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	sink := NewJsonlStorage(path)
	ctx := context.Background()

	first := []model.EventRecord{
		{Seq: 1, Kind: model.EventCreate, Provider: "admin", Timestamp: 10, Data: model.CreateEventData{}},
	}
	second := []model.EventRecord{
		{Seq: 2, Kind: model.EventSwap, Timestamp: 20, Data: model.SwapEventData{Direction: model.DirectionAToB}},
	}
	if err := sink.PutEventBatch(ctx, first); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := sink.PutEventBatch(ctx, nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if err := sink.PutEventBatch(ctx, second); err != nil {
		t.Fatalf("second batch: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	var decoded []model.EventRecordJSON
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record model.EventRecordJSON
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		decoded = append(decoded, record)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(decoded))
	}
	if decoded[0].Provider != "admin" || decoded[1].Seq != 2 {
		t.Fatalf("unexpected records: %+v", decoded)
	}
	swap, err := decoded[1].SwapData()
	if err != nil {
		t.Fatalf("swap data: %v", err)
	}
	if swap.Direction != model.DirectionAToB {
		t.Fatalf("direction mismatch: %s", swap.Direction)
	}
}

func TestJsonlStorageCanceledContext(t *testing.T) {
	sink := NewJsonlStorage(filepath.Join(t.TempDir(), "events.jsonl"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sink.PutEventBatch(ctx, []model.EventRecord{{Seq: 1}})
	if err == nil {
		t.Fatalf("expected context error")
	}
	if _, statErr := os.Stat(sink.Path()); !os.IsNotExist(statErr) {
		t.Fatalf("nothing should be written after cancel")
	}
}
