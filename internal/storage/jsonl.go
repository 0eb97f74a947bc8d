package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"poolsim/internal/model"
)

// JsonlStorage appends records to a JSONL file. It serves as both an event
// sink and a metrics sink.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

func (s *JsonlStorage) Path() string {
	return s.path
}

// PutEventBatch appends a batch of event records as JSON lines.
func (s *JsonlStorage) PutEventBatch(ctx context.Context, records []model.EventRecord) error {
	return writeLines(ctx, s, len(records), func(i int) interface{} { return records[i] })
}

// UpsertWindowMetrics appends window metrics as JSON lines. A JSONL file has
// no keys, so later lines for the same window supersede earlier ones.
func (s *JsonlStorage) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	return writeLines(ctx, s, len(metrics), func(i int) interface{} { return metrics[i] })
}

// PutRejected appends rejected scenario lines.
func (s *JsonlStorage) PutRejected(ctx context.Context, rejected []model.RejectedOperation) error {
	return writeLines(ctx, s, len(rejected), func(i int) interface{} { return rejected[i] })
}

func writeLines(ctx context.Context, s *JsonlStorage, n int, item func(int) interface{}) error {
	if n == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for i := 0; i < n; i++ {
		line, err := json.Marshal(item(i))
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
