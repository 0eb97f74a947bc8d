package storage

import (
	"context"

	"poolsim/internal/model"
)

// Storage defines a sink for pool event records.
type Storage interface {
	PutEventBatch(ctx context.Context, records []model.EventRecord) error
}

// MetricsStore persists windowed pool metrics.
type MetricsStore interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}
