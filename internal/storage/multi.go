package storage

import (
	"context"

	"poolsim/internal/model"
)

// Multi fans a batch out to every sink in order and stops at the first error.
type Multi []Storage

func (m Multi) PutEventBatch(ctx context.Context, records []model.EventRecord) error {
	for _, sink := range m {
		if err := sink.PutEventBatch(ctx, records); err != nil {
			return err
		}
	}
	return nil
}
