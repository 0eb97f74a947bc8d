package pool

import (
	"sync"

	"poolsim/internal/model"
)

// EventLog is the ordered, append-only operation history. Records are never
// modified after append, so readers only need the read lock to copy the slice.
type EventLog struct {
	mu      sync.RWMutex
	records []model.EventRecord
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

func (l *EventLog) append(record model.EventRecord) model.EventRecord {
	l.mu.Lock()
	record.Seq = uint64(len(l.records)) + 1
	l.records = append(l.records, record)
	l.mu.Unlock()
	return record
}

// Len returns the number of records.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// All returns a copy of every record in order.
func (l *EventLog) All() []model.EventRecord {
	return l.Since(0)
}

// Since returns a copy of the records with Seq greater than seq.
func (l *EventLog) Since(seq uint64) []model.EventRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if seq >= uint64(len(l.records)) {
		return nil
	}
	out := make([]model.EventRecord, len(l.records)-int(seq))
	copy(out, l.records[seq:])
	return out
}
