package model

import (
	"encoding/json"
	"fmt"
)

// EventRecord is one entry of the append-only operation log. Data holds the
// kind-specific payload and Pool the state right after the operation.
type EventRecord struct {
	Seq       uint64       `json:"seq"`
	Kind      EventKind    `json:"kind"`
	Provider  string       `json:"provider,omitempty"`
	Timestamp uint64       `json:"timestamp"`
	Data      interface{}  `json:"data"`
	Pool      PoolSnapshot `json:"pool"`
}

// EventRecordJSON is the decoded form of an EventRecord line; Data stays raw
// until the consumer knows which payload to expect.
type EventRecordJSON struct {
	Seq       uint64          `json:"seq"`
	Kind      EventKind       `json:"kind"`
	Provider  string          `json:"provider,omitempty"`
	Timestamp uint64          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Pool      PoolSnapshot    `json:"pool"`
}

// SwapData decodes the payload of a SWAP record.
func (r EventRecordJSON) SwapData() (SwapEventData, error) {
	var data SwapEventData
	if r.Kind != EventSwap {
		return data, fmt.Errorf("event %d is %s, not %s", r.Seq, r.Kind, EventSwap)
	}
	if err := json.Unmarshal(r.Data, &data); err != nil {
		return data, fmt.Errorf("decode swap: %w", err)
	}
	return data, nil
}

// ToJSON converts a record to its decoded form by encoding the payload.
func (r EventRecord) ToJSON() (EventRecordJSON, error) {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return EventRecordJSON{}, fmt.Errorf("encode event %d: %w", r.Seq, err)
	}
	return EventRecordJSON{
		Seq:       r.Seq,
		Kind:      r.Kind,
		Provider:  r.Provider,
		Timestamp: r.Timestamp,
		Data:      data,
		Pool:      r.Pool,
	}, nil
}
