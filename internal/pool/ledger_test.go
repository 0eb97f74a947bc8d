package pool

import (
	"testing"

	"github.com/shopspring/decimal"

	"poolsim/internal/model"
)

func TestLedgerCreditDebit(t *testing.T) {
	ledger := NewLedger()
	ledger.credit("bob", decimal.NewFromInt(5))
	ledger.credit("alice", decimal.NewFromInt(3))
	ledger.credit("bob", decimal.NewFromInt(1))

	if got := ledger.Balance("bob"); !got.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("bob balance mismatch: %s", got)
	}
	if got := ledger.Total(); !got.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("total mismatch: %s", got)
	}

	if err := ledger.debit("alice", decimal.NewFromInt(4)); err != ErrInsufficientShares {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
	if err := ledger.debit("carol", decimal.NewFromInt(1)); err != ErrInsufficientShares {
		t.Fatalf("expected ErrInsufficientShares for unknown provider, got %v", err)
	}

	if err := ledger.debit("alice", decimal.NewFromInt(3)); err != nil {
		t.Fatalf("debit alice: %v", err)
	}
	if ledger.Len() != 1 {
		t.Fatalf("zeroed entry should be removed, len=%d", ledger.Len())
	}

	entries := ledger.Entries()
	if len(entries) != 1 || entries[0].Provider != "bob" {
		t.Fatalf("entries mismatch: %+v", entries)
	}
}

func TestEventLogSince(t *testing.T) {
	log := NewEventLog()
	for i := 0; i < 3; i++ {
		log.append(model.EventRecord{Kind: model.EventSwap})
	}

	all := log.All()
	if len(all) != 3 || all[0].Seq != 1 || all[2].Seq != 3 {
		t.Fatalf("unexpected records: %+v", all)
	}
	if got := log.Since(2); len(got) != 1 || got[0].Seq != 3 {
		t.Fatalf("since mismatch: %+v", got)
	}
	if got := log.Since(3); got != nil {
		t.Fatalf("expected nil past the end, got %+v", got)
	}

	all[0].Seq = 99
	if log.All()[0].Seq != 1 {
		t.Fatalf("All must return a copy")
	}
}
