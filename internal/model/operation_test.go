package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestOperationUnmarshal(t *testing.T) {
	line := `{"op":" SWAP ","direction":"a->b","amount_in":"10","max_slippage":0.05,"ts":1700000000}`

	var op Operation
	if err := json.Unmarshal([]byte(line), &op); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if op.Op != OpSwap {
		t.Fatalf("op not normalized: %q", op.Op)
	}
	if op.Direction != DirectionAToB {
		t.Fatalf("direction mismatch: %q", op.Direction)
	}
	if !op.AmountIn.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("amount_in mismatch: %s", op.AmountIn)
	}
	if op.MaxSlippage == nil || !op.MaxSlippage.Equal(decimal.RequireFromString("0.05")) {
		t.Fatalf("max_slippage mismatch: %v", op.MaxSlippage)
	}
	if op.Timestamp != 1700000000 {
		t.Fatalf("ts mismatch: %d", op.Timestamp)
	}
}

func TestOperationUnmarshalRejectsBadDirection(t *testing.T) {
	var op Operation
	if err := json.Unmarshal([]byte(`{"op":"swap","direction":"sideways"}`), &op); err == nil {
		t.Fatalf("expected error for invalid direction")
	}
}

func TestParseDirection(t *testing.T) {
	cases := map[string]Direction{
		"A_TO_B": DirectionAToB,
		"a→b":    DirectionAToB,
		"a-to-b": DirectionAToB,
		"AB":     DirectionAToB,
		"b->a":   DirectionBToA,
		"B2A":    DirectionBToA,
		"sell_b": DirectionBToA,
	}
	for input, want := range cases {
		got, err := ParseDirection(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q = %q, want %q", input, got, want)
		}
	}
	if _, err := ParseDirection(""); err == nil {
		t.Fatalf("expected error for empty direction")
	}
}
