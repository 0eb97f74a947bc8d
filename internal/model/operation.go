package model

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Operation names accepted in scenario files.
const (
	OpCreate  = "create"
	OpAdd     = "add"
	OpRemove  = "remove"
	OpSwap    = "swap"
	OpQuote   = "quote"
	OpQuoteIn = "quote_in"
)

// Operation is one already-parsed request against the pool. Fields not used
// by Op are ignored. A nil MaxSlippage disables the slippage gate.
type Operation struct {
	Op          string           `json:"op"`
	Provider    string           `json:"provider,omitempty"`
	AmountA     decimal.Decimal  `json:"amount_a"`
	AmountB     decimal.Decimal  `json:"amount_b"`
	FeeLPRate   decimal.Decimal  `json:"fee_lp_rate"`
	FeeTeamRate decimal.Decimal  `json:"fee_team_rate"`
	Direction   Direction        `json:"direction,omitempty"`
	AmountIn    decimal.Decimal  `json:"amount_in"`
	AmountOut   decimal.Decimal  `json:"amount_out"`
	MaxSlippage *decimal.Decimal `json:"max_slippage,omitempty"`
	Timestamp   uint64           `json:"ts,omitempty"`
}

// UnmarshalJSON decodes an Operation and normalizes the op name.
func (o *Operation) UnmarshalJSON(data []byte) error {
	type Alias Operation
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Op = strings.ToLower(strings.TrimSpace(a.Op))
	*o = Operation(a)
	return nil
}

// RejectedOperation records an operation the engine refused.
type RejectedOperation struct {
	Line  int    `json:"line"`
	Op    string `json:"op"`
	Error string `json:"error"`
}
