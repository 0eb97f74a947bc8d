package model

import "github.com/shopspring/decimal"

// EventKind names the operation an event record describes.
type EventKind string

const (
	EventCreate EventKind = "CREATE"
	EventAdd    EventKind = "ADD"
	EventRemove EventKind = "REMOVE"
	EventSwap   EventKind = "SWAP"
)

// CreateEventData is the CREATE payload.
type CreateEventData struct {
	AmountA      decimal.Decimal `json:"amount_a"`
	AmountB      decimal.Decimal `json:"amount_b"`
	FeeLPRate    decimal.Decimal `json:"fee_lp_rate"`
	FeeTeamRate  decimal.Decimal `json:"fee_team_rate"`
	SharesMinted decimal.Decimal `json:"shares_minted"`
}

// AddLiquidityEventData is the ADD payload. ExpectedAmountB is the
// ratio-implied counterpart of AmountA; RatioDeviation is the relative gap
// between it and the supplied AmountB.
type AddLiquidityEventData struct {
	AmountA         decimal.Decimal `json:"amount_a"`
	AmountB         decimal.Decimal `json:"amount_b"`
	SharesMinted    decimal.Decimal `json:"shares_minted"`
	ExpectedAmountB decimal.Decimal `json:"expected_amount_b"`
	RatioDeviation  decimal.Decimal `json:"ratio_deviation"`
}

// RemoveLiquidityEventData is the REMOVE payload.
type RemoveLiquidityEventData struct {
	AmountA         decimal.Decimal `json:"amount_a"`
	AmountB         decimal.Decimal `json:"amount_b"`
	SharesBurned    decimal.Decimal `json:"shares_burned"`
	ExpectedAmountB decimal.Decimal `json:"expected_amount_b"`
	RatioDeviation  decimal.Decimal `json:"ratio_deviation"`
	Drained         bool            `json:"drained"`
}

// SwapEventData is the SWAP payload.
type SwapEventData struct {
	Direction   Direction       `json:"direction"`
	AmountIn    decimal.Decimal `json:"amount_in"`
	AmountOut   decimal.Decimal `json:"amount_out"`
	FeeTotal    decimal.Decimal `json:"fee_total"`
	FeeLP       decimal.Decimal `json:"fee_lp"`
	FeeTeam     decimal.Decimal `json:"fee_team"`
	PriceBefore decimal.Decimal `json:"price_before"`
	PriceExec   decimal.Decimal `json:"price_exec"`
	Slippage    decimal.Decimal `json:"slippage"`
	MaxSlippage decimal.Decimal `json:"max_slippage"`
}
