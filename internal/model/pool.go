package model

import "github.com/shopspring/decimal"

// PoolSnapshot is a copy of the pool state plus the derived invariant and spot price.
type PoolSnapshot struct {
	Initialized       bool            `json:"initialized"`
	ReserveA          decimal.Decimal `json:"reserve_a"`
	ReserveB          decimal.Decimal `json:"reserve_b"`
	TotalShares       decimal.Decimal `json:"total_shares"`
	FeeLPRate         decimal.Decimal `json:"fee_lp_rate"`
	FeeTeamRate       decimal.Decimal `json:"fee_team_rate"`
	ProtocolEarningsA decimal.Decimal `json:"protocol_earnings_a"`
	ProtocolEarningsB decimal.Decimal `json:"protocol_earnings_b"`
	InvariantK        decimal.Decimal `json:"invariant_k"`
	SpotPrice         decimal.Decimal `json:"spot_price"`
}

// LedgerEntry is one provider's LP share balance.
type LedgerEntry struct {
	Provider string          `json:"provider"`
	Shares   decimal.Decimal `json:"shares"`
}
