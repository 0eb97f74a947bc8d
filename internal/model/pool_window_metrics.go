package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoolWindowMetrics stores aggregated swap activity for one time window.
// Volumes and fees are split by the side the trader paid in.
type PoolWindowMetrics struct {
	Pool           string           `json:"pool"`
	WindowSizeSecs int64            `json:"window_size_seconds"`
	WindowStart    time.Time        `json:"window_start"`
	WindowEnd      time.Time        `json:"window_end"`
	FirstSeq       uint64           `json:"first_seq"`
	LastSeq        uint64           `json:"last_seq"`
	SwapCount      uint64           `json:"swap_count"`
	VolumeA        decimal.Decimal  `json:"volume_a"`
	VolumeB        decimal.Decimal  `json:"volume_b"`
	FeeLPA         decimal.Decimal  `json:"fee_lp_a"`
	FeeLPB         decimal.Decimal  `json:"fee_lp_b"`
	FeeTeamA       decimal.Decimal  `json:"fee_team_a"`
	FeeTeamB       decimal.Decimal  `json:"fee_team_b"`
	ReserveA       *decimal.Decimal `json:"reserve_a,omitempty"`
	ReserveB       *decimal.Decimal `json:"reserve_b,omitempty"`
	FeeRateA       *decimal.Decimal `json:"fee_rate_a,omitempty"`
	FeeRateB       *decimal.Decimal `json:"fee_rate_b,omitempty"`
	APR            *decimal.Decimal `json:"apr,omitempty"`
}
