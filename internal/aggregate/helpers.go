package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"poolsim/internal/model"
	"poolsim/internal/swap"
)

var (
	two         = decimal.NewFromInt(2)
	yearSeconds = decimal.NewFromInt(int64(365 * 24 * time.Hour / time.Second))
)

func unixUTC(ts uint64) time.Time {
	return time.Unix(int64(ts), 0).UTC()
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

// computeFeeRate is the LP fee earned per unit of reserve on one side.
func computeFeeRate(fee, reserve decimal.Decimal) *decimal.Decimal {
	if fee.IsZero() || !reserve.IsPositive() {
		return nil
	}
	rate := swap.QuoDown(fee, reserve)
	return &rate
}

// computeAPR annualizes the window's LP fees over closing TVL, both valued in
// asset A at the closing spot price.
func computeAPR(feeA, feeB decimal.Decimal, closing model.PoolSnapshot, windowSeconds uint64) *decimal.Decimal {
	if windowSeconds == 0 || !closing.Initialized || !closing.SpotPrice.IsPositive() {
		return nil
	}
	if feeA.IsZero() && feeB.IsZero() {
		return nil
	}

	feesInA := feeA.Add(swap.QuoDown(feeB, closing.SpotPrice))
	tvlInA := closing.ReserveA.Mul(two)
	rate := swap.QuoDown(feesInA, tvlInA)
	apr := swap.QuoDown(rate.Mul(yearSeconds), decimal.NewFromInt(int64(windowSeconds)))
	return &apr
}
