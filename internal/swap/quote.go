// Package swap prices constant-product trades. Everything here is pure: the
// pool engine and read-only quoting paths share the same functions.
package swap

import "github.com/shopspring/decimal"

// Quote is the priced outcome of a hypothetical or actual trade. Amounts are
// in units of the input asset except AmountOut (output asset) and the prices
// (output per input).
type Quote struct {
	AmountIn         decimal.Decimal `json:"amount_in"`
	FeeTotal         decimal.Decimal `json:"fee_total"`
	FeeLP            decimal.Decimal `json:"fee_lp"`
	FeeTeam          decimal.Decimal `json:"fee_team"`
	AmountInAfterFee decimal.Decimal `json:"amount_in_after_fee"`
	AmountOut        decimal.Decimal `json:"amount_out"`
	PriceBefore      decimal.Decimal `json:"price_before"`
	PriceExec        decimal.Decimal `json:"price_exec"`
	Slippage         decimal.Decimal `json:"slippage"`
}

// IsZero reports whether q is the all-zero quote returned for degenerate input.
func (q Quote) IsZero() bool {
	return q.AmountIn.IsZero() && q.AmountOut.IsZero() && q.FeeTotal.IsZero()
}

// ValidFeeRates reports whether both rates are non-negative and their sum is below one.
func ValidFeeRates(feeLPRate, feeTeamRate decimal.Decimal) bool {
	if feeLPRate.IsNegative() || feeTeamRate.IsNegative() {
		return false
	}
	return feeLPRate.Add(feeTeamRate).LessThan(one)
}

// QuoteOut prices selling amountIn into a pool holding inputReserve and
// outputReserve. Degenerate input (non-positive amount or reserve, invalid fee
// rates) yields the zero quote rather than an error.
func QuoteOut(amountIn, inputReserve, outputReserve, feeLPRate, feeTeamRate decimal.Decimal) Quote {
	if !amountIn.IsPositive() || !inputReserve.IsPositive() || !outputReserve.IsPositive() {
		return Quote{}
	}
	if !ValidFeeRates(feeLPRate, feeTeamRate) {
		return Quote{}
	}

	totalRate := feeLPRate.Add(feeTeamRate)
	feeTotal := amountIn.Mul(totalRate)
	feeLP := decimal.Zero
	feeTeam := decimal.Zero
	if totalRate.IsPositive() {
		feeLP = QuoDown(feeTotal.Mul(feeLPRate), totalRate)
		feeTeam = feeTotal.Sub(feeLP)
	}

	afterFee := amountIn.Sub(feeTotal)
	denominator := inputReserve.Add(afterFee)
	amountOut := QuoDown(outputReserve.Mul(afterFee), denominator)

	priceBefore := QuoDown(outputReserve, inputReserve)
	priceExec := QuoDown(amountOut, afterFee)
	// (priceBefore - priceExec) / priceBefore reduces to afterFee / (inputReserve + afterFee).
	slippage := QuoDown(afterFee, denominator)

	return Quote{
		AmountIn:         amountIn,
		FeeTotal:         feeTotal,
		FeeLP:            feeLP,
		FeeTeam:          feeTeam,
		AmountInAfterFee: afterFee,
		AmountOut:        amountOut,
		PriceBefore:      priceBefore,
		PriceExec:        priceExec,
		Slippage:         slippage,
	}
}

// QuoteIn solves for the input needed to receive desiredOut and returns the
// forward quote of that input. The required input is rounded up, so the
// quoted AmountOut matches desiredOut to within one unit of Precision.
// Unsatisfiable requests (desiredOut at or above outputReserve) yield the zero quote.
func QuoteIn(desiredOut, inputReserve, outputReserve, feeLPRate, feeTeamRate decimal.Decimal) Quote {
	if !desiredOut.IsPositive() || !inputReserve.IsPositive() || !outputReserve.IsPositive() {
		return Quote{}
	}
	if !desiredOut.LessThan(outputReserve) || !ValidFeeRates(feeLPRate, feeTeamRate) {
		return Quote{}
	}

	keep := one.Sub(feeLPRate.Add(feeTeamRate))
	denominator := keep.Mul(outputReserve.Sub(desiredOut))
	amountIn := QuoUp(inputReserve.Mul(desiredOut), denominator)

	return QuoteOut(amountIn, inputReserve, outputReserve, feeLPRate, feeTeamRate)
}
