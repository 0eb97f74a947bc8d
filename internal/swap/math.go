package swap

import "github.com/shopspring/decimal"

// Precision is the number of fractional digits kept by every division.
const Precision int32 = 18

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
	ulp = decimal.New(1, -Precision)
)

// QuoDown divides num by den and truncates the result to Precision digits.
func QuoDown(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	q, _ := num.QuoRem(den, Precision)
	return q
}

// QuoUp divides num by den and rounds a non-zero remainder away from zero.
func QuoUp(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	q, r := num.QuoRem(den, Precision)
	if r.IsZero() {
		return q
	}
	if num.Sign()*den.Sign() < 0 {
		return q.Sub(ulp)
	}
	return q.Add(ulp)
}

// Sqrt returns the square root of value truncated to Precision digits.
// Non-positive input yields zero.
func Sqrt(value decimal.Decimal) decimal.Decimal {
	if !value.IsPositive() {
		return decimal.Zero
	}

	// Seed with 10^(magnitude/2), within a factor of ~3 of the root at any scale.
	digits := int32(len(value.Coefficient().String()))
	z := decimal.New(1, (value.Exponent()+digits)/2)

	// Newton: z' = (z + value/z) / 2.
	for i := 0; i < 128; i++ {
		next := z.Add(value.DivRound(z, Precision+4)).DivRound(two, Precision+4)
		if next.Sub(z).Abs().LessThan(ulp) {
			z = next
			break
		}
		z = next
	}

	z = z.Truncate(Precision)
	// Step down if truncation left us above the true root.
	for z.Mul(z).GreaterThan(value) && z.IsPositive() {
		z = z.Sub(ulp)
	}
	return z
}

// PairedAmount returns the counterpart of amount that keeps the
// reserveFrom:reserveTo ratio. Zero when reserveFrom is not positive.
func PairedAmount(amount, reserveFrom, reserveTo decimal.Decimal) decimal.Decimal {
	if !reserveFrom.IsPositive() || !amount.IsPositive() {
		return decimal.Zero
	}
	return QuoDown(amount.Mul(reserveTo), reserveFrom)
}
