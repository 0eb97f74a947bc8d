package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"poolsim/internal/swap"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	values := make(map[string]decimal.Decimal)
	for _, name := range []string{"reserve-in", "reserve-out", "amount-in", "amount-out", "fee-lp", "fee-team"} {
		raw, _ := flags.GetString(name)
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid decimal %q", name, raw)
		}
		values[name] = value
	}

	reserveIn, reserveOut := values["reserve-in"], values["reserve-out"]
	feeLP, feeTeam := values["fee-lp"], values["fee-team"]
	if !swap.ValidFeeRates(feeLP, feeTeam) {
		return fmt.Errorf("fee rates must be non-negative and sum below 1")
	}

	var quote swap.Quote
	amountIn, forward := values["amount-in"]
	amountOut, reverse := values["amount-out"]
	switch {
	case forward && reverse:
		return fmt.Errorf("set only one of amount-in and amount-out")
	case forward:
		quote = swap.QuoteOut(amountIn, reserveIn, reserveOut, feeLP, feeTeam)
	case reverse:
		quote = swap.QuoteIn(amountOut, reserveIn, reserveOut, feeLP, feeTeam)
	default:
		return fmt.Errorf("amount-in or amount-out is required")
	}
	if quote.IsZero() {
		return fmt.Errorf("no quote: check reserves and amounts")
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(quote)
}
