package scenario

import (
	"fmt"

	"github.com/shopspring/decimal"

	"poolsim/internal/model"
	"poolsim/internal/pool"
	"poolsim/internal/swap"
)

// Outcome is the effect of one applied operation. Result is set for mutating
// operations and Quote for quote and quote_in.
type Outcome struct {
	Result *pool.Result
	Quote  *swap.Quote
}

var noSlippageLimit = decimal.NewFromInt(1)

// Apply dispatches op to the engine.
func Apply(engine *pool.Engine, op model.Operation) (Outcome, error) {
	var (
		res pool.Result
		err error
	)

	switch op.Op {
	case model.OpCreate:
		res, err = engine.CreatePool(op.AmountA, op.AmountB, op.FeeLPRate, op.FeeTeamRate, op.Provider)
	case model.OpAdd:
		res, err = engine.AddLiquidity(op.AmountA, op.AmountB, op.Provider)
	case model.OpRemove:
		res, err = engine.RemoveLiquidity(op.AmountA, op.AmountB, op.Provider)
	case model.OpSwap:
		maxSlippage := noSlippageLimit
		if op.MaxSlippage != nil {
			maxSlippage = *op.MaxSlippage
		}
		res, err = engine.Swap(op.Direction, op.AmountIn, maxSlippage)
	case model.OpQuote:
		quote, err := engine.Quote(op.Direction, op.AmountIn)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Quote: &quote}, nil
	case model.OpQuoteIn:
		quote, err := engine.QuoteIn(op.Direction, op.AmountOut)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Quote: &quote}, nil
	default:
		return Outcome{}, fmt.Errorf("unknown op %q", op.Op)
	}

	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Result: &res}, nil
}
