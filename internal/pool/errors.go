package pool

import "errors"

var (
	ErrInvalidAmount               = errors.New("invalid amount")
	ErrInvalidFeeConfig            = errors.New("invalid fee config")
	ErrAlreadyInitialized          = errors.New("pool already initialized")
	ErrPoolNotInitialized          = errors.New("pool not initialized")
	ErrInsufficientShares          = errors.New("insufficient shares")
	ErrInsufficientOutputLiquidity = errors.New("insufficient output liquidity")
	ErrSlippageExceeded            = errors.New("slippage exceeded")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidAmount, "INVALID_AMOUNT"},
	{ErrInvalidFeeConfig, "INVALID_FEE_CONFIG"},
	{ErrAlreadyInitialized, "ALREADY_INITIALIZED"},
	{ErrPoolNotInitialized, "POOL_NOT_INITIALIZED"},
	{ErrInsufficientShares, "INSUFFICIENT_SHARES"},
	{ErrInsufficientOutputLiquidity, "INSUFFICIENT_OUTPUT_LIQUIDITY"},
	{ErrSlippageExceeded, "SLIPPAGE_EXCEEDED"},
}

// Code returns a stable identifier for an engine rejection, or "" when err
// is nil or not one of the engine's errors.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return ""
}
