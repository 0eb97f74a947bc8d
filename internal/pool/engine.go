// Package pool implements the two-asset constant-product pool: reserves, fee
// rates, protocol earnings, the LP share ledger and the operation log. Every
// operation validates and mutates under one lock, so a rejected call leaves
// the state untouched.
package pool

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"poolsim/internal/model"
	"poolsim/internal/swap"
)

var (
	one                   = decimal.NewFromInt(1)
	defaultRatioTolerance = decimal.New(1, -6)
)

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Logger *zap.Logger
	// Clock stamps event records. Defaults to time.Now.
	Clock func() time.Time
	// RatioTolerance is the relative deviation between a supplied liquidity
	// pair and the pool ratio above which a warning is logged.
	RatioTolerance decimal.Decimal
}

// Result is returned by every successful mutating operation.
type Result struct {
	Pool           model.PoolSnapshot `json:"pool"`
	Provider       string             `json:"provider,omitempty"`
	ProviderShares decimal.Decimal    `json:"provider_shares"`
	Event          model.EventRecord  `json:"event"`
}

type state struct {
	reserveA    decimal.Decimal
	reserveB    decimal.Decimal
	totalShares decimal.Decimal
	feeLPRate   decimal.Decimal
	feeTeamRate decimal.Decimal
	earningsA   decimal.Decimal
	earningsB   decimal.Decimal
}

func (s *state) initialized() bool {
	return s.totalShares.IsPositive()
}

func (s *state) snapshot() model.PoolSnapshot {
	snap := model.PoolSnapshot{
		Initialized:       s.initialized(),
		ReserveA:          s.reserveA,
		ReserveB:          s.reserveB,
		TotalShares:       s.totalShares,
		FeeLPRate:         s.feeLPRate,
		FeeTeamRate:       s.feeTeamRate,
		ProtocolEarningsA: s.earningsA,
		ProtocolEarningsB: s.earningsB,
		InvariantK:        s.reserveA.Mul(s.reserveB),
	}
	if s.reserveA.IsPositive() {
		snap.SpotPrice = swap.QuoDown(s.reserveB, s.reserveA)
	}
	return snap
}

// reserves returns (input, output) for a swap direction.
func (s *state) reserves(direction model.Direction) (decimal.Decimal, decimal.Decimal) {
	if direction == model.DirectionBToA {
		return s.reserveB, s.reserveA
	}
	return s.reserveA, s.reserveB
}

// Engine owns one pool and its ledger.
type Engine struct {
	mu             sync.Mutex
	st             state
	ledger         *Ledger
	events         *EventLog
	logger         *zap.Logger
	clock          func() time.Time
	ratioTolerance decimal.Decimal
}

func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	tolerance := opts.RatioTolerance
	if !tolerance.IsPositive() {
		tolerance = defaultRatioTolerance
	}

	return &Engine{
		ledger:         NewLedger(),
		events:         NewEventLog(),
		logger:         logger,
		clock:          clock,
		ratioTolerance: tolerance,
	}
}

// CreatePool initializes the pool with the given reserves and fee rates and
// credits sqrt(amountA*amountB) shares to provider.
func (e *Engine) CreatePool(amountA, amountB, feeLPRate, feeTeamRate decimal.Decimal, provider string) (Result, error) {
	if !amountA.IsPositive() || !amountB.IsPositive() {
		return Result{}, fmt.Errorf("create pool: %w", ErrInvalidAmount)
	}
	if !swap.ValidFeeRates(feeLPRate, feeTeamRate) {
		return Result{}, fmt.Errorf("create pool: fee lp %s team %s: %w", feeLPRate, feeTeamRate, ErrInvalidFeeConfig)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.initialized() {
		return Result{}, fmt.Errorf("create pool: %w", ErrAlreadyInitialized)
	}

	shares := swap.Sqrt(amountA.Mul(amountB))
	if !shares.IsPositive() {
		return Result{}, fmt.Errorf("create pool: amounts too small to mint shares: %w", ErrInvalidAmount)
	}

	e.st.reserveA = amountA
	e.st.reserveB = amountB
	e.st.totalShares = shares
	e.st.feeLPRate = feeLPRate
	e.st.feeTeamRate = feeTeamRate
	e.ledger.credit(provider, shares)

	result := e.record(model.EventCreate, provider, model.CreateEventData{
		AmountA:      amountA,
		AmountB:      amountB,
		FeeLPRate:    feeLPRate,
		FeeTeamRate:  feeTeamRate,
		SharesMinted: shares,
	})

	e.logger.Debug("pool created",
		zap.String("provider", provider),
		zap.String("reserve_a", amountA.String()),
		zap.String("reserve_b", amountB.String()),
		zap.String("shares", shares.String()),
	)
	return result, nil
}

// AddLiquidity deposits a pair and mints totalShares*amountA/reserveA shares.
// The caller is trusted to supply amountB in the current ratio; a deviation
// is logged and recorded but not rejected.
func (e *Engine) AddLiquidity(amountA, amountB decimal.Decimal, provider string) (Result, error) {
	if !amountA.IsPositive() || !amountB.IsPositive() {
		return Result{}, fmt.Errorf("add liquidity: %w", ErrInvalidAmount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.st.initialized() {
		return Result{}, fmt.Errorf("add liquidity: %w", ErrPoolNotInitialized)
	}

	minted := swap.QuoDown(e.st.totalShares.Mul(amountA), e.st.reserveA)
	if !minted.IsPositive() {
		return Result{}, fmt.Errorf("add liquidity: amount too small to mint shares: %w", ErrInvalidAmount)
	}

	expectedB := swap.PairedAmount(amountA, e.st.reserveA, e.st.reserveB)
	deviation := e.checkRatio("add liquidity", provider, amountB, expectedB)

	e.st.reserveA = e.st.reserveA.Add(amountA)
	e.st.reserveB = e.st.reserveB.Add(amountB)
	e.st.totalShares = e.st.totalShares.Add(minted)
	e.ledger.credit(provider, minted)

	result := e.record(model.EventAdd, provider, model.AddLiquidityEventData{
		AmountA:         amountA,
		AmountB:         amountB,
		SharesMinted:    minted,
		ExpectedAmountB: expectedB,
		RatioDeviation:  deviation,
	})

	e.logger.Debug("liquidity added",
		zap.String("provider", provider),
		zap.String("amount_a", amountA.String()),
		zap.String("amount_b", amountB.String()),
		zap.String("shares", minted.String()),
	)
	return result, nil
}

// RemoveLiquidity withdraws a pair and burns totalShares*amountA/reserveA
// shares from provider. Burning every outstanding share drains the pool back
// to its uninitialized state; the drain event records the full reserves swept.
func (e *Engine) RemoveLiquidity(amountA, amountB decimal.Decimal, provider string) (Result, error) {
	if !amountA.IsPositive() || !amountB.IsPositive() {
		return Result{}, fmt.Errorf("remove liquidity: %w", ErrInvalidAmount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.st.initialized() {
		return Result{}, fmt.Errorf("remove liquidity: %w", ErrPoolNotInitialized)
	}

	burned := swap.QuoDown(e.st.totalShares.Mul(amountA), e.st.reserveA)
	balance := e.ledger.Balance(provider)
	if burned.GreaterThan(balance) {
		return Result{}, fmt.Errorf("remove liquidity: need %s shares, %q holds %s: %w", burned, provider, balance, ErrInsufficientShares)
	}
	if !burned.IsPositive() {
		return Result{}, fmt.Errorf("remove liquidity: amount too small to burn shares: %w", ErrInvalidAmount)
	}

	remainingShares := floorZero(e.st.totalShares.Sub(burned))
	drained := remainingShares.IsZero()
	remainingA := floorZero(e.st.reserveA.Sub(amountA))
	remainingB := floorZero(e.st.reserveB.Sub(amountB))
	if !drained && (remainingA.IsZero() || remainingB.IsZero()) {
		return Result{}, fmt.Errorf("remove liquidity: withdrawal empties a reserve while shares remain: %w", ErrInvalidAmount)
	}

	expectedB := swap.PairedAmount(amountA, e.st.reserveA, e.st.reserveB)
	deviation := e.checkRatio("remove liquidity", provider, amountB, expectedB)

	if err := e.ledger.debit(provider, burned); err != nil {
		return Result{}, fmt.Errorf("remove liquidity: %w", err)
	}
	if drained {
		// The last holder takes whatever is left, not what was asked for.
		if !amountA.Equal(e.st.reserveA) || !amountB.Equal(e.st.reserveB) {
			e.logger.Warn("drain sweeps remaining reserves",
				zap.String("provider", provider),
				zap.String("requested_a", amountA.String()),
				zap.String("requested_b", amountB.String()),
				zap.String("swept_a", e.st.reserveA.String()),
				zap.String("swept_b", e.st.reserveB.String()),
			)
		}
		amountA, amountB = e.st.reserveA, e.st.reserveB
		remainingA, remainingB = decimal.Zero, decimal.Zero
	}
	e.st.reserveA = remainingA
	e.st.reserveB = remainingB
	e.st.totalShares = remainingShares

	result := e.record(model.EventRemove, provider, model.RemoveLiquidityEventData{
		AmountA:         amountA,
		AmountB:         amountB,
		SharesBurned:    burned,
		ExpectedAmountB: expectedB,
		RatioDeviation:  deviation,
		Drained:         drained,
	})

	e.logger.Debug("liquidity removed",
		zap.String("provider", provider),
		zap.String("amount_a", amountA.String()),
		zap.String("amount_b", amountB.String()),
		zap.String("shares", burned.String()),
		zap.Bool("drained", drained),
	)
	return result, nil
}

// Swap sells amountIn in the given direction. The LP fee stays in the input
// reserve; the team fee goes to the protocol earnings of the input asset.
// maxSlippage must be within [0, 1]. A value of 1 disables the slippage check.
func (e *Engine) Swap(direction model.Direction, amountIn, maxSlippage decimal.Decimal) (Result, error) {
	if !direction.Valid() {
		return Result{}, fmt.Errorf("swap: direction %q: %w", direction, ErrInvalidAmount)
	}
	if !amountIn.IsPositive() {
		return Result{}, fmt.Errorf("swap: %w", ErrInvalidAmount)
	}
	if maxSlippage.IsNegative() || maxSlippage.GreaterThan(one) {
		return Result{}, fmt.Errorf("swap: max slippage %s out of range: %w", maxSlippage, ErrInvalidAmount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.st.initialized() {
		return Result{}, fmt.Errorf("swap: %w", ErrPoolNotInitialized)
	}

	inputReserve, outputReserve := e.st.reserves(direction)
	quote := swap.QuoteOut(amountIn, inputReserve, outputReserve, e.st.feeLPRate, e.st.feeTeamRate)

	if quote.Slippage.GreaterThan(maxSlippage) {
		return Result{}, fmt.Errorf("swap: slippage %s above %s: %w", quote.Slippage, maxSlippage, ErrSlippageExceeded)
	}
	if !quote.AmountOut.IsPositive() || quote.AmountOut.GreaterThanOrEqual(outputReserve) {
		return Result{}, fmt.Errorf("swap: output %s against reserve %s: %w", quote.AmountOut, outputReserve, ErrInsufficientOutputLiquidity)
	}

	credited := amountIn.Sub(quote.FeeTeam)
	if direction == model.DirectionAToB {
		e.st.reserveA = e.st.reserveA.Add(credited)
		e.st.reserveB = e.st.reserveB.Sub(quote.AmountOut)
		e.st.earningsA = e.st.earningsA.Add(quote.FeeTeam)
	} else {
		e.st.reserveB = e.st.reserveB.Add(credited)
		e.st.reserveA = e.st.reserveA.Sub(quote.AmountOut)
		e.st.earningsB = e.st.earningsB.Add(quote.FeeTeam)
	}

	result := e.record(model.EventSwap, "", model.SwapEventData{
		Direction:   direction,
		AmountIn:    amountIn,
		AmountOut:   quote.AmountOut,
		FeeTotal:    quote.FeeTotal,
		FeeLP:       quote.FeeLP,
		FeeTeam:     quote.FeeTeam,
		PriceBefore: quote.PriceBefore,
		PriceExec:   quote.PriceExec,
		Slippage:    quote.Slippage,
		MaxSlippage: maxSlippage,
	})

	e.logger.Debug("swap executed",
		zap.String("direction", string(direction)),
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out", quote.AmountOut.String()),
		zap.String("fee_team", quote.FeeTeam.String()),
		zap.String("slippage", quote.Slippage.String()),
	)
	return result, nil
}

// Quote prices selling amountIn without touching state. Degenerate input
// yields the zero quote; only an unknown direction is an error.
func (e *Engine) Quote(direction model.Direction, amountIn decimal.Decimal) (swap.Quote, error) {
	if !direction.Valid() {
		return swap.Quote{}, fmt.Errorf("quote: direction %q: %w", direction, ErrInvalidAmount)
	}
	e.mu.Lock()
	inputReserve, outputReserve := e.st.reserves(direction)
	feeLP, feeTeam := e.st.feeLPRate, e.st.feeTeamRate
	e.mu.Unlock()

	return swap.QuoteOut(amountIn, inputReserve, outputReserve, feeLP, feeTeam), nil
}

// QuoteIn solves for the input needed to receive desiredOut. Unsatisfiable
// requests yield the zero quote.
func (e *Engine) QuoteIn(direction model.Direction, desiredOut decimal.Decimal) (swap.Quote, error) {
	if !direction.Valid() {
		return swap.Quote{}, fmt.Errorf("quote in: direction %q: %w", direction, ErrInvalidAmount)
	}
	e.mu.Lock()
	inputReserve, outputReserve := e.st.reserves(direction)
	feeLP, feeTeam := e.st.feeLPRate, e.st.feeTeamRate
	e.mu.Unlock()

	return swap.QuoteIn(desiredOut, inputReserve, outputReserve, feeLP, feeTeam), nil
}

// Snapshot returns the current pool state.
func (e *Engine) Snapshot() model.PoolSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.snapshot()
}

// Shares returns the LP balance of provider.
func (e *Engine) Shares(provider string) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Balance(provider)
}

// Ledger returns a copy of every ledger entry sorted by provider.
func (e *Engine) Ledger() []model.LedgerEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Entries()
}

// Events returns a copy of the operation log.
func (e *Engine) Events() []model.EventRecord {
	return e.events.All()
}

// EventsSince returns the records appended after seq.
func (e *Engine) EventsSince(seq uint64) []model.EventRecord {
	return e.events.Since(seq)
}

// record appends an event for the current state. Caller holds e.mu.
func (e *Engine) record(kind model.EventKind, provider string, data interface{}) Result {
	snap := e.st.snapshot()
	event := e.events.append(model.EventRecord{
		Kind:      kind,
		Provider:  provider,
		Timestamp: uint64(e.clock().Unix()),
		Data:      data,
		Pool:      snap,
	})

	result := Result{Pool: snap, Event: event}
	if kind != model.EventSwap {
		result.Provider = provider
		result.ProviderShares = e.ledger.Balance(provider)
	}
	return result
}

func (e *Engine) checkRatio(op, provider string, amountB, expectedB decimal.Decimal) decimal.Decimal {
	if !expectedB.IsPositive() {
		return decimal.Zero
	}
	deviation := swap.QuoDown(amountB.Sub(expectedB).Abs(), expectedB)
	if deviation.GreaterThan(e.ratioTolerance) {
		e.logger.Warn("liquidity pair off pool ratio",
			zap.String("op", op),
			zap.String("provider", provider),
			zap.String("amount_b", amountB.String()),
			zap.String("expected_amount_b", expectedB.String()),
			zap.String("deviation", deviation.String()),
		)
	}
	return deviation
}

func floorZero(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}
