package aggregate

import (
	"github.com/shopspring/decimal"

	"poolsim/internal/model"
)

// Accumulator holds aggregate values for one pool window.
type Accumulator struct {
	Pool        string
	WindowStart uint64
	WindowEnd   uint64
	FirstSeq    uint64
	LastSeq     uint64
	SwapCount   uint64
	VolumeA     decimal.Decimal
	VolumeB     decimal.Decimal
	FeeLPA      decimal.Decimal
	FeeLPB      decimal.Decimal
	FeeTeamA    decimal.Decimal
	FeeTeamB    decimal.Decimal
	// Closing is the pool state after the last event of the window.
	Closing model.PoolSnapshot
	LastTS  uint64
}

func NewAccumulator(pool string, record model.EventRecordJSON, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		Pool:        pool,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		FirstSeq:    record.Seq,
		LastSeq:     record.Seq,
		Closing:     record.Pool,
		LastTS:      record.Timestamp,
	}
}

// AddEvent folds record into the window. Every kind moves the closing state;
// only swaps add volume and fees, credited to the side the trader paid in.
func (a *Accumulator) AddEvent(record model.EventRecordJSON) error {
	if record.Kind == model.EventSwap {
		swap, err := record.SwapData()
		if err != nil {
			return err
		}
		a.applySwap(swap)
	}

	if record.Seq >= a.LastSeq {
		a.LastSeq = record.Seq
		a.Closing = record.Pool
		a.LastTS = record.Timestamp
	}
	if a.FirstSeq == 0 || record.Seq < a.FirstSeq {
		a.FirstSeq = record.Seq
	}
	return nil
}

func (a *Accumulator) applySwap(swap model.SwapEventData) {
	switch swap.Direction {
	case model.DirectionAToB:
		a.VolumeA = a.VolumeA.Add(swap.AmountIn)
		a.FeeLPA = a.FeeLPA.Add(swap.FeeLP)
		a.FeeTeamA = a.FeeTeamA.Add(swap.FeeTeam)
	case model.DirectionBToA:
		a.VolumeB = a.VolumeB.Add(swap.AmountIn)
		a.FeeLPB = a.FeeLPB.Add(swap.FeeLP)
		a.FeeTeamB = a.FeeTeamB.Add(swap.FeeTeam)
	}
	a.SwapCount++
}

// Metrics converts the window into its stored form.
func (a *Accumulator) Metrics(windowSeconds uint64) model.PoolWindowMetrics {
	metrics := model.PoolWindowMetrics{
		Pool:           a.Pool,
		WindowSizeSecs: int64(windowSeconds),
		WindowStart:    unixUTC(a.WindowStart),
		WindowEnd:      unixUTC(a.WindowEnd),
		FirstSeq:       a.FirstSeq,
		LastSeq:        a.LastSeq,
		SwapCount:      a.SwapCount,
		VolumeA:        a.VolumeA,
		VolumeB:        a.VolumeB,
		FeeLPA:         a.FeeLPA,
		FeeLPB:         a.FeeLPB,
		FeeTeamA:       a.FeeTeamA,
		FeeTeamB:       a.FeeTeamB,
	}

	if a.Closing.Initialized {
		reserveA, reserveB := a.Closing.ReserveA, a.Closing.ReserveB
		metrics.ReserveA = &reserveA
		metrics.ReserveB = &reserveB
	}
	metrics.FeeRateA = computeFeeRate(a.FeeLPA, a.Closing.ReserveA)
	metrics.FeeRateB = computeFeeRate(a.FeeLPB, a.Closing.ReserveB)
	metrics.APR = computeAPR(a.FeeLPA, a.FeeLPB, a.Closing, windowSeconds)
	return metrics
}
