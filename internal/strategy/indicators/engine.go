package indicators

import (
	"fmt"
	"math"

	"bandScalper/internal/domain"
	"bandScalper/internal/ports"
)

// Snapshot holds the indicator values computed for one bar. NaN marks an
// undefined value and is never replaced with zero.
type Snapshot struct {
	SMA        float64 `json:"sma"`
	UpperBand  float64 `json:"upper_band"`
	LowerBand  float64 `json:"lower_band"`
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	SignalLine float64 `json:"signal_line"`
	ATR        float64 `json:"atr"`
	ADX        float64 `json:"adx"`
}

// Undefined returns a snapshot with every field NaN.
func Undefined() Snapshot {
	nan := math.NaN()
	return Snapshot{SMA: nan, UpperBand: nan, LowerBand: nan, RSI: nan, MACD: nan, SignalLine: nan, ATR: nan, ADX: nan}
}

// Complete reports whether every field is defined.
func (s Snapshot) Complete() bool {
	for _, v := range []float64{s.SMA, s.UpperBand, s.LowerBand, s.RSI, s.MACD, s.SignalLine, s.ATR, s.ADX} {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Engine turns an ordered bar series into one Snapshot per bar.
// It holds no state between calls.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine after validating its configuration.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid indicator config: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Warmup returns the number of bars needed before every snapshot field is defined.
func (e *Engine) Warmup() int {
	need := []int{
		e.cfg.Bollinger.Period,
		e.cfg.RSI.Period + 1, // one delta per bar after the first
		e.cfg.ATR.Period,
		2 * e.cfg.ADX.Period, // directional movement starts at bar 1, then two rolling windows
		1,
	}
	maxNeed := 0
	for _, n := range need {
		if n > maxNeed {
			maxNeed = n
		}
	}
	return maxNeed
}

// Compute returns one snapshot per bar. Bars before the warm-up boundary
// are fully undefined so that a snapshot is either complete or empty.
func (e *Engine) Compute(bars []domain.Bar) []Snapshot {
	n := len(bars)
	closes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
	}

	mid, upper, lower := Bollinger(closes, e.cfg.Bollinger.Period, e.cfg.BandStdDev)
	rsi := RSI(closes, e.cfg.RSI.Period)
	macd, signal := MACD(closes, e.cfg.MACDFast.Period, e.cfg.MACDSlow.Period, e.cfg.MACDSignal.Period)
	atr := ATR(bars, e.cfg.ATR.Period)
	adx := ADX(bars, e.cfg.ADX.Period)

	warm := e.Warmup() - 1
	out := make([]Snapshot, n)
	for i := 0; i < n; i++ {
		if i < warm {
			out[i] = Undefined()
			continue
		}
		out[i] = Snapshot{
			SMA:        mid[i],
			UpperBand:  upper[i],
			LowerBand:  lower[i],
			RSI:        rsi[i],
			MACD:       macd[i],
			SignalLine: signal[i],
			ATR:        atr[i],
			ADX:        adx[i],
		}
	}
	return out
}

// Latest computes the snapshot of the final bar. It fails with
// ports.ErrInsufficientData when fewer than Warmup bars are supplied.
func (e *Engine) Latest(bars []domain.Bar) (Snapshot, error) {
	if len(bars) < e.Warmup() {
		return Undefined(), fmt.Errorf("%w: need %d, got %d", ports.ErrInsufficientData, e.Warmup(), len(bars))
	}
	snaps := e.Compute(bars)
	return snaps[len(snaps)-1], nil
}
