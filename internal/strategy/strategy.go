package strategy

import (
	"context"
	"fmt"
	"math"

	"bandScalper/internal/domain"
	"bandScalper/internal/ports"
	"bandScalper/internal/strategy/indicators"
)

// Config holds the entry thresholds of the band scalping strategy.
type Config struct {
	BandTolerance     float64 // price distance from a band still counted as touching it, e.g. 50
	RSILongBelow      float64 // e.g., 36.0
	RSIShortAbove     float64 // e.g., 63.0
	StopATRMult       float64 // initial stop distance in ATRs, e.g. 1
	TakeProfitATRMult float64 // initial target distance in ATRs, e.g. 3
}

// DefaultConfig returns the thresholds the strategy was tuned with.
func DefaultConfig() Config {
	return Config{
		BandTolerance:     50,
		RSILongBelow:      36,
		RSIShortAbove:     63,
		StopATRMult:       1,
		TakeProfitATRMult: 3,
	}
}

// SignalKind is the outcome of an evaluation.
type SignalKind string

const (
	NoSignal   SignalKind = "none"
	EnterLong  SignalKind = "enter_long"
	EnterShort SignalKind = "enter_short"
)

// Diagnostics is the per-condition breakdown of an evaluation.
type Diagnostics struct {
	NearLowerBand bool `json:"near_lower_band"`
	RSIOversold   bool `json:"rsi_oversold"`
	MACDAbove     bool `json:"macd_above_signal"`
	NearUpperBand bool `json:"near_upper_band"`
	RSIOverbought bool `json:"rsi_overbought"`
	MACDBelow     bool `json:"macd_below_signal"`
	ATRDefined    bool `json:"atr_defined"`
}

// Fields flattens the diagnostics for structured logging.
func (d Diagnostics) Fields() map[string]interface{} {
	return map[string]interface{}{
		"nearLowerBand": d.NearLowerBand,
		"rsiOversold":   d.RSIOversold,
		"macdAbove":     d.MACDAbove,
		"nearUpperBand": d.NearUpperBand,
		"rsiOverbought": d.RSIOverbought,
		"macdBelow":     d.MACDBelow,
		"atrDefined":    d.ATRDefined,
	}
}

// Signal is an entry decision with its initial protective levels.
type Signal struct {
	Kind        SignalKind
	EntryPrice  float64
	StopLoss    float64
	TakeProfit  float64
	Diagnostics Diagnostics
}

// Side maps the signal to a position direction. Only meaningful for entries.
func (s Signal) Side() domain.PositionSide {
	if s.Kind == EnterShort {
		return domain.Short
	}
	return domain.Long
}

// Evaluator decides entries from the latest indicator snapshot while flat.
type Evaluator struct {
	cfg    Config
	logger ports.Logger
}

// New creates a new Evaluator instance.
func New(cfg Config, logger ports.Logger) (*Evaluator, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	if cfg.BandTolerance < 0 {
		return nil, fmt.Errorf("band tolerance cannot be negative")
	}
	if cfg.RSILongBelow <= 0 || cfg.RSIShortAbove >= 100 || cfg.RSILongBelow > 100 || cfg.RSIShortAbove < 0 {
		return nil, fmt.Errorf("RSI thresholds must lie within 0-100")
	}
	if cfg.StopATRMult <= 0 || cfg.TakeProfitATRMult <= 0 {
		return nil, fmt.Errorf("ATR multipliers must be positive")
	}
	return &Evaluator{cfg: cfg, logger: logger}, nil
}

// Evaluate returns an entry signal for the given snapshot and close.
// Long is checked first and wins when both sides qualify. A branch whose
// inputs are undefined never fires.
func (e *Evaluator) Evaluate(ctx context.Context, snap indicators.Snapshot, close float64) Signal {
	d := e.diagnose(snap, close)
	sig := Signal{Kind: NoSignal, Diagnostics: d}

	switch {
	case d.NearLowerBand && d.RSIOversold && d.MACDAbove && d.ATRDefined:
		sig.Kind = EnterLong
		sig.EntryPrice = close
		sig.StopLoss, sig.TakeProfit = e.Levels(domain.Long, close, snap.ATR)
	case d.NearUpperBand && d.RSIOverbought && d.MACDBelow && d.ATRDefined:
		sig.Kind = EnterShort
		sig.EntryPrice = close
		sig.StopLoss, sig.TakeProfit = e.Levels(domain.Short, close, snap.ATR)
	}

	if sig.Kind == NoSignal {
		fields := d.Fields()
		fields["close"] = close
		fields["lowerBand"] = snap.LowerBand
		fields["upperBand"] = snap.UpperBand
		fields["rsi"] = snap.RSI
		fields["macd"] = snap.MACD
		fields["signalLine"] = snap.SignalLine
		e.logger.Debug(ctx, "Entry conditions not met", fields)
		return sig
	}

	e.logger.Info(ctx, "Entry conditions met", map[string]interface{}{
		"signal":     sig.Kind,
		"close":      close,
		"rsi":        snap.RSI,
		"atr":        snap.ATR,
		"stopLoss":   sig.StopLoss,
		"takeProfit": sig.TakeProfit,
	})
	return sig
}

// Levels computes the initial stop-loss and take-profit around an entry price.
func (e *Evaluator) Levels(side domain.PositionSide, entry, atr float64) (stopLoss, takeProfit float64) {
	if side == domain.Short {
		return entry + e.cfg.StopATRMult*atr, entry - e.cfg.TakeProfitATRMult*atr
	}
	return entry - e.cfg.StopATRMult*atr, entry + e.cfg.TakeProfitATRMult*atr
}

// NaN compares false, so an undefined input fails its condition.
func (e *Evaluator) diagnose(snap indicators.Snapshot, close float64) Diagnostics {
	return Diagnostics{
		NearLowerBand: close < snap.LowerBand+e.cfg.BandTolerance,
		RSIOversold:   snap.RSI < e.cfg.RSILongBelow,
		MACDAbove:     snap.MACD > snap.SignalLine,
		NearUpperBand: close > snap.UpperBand-e.cfg.BandTolerance,
		RSIOverbought: snap.RSI > e.cfg.RSIShortAbove,
		MACDBelow:     snap.MACD < snap.SignalLine,
		ATRDefined:    !math.IsNaN(snap.ATR),
	}
}
