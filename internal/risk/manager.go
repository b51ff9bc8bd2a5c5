package risk

import (
	"fmt"
	"math"
	"time"

	"bandScalper/internal/domain"
	"bandScalper/internal/strategy/indicators"
)

// RiskConfig holds configuration for the position state machine
type RiskConfig struct {
	TrendADXThreshold      float64 // ADX above which the trailing stop ratchets, e.g. 25
	TrailATRMult           float64 // trailing distance from the close in ATRs, e.g. 1
	TrendTakeProfitATRMult float64 // profit target once trailing, in ATRs from entry, e.g. 4
	FixedTakeProfitExit    bool    // exit at the fixed target while trailing is inactive
}

// DefaultRiskConfig returns the overlay the strategy was tuned with.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		TrendADXThreshold:      25,
		TrailATRMult:           1,
		TrendTakeProfitATRMult: 4,
		FixedTakeProfitExit:    true,
	}
}

// Action is the outcome of advancing an open position by one bar.
type Action string

const (
	Hold  Action = "hold"
	Close Action = "close"
)

// Decision carries the next state of a position. A Close decision leaves
// Position open: the caller books the exit once the fill price is known.
type Decision struct {
	Action    Action
	Reason    domain.CloseReason // set when Action is Close
	Ratcheted bool               // the stop moved this bar
	Position  *domain.Position   // ratcheted copy, still open; the input is never mutated
}

// RiskManager advances an open position through trend ratcheting and exits.
type RiskManager struct {
	config RiskConfig
}

// NewRiskManager creates a new risk manager instance
func NewRiskManager(config RiskConfig) (*RiskManager, error) {
	if config.TrendADXThreshold < 0 || config.TrendADXThreshold > 100 {
		return nil, fmt.Errorf("trend ADX threshold must lie within 0-100, got %v", config.TrendADXThreshold)
	}
	if config.TrailATRMult <= 0 || config.TrendTakeProfitATRMult <= 0 {
		return nil, fmt.Errorf("trailing multipliers must be positive")
	}
	return &RiskManager{config: config}, nil
}

// Config returns the manager configuration.
func (r *RiskManager) Config() RiskConfig {
	return r.config
}

// OpenPosition builds the position record for a confirmed entry.
func (r *RiskManager) OpenPosition(symbol string, side domain.PositionSide, entry, quantity, stopLoss, takeProfit float64, at time.Time) *domain.Position {
	return &domain.Position{
		Symbol:     symbol,
		Side:       side,
		EntryPrice: entry,
		Quantity:   quantity,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		EntryTime:  at,
		Status:     domain.StatusOpen,
	}
}

// Advance applies one bar to an open position. It first ratchets the
// trailing stop in a trending market, then checks exits in priority
// order: trend take-profit, stop-loss, fixed take-profit. The result
// depends only on the arguments.
func (r *RiskManager) Advance(pos *domain.Position, snap indicators.Snapshot, close float64) Decision {
	next := pos.Clone()
	ratcheted := r.ratchet(next, snap, close)

	reason, hit := r.exitReason(next, snap.ATR, close)
	if !hit {
		return Decision{Action: Hold, Ratcheted: ratcheted, Position: next}
	}

	return Decision{Action: Close, Reason: reason, Ratcheted: ratcheted, Position: next}
}

// ratchet moves the trailing stop and the stop-loss toward the price,
// never away from it.
func (r *RiskManager) ratchet(pos *domain.Position, snap indicators.Snapshot, close float64) bool {
	if math.IsNaN(snap.ADX) || math.IsNaN(snap.ATR) || snap.ADX <= r.config.TrendADXThreshold {
		return false
	}
	prevSL := pos.StopLoss
	prevTS := pos.TrailingStop
	dist := r.config.TrailATRMult * snap.ATR

	var ts float64
	if pos.Side == domain.Short {
		ts = close + dist
		if prevTS != nil {
			ts = math.Min(*prevTS, ts)
		}
		pos.StopLoss = math.Min(pos.StopLoss, ts)
	} else {
		ts = close - dist
		if prevTS != nil {
			ts = math.Max(*prevTS, ts)
		}
		pos.StopLoss = math.Max(pos.StopLoss, ts)
	}
	pos.TrailingStop = &ts
	return prevTS == nil || *prevTS != ts || prevSL != pos.StopLoss
}

func (r *RiskManager) exitReason(pos *domain.Position, atr, close float64) (domain.CloseReason, bool) {
	long := pos.Side != domain.Short

	if pos.TrailingActive() && !math.IsNaN(atr) {
		target := r.config.TrendTakeProfitATRMult * atr
		if (long && close >= pos.EntryPrice+target) || (!long && close <= pos.EntryPrice-target) {
			return domain.CloseReasonTrendTakeProfit, true
		}
	}

	if (long && close <= pos.StopLoss) || (!long && close >= pos.StopLoss) {
		return domain.CloseReasonStopLoss, true
	}

	if r.config.FixedTakeProfitExit && !pos.TrailingActive() {
		if (long && close >= pos.TakeProfit) || (!long && close <= pos.TakeProfit) {
			return domain.CloseReasonTakeProfit, true
		}
	}
	return "", false
}
