package domain

import "time"

// Position represents the single directional position held by the bot.
type Position struct {
	ID         int64          `json:"id"`          // Unique identifier for the position (usually from DB)
	Symbol     string         `json:"symbol"`      // Trading symbol (e.g., "BTCUSDT")
	Side       PositionSide   `json:"side"`        // long or short
	EntryPrice float64        `json:"entry_price"` // Price at which the position was entered
	ExitPrice  float64        `json:"exit_price"`  // Price at which the position was exited (0 if open)
	Quantity   float64        `json:"quantity"`    // Size of the position
	StopLoss   float64        `json:"stop_loss"`   // Current stop-loss level, ratcheted in trend mode
	TakeProfit float64        `json:"take_profit"` // Fixed take-profit level computed at entry
	EntryTime  time.Time      `json:"entry_time"`  // Timestamp when the position was entered
	ExitTime   time.Time      `json:"exit_time"`   // Timestamp when the position was exited (zero value if open)
	Status     PositionStatus `json:"status"`      // Current status (open, closed)

	// TrailingStop is nil until trend mode engages it for the first time.
	TrailingStop *float64 `json:"trailing_stop"`

	RealizedDelta float64     `json:"realized_delta"` // Per-unit profit booked on close
	PNL           float64     `json:"pnl"`            // Quote profit realized so far, including partial exits
	CloseReason   CloseReason `json:"close_reason,omitempty"`
}

// IsOpen checks if the position status is open.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// TrailingActive reports whether trend mode has engaged the trailing stop.
func (p *Position) TrailingActive() bool {
	return p.TrailingStop != nil
}

// Clone returns a deep copy so callers never share the trailing stop pointer.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	cp := *p
	if p.TrailingStop != nil {
		ts := *p.TrailingStop
		cp.TrailingStop = &ts
	}
	return &cp
}

// RealizedDeltaAt returns the per-unit profit of closing at exitPrice.
// Long books exit-entry, short books entry-exit.
func (p *Position) RealizedDeltaAt(exitPrice float64) float64 {
	if p.Side == Short {
		return p.EntryPrice - exitPrice
	}
	return exitPrice - p.EntryPrice
}

// CloseAt marks the position closed at exitPrice and books its profit.
// PNL adds to whatever earlier partial exits already realized.
func (p *Position) CloseAt(exitPrice float64, reason CloseReason, at time.Time) {
	p.RealizedDelta = p.RealizedDeltaAt(exitPrice)
	p.PNL += p.RealizedDelta * p.Quantity
	p.ExitPrice = exitPrice
	p.ExitTime = at
	p.CloseReason = reason
	p.Status = StatusClosed
}

// ToTrade converts a closed position into its round-trip record.
func (p *Position) ToTrade() *Trade {
	return &Trade{
		PositionID:    p.ID,
		Symbol:        p.Symbol,
		Side:          p.Side,
		EntryPrice:    p.EntryPrice,
		ExitPrice:     p.ExitPrice,
		Quantity:      p.Quantity,
		RealizedDelta: p.RealizedDelta,
		PNL:           p.PNL,
		EntryTime:     p.EntryTime,
		ExitTime:      p.ExitTime,
		CloseReason:   p.CloseReason,
	}
}
