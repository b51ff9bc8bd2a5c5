package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// PositionSide is the direction of an open position.
type PositionSide string

const (
	Long  PositionSide = "long"
	Short PositionSide = "short"
)

// EntrySide returns the order side that opens a position in this direction.
func (s PositionSide) EntrySide() OrderSide {
	if s == Short {
		return Sell
	}
	return Buy
}

// ExitSide returns the order side that flattens a position in this direction.
func (s PositionSide) ExitSide() OrderSide {
	if s == Short {
		return Buy
	}
	return Sell
}

// PositionStatus represents the status of a trading position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// CloseReason indicates why a position was closed.
type CloseReason string

const (
	CloseReasonStopLoss        CloseReason = "SL"
	CloseReasonTakeProfit      CloseReason = "TP"
	CloseReasonTrendTakeProfit CloseReason = "TREND_TP" // 4·ATR target while the trailing stop is engaged
	CloseReasonUnknown         CloseReason = "Unknown"
)

// IntentPurpose tells whether an order intent opened or closed a position.
type IntentPurpose string

const (
	PurposeOpen  IntentPurpose = "open"
	PurposeClose IntentPurpose = "close"
)
