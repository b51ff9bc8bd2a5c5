package domain

import "time"

// Trade represents a completed round trip.
type Trade struct {
	ID            int64        // Unique identifier for the trade (usually from DB)
	PositionID    int64        // Identifier of the position this trade closed (optional)
	Symbol        string       // Trading symbol
	Side          PositionSide // Direction of the closed position
	EntryPrice    float64      // Price at which the position was entered
	ExitPrice     float64      // Price at which the position was exited
	Quantity      float64      // Size of the position traded
	RealizedDelta float64      // Per-unit profit booked on close
	PNL           float64      // Profit and Loss for this trade
	EntryTime     time.Time    // Timestamp when the position was entered
	ExitTime      time.Time    // Timestamp when the position was exited
	CloseReason   CloseReason  // Reason why the position was closed (SL, TP, etc.)
}

// TradeIntent is one confirmed order submitted by the bot.
type TradeIntent struct {
	Time          time.Time     `json:"time"`
	Symbol        string        `json:"symbol"`
	Side          OrderSide     `json:"side"`
	Quantity      float64       `json:"quantity"`
	FillPrice     float64       `json:"fill_price"`
	OrderID       string        `json:"order_id"`
	ClientOrderID string        `json:"client_order_id"`
	Purpose       IntentPurpose `json:"purpose"`
	PositionSide  PositionSide  `json:"position_side"`
	CloseReason   CloseReason   `json:"close_reason,omitempty"`
}
