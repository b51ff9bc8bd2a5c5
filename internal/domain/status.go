package domain

import "time"

// PerformanceSummary aggregates closed trades for status reporting.
type PerformanceSummary struct {
	TotalTrades          int     `json:"total_trades"`
	WinningTrades        int     `json:"winning_trades"`
	LosingTrades         int     `json:"losing_trades"`
	WinRate              float64 `json:"win_rate"`
	TotalDelta           float64 `json:"total_delta"`
	TotalPNL             float64 `json:"total_pnl"`
	AverageWin           float64 `json:"average_win"`
	AverageLoss          float64 `json:"average_loss"`
	ProfitFactor         float64 `json:"profit_factor"` // 0 when there are no losses
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	MaxDrawdown          float64 `json:"max_drawdown"` // deepest peak-to-trough fall of cumulative PNL
}

// CycleError describes the last recoverable failure of the evaluation loop.
type CycleError struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
	LastClose float64   `json:"last_close"`
}

// BotStatus is a consistent, caller-owned snapshot of the bot's observable state.
type BotStatus struct {
	Symbol                   string             `json:"symbol"`
	Running                  bool               `json:"running"`
	Profit                   float64            `json:"profit"`
	Position                 *Position          `json:"position"`
	Trades                   []TradeIntent      `json:"trades"`
	LastClose                float64            `json:"last_close"`
	LastCycleAt              time.Time          `json:"last_cycle_at"`
	LastError                *CycleError        `json:"last_error,omitempty"`
	ConsecutiveOrderFailures int                `json:"consecutive_order_failures"`
	Summary                  PerformanceSummary `json:"summary"`
}
