package ports

import (
	"context"

	"bandScalper/internal/domain"
)

// StateRepository persists the bot's trading state so it survives restarts.
type StateRepository interface {
	// CreatePosition saves a new position and returns its assigned ID.
	CreatePosition(ctx context.Context, pos *domain.Position) (int64, error)
	// UpdatePosition modifies an existing position (ratcheted stops, close details).
	UpdatePosition(ctx context.Context, pos *domain.Position) error
	// FindOpenPosition retrieves the currently open position for a symbol.
	// Returns nil, nil if no open position is found.
	FindOpenPosition(ctx context.Context, symbol string) (*domain.Position, error)
	// CreateTrade saves a closed round trip and returns its assigned ID.
	CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// FindTrades retrieves the most recent trades for a symbol, oldest first.
	FindTrades(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error)
	// AppendIntent records a confirmed order.
	AppendIntent(ctx context.Context, intent *domain.TradeIntent) error
	// FindIntents retrieves the most recent intents for a symbol, oldest first.
	FindIntents(ctx context.Context, symbol string, limit int) ([]domain.TradeIntent, error)
	// GetTotalProfit sums the realized per-unit delta over all closed trades.
	GetTotalProfit(ctx context.Context, symbol string) (float64, error)
}

// StatusPublisher pushes committed status snapshots to external readers.
type StatusPublisher interface {
	Publish(ctx context.Context, status domain.BotStatus) error
}
