package ports

import (
	"context"
	"time"

	"bandScalper/internal/domain"
)

// OrderRequest describes a market order the bot wants filled.
type OrderRequest struct {
	Symbol        string           // Trading symbol
	Side          domain.OrderSide // BUY or SELL
	Quantity      float64          // Base asset quantity
	ClientOrderID string           // Idempotency key, unique per submission
}

// OrderResult represents the essential details returned after placing an order.
type OrderResult struct {
	OrderID       string    // Exchange's order ID
	ClientOrderID string    // User-defined order ID
	Status        string    // Order status (e.g., NEW, FILLED, CANCELED)
	ExecutedQty   float64   // Quantity filled
	AvgPrice      float64   // Average filled price, 0 when the venue did not report one
	Timestamp     time.Time // Time the order was transacted
}

// Filled reports whether the venue confirmed any execution.
func (r *OrderResult) Filled() bool {
	if r == nil {
		return false
	}
	switch r.Status {
	case "FILLED", "PARTIALLY_FILLED":
		return true
	}
	return r.ExecutedQty > 0
}

// MarketData supplies recent bars for one instrument.
type MarketData interface {
	// FetchBars returns up to count most recent bars, oldest first.
	FetchBars(ctx context.Context, symbol, interval string, count int) ([]domain.Bar, error)
}

// OrderExecutor submits market orders and reports the fill.
type OrderExecutor interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}

// ExchangeClient is the full venue surface used at startup and by the loop.
type ExchangeClient interface {
	MarketData
	OrderExecutor

	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error

	// SetServerTime synchronizes the client's time with the server's time.
	SetServerTime(ctx context.Context) error
}
