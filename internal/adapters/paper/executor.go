package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bandScalper/internal/ports"
)

// Executor simulates market orders by filling them at the close of the
// latest bar. It needs no API keys, only public market data.
type Executor struct {
	market   ports.MarketData
	interval string
	logger   ports.Logger
	now      func() time.Time

	mu     sync.Mutex
	nextID int64
}

// Config holds configuration for the paper executor.
type Config struct {
	Market   ports.MarketData
	Interval string // Bar interval used to price fills
	Logger   ports.Logger
}

// New creates a paper executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Market == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("market data and logger are required for paper execution")
	}
	if cfg.Interval == "" {
		return nil, fmt.Errorf("%w: paper execution needs a bar interval", ports.ErrConfigurationError)
	}
	return &Executor{
		market:   cfg.Market,
		interval: cfg.Interval,
		logger:   cfg.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// SubmitOrder fills req in full at the latest close.
func (e *Executor) SubmitOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderResult, error) {
	op := "SubmitOrder"
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%s failed: %w: quantity must be positive", op, ports.ErrInvalidRequest)
	}
	bars, err := e.market.FetchBars(ctx, req.Symbol, e.interval, 1)
	if err != nil {
		return nil, fmt.Errorf("%s failed: pricing fill: %w", op, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s failed: %w: no bar to price the fill", op, ports.ErrExchangeUnavailable)
	}
	price := bars[len(bars)-1].Close

	e.mu.Lock()
	e.nextID++
	res := ports.OrderResult{
		OrderID:       fmt.Sprintf("paper-%d", e.nextID),
		ClientOrderID: req.ClientOrderID,
		Status:        "FILLED",
		ExecutedQty:   req.Quantity,
		AvgPrice:      price,
		Timestamp:     e.now(),
	}
	e.mu.Unlock()

	e.logger.Info(ctx, op+": Paper order filled", map[string]interface{}{
		"symbol":        req.Symbol,
		"side":          req.Side,
		"quantity":      req.Quantity,
		"price":         price,
		"orderID":       res.OrderID,
		"clientOrderID": req.ClientOrderID,
	})
	return &res, nil
}
