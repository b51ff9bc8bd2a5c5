package binanceclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"bandScalper/internal/domain"
	"bandScalper/internal/ports"
)

const (
	// Base URLs
	futuresBaseURLProduction = "https://fapi.binance.com"
	futuresBaseURLTestnet    = "https://testnet.binancefuture.com"
	futuresMaxKlines         = 1500
)

// FuturesClient implements ports.ExchangeClient against USDⓈ-M futures.
// Shorts are native here; on spot a short entry is a plain sell.
type FuturesClient struct {
	base
	client *futures.Client
}

// NewFutures creates a new Binance futures adapter.
func NewFutures(cfg Config) (*FuturesClient, error) {
	b, err := newBase(cfg)
	if err != nil {
		return nil, err
	}
	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using global futures.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = futuresBaseURLTestnet
	} else {
		client.BaseURL = futuresBaseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance futures client configured", map[string]interface{}{"baseURL": client.BaseURL, "testnet": cfg.UseTestnet})
	return &FuturesClient{base: b, client: client}, nil
}

// Ping checks the connectivity to the exchange API.
func (c *FuturesClient) Ping(ctx context.Context) error {
	op := "Ping"
	if err := c.client.NewPingService().Do(ctx); err != nil {
		// Ping failure likely indicates connection or availability issues
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// SetServerTime synchronizes the client's time with the server's time.
func (c *FuturesClient) SetServerTime(ctx context.Context) error {
	op := "SetServerTime"
	if _, err := c.client.NewSetServerTimeService().Do(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// FetchBars returns the most recent count bars, oldest first.
func (c *FuturesClient) FetchBars(ctx context.Context, symbol, interval string, count int) ([]domain.Bar, error) {
	op := "FetchBars"
	if count > futuresMaxKlines {
		count = futuresMaxKlines
	}
	klines, err := c.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(count).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	return c.translateBars(ctx, futuresRawBars(klines), symbol, interval, op)
}

// FetchBarsRange fetches every bar for symbol/interval between start and end.
func (c *FuturesClient) FetchBarsRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.Bar, error) {
	op := "FetchBarsRange"
	raw, err := c.fetchRange(ctx, start, end, futuresMaxKlines, op, func(ctx context.Context, from time.Time) ([]rawBar, error) {
		klines, err := c.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(from.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(futuresMaxKlines).
			Do(ctx)
		if err != nil {
			return nil, err
		}
		return futuresRawBars(klines), nil
	})
	if err != nil {
		return nil, err
	}
	return c.translateBars(ctx, raw, symbol, interval, op)
}

// SubmitOrder places a market order and asks for the RESULT response so
// the fill price and executed quantity come back with it.
func (c *FuturesClient) SubmitOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderResult, error) {
	op := "SubmitOrder"
	qty, err := c.formatQuantity(req.Quantity)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	svc := c.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(futures.SideType(req.Side)).
		Type(futures.OrderTypeMarket).
		Quantity(qty).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT)
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}
	order, err := svc.Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	res := translateFuturesOrder(order)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol":        req.Symbol,
		"side":          req.Side,
		"quantity":      qty,
		"orderID":       res.OrderID,
		"clientOrderID": res.ClientOrderID,
		"status":        res.Status,
		"avgPrice":      res.AvgPrice,
	})
	return res, nil
}

func futuresRawBars(klines []*futures.Kline) []rawBar {
	raw := make([]rawBar, 0, len(klines))
	for _, k := range klines {
		if k == nil {
			continue
		}
		raw = append(raw, rawBar{
			OpenTime:  k.OpenTime,
			CloseTime: k.CloseTime,
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Volume,
		})
	}
	return raw
}

func translateFuturesOrder(order *futures.CreateOrderResponse) *ports.OrderResult {
	if order == nil {
		return nil
	}
	avg := parseFloat(order.AvgPrice)
	if avg <= 0 {
		avg = averagePrice(order.CumQuote, order.ExecutedQuantity)
	}
	return &ports.OrderResult{
		OrderID:       strconv.FormatInt(order.OrderID, 10),
		ClientOrderID: order.ClientOrderID,
		Status:        string(order.Status),
		ExecutedQty:   parseFloat(order.ExecutedQuantity),
		AvgPrice:      avg,
		Timestamp:     time.UnixMilli(order.UpdateTime).UTC(),
	}
}
