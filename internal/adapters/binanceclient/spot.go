package binanceclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"

	"bandScalper/internal/domain"
	"bandScalper/internal/ports"
)

const (
	spotBaseURLProduction = "https://api.binance.com"
	spotBaseURLTestnet    = "https://testnet.binance.vision"
	spotMaxKlines         = 1000
)

// SpotClient implements ports.ExchangeClient against the Binance spot API.
type SpotClient struct {
	base
	client *binance.Client
}

// NewSpot creates a new Binance spot adapter.
func NewSpot(cfg Config) (*SpotClient, error) {
	b, err := newBase(cfg)
	if err != nil {
		return nil, err
	}
	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = spotBaseURLTestnet
	} else {
		client.BaseURL = spotBaseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance spot client configured", map[string]interface{}{"baseURL": client.BaseURL, "testnet": cfg.UseTestnet})
	return &SpotClient{base: b, client: client}, nil
}

// Ping checks the connectivity to the exchange API.
func (c *SpotClient) Ping(ctx context.Context) error {
	op := "Ping"
	if err := c.client.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// SetServerTime synchronizes the client's time with the server's time.
func (c *SpotClient) SetServerTime(ctx context.Context) error {
	op := "SetServerTime"
	offset, err := c.client.NewSetServerTimeService().Do(ctx)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"offsetMs": offset})
	return nil
}

// FetchBars returns the most recent count bars, oldest first.
func (c *SpotClient) FetchBars(ctx context.Context, symbol, interval string, count int) ([]domain.Bar, error) {
	op := "FetchBars"
	if count > spotMaxKlines {
		count = spotMaxKlines
	}
	klines, err := c.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(count).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	return c.translateBars(ctx, spotRawBars(klines), symbol, interval, op)
}

// FetchBarsRange fetches every bar for symbol/interval between start and end.
func (c *SpotClient) FetchBarsRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.Bar, error) {
	op := "FetchBarsRange"
	raw, err := c.fetchRange(ctx, start, end, spotMaxKlines, op, func(ctx context.Context, from time.Time) ([]rawBar, error) {
		klines, err := c.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(from.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(spotMaxKlines).
			Do(ctx)
		if err != nil {
			return nil, err
		}
		return spotRawBars(klines), nil
	})
	if err != nil {
		return nil, err
	}
	return c.translateBars(ctx, raw, symbol, interval, op)
}

// SubmitOrder places a market order and reports its fill.
func (c *SpotClient) SubmitOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderResult, error) {
	op := "SubmitOrder"
	qty, err := c.formatQuantity(req.Quantity)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	svc := c.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(binance.SideType(req.Side)).
		Type(binance.OrderTypeMarket).
		Quantity(qty)
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}
	order, err := svc.Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	res := translateSpotOrder(order)
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

func spotRawBars(klines []*binance.Kline) []rawBar {
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

func translateSpotOrder(order *binance.CreateOrderResponse) *ports.OrderResult {
	if order == nil {
		return nil
	}
	return &ports.OrderResult{
		OrderID:       strconv.FormatInt(order.OrderID, 10),
		ClientOrderID: order.ClientOrderID,
		Status:        string(order.Status),
		ExecutedQty:   parseFloat(order.ExecutedQuantity),
		AvgPrice:      averagePrice(order.CummulativeQuoteQuantity, order.ExecutedQuantity),
		Timestamp:     time.UnixMilli(order.TransactTime).UTC(),
	}
}
