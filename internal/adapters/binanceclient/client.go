package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"

	"bandScalper/internal/domain"
	"bandScalper/internal/ports"
)

// Config holds configuration specific to the Binance client adapters.
type Config struct {
	APIKey            string
	SecretKey         string
	UseTestnet        bool
	Logger            ports.Logger
	QuantityPrecision int // Decimal places accepted for order quantities
}

// rawBar is the venue-independent string form of a REST kline.
type rawBar struct {
	OpenTime  int64
	CloseTime int64
	Open      string
	High      string
	Low       string
	Close     string
	Volume    string
}

// base carries what the spot and futures clients share.
type base struct {
	logger            ports.Logger
	quantityPrecision int32
}

func newBase(cfg Config) (base, error) {
	if cfg.Logger == nil {
		return base{}, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.QuantityPrecision < 0 {
		return base{}, fmt.Errorf("%w: negative quantity precision", ports.ErrConfigurationError)
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}
	return base{logger: cfg.Logger, quantityPrecision: int32(cfg.QuantityPrecision)}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (b base) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}
	finalErr := classifyError(err, operation)

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message
		b.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}
	b.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

func classifyError(err error, operation string) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s failed: %w: %w", operation, mapAPICode(apiErr.Code), err)
	}

	// Non-API errors (network, context cancellation, parsing)
	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	case strings.Contains(msg, "use of closed network connection"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset by peer"):
		return fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	case strings.Contains(msg, "status code 5"), strings.Contains(msg, "no such host"):
		return fmt.Errorf("%s failed: %w: %w", operation, ports.ErrExchangeUnavailable, err)
	}
	return fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
}

func mapAPICode(code int64) error {
	switch code {
	case -1003, -1015: // Too many requests / too many new orders
		return ports.ErrRateLimited
	case -1001, -1006, -1007, -1008: // Disconnected, unexpected response, backend timeout, overloaded
		return ports.ErrExchangeUnavailable
	case -1021: // Timestamp outside of recvWindow
		return ports.ErrTimeout
	case -1022: // Signature for this request is not valid
		return ports.ErrAuthenticationFailed
	case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1121, -1125, -1127, -1128, -1130:
		return ports.ErrInvalidRequest
	case -1013, -4003: // Filter failure / qty outside permissible range
		return ports.ErrInvalidRequest
	case -2010, -2022: // New order rejected / ReduceOnly rejected
		return ports.ErrOrderPlacementFailed
	case -2013:
		return ports.ErrOrderNotFound
	case -2014, -2015:
		return ports.ErrInvalidAPIKeys
	case -2019, -3005, -3041, -4047: // Margin or balance insufficient
		return ports.ErrInsufficientFunds
	}
	return ports.ErrUnknown
}

// formatQuantity renders qty with the venue precision, truncating so the
// order never exceeds the configured size.
func (b base) formatQuantity(qty float64) (string, error) {
	return formatQuantity(qty, b.quantityPrecision)
}

func formatQuantity(qty float64, precision int32) (string, error) {
	d := decimal.NewFromFloat(qty).Truncate(precision)
	if !d.IsPositive() {
		return "", fmt.Errorf("%w: quantity %v rounds to zero at precision %d", ports.ErrInvalidRequest, qty, precision)
	}
	return d.String(), nil
}

// averagePrice derives the fill price from the quote and base amounts.
func averagePrice(quoteQty, executedQty string) float64 {
	quote, err := decimal.NewFromString(quoteQty)
	if err != nil {
		return 0
	}
	executed, err := decimal.NewFromString(executedQty)
	if err != nil || executed.IsZero() {
		return 0
	}
	return quote.Div(executed).InexactFloat64()
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func translateBar(rb rawBar, symbol, interval string) (domain.Bar, error) {
	open, err := strconv.ParseFloat(rb.Open, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing open price '%s': %w", rb.Open, err)
	}
	high, err := strconv.ParseFloat(rb.High, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing high price '%s': %w", rb.High, err)
	}
	low, err := strconv.ParseFloat(rb.Low, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing low price '%s': %w", rb.Low, err)
	}
	cls, err := strconv.ParseFloat(rb.Close, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing close price '%s': %w", rb.Close, err)
	}
	vol, err := strconv.ParseFloat(rb.Volume, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing volume '%s': %w", rb.Volume, err)
	}

	return domain.Bar{
		OpenTime:  time.UnixMilli(rb.OpenTime).UTC(),
		CloseTime: time.UnixMilli(rb.CloseTime).UTC(),
		Symbol:    symbol,
		Interval:  interval,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
	}, nil
}

func (b base) translateBars(ctx context.Context, raw []rawBar, symbol, interval, op string) ([]domain.Bar, error) {
	bars := make([]domain.Bar, 0, len(raw))
	for _, rb := range raw {
		bar, err := translateBar(rb, symbol, interval)
		if err != nil {
			return nil, b.handleError(ctx, fmt.Errorf("failed to translate kline: %w", err), op)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// fetchRange pages through [start, end] using page, which returns at most
// maxLimit bars beginning at from.
func (b base) fetchRange(ctx context.Context, start, end time.Time, maxLimit int, op string,
	page func(ctx context.Context, from time.Time) ([]rawBar, error)) ([]rawBar, error) {
	var all []rawBar
	from := start
	for {
		raw, err := page(ctx, from)
		if err != nil {
			return nil, b.handleError(ctx, err, op)
		}
		if len(raw) == 0 {
			break
		}
		all = append(all, raw...)
		last := raw[len(raw)-1]
		from = time.UnixMilli(last.CloseTime + 1)
		if from.After(end) || len(raw) < maxLimit {
			break
		}
	}
	return all, nil
}
