package paper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandScalper/internal/domain"
	"bandScalper/internal/ports"
)

type mockLogger struct{}

func (mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockMarket struct {
	bars     []domain.Bar
	err      error
	interval string
	count    int
}

func (m *mockMarket) FetchBars(ctx context.Context, symbol, interval string, count int) ([]domain.Bar, error) {
	m.interval = interval
	m.count = count
	return m.bars, m.err
}

func TestNew(t *testing.T) {
	_, err := New(Config{Logger: mockLogger{}, Interval: "1m"})
	assert.Error(t, err)
	_, err = New(Config{Market: &mockMarket{}, Logger: mockLogger{}})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestSubmitOrder(t *testing.T) {
	tests := []struct {
		name    string
		market  *mockMarket
		qty     float64
		wantErr error
	}{
		{name: "fills at latest close", market: &mockMarket{bars: []domain.Bar{{Close: 9900}}}, qty: 0.5},
		{name: "market error", market: &mockMarket{err: ports.ErrRateLimited}, qty: 0.5, wantErr: ports.ErrRateLimited},
		{name: "no bars", market: &mockMarket{}, qty: 0.5, wantErr: ports.ErrExchangeUnavailable},
		{name: "zero quantity", market: &mockMarket{bars: []domain.Bar{{Close: 1}}}, qty: 0, wantErr: ports.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := New(Config{Market: tt.market, Interval: "1m", Logger: mockLogger{}})
			require.NoError(t, err)

			res, err := ex.SubmitOrder(context.Background(), ports.OrderRequest{
				Symbol: "BTCUSDT", Side: domain.Buy, Quantity: tt.qty, ClientOrderID: "bs1",
			})
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			assert.True(t, res.Filled())
			assert.Equal(t, 9900.0, res.AvgPrice)
			assert.Equal(t, 0.5, res.ExecutedQty)
			assert.Equal(t, "bs1", res.ClientOrderID)
			assert.Equal(t, "paper-1", res.OrderID)
			assert.Equal(t, "1m", tt.market.interval)
			assert.Equal(t, 1, tt.market.count)

			next, err := ex.SubmitOrder(context.Background(), ports.OrderRequest{
				Symbol: "BTCUSDT", Side: domain.Sell, Quantity: tt.qty, ClientOrderID: "bs2",
			})
			require.NoError(t, err)
			assert.Equal(t, "paper-2", next.OrderID)
		})
	}
}

var _ ports.OrderExecutor = (*Executor)(nil)
