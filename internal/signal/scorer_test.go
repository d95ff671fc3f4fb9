package signal

import (
	"context"
	"errors"
	"testing"

	"github.com/Cenotaph26/trading-botv5/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCandleSource struct {
	mock.Mock
}

func (m *mockCandleSource) Klines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	args := m.Called(ctx, symbol, interval, limit)
	candles, _ := args.Get(0).([]types.OHLCV)
	return candles, args.Error(1)
}

type panickingSource struct{}

func (panickingSource) Klines(context.Context, string, string, int) ([]types.OHLCV, error) {
	panic("boom")
}

func maxATR() float64 { return 6 }

func TestScorer_Analyze(t *testing.T) {
	source := new(mockCandleSource)
	source.On("Klines", mock.Anything, "BTCUSDT", CandleInterval, CandleLimit).
		Return(flatCandles(80, 100, 100), nil).Once()

	sig, ok := NewScorer(source, maxATR, nil).Analyze(context.Background(), "BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", sig.Symbol)
	source.AssertExpectations(t)
}

func TestScorer_Analyze_FetchError(t *testing.T) {
	source := new(mockCandleSource)
	source.On("Klines", mock.Anything, "BTCUSDT", CandleInterval, CandleLimit).
		Return(nil, errors.New("timeout")).Once()

	sig, ok := NewScorer(source, maxATR, nil).Analyze(context.Background(), "BTCUSDT")
	assert.False(t, ok)
	assert.Nil(t, sig)
}

func TestScorer_Analyze_ShortWindow(t *testing.T) {
	source := new(mockCandleSource)
	source.On("Klines", mock.Anything, "BTCUSDT", CandleInterval, CandleLimit).
		Return(flatCandles(10, 100, 100), nil).Once()

	_, ok := NewScorer(source, maxATR, nil).Analyze(context.Background(), "BTCUSDT")
	assert.False(t, ok)
}

func TestScorer_Analyze_RecoversPanic(t *testing.T) {
	scorer := NewScorer(panickingSource{}, maxATR, nil)

	assert.NotPanics(t, func() {
		sig, ok := scorer.Analyze(context.Background(), "BTCUSDT")
		assert.False(t, ok)
		assert.Nil(t, sig)
	})
}
