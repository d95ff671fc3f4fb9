package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/Cenotaph26/trading-botv5/internal/errors"
	"github.com/Cenotaph26/trading-botv5/pkg/types"
)

type fakeSource struct {
	mu         sync.Mutex
	symbols    []string
	symbolsErr error
	tickers    []types.Ticker
	tickersErr error
	prices     map[string]float64
	pricesErr  error
	candles    []types.OHLCV
	klinesErr  error
	klineCalls int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Symbols(context.Context) ([]string, error) {
	return f.symbols, f.symbolsErr
}

func (f *fakeSource) Tickers(context.Context) ([]types.Ticker, error) {
	return f.tickers, f.tickersErr
}

func (f *fakeSource) Prices(context.Context) (map[string]float64, error) {
	return f.prices, f.pricesErr
}

func (f *fakeSource) Klines(context.Context, string, string, int) ([]types.OHLCV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.klineCalls++
	return f.candles, f.klinesErr
}

func TestBootstrap_FallbackSymbols(t *testing.T) {
	var hooked []*boterrors.BotError
	src := &fakeSource{symbolsErr: errors.New("dial tcp: connection refused")}
	feed := NewFeed(src, WithErrorHook(func(e *boterrors.BotError) { hooked = append(hooked, e) }))

	feed.Bootstrap(context.Background())

	assert.Len(t, feed.Symbols(), 10)
	assert.Contains(t, feed.Symbols(), "BTCUSDT")
	assert.Equal(t, 1, feed.ErrorCount())
	require.Len(t, hooked, 1)
	assert.Equal(t, boterrors.ErrorCategoryNetwork, hooked[0].Category)
}

func TestBootstrap_LoadsTickersForUniverse(t *testing.T) {
	src := &fakeSource{
		symbols: []string{"ETHUSDT", "BTCUSDT"},
		tickers: []types.Ticker{
			{Symbol: "BTCUSDT", Price: 50000, Change: 1.5},
			{Symbol: "ETHUSDT", Price: 3000},
			{Symbol: "ETHBTC", Price: 0.06},
		},
	}
	feed := NewFeed(src)
	feed.Bootstrap(context.Background())

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, feed.Symbols())
	assert.Len(t, feed.Tickers(), 2)
	assert.Equal(t, 50000.0, feed.Price("BTCUSDT"))
	assert.Equal(t, 0.0, feed.Price("ETHBTC"))

	tk, ok := feed.Ticker("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 1.5, tk.Change)
}

func TestRefreshPrices(t *testing.T) {
	src := &fakeSource{
		symbols: []string{"BTCUSDT"},
		tickers: []types.Ticker{{Symbol: "BTCUSDT", Price: 50000}},
	}
	feed := NewFeed(src)
	feed.Bootstrap(context.Background())

	src.prices = map[string]float64{"BTCUSDT": 50100, "XYZUSDT": 1}
	feed.RefreshPrices(context.Background())
	assert.Equal(t, 50100.0, feed.Price("BTCUSDT"))
	assert.Equal(t, 0.0, feed.Price("XYZUSDT"))
	tk, _ := feed.Ticker("BTCUSDT")
	assert.Equal(t, 50100.0, tk.Price)

	src.pricesErr = errors.New("timeout")
	feed.RefreshPrices(context.Background())
	assert.Equal(t, 50100.0, feed.Price("BTCUSDT"))
}

func TestKlines_CacheAndLastKnownGood(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{candles: []types.OHLCV{{Close: 1}, {Close: 2}}}
	feed := NewFeed(src, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	got, err := feed.Klines(ctx, "BTCUSDT", "5m", 80)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = feed.Klines(ctx, "BTCUSDT", "5m", 80)
	require.NoError(t, err)
	assert.Equal(t, 1, src.klineCalls)

	// a different limit is a different window
	_, _ = feed.Klines(ctx, "BTCUSDT", "5m", 50)
	assert.Equal(t, 2, src.klineCalls)

	now = now.Add(KlineTTL)
	src.candles = nil
	got, err = feed.Klines(ctx, "BTCUSDT", "5m", 80)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 3, src.klineCalls)

	src.klinesErr = errors.New("connection reset")
	got, err = feed.FreshKlines(ctx, "BTCUSDT", "5m", 80)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 4, src.klineCalls)
}

func TestKlines_NothingCached(t *testing.T) {
	src := &fakeSource{klinesErr: errors.New("connection refused")}
	feed := NewFeed(src)

	_, err := feed.Klines(context.Background(), "BTCUSDT", "5m", 80)
	assert.Error(t, err)
	assert.Equal(t, 1, feed.ErrorCount())
	assert.NotEmpty(t, feed.RecentErrors())
}

func TestFreshKlines_BypassesTTL(t *testing.T) {
	src := &fakeSource{candles: []types.OHLCV{{Close: 1}}}
	feed := NewFeed(src)
	ctx := context.Background()

	_, _ = feed.Klines(ctx, "SOLUSDT", "5m", 50)
	_, _ = feed.FreshKlines(ctx, "SOLUSDT", "5m", 50)
	assert.Equal(t, 2, src.klineCalls)
}
