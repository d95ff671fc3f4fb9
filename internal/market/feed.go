package market

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	boterrors "github.com/Cenotaph26/trading-botv5/internal/errors"
	"github.com/Cenotaph26/trading-botv5/internal/exchange"
	"github.com/Cenotaph26/trading-botv5/internal/logger"
	"github.com/Cenotaph26/trading-botv5/internal/safety"
	"github.com/Cenotaph26/trading-botv5/pkg/types"
)

const (
	BootstrapTimeout = 15 * time.Second
	PriceTimeout     = 5 * time.Second
	TickerTimeout    = 10 * time.Second
	KlineTimeout     = 10 * time.Second

	// KlineTTL is how long a fetched candle window is served from cache.
	KlineTTL = 10 * time.Second

	component = "feed"
)

// FallbackSymbols is the universe used when symbol discovery fails.
var FallbackSymbols = []string{
	"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "XRPUSDT",
	"ADAUSDT", "DOGEUSDT", "MATICUSDT", "AVAXUSDT", "LINKUSDT",
}

type klineEntry struct {
	candles   []types.OHLCV
	fetchedAt time.Time
}

// Feed caches symbols, tickers, prices and candle windows from one exchange
// source. Failures are logged and degrade to the cached values.
type Feed struct {
	source  exchange.Source
	log     *logger.Logger
	stats   *boterrors.ErrorStats
	onError func(*boterrors.BotError)
	breaker *safety.CircuitBreaker
	limiter *safety.RateLimiter
	now     func() time.Time

	mu        sync.RWMutex
	symbols   []string
	symbolSet map[string]struct{}
	tickers   map[string]types.Ticker
	prices    map[string]float64

	kmu    sync.Mutex
	klines map[string]klineEntry
}

// Option configures a Feed.
type Option func(*Feed)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(f *Feed) {
		if l != nil {
			f.log = l
		}
	}
}

// WithClock overrides time.Now for cache ages.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) { f.now = now }
}

// WithErrorHook is called with every recorded feed error.
func WithErrorHook(hook func(*boterrors.BotError)) Option {
	return func(f *Feed) { f.onError = hook }
}

// WithRateLimiter replaces the candle request limiter.
func WithRateLimiter(rl *safety.RateLimiter) Option {
	return func(f *Feed) { f.limiter = rl }
}

// WithCircuitBreaker replaces the candle request breaker.
func WithCircuitBreaker(cb *safety.CircuitBreaker) Option {
	return func(f *Feed) { f.breaker = cb }
}

// NewFeed creates an empty feed. Call Bootstrap before use.
func NewFeed(source exchange.Source, opts ...Option) *Feed {
	f := &Feed{
		source:    source,
		log:       logger.NewNop(),
		stats:     boterrors.NewErrorStats(50),
		now:       time.Now,
		symbolSet: make(map[string]struct{}),
		tickers:   make(map[string]types.Ticker),
		prices:    make(map[string]float64),
		klines:    make(map[string]klineEntry),
		breaker: safety.NewCircuitBreaker("klines", safety.CircuitBreakerConfig{
			FailureThreshold: 10,
			Timeout:          30 * time.Second,
		}),
		limiter: safety.NewRateLimiter("klines", 20, 10),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Bootstrap loads the symbol universe and the first ticker snapshot.
func (f *Feed) Bootstrap(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, BootstrapTimeout)
	defer cancel()

	symbols, err := f.source.Symbols(ctx)
	switch {
	case err != nil:
		f.record(err, "symbols")
		symbols = FallbackSymbols
	case len(symbols) == 0:
		f.record(boterrors.NewDataError(component, "symbols", "empty symbol list"), "symbols")
		symbols = FallbackSymbols
	}
	f.setSymbols(symbols)
	f.log.Info("%d pairs loaded from %s", len(symbols), f.source.Name())

	f.refreshTickers(ctx)
	f.log.Info("%d live prices loaded", len(f.Tickers()))
}

func (f *Feed) setSymbols(symbols []string) {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.symbols = sorted
	f.symbolSet = make(map[string]struct{}, len(sorted))
	for _, s := range sorted {
		f.symbolSet[s] = struct{}{}
	}
}

// Symbols returns the tradable universe, sorted.
func (f *Feed) Symbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.symbols...)
}

// Price returns the last known price, 0 if unknown.
func (f *Feed) Price(symbol string) float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.prices[symbol]
}

// Ticker returns the last 24h snapshot for symbol.
func (f *Feed) Ticker(symbol string) (types.Ticker, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.tickers[symbol]
	return t, ok
}

// Tickers returns a copy of the ticker map.
func (f *Feed) Tickers() map[string]types.Ticker {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]types.Ticker, len(f.tickers))
	for k, v := range f.tickers {
		out[k] = v
	}
	return out
}

// RefreshPrices pulls last prices for the whole universe.
func (f *Feed) RefreshPrices(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, PriceTimeout)
	defer cancel()

	prices, err := f.source.Prices(ctx)
	if err != nil {
		f.record(err, "prices")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for sym, p := range prices {
		if _, ok := f.symbolSet[sym]; !ok || p <= 0 {
			continue
		}
		f.prices[sym] = p
		if t, ok := f.tickers[sym]; ok {
			t.Price = p
			f.tickers[sym] = t
		}
	}
}

// RefreshTickers pulls 24h statistics for the whole universe.
func (f *Feed) RefreshTickers(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, TickerTimeout)
	defer cancel()
	f.refreshTickers(ctx)
}

func (f *Feed) refreshTickers(ctx context.Context) {
	tickers, err := f.source.Tickers(ctx)
	if err != nil {
		f.record(err, "tickers")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tickers {
		if _, ok := f.symbolSet[t.Symbol]; !ok {
			continue
		}
		f.tickers[t.Symbol] = t
		if t.Price > 0 {
			f.prices[t.Symbol] = t.Price
		}
	}
}

func klineKey(symbol, interval string, limit int) string {
	return fmt.Sprintf("%s_%s_%d", symbol, interval, limit)
}

// Klines returns a candle window, served from cache while younger than
// KlineTTL. On a failed or empty fetch the last good window is returned; an
// error is returned only when there is nothing cached.
func (f *Feed) Klines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	key := klineKey(symbol, interval, limit)

	f.kmu.Lock()
	entry, cached := f.klines[key]
	f.kmu.Unlock()
	if cached && f.now().Sub(entry.fetchedAt) < KlineTTL {
		return copyCandles(entry.candles), nil
	}
	return f.fetchKlines(ctx, key, symbol, interval, limit)
}

// FreshKlines bypasses the cache TTL, keeping last-known-good semantics.
func (f *Feed) FreshKlines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	return f.fetchKlines(ctx, klineKey(symbol, interval, limit), symbol, interval, limit)
}

func (f *Feed) fetchKlines(ctx context.Context, key, symbol, interval string, limit int) ([]types.OHLCV, error) {
	ctx, cancel := context.WithTimeout(ctx, KlineTimeout)
	defer cancel()

	var candles []types.OHLCV
	err := f.limiter.Wait(ctx)
	if err == nil {
		err = f.breaker.Call(func() error {
			var ferr error
			candles, ferr = f.source.Klines(ctx, symbol, interval, limit)
			return ferr
		})
	}
	if err == nil && len(candles) == 0 {
		err = boterrors.NewDataError(component, "klines", "empty candle window for "+symbol)
	}

	f.kmu.Lock()
	defer f.kmu.Unlock()
	if err != nil {
		f.record(err, "klines "+symbol)
		if entry, ok := f.klines[key]; ok {
			return copyCandles(entry.candles), nil
		}
		return nil, err
	}
	f.klines[key] = klineEntry{candles: candles, fetchedAt: f.now()}
	return copyCandles(candles), nil
}

func copyCandles(in []types.OHLCV) []types.OHLCV {
	return append([]types.OHLCV(nil), in...)
}

func (f *Feed) record(err error, operation string) {
	botErr := boterrors.CategorizeError(err, component, operation)
	f.stats.RecordError(botErr)
	f.log.LogWarning(component, "%v", botErr)
	if f.onError != nil {
		f.onError(botErr)
	}
}

// ErrorCount returns the number of feed errors recorded.
func (f *Feed) ErrorCount() int {
	return f.stats.Total()
}

// RecentErrors returns recent feed errors, newest first.
func (f *Feed) RecentErrors() []string {
	return f.stats.Recent()
}

// BreakerStats returns the candle request breaker state.
func (f *Feed) BreakerStats() safety.CircuitBreakerStats {
	return f.breaker.GetStats()
}
