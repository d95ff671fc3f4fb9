package exchange

import (
	"context"

	"github.com/Cenotaph26/trading-botv5/pkg/types"
)

// Source is read-only venue access for USDT perpetual market data.
type Source interface {
	Name() string

	// Symbols lists tradable USDT perpetuals, sorted.
	Symbols(ctx context.Context) ([]string, error)

	// Tickers returns 24h statistics for every listed symbol.
	Tickers(ctx context.Context) ([]types.Ticker, error)

	// Prices returns last prices keyed by symbol.
	Prices(ctx context.Context) (map[string]float64, error)

	// Klines returns up to limit candles, oldest first.
	Klines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error)
}
