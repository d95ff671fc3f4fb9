package exchange

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/Cenotaph26/trading-botv5/pkg/types"
)

// BinanceSource serves USDT-M perpetual futures data.
type BinanceSource struct {
	client *futures.Client
}

// NewBinanceSource creates a source on the public futures API. Keys may be
// empty, every endpoint used is unauthenticated.
func NewBinanceSource(apiKey, secret string) *BinanceSource {
	return &BinanceSource{client: futures.NewClient(apiKey, secret)}
}

// NewBinanceSourceWithClient wraps an existing client.
func NewBinanceSourceWithClient(client *futures.Client) *BinanceSource {
	return &BinanceSource{client: client}
}

func (b *BinanceSource) Name() string {
	return "binance-futures"
}

// Symbols returns trading USDT perpetuals from exchange info.
func (b *BinanceSource) Symbols(ctx context.Context) ([]string, error) {
	info, err := b.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange info: %w", err)
	}
	return perpetualSymbols(info.Symbols), nil
}

func perpetualSymbols(symbols []futures.Symbol) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if !strings.HasSuffix(s.Symbol, "USDT") {
			continue
		}
		if string(s.ContractType) != "PERPETUAL" || string(s.Status) != "TRADING" {
			continue
		}
		out = append(out, s.Symbol)
	}
	sort.Strings(out)
	return out
}

// Tickers returns 24h statistics. Rows that fail to parse are skipped.
func (b *BinanceSource) Tickers(ctx context.Context) ([]types.Ticker, error) {
	stats, err := b.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get 24h tickers: %w", err)
	}

	out := make([]types.Ticker, 0, len(stats))
	for _, s := range stats {
		if s == nil {
			continue
		}
		t, err := tickerFromStats(s)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func tickerFromStats(s *futures.PriceChangeStats) (types.Ticker, error) {
	var firstErr error
	parse := func(raw string) float64 {
		v, err := parseDecimal(raw)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("ticker %s: %w", s.Symbol, err)
		}
		return v
	}

	t := types.Ticker{
		Symbol:      s.Symbol,
		Price:       parse(s.LastPrice),
		Change:      parse(s.PriceChangePercent),
		Volume:      parse(s.Volume),
		High:        parse(s.HighPrice),
		Low:         parse(s.LowPrice),
		QuoteVolume: parse(s.QuoteVolume),
		OpenPrice:   parse(s.OpenPrice),
		Count:       s.Count,
		Timestamp:   time.UnixMilli(s.CloseTime),
	}
	if firstErr != nil {
		return types.Ticker{}, firstErr
	}
	return t, nil
}

// Prices returns the latest price of every symbol.
func (b *BinanceSource) Prices(ctx context.Context) (map[string]float64, error) {
	prices, err := b.client.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get prices: %w", err)
	}

	out := make(map[string]float64, len(prices))
	for _, p := range prices {
		if p == nil {
			continue
		}
		v, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			continue
		}
		out[p.Symbol] = v
	}
	return out, nil
}

// Klines returns candles oldest first.
func (b *BinanceSource) Klines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines for %s: %w", symbol, err)
	}
	return candlesFromKlines(klines)
}

func candlesFromKlines(klines []*futures.Kline) ([]types.OHLCV, error) {
	out := make([]types.OHLCV, 0, len(klines))
	for _, k := range klines {
		if k == nil {
			continue
		}
		open, err := parseDecimal(k.Open)
		if err != nil {
			return nil, err
		}
		high, err := parseDecimal(k.High)
		if err != nil {
			return nil, err
		}
		low, err := parseDecimal(k.Low)
		if err != nil {
			return nil, err
		}
		closePrice, err := parseDecimal(k.Close)
		if err != nil {
			return nil, err
		}
		volume, err := parseDecimal(k.Volume)
		if err != nil {
			return nil, err
		}
		out = append(out, types.OHLCV{
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
			Timestamp: time.UnixMilli(k.OpenTime),
		})
	}
	return out, nil
}

// parseDecimal treats an empty field as zero.
func parseDecimal(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return v, nil
}
