package bybit

import (
	"context"
	"sort"
	"strings"

	"github.com/Cenotaph26/trading-botv5/pkg/types"
)

const linear = "linear"

// Source serves USDT linear perpetual market data.
type Source struct {
	client *Client
}

// NewSource wraps a client as a market data source.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

func (s *Source) Name() string { return "bybit-" + s.client.Environment() }

// Symbols returns trading USDT perpetuals, sorted.
func (s *Source) Symbols(ctx context.Context) ([]string, error) {
	instruments, err := s.client.GetInstruments(ctx, linear)
	if err != nil {
		return nil, err
	}
	return perpetualSymbols(instruments), nil
}

func perpetualSymbols(instruments []Instrument) []string {
	out := make([]string, 0, len(instruments))
	for _, in := range instruments {
		if in.ContractType == "LinearPerpetual" && in.Status == "Trading" && strings.HasSuffix(in.Symbol, "USDT") {
			out = append(out, in.Symbol)
		}
	}
	sort.Strings(out)
	return out
}

// Tickers returns 24h statistics for every linear symbol.
func (s *Source) Tickers(ctx context.Context) ([]types.Ticker, error) {
	rows, err := s.client.GetTickers(ctx, linear)
	if err != nil {
		return nil, err
	}
	out := make([]types.Ticker, 0, len(rows))
	for _, r := range rows {
		out = append(out, tickerFromInfo(r))
	}
	return out, nil
}

func tickerFromInfo(r TickerInfo) types.Ticker {
	return types.Ticker{
		Symbol:      r.Symbol,
		Price:       r.LastPrice,
		Change:      r.Price24hPcnt * 100,
		Volume:      r.Volume24h,
		High:        r.HighPrice24h,
		Low:         r.LowPrice24h,
		QuoteVolume: r.Turnover24h,
		OpenPrice:   r.PrevPrice24h,
	}
}

// Prices returns last prices keyed by symbol. Bybit has no lighter endpoint
// than the tickers list.
func (s *Source) Prices(ctx context.Context) (map[string]float64, error) {
	rows, err := s.client.GetTickers(ctx, linear)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.Symbol] = r.LastPrice
	}
	return out, nil
}

// Klines returns candles oldest first.
func (s *Source) Klines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	iv, err := ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	rows, err := s.client.GetKlines(ctx, KlineParams{
		Category: linear,
		Symbol:   symbol,
		Interval: iv,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]types.OHLCV, len(rows))
	for i, k := range rows {
		out[i] = types.OHLCV{
			Open:      k.OpenPrice,
			High:      k.HighPrice,
			Low:       k.LowPrice,
			Close:     k.ClosePrice,
			Volume:    k.Volume,
			Timestamp: k.StartTime,
		}
	}
	return out, nil
}
