package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// KlineInterval represents the time interval for kline data
type KlineInterval string

const (
	Interval1m  KlineInterval = "1"
	Interval3m  KlineInterval = "3"
	Interval5m  KlineInterval = "5"
	Interval15m KlineInterval = "15"
	Interval30m KlineInterval = "30"
	Interval1h  KlineInterval = "60"
	Interval2h  KlineInterval = "120"
	Interval4h  KlineInterval = "240"
	Interval6h  KlineInterval = "360"
	Interval12h KlineInterval = "720"
	Interval1d  KlineInterval = "D"
	Interval1w  KlineInterval = "W"
	Interval1M  KlineInterval = "M"
)

var intervalByName = map[string]KlineInterval{
	"1m": Interval1m, "3m": Interval3m, "5m": Interval5m, "15m": Interval15m,
	"30m": Interval30m, "1h": Interval1h, "2h": Interval2h, "4h": Interval4h,
	"6h": Interval6h, "12h": Interval12h, "1d": Interval1d, "1w": Interval1w,
	"1M": Interval1M,
}

// ParseInterval maps an exchange-neutral interval name ("5m", "1h") to Bybit's.
func ParseInterval(name string) (KlineInterval, error) {
	if iv, ok := intervalByName[name]; ok {
		return iv, nil
	}
	return "", fmt.Errorf("unsupported interval %q", name)
}

// Kline represents a single kline/candlestick data point
type Kline struct {
	StartTime  time.Time
	OpenPrice  float64
	HighPrice  float64
	LowPrice   float64
	ClosePrice float64
	Volume     float64
	Turnover   float64
}

// KlineParams holds parameters for fetching kline data
type KlineParams struct {
	Category string
	Symbol   string
	Interval KlineInterval
	Limit    int
}

// TickerInfo is one row of the 24h tickers endpoint.
type TickerInfo struct {
	Symbol       string
	LastPrice    float64
	PrevPrice24h float64
	Price24hPcnt float64
	HighPrice24h float64
	LowPrice24h  float64
	Volume24h    float64
	Turnover24h  float64
}

// Instrument is the subset of instrument info used to build the symbol universe.
type Instrument struct {
	Symbol       string `json:"symbol"`
	Status       string `json:"status"`
	QuoteCoin    string `json:"quoteCoin"`
	ContractType string `json:"contractType"`
}

// GetKlines fetches klines, oldest first.
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]Kline, error) {
	if params.Category == "" {
		params.Category = "linear"
	}
	if params.Limit == 0 {
		params.Limit = 200
	}
	if params.Limit > 1000 {
		params.Limit = 1000
	}

	reqParams := map[string]interface{}{
		"category": params.Category,
		"symbol":   params.Symbol,
		"interval": string(params.Interval),
		"limit":    params.Limit,
	}

	var klines []Kline
	err := Retry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(reqParams).GetMarketKline(ctx)
		if err != nil {
			return err
		}
		klines, err = parseKlineResponse(result)
		return err
	}, c.retry)
	if err != nil {
		return nil, wrapOp("get klines", err)
	}
	return klines, nil
}

// GetTickers fetches 24h tickers for every symbol of a category.
func (c *Client) GetTickers(ctx context.Context, category string) ([]TickerInfo, error) {
	if category == "" {
		category = "linear"
	}
	params := map[string]interface{}{"category": category}

	var tickers []TickerInfo
	err := Retry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
		if err != nil {
			return err
		}
		tickers, err = parseTickersResponse(result)
		return err
	}, c.retry)
	if err != nil {
		return nil, wrapOp("get tickers", err)
	}
	return tickers, nil
}

// GetInstruments lists the instruments of a category.
func (c *Client) GetInstruments(ctx context.Context, category string) ([]Instrument, error) {
	if category == "" {
		category = "linear"
	}
	params := map[string]interface{}{
		"category": category,
		"limit":    1000,
	}

	var instruments []Instrument
	err := Retry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetInstrumentInfo(ctx)
		if err != nil {
			return err
		}
		instruments, err = parseInstrumentsResponse(result)
		return err
	}, c.retry)
	if err != nil {
		return nil, wrapOp("get instruments", err)
	}
	return instruments, nil
}

// decodeResult checks the return code and re-decodes the generic result
// payload into out.
func decodeResult(response interface{}, out interface{}) error {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok || serverResp == nil {
		return fmt.Errorf("invalid response type %T", response)
	}
	if err := checkRetCode(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := json.Unmarshal(resultBytes, out); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}

// parseKlineResponse parses the API response into Kline structs. Bybit
// returns newest first.
func parseKlineResponse(response interface{}) ([]Kline, error) {
	var klineResult struct {
		Symbol string     `json:"symbol"`
		List   [][]string `json:"list"`
	}
	if err := decodeResult(response, &klineResult); err != nil {
		return nil, err
	}

	klines := make([]Kline, 0, len(klineResult.List))
	for _, item := range klineResult.List {
		// [startTime, open, high, low, close, volume, turnover]
		if len(item) < 7 {
			continue
		}
		klines = append(klines, Kline{
			StartTime:  time.UnixMilli(parseInt64(item[0])),
			OpenPrice:  parseFloat64(item[1]),
			HighPrice:  parseFloat64(item[2]),
			LowPrice:   parseFloat64(item[3]),
			ClosePrice: parseFloat64(item[4]),
			Volume:     parseFloat64(item[5]),
			Turnover:   parseFloat64(item[6]),
		})
	}

	sort.Slice(klines, func(i, j int) bool {
		return klines[i].StartTime.Before(klines[j].StartTime)
	})
	return klines, nil
}

func parseTickersResponse(response interface{}) ([]TickerInfo, error) {
	var tickerResult struct {
		List []struct {
			Symbol       string `json:"symbol"`
			LastPrice    string `json:"lastPrice"`
			PrevPrice24h string `json:"prevPrice24h"`
			Price24hPcnt string `json:"price24hPcnt"`
			HighPrice24h string `json:"highPrice24h"`
			LowPrice24h  string `json:"lowPrice24h"`
			Volume24h    string `json:"volume24h"`
			Turnover24h  string `json:"turnover24h"`
		} `json:"list"`
	}
	if err := decodeResult(response, &tickerResult); err != nil {
		return nil, err
	}

	out := make([]TickerInfo, 0, len(tickerResult.List))
	for _, t := range tickerResult.List {
		out = append(out, TickerInfo{
			Symbol:       t.Symbol,
			LastPrice:    parseFloat64(t.LastPrice),
			PrevPrice24h: parseFloat64(t.PrevPrice24h),
			Price24hPcnt: parseFloat64(t.Price24hPcnt),
			HighPrice24h: parseFloat64(t.HighPrice24h),
			LowPrice24h:  parseFloat64(t.LowPrice24h),
			Volume24h:    parseFloat64(t.Volume24h),
			Turnover24h:  parseFloat64(t.Turnover24h),
		})
	}
	return out, nil
}

func parseInstrumentsResponse(response interface{}) ([]Instrument, error) {
	var instrumentResult struct {
		List []Instrument `json:"list"`
	}
	if err := decodeResult(response, &instrumentResult); err != nil {
		return nil, err
	}
	return instrumentResult.List, nil
}

func parseFloat64(s string) float64 {
	if s == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	i, _ := strconv.ParseInt(s, 10, 64)
	return i
}
