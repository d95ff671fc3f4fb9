package types

import (
	"encoding/json"
	"time"
)

// OHLCV is one candle of a (symbol, interval) series.
type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// candleJSON is the compact wire shape used by the dashboard charts.
type candleJSON struct {
	T int64   `json:"t"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

// MarshalJSON encodes the candle with millisecond open time.
func (c OHLCV) MarshalJSON() ([]byte, error) {
	return json.Marshal(candleJSON{
		T: c.Timestamp.UnixMilli(),
		O: c.Open,
		H: c.High,
		L: c.Low,
		C: c.Close,
		V: c.Volume,
	})
}

// UnmarshalJSON decodes the compact wire shape.
func (c *OHLCV) UnmarshalJSON(data []byte) error {
	var raw candleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = OHLCV{
		Open:      raw.O,
		High:      raw.H,
		Low:       raw.L,
		Close:     raw.C,
		Volume:    raw.V,
		Timestamp: time.UnixMilli(raw.T),
	}
	return nil
}

// Ticker is a 24h rolling snapshot for one symbol.
type Ticker struct {
	Symbol      string    `json:"-"`
	Price       float64   `json:"price"`
	Change      float64   `json:"change"`
	Volume      float64   `json:"volume"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	QuoteVolume float64   `json:"quoteVolume"`
	OpenPrice   float64   `json:"openPrice"`
	Count       int64     `json:"count"`
	Timestamp   time.Time `json:"-"`
}

// Direction is the side of a synthetic position.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Sign returns +1 for LONG and -1 for SHORT.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// Closes extracts close prices.
func Closes(candles []OHLCV) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts volumes.
func Volumes(candles []OHLCV) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
