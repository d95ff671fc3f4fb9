package signal

import (
	"fmt"
	"math"

	"github.com/Cenotaph26/trading-botv5/internal/indicators"
	"github.com/Cenotaph26/trading-botv5/pkg/types"
)

const (
	// CandleInterval and CandleLimit describe the window fetched per analysis.
	CandleInterval = "5m"
	CandleLimit    = 80

	// MinCandles is the shortest window that produces a signal.
	MinCandles = 35

	// WindowSize is the number of trailing candles kept on a signal.
	WindowSize = 50

	maxConfidence = 97.0
)

// Snapshot is the set of indicator readings behind a signal.
type Snapshot struct {
	RSI         float64 `json:"rsi"`
	Stochastic  float64 `json:"stoch"`
	MACD        float64 `json:"macd"`
	MACDSignal  float64 `json:"msig"`
	EMA20       float64 `json:"e20"`
	EMA50       float64 `json:"e50"`
	BBUpper     float64 `json:"bbu"`
	BBMid       float64 `json:"bbm"`
	BBLower     float64 `json:"bbl"`
	VWAP        float64 `json:"vwap"`
	ATR         float64 `json:"atr"`
	ATRPct      float64 `json:"atr_pct"`
	VolumeRatio float64 `json:"vr"`
}

// BandPosition returns where price sits inside the Bollinger bands.
func (s Snapshot) BandPosition(price float64) float64 {
	return indicators.Bands{Upper: s.BBUpper, Middle: s.BBMid, Lower: s.BBLower}.Position(price)
}

// Signal is a scored opportunity. Positive scores favour LONG.
type Signal struct {
	Symbol     string
	Price      float64
	Score      int
	Confidence float64
	Reasons    []string
	Snapshot   Snapshot
	Candles    []types.OHLCV
}

// Score computes the indicator snapshot and additive score for a candle
// window. It returns false when the window is too short, the price is not
// positive or ATR% exceeds maxATRPct.
func Score(symbol string, candles []types.OHLCV, maxATRPct float64) (*Signal, bool) {
	if len(candles) < MinCandles {
		return nil, false
	}

	closes := types.Closes(candles)
	volumes := types.Volumes(candles)
	price := closes[len(closes)-1]
	if price <= 0 {
		return nil, false
	}

	vwapWindow := candles
	if len(vwapWindow) > 20 {
		vwapWindow = vwapWindow[len(vwapWindow)-20:]
	}

	rsi := indicators.RSI(closes, indicators.DefaultRSIPeriod)
	stoch := indicators.Stochastic(closes, indicators.DefaultStochasticPeriod)
	macd, macdSignal := indicators.MACD(closes)
	ema20 := indicators.EMA(closes, 20)
	ema50 := indicators.EMA(closes, 50)
	bands := indicators.BollingerBands(closes, indicators.DefaultBollingerPeriod)
	atr := indicators.ATR(candles, indicators.DefaultATRPeriod)
	vwap := indicators.VWAP(vwapWindow)
	vr := indicators.VolumeRatio(volumes, 20)
	atrPct := atr / price * 100

	if atrPct > maxATRPct {
		return nil, false
	}

	var (
		score   int
		reasons []string
	)
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	switch {
	case rsi < 23:
		add(3, fmt.Sprintf("RSI deeply oversold (%.0f)", rsi))
	case rsi < 30:
		add(2, fmt.Sprintf("RSI oversold (%.0f)", rsi))
	case rsi > 77:
		add(-3, fmt.Sprintf("RSI deeply overbought (%.0f)", rsi))
	case rsi > 70:
		add(-2, fmt.Sprintf("RSI overbought (%.0f)", rsi))
	}

	switch {
	case stoch < 20:
		add(1, fmt.Sprintf("Stoch oversold (%.0f)", stoch))
	case stoch > 80:
		add(-1, fmt.Sprintf("Stoch overbought (%.0f)", stoch))
	}

	switch {
	case macd > macdSignal && macd > 0:
		add(2, "MACD strong up")
	case macd > macdSignal:
		add(1, "MACD turning up")
	case macd < macdSignal && macd < 0:
		add(-2, "MACD strong down")
	case macd < macdSignal:
		add(-1, "MACD turning down")
	}

	switch {
	case price > ema20 && ema20 > ema50:
		add(1, "EMA uptrend")
	case price < ema20 && ema20 < ema50:
		add(-1, "EMA downtrend")
	}

	prevClose := closes[len(closes)-2]
	switch {
	case prevClose < ema20 && price > ema20:
		add(1, "EMA20 cross up")
	case prevClose > ema20 && price < ema20:
		add(-1, "EMA20 cross down")
	}

	switch {
	case price < bands.Lower:
		add(2, "Below lower Bollinger")
	case price < bands.Lower*1.005:
		add(1, "Near lower Bollinger")
	case price > bands.Upper:
		add(-2, "Above upper Bollinger")
	case price > bands.Upper*0.995:
		add(-1, "Near upper Bollinger")
	}

	switch {
	case price < vwap*0.998:
		add(1, "Below VWAP")
	case price > vwap*1.002:
		add(-1, "Above VWAP")
	}

	switch {
	case vr > 3:
		add(2, fmt.Sprintf("Volume surge x%.1f", vr))
	case vr > 2:
		add(1, fmt.Sprintf("Volume rising x%.1f", vr))
	}

	last := candles[len(candles)-1]
	if rng := last.High - last.Low; rng > 0 {
		lowerWick := math.Min(last.Close, last.Open) - last.Low
		upperWick := last.High - math.Max(last.Close, last.Open)
		if lowerWick/rng > 0.6 && price > prevClose {
			add(1, "Hammer")
		}
		if upperWick/rng > 0.6 && price < prevClose {
			add(1, "Shooting star")
		}
	}

	window := candles
	if len(window) > WindowSize {
		window = window[len(window)-WindowSize:]
	}

	return &Signal{
		Symbol:     symbol,
		Price:      price,
		Score:      score,
		Confidence: Confidence(score),
		Reasons:    reasons,
		Snapshot: Snapshot{
			RSI:         round(rsi, 1),
			Stochastic:  round(stoch, 1),
			MACD:        round(macd, 8),
			MACDSignal:  round(macdSignal, 8),
			EMA20:       round(ema20, 6),
			EMA50:       round(ema50, 6),
			BBUpper:     round(bands.Upper, 6),
			BBMid:       round(bands.Middle, 6),
			BBLower:     round(bands.Lower, 6),
			VWAP:        round(vwap, 6),
			ATR:         round(atr, 8),
			ATRPct:      round(atrPct, 2),
			VolumeRatio: round(vr, 2),
		},
		Candles: append([]types.OHLCV(nil), window...),
	}, true
}

// Confidence maps a score to [0, 97].
func Confidence(score int) float64 {
	return math.Min(math.Abs(float64(score))/8*100, maxConfidence)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
