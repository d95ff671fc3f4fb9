package indicators

import "github.com/Cenotaph26/trading-botv5/pkg/types"

// DefaultStochasticPeriod is the lookback used by the signal scorer.
const DefaultStochasticPeriod = 14

// Stochastic returns %K of the last price against the trailing period range
// of prices. 50 when the window is flat or too short.
func Stochastic(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 50
	}

	window := prices[len(prices)-period:]
	lo, hi := window[0], window[0]
	for _, p := range window[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	if hi == lo {
		return 50
	}
	return (prices[len(prices)-1] - lo) / (hi - lo) * 100
}

// VWAP calculates the volume-weighted typical price (h+l+c)/3 of the candles.
// Zero total volume gives 0.
func VWAP(candles []types.OHLCV) float64 {
	var pv, volume float64
	for _, c := range candles {
		pv += (c.High + c.Low + c.Close) / 3 * c.Volume
		volume += c.Volume
	}
	if volume <= 0 {
		return 0
	}
	return pv / volume
}

// VolumeRatio returns the last volume divided by the mean of the trailing
// period volumes. A zero mean gives 1.
func VolumeRatio(volumes []float64, period int) float64 {
	if len(volumes) == 0 || period <= 0 {
		return 1
	}

	// mean is taken over a fixed period even when the series is shorter
	sum := 0.0
	start := len(volumes) - period
	if start < 0 {
		start = 0
	}
	for _, v := range volumes[start:] {
		sum += v
	}
	avg := sum / float64(period)
	if avg <= 0 {
		return 1
	}
	return volumes[len(volumes)-1] / avg
}
