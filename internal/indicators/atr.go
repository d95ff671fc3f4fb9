package indicators

import (
	"math"

	"github.com/Cenotaph26/trading-botv5/pkg/types"
)

// DefaultATRPeriod is the lookback used by the signal scorer.
const DefaultATRPeriod = 14

// ATR calculates the Average True Range as the simple mean of the trailing
// period true ranges. It returns 0 with fewer than period+1 candles.
func ATR(candles []types.OHLCV, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += trueRange(candles[i], candles[i-1].Close)
	}
	return sum / float64(period)
}

func trueRange(c types.OHLCV, prevClose float64) float64 {
	return math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
}
