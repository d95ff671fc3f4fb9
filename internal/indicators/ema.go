package indicators

// EMA calculates the Exponential Moving Average. The seed is the simple mean
// of the most recent period prices, then the last period-1 prices are
// smoothed forward with multiplier 2/(period+1).
//
// With fewer than period prices the last price is returned; 0 for empty input.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || len(prices) < period {
		return prices[len(prices)-1]
	}

	multiplier := 2.0 / float64(period+1)
	ema := SMA(prices, period)
	for _, price := range prices[len(prices)-period+1:] {
		ema = (price-ema)*multiplier + ema
	}
	return ema
}

// SMA returns the simple mean of the trailing period prices, or the mean of
// all prices when fewer are available.
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || period > len(prices) {
		period = len(prices)
	}

	sum := 0.0
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period)
}
