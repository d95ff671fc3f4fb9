package indicators

// DefaultRSIPeriod is the lookback used by the signal scorer.
const DefaultRSIPeriod = 14

// RSI calculates the Relative Strength Index over the trailing period using
// simple means of gains and losses. It returns 50 when fewer than period+1
// prices are available and 100 when there were no losses in the window.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}

	var gains, losses float64
	for i := len(prices) - period; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
