package indicators

const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// MACD returns the MACD line (EMA12 - EMA26) and its signal line.
//
// The signal is the EMA9 of MACD values computed over the prefixes
// prices[:i] for i in [26, len). When fewer than nine such values exist the
// signal falls back to macd*0.9. Both are 0 with fewer than 26 prices.
func MACD(prices []float64) (macd, signal float64) {
	if len(prices) < macdSlow {
		return 0, 0
	}

	macd = EMA(prices, macdFast) - EMA(prices, macdSlow)

	history := make([]float64, 0, len(prices)-macdSlow)
	for i := macdSlow; i < len(prices); i++ {
		prefix := prices[:i]
		history = append(history, EMA(prefix, macdFast)-EMA(prefix, macdSlow))
	}

	if len(history) >= macdSignal {
		signal = EMA(history, macdSignal)
	} else {
		signal = macd * 0.9
	}
	return macd, signal
}
