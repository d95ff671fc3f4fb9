package indicators

import "math"

// DefaultBollingerPeriod is the window used by the signal scorer.
const DefaultBollingerPeriod = 20

// Bands holds one Bollinger Bands reading.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Width returns upper minus lower.
func (b Bands) Width() float64 {
	return b.Upper - b.Lower
}

// Position returns where price sits inside the bands, 0 at the lower band and
// 1 at the upper one. Flat bands give 0.5.
func (b Bands) Position(price float64) float64 {
	width := b.Width()
	if width <= 0 {
		return 0.5
	}
	return (price - b.Lower) / width
}

// BollingerBands calculates mid = SMA(period) and bands at two population
// standard deviations. With fewer than period prices all three values equal
// the last price.
func BollingerBands(prices []float64, period int) Bands {
	if len(prices) == 0 {
		return Bands{}
	}
	if period <= 0 || len(prices) < period {
		last := prices[len(prices)-1]
		return Bands{Upper: last, Middle: last, Lower: last}
	}

	window := prices[len(prices)-period:]
	mid := SMA(window, period)

	variance := 0.0
	for _, p := range window {
		diff := p - mid
		variance += diff * diff
	}
	std := math.Sqrt(variance / float64(period))

	return Bands{
		Upper:  mid + 2*std,
		Middle: mid,
		Lower:  mid - 2*std,
	}
}
