package indicators

import (
	"testing"
	"time"

	"github.com/Cenotaph26/trading-botv5/pkg/types"
	"github.com/stretchr/testify/assert"
)

func candle(o, h, l, c, v float64) types.OHLCV {
	return types.OHLCV{Open: o, High: h, Low: l, Close: c, Volume: v, Timestamp: time.Now()}
}

func TestATR(t *testing.T) {
	candles := make([]types.OHLCV, 20)
	for i := range candles {
		candles[i] = candle(100, 101, 99, 100, 10)
	}
	assert.InDelta(t, 2.0, ATR(candles, DefaultATRPeriod), 1e-9)

	assert.Equal(t, 0.0, ATR(candles[:14], DefaultATRPeriod))
}

func TestATR_GapUsesPreviousClose(t *testing.T) {
	candles := []types.OHLCV{
		candle(100, 101, 99, 100, 1),
		candle(110, 111, 109, 110, 1),
	}
	// high - prevClose dominates: 111 - 100
	assert.InDelta(t, 11.0, ATR(candles, 1), 1e-9)
}

func TestStochastic(t *testing.T) {
	assert.InDelta(t, 100.0, Stochastic(rising(14, 1), DefaultStochasticPeriod), 1e-9)
	assert.InDelta(t, 0.0, Stochastic(falling(14, 100), DefaultStochasticPeriod), 1e-9)
	assert.Equal(t, 50.0, Stochastic([]float64{5, 5, 5}, 3))
	assert.Equal(t, 50.0, Stochastic([]float64{1, 2}, DefaultStochasticPeriod))
}

func TestVWAP(t *testing.T) {
	candles := []types.OHLCV{
		candle(2, 3, 1, 2, 1),
		candle(5, 6, 4, 5, 3),
	}
	assert.InDelta(t, 4.25, VWAP(candles), 1e-9)

	zero := []types.OHLCV{candle(2, 3, 1, 2, 0)}
	assert.Equal(t, 0.0, VWAP(zero))
	assert.Equal(t, 0.0, VWAP(nil))
}

func TestVolumeRatio(t *testing.T) {
	volumes := make([]float64, 20)
	for i := range volumes {
		volumes[i] = 100
	}
	assert.InDelta(t, 1.0, VolumeRatio(volumes, 20), 1e-9)

	volumes[19] = 500
	assert.InDelta(t, 500.0/120.0, VolumeRatio(volumes, 20), 1e-9)
}

func TestVolumeRatio_ZeroVolumeWindow(t *testing.T) {
	assert.Equal(t, 1.0, VolumeRatio(make([]float64, 20), 20))
	assert.Equal(t, 1.0, VolumeRatio(nil, 20))
}
