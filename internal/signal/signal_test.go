package signal

import (
	"testing"
	"time"

	"github.com/Cenotaph26/trading-botv5/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatCandles(n int, price, volume float64) []types.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.OHLCV, n)
	for i := range out {
		out[i] = types.OHLCV{
			Open: price, High: price, Low: price, Close: price, Volume: volume,
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
		}
	}
	return out
}

func downtrendCandles(n int) []types.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.OHLCV, n)
	for i := range out {
		c := 200 - float64(i)
		out[i] = types.OHLCV{
			Open: c + 1, High: c + 1.2, Low: c - 0.2, Close: c, Volume: 100,
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
		}
	}
	return out
}

func TestScore_InsufficientCandles(t *testing.T) {
	_, ok := Score("BTCUSDT", flatCandles(MinCandles-1, 100, 100), 6)
	assert.False(t, ok)
}

func TestScore_FlatWindow(t *testing.T) {
	sig, ok := Score("BTCUSDT", flatCandles(80, 100, 100), 6)
	require.True(t, ok)

	// a flat series has no losses, so RSI reads 100, and the price sits
	// inside the 0.5% band above the collapsed lower Bollinger band
	assert.Equal(t, -2, sig.Score)
	assert.Equal(t, []string{"RSI deeply overbought (100)", "Near lower Bollinger"}, sig.Reasons)
	assert.Equal(t, 25.0, sig.Confidence)
	assert.Equal(t, 100.0, sig.Price)
	assert.Equal(t, 1.0, sig.Snapshot.VolumeRatio)
	assert.Len(t, sig.Candles, WindowSize)
}

func TestScore_VolumeSurge(t *testing.T) {
	candles := flatCandles(80, 100, 100)
	candles[79].Volume = 500

	sig, ok := Score("BTCUSDT", candles, 6)
	require.True(t, ok)

	assert.InDelta(t, 4.17, sig.Snapshot.VolumeRatio, 1e-9)
	assert.Contains(t, sig.Reasons, "Volume surge x4.2")
	assert.Equal(t, 0, sig.Score)
}

func TestScore_ZeroVolumeWindowHasNoSurgeBonus(t *testing.T) {
	sig, ok := Score("BTCUSDT", flatCandles(80, 100, 0), 6)
	require.True(t, ok)

	assert.Equal(t, 1.0, sig.Snapshot.VolumeRatio)
	for _, r := range sig.Reasons {
		assert.NotContains(t, r, "Volume")
	}
}

func TestScore_Downtrend(t *testing.T) {
	sig, ok := Score("ETHUSDT", downtrendCandles(80), 6)
	require.True(t, ok)

	assert.Contains(t, sig.Reasons, "RSI deeply oversold (0)")
	assert.Contains(t, sig.Reasons, "Stoch oversold (0)")
	assert.Contains(t, sig.Reasons, "EMA downtrend")
	assert.Contains(t, sig.Reasons, "Below VWAP")
	assert.GreaterOrEqual(t, sig.Score, 2)
	assert.Less(t, sig.Snapshot.MACD, 0.0)
	assert.Greater(t, sig.Snapshot.EMA50, sig.Snapshot.EMA20)
}

func TestScore_ATRCeiling(t *testing.T) {
	candles := downtrendCandles(80)

	_, ok := Score("ETHUSDT", candles, 0.5)
	assert.False(t, ok)

	_, ok = Score("ETHUSDT", candles, 6)
	assert.True(t, ok)
}

func TestScore_Hammer(t *testing.T) {
	candles := flatCandles(80, 100, 100)
	candles[79] = types.OHLCV{Open: 100, High: 101.1, Low: 97, Close: 101, Volume: 100, Timestamp: candles[79].Timestamp}

	sig, ok := Score("SOLUSDT", candles, 6)
	require.True(t, ok)
	assert.Contains(t, sig.Reasons, "Hammer")
	assert.NotContains(t, sig.Reasons, "Shooting star")
}

func TestScore_ShootingStar(t *testing.T) {
	candles := flatCandles(80, 100, 100)
	candles[79] = types.OHLCV{Open: 100, High: 103, Low: 98.9, Close: 99, Volume: 100, Timestamp: candles[79].Timestamp}

	sig, ok := Score("SOLUSDT", candles, 6)
	require.True(t, ok)
	assert.Contains(t, sig.Reasons, "Shooting star")
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.0, Confidence(0))
	assert.Equal(t, 50.0, Confidence(4))
	assert.Equal(t, 50.0, Confidence(-4))
	assert.Equal(t, 97.0, Confidence(8))
	assert.Equal(t, 97.0, Confidence(-12))
}

func TestSnapshot_BandPosition(t *testing.T) {
	s := Snapshot{BBUpper: 110, BBMid: 100, BBLower: 90}
	assert.InDelta(t, 0.5, s.BandPosition(100), 1e-9)
	assert.Equal(t, 0.5, Snapshot{BBUpper: 1, BBLower: 1}.BandPosition(3))
}
