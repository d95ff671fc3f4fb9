package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rising(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

func falling(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start - float64(i)
	}
	return out
}

func TestRSI_InsufficientData(t *testing.T) {
	assert.Equal(t, 50.0, RSI(rising(14, 100), DefaultRSIPeriod))
	assert.Equal(t, 50.0, RSI(nil, DefaultRSIPeriod))
}

func TestRSI_NoLosses(t *testing.T) {
	assert.Equal(t, 100.0, RSI(rising(20, 100), DefaultRSIPeriod))
}

func TestRSI_OnlyLosses(t *testing.T) {
	assert.Equal(t, 0.0, RSI(falling(20, 100), DefaultRSIPeriod))
}

func TestRSI_Balanced(t *testing.T) {
	prices := []float64{1, 2, 1, 2, 1}
	assert.InDelta(t, 50.0, RSI(prices, 2), 1e-9)
}

func TestRSI_Range(t *testing.T) {
	prices := []float64{44, 44.3, 44.1, 44.5, 43.9, 44.6, 45.2, 45.1, 45.6, 46.0, 45.7, 46.2, 46.4, 46.1, 46.8, 46.5}
	value := RSI(prices, DefaultRSIPeriod)
	assert.Greater(t, value, 50.0)
	assert.Less(t, value, 100.0)
}
