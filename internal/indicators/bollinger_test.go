package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBollingerBands_InsufficientData(t *testing.T) {
	bands := BollingerBands([]float64{1, 2, 3}, DefaultBollingerPeriod)
	assert.Equal(t, Bands{Upper: 3, Middle: 3, Lower: 3}, bands)
}

func TestBollingerBands_PopulationStdDev(t *testing.T) {
	prices := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	bands := BollingerBands(prices, len(prices))
	assert.InDelta(t, 5.0, bands.Middle, 1e-9)
	assert.InDelta(t, 9.0, bands.Upper, 1e-9)
	assert.InDelta(t, 1.0, bands.Lower, 1e-9)
}

func TestBollingerBands_UsesTrailingWindow(t *testing.T) {
	prices := append([]float64{1000, 1000}, 2, 4, 4, 4, 5, 5, 7, 9)

	bands := BollingerBands(prices, 8)
	assert.InDelta(t, 5.0, bands.Middle, 1e-9)
}

func TestBands_Position(t *testing.T) {
	bands := Bands{Upper: 10, Middle: 5, Lower: 0}
	assert.InDelta(t, 0.75, bands.Position(7.5), 1e-9)

	flat := Bands{Upper: 5, Middle: 5, Lower: 5}
	assert.Equal(t, 0.5, flat.Position(7))
}
