package reporting

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTrades() []Trade {
	closed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	pnls := []float64{10, -5, 20, -5, 10}
	trades := make([]Trade, len(pnls))
	for i, pnl := range pnls {
		trades[i] = Trade{
			ID:        i + 1,
			Symbol:    "BTCUSDT",
			Direction: "LONG",
			Strategy:  "Breakout",
			Size:      100,
			Leverage:  3,
			PnL:       pnl,
			PnLPct:    pnl,
			OpenedAt:  closed.Add(-5 * time.Minute),
			ClosedAt:  closed,
			Duration:  "5m",
			Won:       pnl > 0,
		}
	}
	return trades
}

func TestAnalyze(t *testing.T) {
	p := Analyze(sampleTrades(), Summary{
		StartBalance: 10000,
		Balance:      10030,
		ProfitFactor: 4,
		DrawdownPct:  0.5,
	})

	assert.Equal(t, 5, p.Trades)
	assert.InDelta(t, 0.3, p.TotalReturnPct, 1e-9)
	assert.InDelta(t, 0.6, p.Calmar, 1e-9)

	// wins 3 x avg 13.33, losses 2 x avg 5
	assert.InDelta(t, 6.0, p.Expectancy, 1e-9)
	assert.InDelta(t, 1.2, p.ExpectancyRatio, 1e-9)

	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 1, p.MaxWinStreak)
	assert.Equal(t, 1, p.MaxLossStreak)

	assert.Greater(t, p.Sharpe, 0.0)
	assert.InDelta(t, 6.0/5.0, p.Sortino, 1e-9)
	assert.Equal(t, 99, p.RiskScore)
}

func TestAnalyze_Empty(t *testing.T) {
	p := Analyze(nil, Summary{})
	assert.Equal(t, Performance{Grade: "C", RiskScore: 100}, Analyze(nil, Summary{ProfitFactor: 1}))
	assert.Equal(t, "D", p.Grade)
}

func TestStreaks(t *testing.T) {
	trades := []Trade{{PnL: 1}, {PnL: 1}, {PnL: 1}, {PnL: -1}, {PnL: -1}}
	current, maxWin, maxLoss := streaks(trades)
	assert.Equal(t, -2, current)
	assert.Equal(t, 3, maxWin)
	assert.Equal(t, 2, maxLoss)
}

func TestSortino_NoDownside(t *testing.T) {
	assert.Equal(t, maxRatio, sortino([]float64{1, 2}))
	assert.Equal(t, 0.0, sortino([]float64{0, 0}))
}

func TestGrade(t *testing.T) {
	assert.Equal(t, "A", grade(2, 3))
	assert.Equal(t, "B", grade(1.2, 1.6))
	assert.Equal(t, "C", grade(0.1, 1.1))
	assert.Equal(t, "D", grade(2, 0.5))
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 51.39, RoundCents(51.3899999))
	assert.Equal(t, 2.16, RoundCents(2.1600000000000001))
	assert.Equal(t, -0.45, RoundCents(-0.445))
	assert.Equal(t, 1.5, Round(1.45, 1))
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleReporter(&buf).Report(sampleTrades(), Summary{StartBalance: 10000, Balance: 10030, WinRate: 60, ProfitFactor: 4, MaxPositions: 7})

	out := buf.String()
	assert.True(t, strings.Contains(out, "PERFORMANCE UPDATE"))
	assert.True(t, strings.Contains(out, "Sharpe Ratio"))
	assert.True(t, strings.Contains(out, "0/7"))
}

func TestWriteJournalXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJournalXLSX(&buf, sampleTrades()))

	fx, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer fx.Close()

	rows, err := fx.GetRows(journalSheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "Symbol", rows[0][1])
	assert.Equal(t, "BTCUSDT", rows[1][1])
	assert.Equal(t, "WIN", rows[1][18])
	assert.Equal(t, "LOSS", rows[2][18])
}
