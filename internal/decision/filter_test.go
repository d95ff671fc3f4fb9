package decision

import (
	"context"
	"testing"
	"time"

	"github.com/Cenotaph26/trading-botv5/internal/config"
	"github.com/Cenotaph26/trading-botv5/internal/signal"
	"github.com/Cenotaph26/trading-botv5/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longSignal() *signal.Signal {
	return &signal.Signal{
		Symbol:     "BTCUSDT",
		Price:      100,
		Score:      5,
		Confidence: 62.5,
		Reasons:    []string{"MACD strong up"},
		Snapshot: signal.Snapshot{
			RSI: 55, MACD: 0.1, MACDSignal: 0.05, Stochastic: 50,
			VolumeRatio: 1.2, ATR: 1, ATRPct: 1,
			BBUpper: 110, BBMid: 100, BBLower: 90,
		},
	}
}

func shortSignal() *signal.Signal {
	sig := longSignal()
	sig.Score = -5
	sig.Snapshot.RSI = 45
	sig.Snapshot.MACD = -0.1
	return sig
}

func TestEvaluate(t *testing.T) {
	cfg := config.DefaultRiskConfig()

	tests := []struct {
		name      string
		mutate    func(*signal.Signal)
		base      func() *signal.Signal
		direction types.Direction
		stage     Stage
	}{
		{"long passes", func(*signal.Signal) {}, longSignal, types.Long, ""},
		{"short passes", func(*signal.Signal) {}, shortSignal, types.Short, ""},
		{"score below threshold", func(s *signal.Signal) { s.Score = 3 }, longSignal, "", StageScore},
		{"low confidence", func(s *signal.Signal) { s.Confidence = 40 }, longSignal, "", StageConfidence},
		{"low volume", func(s *signal.Signal) { s.Snapshot.VolumeRatio = 0.4 }, longSignal, "", StageVolume},
		{"high ATR", func(s *signal.Signal) { s.Snapshot.ATRPct = 7 }, longSignal, "", StageVolatility},
		{"long into overbought RSI", func(s *signal.Signal) { s.Snapshot.RSI = 76 }, longSignal, "", StageRSIExtreme},
		{"short into oversold RSI", func(s *signal.Signal) { s.Snapshot.RSI = 24 }, shortSignal, "", StageRSIExtreme},
		{"one confirmation", func(s *signal.Signal) {
			s.Snapshot.RSI = 72
			s.Snapshot.MACD = -0.1
		}, longSignal, "", StageConfirmation},
		{"long at upper band", func(s *signal.Signal) { s.Price = 109.6 }, longSignal, "", StageBollinger},
		{"short at lower band", func(s *signal.Signal) { s.Price = 90.4 }, shortSignal, "", StageBollinger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := tt.base()
			tt.mutate(sig)

			direction, rejection := Evaluate(sig, cfg)
			if tt.stage == "" {
				assert.Nil(t, rejection)
				assert.Equal(t, tt.direction, direction)
				return
			}
			require.NotNil(t, rejection)
			assert.Equal(t, tt.stage, rejection.Stage)
			assert.Equal(t, "BTCUSDT", rejection.Symbol)
			assert.Empty(t, direction)
		})
	}
}

func TestEvaluate_FlatBandsArePassable(t *testing.T) {
	sig := longSignal()
	sig.Snapshot.BBUpper, sig.Snapshot.BBMid, sig.Snapshot.BBLower = 100, 100, 100

	direction, rejection := Evaluate(sig, config.DefaultRiskConfig())
	assert.Nil(t, rejection)
	assert.Equal(t, types.Long, direction)
}

func TestConfirmations(t *testing.T) {
	assert.Equal(t, 3, Confirmations(types.Long, longSignal().Snapshot))
	assert.Equal(t, 3, Confirmations(types.Short, shortSignal().Snapshot))
	assert.Equal(t, 0, Confirmations(types.Short, signal.Snapshot{RSI: 80, MACD: 1, Stochastic: 90}))
}

type fakeAnalyzer struct {
	sig   *signal.Signal
	calls int
}

func (f *fakeAnalyzer) Analyze(context.Context, string) (*signal.Signal, bool) {
	f.calls++
	if f.sig == nil {
		return nil, false
	}
	return f.sig, true
}

type fixedPicker string

func (p fixedPicker) Pick() string { return string(p) }

func TestFilter_Decide(t *testing.T) {
	analyzer := &fakeAnalyzer{sig: longSignal()}
	store := config.NewRiskStore(config.DefaultRiskConfig())
	f := NewFilter(analyzer, fixedPicker("Breakout"), store, WithIntn(func(int) int { return 2 }))

	intent, rejection := f.Decide(context.Background(), "BTCUSDT", false)
	require.Nil(t, rejection)
	require.NotNil(t, intent)

	assert.Equal(t, types.Long, intent.Direction)
	assert.Equal(t, "BTCUSDT", intent.Symbol)
	assert.Equal(t, 100.0, intent.Price)
	assert.Equal(t, "Breakout", intent.Strategy)
	assert.Equal(t, 5, intent.Leverage)
	assert.Equal(t, 5, intent.Score)
	assert.Equal(t, 1.0, intent.ATR)
}

func TestFilter_Decide_FixedLeverage(t *testing.T) {
	cfg := config.DefaultRiskConfig()
	cfg.Leverage = 7
	f := NewFilter(&fakeAnalyzer{sig: longSignal()}, fixedPicker("Scalping"), config.NewRiskStore(cfg))

	intent, _ := f.Decide(context.Background(), "BTCUSDT", false)
	require.NotNil(t, intent)
	assert.Equal(t, 7, intent.Leverage)
}

func TestFilter_Decide_SkipsOpenPosition(t *testing.T) {
	analyzer := &fakeAnalyzer{sig: longSignal()}
	f := NewFilter(analyzer, fixedPicker("Breakout"), config.NewRiskStore(config.DefaultRiskConfig()))

	intent, rejection := f.Decide(context.Background(), "BTCUSDT", true)
	assert.Nil(t, intent)
	assert.Nil(t, rejection)
	assert.Equal(t, 0, analyzer.calls)
}

func TestFilter_Decide_Cooldown(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	analyzer := &fakeAnalyzer{}
	f := NewFilter(analyzer, fixedPicker("Breakout"), config.NewRiskStore(config.DefaultRiskConfig()),
		WithClock(func() time.Time { return now }))

	_, rejection := f.Decide(context.Background(), "ETHUSDT", false)
	require.NotNil(t, rejection)
	assert.Equal(t, StageNoSignal, rejection.Stage)
	assert.False(t, rejection.Loggable())

	now = now.Add(9 * time.Second)
	intent, rejection := f.Decide(context.Background(), "ETHUSDT", false)
	assert.Nil(t, intent)
	assert.Nil(t, rejection)
	assert.Equal(t, 1, analyzer.calls)

	// other symbols are not affected
	f.Decide(context.Background(), "SOLUSDT", false)
	assert.Equal(t, 2, analyzer.calls)

	now = now.Add(2 * time.Second)
	f.Decide(context.Background(), "ETHUSDT", false)
	assert.Equal(t, 3, analyzer.calls)
}

func TestFilter_Decide_LowConfidenceNeverEmits(t *testing.T) {
	sig := longSignal()
	sig.Confidence = 49.9
	f := NewFilter(&fakeAnalyzer{sig: sig}, fixedPicker("Breakout"), config.NewRiskStore(config.DefaultRiskConfig()))

	intent, rejection := f.Decide(context.Background(), "BTCUSDT", false)
	assert.Nil(t, intent)
	require.NotNil(t, rejection)
	assert.Equal(t, StageConfidence, rejection.Stage)
}
