package decision

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Cenotaph26/trading-botv5/internal/config"
	"github.com/Cenotaph26/trading-botv5/internal/signal"
	"github.com/Cenotaph26/trading-botv5/pkg/types"
)

// Cooldown is the minimum time between two analyses of the same symbol.
const Cooldown = 10 * time.Second

// LeverageMenu is drawn from when RiskConfig.Leverage is 0.
var LeverageMenu = []int{2, 3, 5, 10}

// Analyzer produces a scored signal for a symbol.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*signal.Signal, bool)
}

// StrategyPicker labels an accepted entry with a strategy.
type StrategyPicker interface {
	Pick() string
}

// Intent is an accepted entry, ready for the position manager.
type Intent struct {
	Direction  types.Direction
	Symbol     string
	Price      float64
	Confidence float64
	Score      int
	Reasons    []string
	Strategy   string
	Leverage   int
	ATR        float64
	Snapshot   signal.Snapshot
	Candles    []types.OHLCV
}

// Filter runs the entry veto chain.
type Filter struct {
	analyzer Analyzer
	picker   StrategyPicker
	risk     *config.RiskStore

	mu           sync.Mutex
	lastAnalyzed map[string]time.Time

	now  func() time.Time
	intn func(n int) int
}

// Option configures a Filter.
type Option func(*Filter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *Filter) { f.now = now }
}

// WithIntn replaces the random source used for the leverage menu.
func WithIntn(intn func(n int) int) Option {
	return func(f *Filter) { f.intn = intn }
}

// NewFilter creates a decision filter.
func NewFilter(analyzer Analyzer, picker StrategyPicker, risk *config.RiskStore, opts ...Option) *Filter {
	f := &Filter{
		analyzer:     analyzer,
		picker:       picker,
		risk:         risk,
		lastAnalyzed: make(map[string]time.Time),
		now:          time.Now,
		intn:         rand.Intn,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Decide analyzes symbol and returns an intent when every guard passes. Both
// results are nil when the symbol is skipped (open position or cooldown).
func (f *Filter) Decide(ctx context.Context, symbol string, hasPosition bool) (*Intent, *Rejection) {
	if hasPosition {
		return nil, nil
	}
	if !f.markAnalyzed(symbol) {
		return nil, nil
	}

	sig, ok := f.analyzer.Analyze(ctx, symbol)
	if !ok {
		return nil, reject(symbol, StageNoSignal, "no signal")
	}

	cfg := f.risk.Get()
	direction, rejection := Evaluate(sig, cfg)
	if rejection != nil {
		return nil, rejection
	}

	leverage := cfg.Leverage
	if leverage == 0 {
		leverage = LeverageMenu[f.intn(len(LeverageMenu))]
	}

	return &Intent{
		Direction:  direction,
		Symbol:     symbol,
		Price:      sig.Price,
		Confidence: sig.Confidence,
		Score:      sig.Score,
		Reasons:    sig.Reasons,
		Strategy:   f.picker.Pick(),
		Leverage:   leverage,
		ATR:        sig.Snapshot.ATR,
		Snapshot:   sig.Snapshot,
		Candles:    sig.Candles,
	}, nil
}

// markAnalyzed records the analysis time and reports whether the cooldown
// had elapsed. The timestamp is updated before analysis runs.
func (f *Filter) markAnalyzed(symbol string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if last, ok := f.lastAnalyzed[symbol]; ok && now.Sub(last) < Cooldown {
		return false
	}
	f.lastAnalyzed[symbol] = now
	return true
}

// Evaluate applies the veto chain to a signal and returns the direction on
// success.
func Evaluate(sig *signal.Signal, cfg config.RiskConfig) (types.Direction, *Rejection) {
	snap := sig.Snapshot

	var direction types.Direction
	switch {
	case sig.Score >= cfg.MinScore:
		direction = types.Long
	case sig.Score <= -cfg.MinScore:
		direction = types.Short
	default:
		return "", reject(sig.Symbol, StageScore, fmt.Sprintf("score %d below %d", sig.Score, cfg.MinScore))
	}

	if sig.Confidence < cfg.MinConf {
		return "", reject(sig.Symbol, StageConfidence, fmt.Sprintf("confidence %.0f below %.0f", sig.Confidence, cfg.MinConf))
	}

	if snap.VolumeRatio < 0.5 {
		return "", reject(sig.Symbol, StageVolume, fmt.Sprintf("volume too low (VR %.1f)", snap.VolumeRatio))
	}

	if snap.ATRPct > cfg.MaxATRPct {
		return "", reject(sig.Symbol, StageVolatility, fmt.Sprintf("ATR too high (%.2f%%)", snap.ATRPct))
	}

	if direction == types.Long && snap.RSI > 75 {
		return "", reject(sig.Symbol, StageRSIExtreme, fmt.Sprintf("RSI overbought (%.1f)", snap.RSI))
	}
	if direction == types.Short && snap.RSI < 25 {
		return "", reject(sig.Symbol, StageRSIExtreme, fmt.Sprintf("RSI oversold (%.1f)", snap.RSI))
	}

	if n := Confirmations(direction, snap); n < 2 {
		return "", reject(sig.Symbol, StageConfirmation, fmt.Sprintf("not enough confirmations (%d/3)", n))
	}

	pos := snap.BandPosition(sig.Price)
	if direction == types.Long && pos > 0.95 {
		return "", reject(sig.Symbol, StageBollinger, fmt.Sprintf("price above band (%.0f%%)", pos*100))
	}
	if direction == types.Short && pos < 0.05 {
		return "", reject(sig.Symbol, StageBollinger, fmt.Sprintf("price below band (%.0f%%)", pos*100))
	}

	return direction, nil
}

// Confirmations counts the secondary indicators agreeing with direction.
func Confirmations(direction types.Direction, snap signal.Snapshot) int {
	n := 0
	if direction == types.Long {
		if snap.RSI > 40 && snap.RSI < 70 {
			n++
		}
		if snap.MACD > 0 {
			n++
		}
		if snap.Stochastic > 20 {
			n++
		}
		return n
	}

	if snap.RSI > 30 && snap.RSI < 60 {
		n++
	}
	if snap.MACD < 0 {
		n++
	}
	if snap.Stochastic < 80 {
		n++
	}
	return n
}
