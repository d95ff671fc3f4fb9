package signal

import (
	"context"
	"fmt"

	"github.com/Cenotaph26/trading-botv5/internal/logger"
	"github.com/Cenotaph26/trading-botv5/pkg/types"
)

// CandleSource supplies candle windows.
type CandleSource interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error)
}

// Scorer fetches candles and scores them.
type Scorer struct {
	source    CandleSource
	maxATRPct func() float64
	log       *logger.Logger
}

// NewScorer creates a scorer. maxATRPct is read on every analysis so config
// changes apply immediately.
func NewScorer(source CandleSource, maxATRPct func() float64, log *logger.Logger) *Scorer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Scorer{source: source, maxATRPct: maxATRPct, log: log}
}

// Analyze scores the latest window for symbol. Any failure, including a
// panic in indicator code, yields no signal.
func (s *Scorer) Analyze(ctx context.Context, symbol string) (sig *Signal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.LogError("analyze "+symbol, fmt.Errorf("panic: %v", r))
			sig, ok = nil, false
		}
	}()

	candles, err := s.source.Klines(ctx, symbol, CandleInterval, CandleLimit)
	if err != nil {
		s.log.LogError("analyze "+symbol, err)
		return nil, false
	}
	if len(candles) < MinCandles {
		s.log.Debug("analyze %s: %d candles, need %d", symbol, len(candles), MinCandles)
		return nil, false
	}

	return Score(symbol, candles, s.maxATRPct())
}
