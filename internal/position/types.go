package position

import (
	"errors"
	"fmt"
	"time"

	"github.com/Cenotaph26/trading-botv5/internal/signal"
	"github.com/Cenotaph26/trading-botv5/pkg/types"
)

var (
	ErrPositionExists   = errors.New("position already open")
	ErrPositionNotFound = errors.New("position not found")
	ErrTradingHalted    = errors.New("trading halted by risk manager")
	ErrPortfolioHeat    = errors.New("portfolio heat too high")
	ErrInvalidSize      = errors.New("invalid position size")
)

// Position is an open synthetic leveraged position.
type Position struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"sym"`
	Direction  types.Direction `json:"type"`
	Entry      float64         `json:"entry"`
	Current    float64         `json:"cur"`
	TakeProfit float64         `json:"tp"`
	StopLoss   float64         `json:"sl"`
	Size       float64         `json:"sz"`
	Leverage   int             `json:"lev"`
	PnL        float64         `json:"pnl"`
	PnLPct     float64         `json:"pnl_pct"`
	MaxPnL     float64         `json:"max_pnl"`
	MinPnL     float64         `json:"min_pnl"`
	Ticks      int             `json:"ticks"`
	OpenedAt   time.Time       `json:"t0"`
	Strategy   string          `json:"strat"`
	Confidence float64         `json:"conf"`
	Score      int             `json:"score"`
	Reasons    []string        `json:"reasons"`
	Snapshot   signal.Snapshot `json:"ind"`
	Candles    []types.OHLCV   `json:"klines"`
}

// clone returns a copy that shares no slices with p.
func (p *Position) clone() Position {
	c := *p
	c.Reasons = append([]string(nil), p.Reasons...)
	c.Candles = append([]types.OHLCV(nil), p.Candles...)
	return c
}

// TradeRecord is the immutable summary of a closed position. Money values
// are rounded to cents.
type TradeRecord struct {
	ID           int             `json:"id"`
	PositionID   string          `json:"position_id"`
	Symbol       string          `json:"sym"`
	Direction    types.Direction `json:"type"`
	Entry        float64         `json:"entry"`
	Exit         float64         `json:"exit"`
	TakeProfit   float64         `json:"tp"`
	StopLoss     float64         `json:"sl"`
	Size         float64         `json:"sz"`
	PnL          float64         `json:"pnl"`
	PnLPct       float64         `json:"pnl_pct"`
	Leverage     int             `json:"lev"`
	Strategy     string          `json:"strat"`
	Reasons      []string        `json:"reasons"`
	ExitReason   string          `json:"why"`
	OpenedAt     time.Time       `json:"opened_at"`
	ClosedAt     time.Time       `json:"closed_at"`
	Time         string          `json:"time"`
	Duration     time.Duration   `json:"duration"`
	DurationText string          `json:"ht"`
	Won          bool            `json:"won"`
	MaxPnL       float64         `json:"max_pnl"`
	MinPnL       float64         `json:"min_pnl"`
	Score        int             `json:"score"`
	Commission   float64         `json:"commission"`
	Slippage     float64         `json:"slippage"`
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Label   string  `json:"label"`
	Balance float64 `json:"balance"`
}

// HumanDuration formats d as whole seconds, minutes or hours.
func HumanDuration(d time.Duration) string {
	secs := d.Seconds()
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", int(secs))
	case secs < 3600:
		return fmt.Sprintf("%dm", int(secs/60))
	default:
		return fmt.Sprintf("%dh", int(secs/3600))
	}
}

// DrawdownPct returns (peak-balance)/peak*100, 0 for a non-positive peak.
func DrawdownPct(peak, balance float64) float64 {
	if peak <= 0 {
		return 0
	}
	return (peak - balance) / peak * 100
}
