package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/Cenotaph26/trading-botv5/internal/config"
	"github.com/Cenotaph26/trading-botv5/internal/position"
	"github.com/Cenotaph26/trading-botv5/pkg/reporting"
)

const (
	historyExport = 60
	debugTrades   = 10
	debugEvents   = 20
)

// StrategyView is the dashboard view of one strategy.
type StrategyView struct {
	Score   float64 `json:"score"`
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins,omitempty"`
	WinRate float64 `json:"wr"`
}

// CoinView is the dashboard view of one ticker.
type CoinView struct {
	Price       float64 `json:"price"`
	Change      float64 `json:"change"`
	Volume      float64 `json:"volume"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	QuoteVolume float64 `json:"quoteVolume"`
	Count       int64   `json:"count"`
}

// Snapshot is the full dashboard state.
type Snapshot struct {
	Balance      float64                      `json:"balance"`
	TotalPnL     float64                      `json:"total_pnl"`
	TotalPnLPct  float64                      `json:"total_pnl_pct"`
	Trades       int                          `json:"trades"`
	Wins         int                          `json:"wins"`
	WinRate      float64                      `json:"wr"`
	Active       int                          `json:"active"`
	Drawdown     float64                      `json:"drawdown"`
	ProfitFactor float64                      `json:"profit_factor"`
	Positions    map[string]position.Position `json:"positions"`
	History      []position.TradeRecord       `json:"history"`
	Strategies   map[string]StrategyView      `json:"strategies"`
	Coins        map[string]CoinView          `json:"coins"`
	Running      bool                         `json:"running"`
	Curve        []float64                    `json:"curve"`
	PnLTimes     []string                     `json:"pnl_times"`
	Events       []Event                      `json:"events"`
	Uptime       string                       `json:"uptime"`
	CoinCount    int                          `json:"coin_count"`
	Risk         config.RiskConfig            `json:"risk"`
}

// PositionDetail adds distance-to-target diagnostics to a position.
type PositionDetail struct {
	Type            string  `json:"type"`
	Entry           float64 `json:"entry"`
	Current         float64 `json:"current"`
	TakeProfit      float64 `json:"tp"`
	StopLoss        float64 `json:"sl"`
	Leverage        int     `json:"leverage"`
	Size            float64 `json:"size"`
	PnL             float64 `json:"pnl"`
	PnLPct          float64 `json:"pnl_pct"`
	MaxPnL          float64 `json:"max_pnl"`
	MinPnL          float64 `json:"min_pnl"`
	TPDistancePct   float64 `json:"tp_distance_pct"`
	SLDistancePct   float64 `json:"sl_distance_pct"`
	DurationSeconds int     `json:"duration_seconds"`
	Strategy        string  `json:"strategy"`
}

// Debug is the diagnostic state served at /api/debug.
type Debug struct {
	Timestamp       time.Time                 `json:"timestamp"`
	UptimeSeconds   int                       `json:"uptime_seconds"`
	Running         bool                      `json:"running"`
	Balance         float64                   `json:"balance"`
	StartBalance    float64                   `json:"start_balance"`
	TotalPnL        float64                   `json:"total_pnl"`
	TotalPnLPct     float64                   `json:"total_pnl_pct"`
	Trades          int                       `json:"trades"`
	Wins            int                       `json:"wins"`
	Losses          int                       `json:"losses"`
	WinRate         float64                   `json:"win_rate"`
	ActivePositions int                       `json:"active_positions"`
	Drawdown        float64                   `json:"drawdown"`
	ProfitFactor    float64                   `json:"profit_factor"`
	PeakBalance     float64                   `json:"peak_balance"`
	TotalProfit     float64                   `json:"total_profit"`
	TotalLoss       float64                   `json:"total_loss"`
	PortfolioHeat   float64                   `json:"portfolio_heat"`
	CoinCount       int                       `json:"coin_count"`
	RiskConfig      config.RiskConfig         `json:"risk_config"`
	PositionsDetail map[string]PositionDetail `json:"positions_detail"`
	RecentTrades    []position.TradeRecord    `json:"recent_trades"`
	Strategies      map[string]StrategyView   `json:"strategies"`
	RecentLogs      []Event                   `json:"recent_logs"`
}

// Snapshot assembles the dashboard state. It only reads.
func (e *Engine) Snapshot() Snapshot {
	st := e.positions.Stats()

	positions := make(map[string]position.Position)
	for _, p := range e.positions.Positions() {
		p.PnL = reporting.RoundCents(p.PnL)
		p.PnLPct = reporting.RoundCents(p.PnLPct)
		p.MaxPnL = reporting.RoundCents(p.MaxPnL)
		p.MinPnL = reporting.RoundCents(p.MinPnL)
		if n := len(p.Candles); n > 50 {
			p.Candles = p.Candles[n-50:]
		}
		positions[p.Symbol] = p
	}

	curve := e.positions.Curve()
	balances := make([]float64, len(curve))
	labels := make([]string, len(curve))
	for i, pt := range curve {
		balances[i] = pt.Balance
		labels[i] = pt.Label
	}

	symbols := e.feed.Symbols()
	tickers := e.feed.Tickers()
	coins := make(map[string]CoinView, len(tickers))
	for _, sym := range symbols {
		t, ok := tickers[sym]
		if !ok {
			continue
		}
		coins[sym] = CoinView{
			Price:       t.Price,
			Change:      reporting.RoundCents(t.Change),
			Volume:      t.Volume,
			High:        t.High,
			Low:         t.Low,
			QuoteVolume: t.QuoteVolume,
			Count:       t.Count,
		}
	}

	return Snapshot{
		Balance:      st.Balance,
		TotalPnL:     st.TotalPnL,
		TotalPnLPct:  st.TotalPnLPct,
		Trades:       st.Trades,
		Wins:         st.Wins,
		WinRate:      st.WinRate,
		Active:       st.Open,
		Drawdown:     st.DrawdownPct,
		ProfitFactor: st.ProfitFactor,
		Positions:    positions,
		History:      e.positions.History(historyExport),
		Strategies:   e.strategies(false),
		Coins:        coins,
		Running:      e.Running(),
		Curve:        balances,
		PnLTimes:     labels,
		Events:       e.events.Recent(eventExport),
		Uptime:       e.uptime(),
		CoinCount:    len(symbols),
		Risk:         e.risk.Get(),
	}
}

// Debug assembles the diagnostic state.
func (e *Engine) Debug() Debug {
	now := e.now()
	st := e.positions.Stats()

	winRate := 50.0
	if st.Trades > 0 {
		winRate = reporting.RoundCents(float64(st.Wins) / float64(st.Trades) * 100)
	}

	details := make(map[string]PositionDetail)
	for _, p := range e.positions.Positions() {
		var tpDist, slDist float64
		if p.Current > 0 {
			tpDist = math.Abs(p.TakeProfit-p.Current) / p.Current * 100
			slDist = math.Abs(p.Current-p.StopLoss) / p.Current * 100
		}
		details[p.Symbol] = PositionDetail{
			Type:            string(p.Direction),
			Entry:           p.Entry,
			Current:         p.Current,
			TakeProfit:      p.TakeProfit,
			StopLoss:        p.StopLoss,
			Leverage:        p.Leverage,
			Size:            p.Size,
			PnL:             reporting.RoundCents(p.PnL),
			PnLPct:          reporting.RoundCents(p.PnLPct),
			MaxPnL:          reporting.RoundCents(p.MaxPnL),
			MinPnL:          reporting.RoundCents(p.MinPnL),
			TPDistancePct:   reporting.RoundCents(tpDist),
			SLDistancePct:   reporting.RoundCents(slDist),
			DurationSeconds: int(now.Sub(p.OpenedAt).Seconds()),
			Strategy:        p.Strategy,
		}
	}

	uptime := 0
	if start := e.started(); !start.IsZero() {
		uptime = int(now.Sub(start).Seconds())
	}

	return Debug{
		Timestamp:       now,
		UptimeSeconds:   uptime,
		Running:         e.Running(),
		Balance:         st.Balance,
		StartBalance:    st.StartBalance,
		TotalPnL:        st.TotalPnL,
		TotalPnLPct:     st.TotalPnLPct,
		Trades:          st.Trades,
		Wins:            st.Wins,
		Losses:          st.Trades - st.Wins,
		WinRate:         winRate,
		ActivePositions: st.Open,
		Drawdown:        st.DrawdownPct,
		ProfitFactor:    st.ProfitFactor,
		PeakBalance:     st.PeakBalance,
		TotalProfit:     st.TotalProfit,
		TotalLoss:       st.TotalLoss,
		PortfolioHeat:   reporting.Round(e.positions.Summary().PortfolioHeat, 4),
		CoinCount:       len(e.feed.Symbols()),
		RiskConfig:      e.risk.Get(),
		PositionsDetail: details,
		RecentTrades:    e.positions.History(debugTrades),
		Strategies:      e.strategies(true),
		RecentLogs:      e.events.Recent(debugEvents),
	}
}

func (e *Engine) strategies(withWins bool) map[string]StrategyView {
	out := make(map[string]StrategyView)
	for _, s := range e.weights.Snapshot() {
		v := StrategyView{Score: s.Weight, Trades: s.Trades, WinRate: s.WinRate}
		if withWins {
			v.Wins = s.Wins
		}
		out[s.Name] = v
	}
	return out
}

func (e *Engine) started() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.startTime
}

// uptime formats the time since the last start as HH:MM:SS, empty before
// the first start.
func (e *Engine) uptime() string {
	start := e.started()
	if start.IsZero() {
		return ""
	}
	secs := int(e.now().Sub(start).Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}
