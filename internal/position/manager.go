package position

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Cenotaph26/trading-botv5/internal/config"
	"github.com/Cenotaph26/trading-botv5/internal/decision"
	"github.com/Cenotaph26/trading-botv5/internal/logger"
	"github.com/Cenotaph26/trading-botv5/internal/risk"
	"github.com/Cenotaph26/trading-botv5/internal/signal"
	"github.com/Cenotaph26/trading-botv5/pkg/reporting"
	"github.com/Cenotaph26/trading-botv5/pkg/types"
)

const (
	commissionRate = 0.0004
	slippageRate   = 0.0005
	maxHeat        = 0.08

	historyCap    = 200
	curveCap      = 100
	closedCap     = 1000
	kellyMinCount = 10
	kellyWindow   = 50
	reportEvery   = 10

	windowInterval = "5m"
)

// Market supplies prices and candle windows for open positions.
type Market interface {
	Price(symbol string) float64
	FreshKlines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error)
}

// Analyzer re-scores a symbol for the dynamic exit policies.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*signal.Signal, bool)
}

// Reinforcer receives the outcome of every closed trade.
type Reinforcer interface {
	Record(name string, won bool)
}

// Observer is notified of lifecycle events. Calls happen outside the
// manager lock.
type Observer interface {
	OnOpen(pos Position)
	OnClose(rec TradeRecord)
	OnError(symbol string, err error)
}

// Reporter prints periodic performance summaries.
type Reporter interface {
	Report(trades []reporting.Trade, s reporting.Summary)
}

// Stats is the account summary.
type Stats struct {
	StartBalance float64 `json:"start_balance"`
	Balance      float64 `json:"balance"`
	PeakBalance  float64 `json:"peak_balance"`
	TotalPnL     float64 `json:"total_pnl"`
	TotalPnLPct  float64 `json:"total_pnl_pct"`
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	WinRate      float64 `json:"wr"`
	DrawdownPct  float64 `json:"drawdown"`
	ProfitFactor float64 `json:"profit_factor"`
	TotalProfit  float64 `json:"total_profit"`
	TotalLoss    float64 `json:"total_loss"`
	Open         int     `json:"open"`
}

// Manager owns the virtual account and every open position.
type Manager struct {
	risk       *config.RiskStore
	market     Market
	analyzer   Analyzer
	reinforcer Reinforcer
	collab     risk.Collaborator
	observer   Observer
	reporter   Reporter
	log        *logger.Logger
	now        func() time.Time

	mu           sync.Mutex
	startBalance float64
	balance      float64
	peak         float64
	trades       int
	wins         int
	totalProfit  float64
	totalLoss    float64
	positions    map[string]*Position
	history      []TradeRecord
	curve        []EquityPoint
	closed       []reporting.Trade
}

// Option configures a Manager.
type Option func(*Manager)

// WithCollaborator enables risk-adjusted sizing.
func WithCollaborator(c risk.Collaborator) Option {
	return func(m *Manager) {
		if c != nil {
			m.collab = c
		}
	}
}

// WithObserver registers lifecycle callbacks.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithReporter sets the periodic performance reporter.
func WithReporter(r Reporter) Option {
	return func(m *Manager) { m.reporter = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager creates a manager with startBalance of virtual capital.
func NewManager(startBalance float64, store *config.RiskStore, market Market, analyzer Analyzer, reinforcer Reinforcer, opts ...Option) *Manager {
	m := &Manager{
		risk:         store,
		market:       market,
		analyzer:     analyzer,
		reinforcer:   reinforcer,
		collab:       risk.Noop{},
		log:          logger.NewNop(),
		now:          time.Now,
		startBalance: startBalance,
		balance:      startBalance,
		peak:         startBalance,
		positions:    make(map[string]*Position),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.curve = []EquityPoint{{Label: m.now().Format("15:04"), Balance: reporting.RoundCents(startBalance)}}
	return m
}

// Open registers a new position for an accepted intent.
func (m *Manager) Open(intent *decision.Intent) (*Position, error) {
	if intent == nil || intent.Price <= 0 {
		return nil, ErrInvalidSize
	}
	cfg := m.risk.Get()
	lev := intent.Leverage
	if lev <= 0 {
		lev = 1
	}

	m.mu.Lock()
	if _, ok := m.positions[intent.Symbol]; ok {
		m.mu.Unlock()
		return nil, ErrPositionExists
	}

	var size float64
	if m.collab.Enabled() {
		var err error
		size, err = m.collaboratorSizeLocked(intent, lev, cfg)
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
	} else {
		size = m.balance * cfg.PositionSizePct / 100
	}
	if size <= 0 || math.IsNaN(size) {
		m.mu.Unlock()
		return nil, ErrInvalidSize
	}

	tp, sl := Targets(intent.Direction, intent.Price, lev, cfg.TPPct, cfg.SLPct)
	pos := &Position{
		ID:         uuid.NewString(),
		Symbol:     intent.Symbol,
		Direction:  intent.Direction,
		Entry:      intent.Price,
		Current:    intent.Price,
		TakeProfit: tp,
		StopLoss:   sl,
		Size:       size,
		Leverage:   lev,
		OpenedAt:   m.now(),
		Strategy:   intent.Strategy,
		Confidence: intent.Confidence,
		Score:      intent.Score,
		Reasons:    append([]string(nil), intent.Reasons...),
		Snapshot:   intent.Snapshot,
		Candles:    append([]types.OHLCV(nil), intent.Candles...),
	}
	m.positions[pos.Symbol] = pos
	snapshot := pos.clone()
	m.mu.Unlock()

	m.collab.AddPosition(pos.Symbol, size, pos.Entry, sl, lev)
	if m.observer != nil {
		m.observer.OnOpen(snapshot)
	}
	return &snapshot, nil
}

func (m *Manager) collaboratorSizeLocked(intent *decision.Intent, lev int, cfg config.RiskConfig) (float64, error) {
	slFrac := cfg.SLPct / 100 * float64(lev) / 3
	stop := intent.Price * (1 - slFrac)
	if intent.Direction == types.Short {
		stop = intent.Price * (1 + slFrac)
	}

	req := risk.SizingRequest{
		Symbol:   intent.Symbol,
		Entry:    intent.Price,
		StopLoss: stop,
		Leverage: lev,
	}
	if len(m.closed) >= kellyMinCount {
		recent := m.closed
		if len(recent) > kellyWindow {
			recent = recent[len(recent)-kellyWindow:]
		}
		req.HasHistory = true
		req.WinRate, req.AvgWin, req.AvgLoss = kellyInputs(recent)
	}

	if stop, why := m.collab.ShouldStopTrading(); stop {
		m.log.Warning("%s: trading halted: %s", intent.Symbol, why)
		return 0, fmt.Errorf("%w: %s", ErrTradingHalted, why)
	}
	if heat := m.collab.PortfolioHeat(); heat >= maxHeat {
		m.log.Warning("%s: portfolio heat too high (%.1f%%)", intent.Symbol, heat*100)
		return 0, ErrPortfolioHeat
	}

	res := m.collab.PositionSize(req)
	m.log.Info("%s: position $%.0f (%.1f%%) | risk $%.2f | method %s",
		intent.Symbol, res.SizeUSD, res.SizePct, res.RiskAmount, res.Method)
	return res.SizeUSD, nil
}

// kellyInputs returns win rate, average win and average absolute loss.
// Break-even trades count as losses.
func kellyInputs(trades []reporting.Trade) (winRate, avgWin, avgLoss float64) {
	if len(trades) == 0 {
		return 0, 0, 0
	}
	var wins, losses int
	var winSum, lossSum float64
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
			winSum += t.PnL
		} else {
			losses++
			lossSum += t.PnL
		}
	}
	winRate = float64(wins) / float64(len(trades))
	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	if losses > 0 {
		avgLoss = math.Abs(lossSum / float64(losses))
	}
	return winRate, avgWin, avgLoss
}

type pendingClose struct {
	symbol string
	reason string
}

// Update marks every open position to market, evaluates exits and closes
// whatever matched. It returns the records of closed trades.
func (m *Manager) Update(ctx context.Context) []TradeRecord {
	m.mu.Lock()
	symbols := make([]string, 0, len(m.positions))
	for sym := range m.positions {
		symbols = append(symbols, sym)
	}
	m.mu.Unlock()
	sort.Strings(symbols)

	var pending []pendingClose
	for _, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		if reason, ok := m.updateOne(ctx, sym); ok {
			pending = append(pending, pendingClose{symbol: sym, reason: reason})
		}
	}

	var closed []TradeRecord
	for _, pc := range pending {
		rec, err := m.Close(pc.symbol, pc.reason)
		if err != nil {
			continue
		}
		closed = append(closed, rec)
	}
	return closed
}

func (m *Manager) updateOne(ctx context.Context, sym string) (reason string, exit bool) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("position update panic: %v", r)
			m.log.LogError(sym, err)
			if m.observer != nil {
				m.observer.OnError(sym, err)
			}
			reason, exit = "", false
		}
	}()

	price := m.market.Price(sym)
	if price <= 0 {
		return "", false
	}

	m.mu.Lock()
	pos, ok := m.positions[sym]
	if !ok {
		m.mu.Unlock()
		return "", false
	}
	pos.Current = price
	pos.Ticks++
	pos.PnLPct = LeveragedPnLPct(pos.Direction, pos.Entry, price, pos.Leverage)
	pos.PnL = pos.Size * pos.PnLPct / 100
	pos.MaxPnL = math.Max(pos.MaxPnL, pos.PnL)
	pos.MinPnL = math.Min(pos.MinPnL, pos.PnL)
	m.mu.Unlock()

	candles, err := m.market.FreshKlines(ctx, sym, windowInterval, signal.WindowSize)
	m.mu.Lock()
	if err != nil || len(candles) == 0 {
		m.log.Debug("%s: candle window refresh failed: %v", sym, err)
	} else if p, ok := m.positions[sym]; ok {
		p.Candles = candles
	}
	snapshot := pos.clone()
	m.mu.Unlock()

	var cached *int
	rescore := func() (int, bool) {
		if cached != nil {
			return *cached, true
		}
		sig, ok := m.analyzer.Analyze(ctx, sym)
		if !ok || sig == nil {
			return 0, false
		}
		cached = &sig.Score
		return sig.Score, true
	}
	return ExitReason(snapshot, m.risk.Get(), rescore)
}

// Close settles the position on sym at its last marked price.
func (m *Manager) Close(sym, reason string) (TradeRecord, error) {
	now := m.now()

	m.mu.Lock()
	pos, ok := m.positions[sym]
	if !ok {
		m.mu.Unlock()
		return TradeRecord{}, ErrPositionNotFound
	}
	delete(m.positions, sym)

	commission := pos.Size * float64(pos.Leverage) * commissionRate * 2
	slippage := pos.Size * slippageRate
	net := pos.PnL - commission - slippage

	m.balance += net
	m.peak = math.Max(m.peak, m.balance)
	m.trades++
	won := net > 0
	if won {
		m.wins++
		m.totalProfit += net
	} else {
		m.totalLoss += math.Abs(net)
	}

	duration := now.Sub(pos.OpenedAt)
	rec := TradeRecord{
		ID:           m.trades,
		PositionID:   pos.ID,
		Symbol:       sym,
		Direction:    pos.Direction,
		Entry:        pos.Entry,
		Exit:         pos.Current,
		TakeProfit:   pos.TakeProfit,
		StopLoss:     pos.StopLoss,
		Size:         pos.Size,
		PnL:          reporting.RoundCents(net),
		PnLPct:       reporting.RoundCents(net / pos.Size * 100),
		Leverage:     pos.Leverage,
		Strategy:     pos.Strategy,
		Reasons:      append([]string(nil), pos.Reasons...),
		ExitReason:   reason,
		OpenedAt:     pos.OpenedAt,
		ClosedAt:     now,
		Time:         now.Format("15:04:05"),
		Duration:     duration,
		DurationText: HumanDuration(duration),
		Won:          won,
		MaxPnL:       reporting.RoundCents(pos.MaxPnL),
		MinPnL:       reporting.RoundCents(pos.MinPnL),
		Score:        pos.Score,
		Commission:   reporting.RoundCents(commission),
		Slippage:     reporting.RoundCents(slippage),
	}

	m.history = append([]TradeRecord{rec}, m.history...)
	if len(m.history) > historyCap {
		m.history = m.history[:historyCap]
	}
	m.curve = append(m.curve, EquityPoint{Label: now.Format("15:04"), Balance: reporting.RoundCents(m.balance)})
	if len(m.curve) > curveCap {
		m.curve = m.curve[len(m.curve)-curveCap:]
	}
	m.closed = append(m.closed, reporting.Trade{
		ID:         rec.ID,
		Symbol:     sym,
		Direction:  string(pos.Direction),
		Strategy:   pos.Strategy,
		ExitReason: reason,
		Entry:      pos.Entry,
		Exit:       pos.Current,
		Size:       pos.Size,
		Leverage:   pos.Leverage,
		PnL:        net,
		PnLPct:     net / pos.Size * 100,
		Commission: commission,
		Slippage:   slippage,
		MaxPnL:     pos.MaxPnL,
		MinPnL:     pos.MinPnL,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   now,
		Duration:   rec.DurationText,
		Won:        won,
	})
	if len(m.closed) > closedCap {
		m.closed = m.closed[len(m.closed)-closedCap:]
	}

	balance := m.balance
	doReport := m.reporter != nil && m.trades%reportEvery == 0
	var trades []reporting.Trade
	var summary reporting.Summary
	if doReport {
		trades = append([]reporting.Trade(nil), m.closed...)
		summary = m.summaryLocked()
	}
	m.mu.Unlock()

	if m.reinforcer != nil {
		m.reinforcer.Record(pos.Strategy, won)
	}
	m.collab.RemovePosition(sym)
	m.collab.UpdateCapital(balance)
	m.collab.UpdateDrawdown(balance)

	result := "LOSS"
	if won {
		result = "WIN"
	}
	m.log.Trade("[%s] %s %s | $%.2f (%.2f%%) | %s | costs $%.2f",
		result, sym, pos.Direction, net, rec.PnLPct, reason, commission+slippage)

	if doReport {
		summary.PortfolioHeat = m.collab.PortfolioHeat()
		m.reporter.Report(trades, summary)
	}
	if m.observer != nil {
		m.observer.OnClose(rec)
	}
	return rec, nil
}

// CloseAll settles every open position with the same reason.
func (m *Manager) CloseAll(reason string) []TradeRecord {
	m.mu.Lock()
	symbols := make([]string, 0, len(m.positions))
	for sym := range m.positions {
		symbols = append(symbols, sym)
	}
	m.mu.Unlock()
	sort.Strings(symbols)

	out := make([]TradeRecord, 0, len(symbols))
	for _, sym := range symbols {
		if rec, err := m.Close(sym, reason); err == nil {
			out = append(out, rec)
		}
	}
	return out
}

func (m *Manager) summaryLocked() reporting.Summary {
	st := m.statsLocked()
	return reporting.Summary{
		StartBalance:  m.startBalance,
		Balance:       m.balance,
		WinRate:       st.WinRate,
		ProfitFactor:  st.ProfitFactor,
		DrawdownPct:   st.DrawdownPct,
		OpenPositions: len(m.positions),
		MaxPositions:  m.risk.Get().MaxPositions,
	}
}

// Stats returns the account summary with display rounding applied.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statsLocked()
}

func (m *Manager) statsLocked() Stats {
	winRate := 50.0
	if m.trades > 0 {
		winRate = float64(m.wins) / float64(m.trades) * 100
	}
	pf := 1.0
	switch {
	case m.totalLoss > 0:
		pf = m.totalProfit / m.totalLoss
	case m.totalProfit > 0:
		pf = 99.9
	}
	pnl := reporting.RoundCents(m.balance - m.startBalance)
	pnlPct := 0.0
	if m.startBalance > 0 {
		pnlPct = pnl / m.startBalance * 100
	}
	return Stats{
		StartBalance: m.startBalance,
		Balance:      reporting.RoundCents(m.balance),
		PeakBalance:  reporting.RoundCents(m.peak),
		TotalPnL:     pnl,
		TotalPnLPct:  reporting.RoundCents(pnlPct),
		Trades:       m.trades,
		Wins:         m.wins,
		WinRate:      reporting.Round(winRate, 1),
		DrawdownPct:  reporting.RoundCents(DrawdownPct(m.peak, m.balance)),
		ProfitFactor: reporting.RoundCents(pf),
		TotalProfit:  reporting.RoundCents(m.totalProfit),
		TotalLoss:    reporting.RoundCents(m.totalLoss),
		Open:         len(m.positions),
	}
}

// Balance returns the unrounded virtual balance.
func (m *Manager) Balance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance
}

// Positions returns copies of the open positions, oldest first.
func (m *Manager) Positions() []Position {
	m.mu.Lock()
	out := make([]Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p.clone())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// Position returns a copy of the position on sym.
func (m *Manager) Position(sym string) (Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[sym]
	if !ok {
		return Position{}, false
	}
	return p.clone(), true
}

// Has reports whether sym has an open position.
func (m *Manager) Has(sym string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.positions[sym]
	return ok
}

// Count returns the number of open positions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.positions)
}

// History returns up to limit trade records, most recent first. limit <= 0
// returns all of them.
func (m *Manager) History(limit int) []TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.history)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]TradeRecord(nil), m.history[:n]...)
}

// Curve returns the equity curve, oldest first.
func (m *Manager) Curve() []EquityPoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EquityPoint(nil), m.curve...)
}

// Trades returns the closed trades used for reports, oldest first.
func (m *Manager) Trades() []reporting.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]reporting.Trade(nil), m.closed...)
}

// Summary returns the account state in report form.
func (m *Manager) Summary() reporting.Summary {
	m.mu.Lock()
	s := m.summaryLocked()
	m.mu.Unlock()
	s.PortfolioHeat = m.collab.PortfolioHeat()
	return s
}
