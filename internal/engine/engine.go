package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Cenotaph26/trading-botv5/internal/config"
	"github.com/Cenotaph26/trading-botv5/internal/decision"
	"github.com/Cenotaph26/trading-botv5/internal/logger"
	"github.com/Cenotaph26/trading-botv5/internal/monitoring"
	"github.com/Cenotaph26/trading-botv5/internal/notifications"
	"github.com/Cenotaph26/trading-botv5/internal/position"
	"github.com/Cenotaph26/trading-botv5/internal/strategy"
	"github.com/Cenotaph26/trading-botv5/pkg/reporting"
	"github.com/Cenotaph26/trading-botv5/pkg/types"
)

var ErrAlreadyRunning = errors.New("engine already running")

// Feed is the market data the engine schedules and reads.
type Feed interface {
	Symbols() []string
	Price(symbol string) float64
	Tickers() map[string]types.Ticker
	RefreshPrices(ctx context.Context)
	RefreshTickers(ctx context.Context)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error)
	FreshKlines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error)
}

// Decider vetoes or accepts an entry on one symbol.
type Decider interface {
	Decide(ctx context.Context, symbol string, hasPosition bool) (*decision.Intent, *decision.Rejection)
}

// Config holds loop cadences.
type Config struct {
	StartBalance   float64
	LoopInterval   time.Duration
	PriceInterval  time.Duration
	TickerInterval time.Duration
	// CloseOnStop settles every open position when the engine stops.
	CloseOnStop bool
}

func DefaultConfig() Config {
	return Config{
		StartBalance:   10000,
		LoopInterval:   2 * time.Second,
		PriceInterval:  2 * time.Second,
		TickerInterval: 15 * time.Second,
	}
}

// Deps are the collaborators wired into the engine.
type Deps struct {
	Feed     Feed
	Analyzer position.Analyzer
	Decider  Decider
	Weights  *strategy.Weights
	Risk     *config.RiskStore
}

// Engine schedules the trading loop and the market refreshers.
type Engine struct {
	cfg       Config
	feed      Feed
	decider   Decider
	weights   *strategy.Weights
	risk      *config.RiskStore
	positions *position.Manager
	events    *EventLog
	notifier  notifications.Notifier
	health    *monitoring.HealthChecker
	log       *logger.Logger
	now       func() time.Time
	sample    func(symbols []string, n int) []string

	positionOpts []position.Option

	running atomic.Bool
	tick    atomic.Int64

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex
	stopChan  chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	alerts    sync.WaitGroup

	mu        sync.RWMutex
	startTime time.Time
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithNotifier(n notifications.Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func WithHealth(h *monitoring.HealthChecker) Option {
	return func(e *Engine) { e.health = h }
}

// WithClock overrides time.Now for events and uptime.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSampler overrides the random symbol sampling of a scan.
func WithSampler(sample func(symbols []string, n int) []string) Option {
	return func(e *Engine) { e.sample = sample }
}

// WithPositionOptions passes options through to the position manager.
func WithPositionOptions(opts ...position.Option) Option {
	return func(e *Engine) { e.positionOpts = append(e.positionOpts, opts...) }
}

// New builds the engine and its position manager. The engine observes every
// position it opens or closes.
func New(cfg Config, deps Deps, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.LoopInterval <= 0 {
		cfg.LoopInterval = def.LoopInterval
	}
	if cfg.PriceInterval <= 0 {
		cfg.PriceInterval = def.PriceInterval
	}
	if cfg.TickerInterval <= 0 {
		cfg.TickerInterval = def.TickerInterval
	}
	if cfg.StartBalance <= 0 {
		cfg.StartBalance = def.StartBalance
	}

	e := &Engine{
		cfg:      cfg,
		feed:     deps.Feed,
		decider:  deps.Decider,
		weights:  deps.Weights,
		risk:     deps.Risk,
		notifier: notifications.Nop{},
		log:      logger.NewNop(),
		now:      time.Now,
		sample:   randomSample,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.events = NewEventLog(eventCap, e.now)

	posOpts := append([]position.Option{
		position.WithObserver(e),
		position.WithClock(e.now),
		position.WithLogger(e.log.Named("positions")),
	}, e.positionOpts...)
	e.positions = position.NewManager(cfg.StartBalance, deps.Risk, deps.Feed, deps.Analyzer, deps.Weights, posOpts...)

	for _, s := range e.weights.Snapshot() {
		monitoring.UpdateStrategyWeight(s.Name, s.Weight)
	}
	monitoring.UpdateAccount(cfg.StartBalance, 0, 0)
	return e
}

// Positions exposes the position manager.
func (e *Engine) Positions() *position.Manager { return e.positions }

// Events exposes the dashboard event log.
func (e *Engine) Events() *EventLog { return e.events }

// LogEvent adds a line to the dashboard event log.
func (e *Engine) LogEvent(level, msg string) { e.events.Add(level, msg) }

// Trades returns the closed trades for the journal export.
func (e *Engine) Trades() []reporting.Trade { return e.positions.Trades() }

// Running reports whether the loops are active.
func (e *Engine) Running() bool { return e.running.Load() }

// Start launches the main loop and both refreshers. It returns immediately.
func (e *Engine) Start(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.stopChan = make(chan struct{})
	e.cancel = cancel
	stop := e.stopChan

	e.mu.Lock()
	e.startTime = e.now()
	e.mu.Unlock()

	if e.health != nil {
		e.health.SetRunning(true)
	}
	e.events.Add(LevelSuccess, "Bot started - scanning market...")
	e.log.Status("engine started | balance $%.0f | %d symbols", e.positions.Balance(), len(e.feed.Symbols()))

	e.wg.Add(3)
	go e.tradingLoop(runCtx, stop)
	go e.refreshLoop(runCtx, stop, e.cfg.PriceInterval, e.feed.RefreshPrices)
	go e.refreshLoop(runCtx, stop, e.cfg.TickerInterval, e.feed.RefreshTickers)
	return nil
}

// Stop signals every loop and waits for them to exit.
func (e *Engine) Stop() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if !e.running.CompareAndSwap(true, false) {
		return
	}

	close(e.stopChan)
	e.cancel()
	e.wg.Wait()

	if e.health != nil {
		e.health.SetRunning(false)
	}
	if e.cfg.CloseOnStop {
		closed := e.positions.CloseAll("Bot Stopped")
		e.log.Info("closed %d positions on stop", len(closed))
	}
	e.events.Add(LevelWarn, "Bot stopped")
	e.alerts.Wait()
	e.log.Status("engine stopped")
}

func (e *Engine) tradingLoop(ctx context.Context, stop <-chan struct{}) {
	defer e.wg.Done()

	e.step(ctx)

	ticker := time.NewTicker(e.cfg.LoopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !e.running.Load() {
				return
			}
			e.step(ctx)
		case <-stop:
			e.log.Info("stop signal received - ending trading loop")
			return
		}
	}
}

func (e *Engine) refreshLoop(ctx context.Context, stop <-chan struct{}, every time.Duration, refresh func(context.Context)) {
	defer e.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			refresh(ctx)
		case <-stop:
			return
		}
	}
}

// step runs one iteration: mark positions, then scan on every
// scan_interval-th tick.
func (e *Engine) step(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("Error: %v", r)
			e.events.Add(LevelError, msg)
			e.log.Error("trading loop panic: %v", r)
			monitoring.RecordError("panic")
			if e.health != nil {
				e.health.RecordError(msg)
			}
		}
	}()

	e.positions.Update(ctx)

	cfg := e.risk.Get()
	tick := e.tick.Load()
	if cfg.ScanInterval > 0 && tick%int64(cfg.ScanInterval) == 0 {
		e.scan(ctx, cfg)
	}
	e.tick.Add(1)

	st := e.positions.Stats()
	monitoring.UpdateAccount(st.Balance, st.DrawdownPct, st.Open)
	if e.health != nil {
		e.health.MarkTick()
	}
}

func (e *Engine) scan(ctx context.Context, cfg config.RiskConfig) {
	symbols := e.feed.Symbols()
	n := min(cfg.ScanSize, len(symbols))
	if n <= 0 {
		return
	}

	for _, sym := range e.sample(symbols, n) {
		if ctx.Err() != nil || e.positions.Count() >= cfg.MaxPositions {
			return
		}

		intent, rej := e.decider.Decide(ctx, sym, e.positions.Has(sym))
		if rej != nil {
			if rej.Loggable() {
				e.log.Debug("rejected %s", rej)
			}
			continue
		}

		pos, err := e.positions.Open(intent)
		if err != nil {
			e.openFailed(sym, err)
			continue
		}
		e.events.Add(LevelTrade, fmt.Sprintf("%s %s | $%.0f position | %dx | @$%.4f | AI:%.0f%%",
			sym, pos.Direction, pos.Size, pos.Leverage, pos.Entry, pos.Confidence))
	}
}

func (e *Engine) openFailed(sym string, err error) {
	switch {
	case errors.Is(err, position.ErrPositionExists):
		return
	case errors.Is(err, position.ErrTradingHalted), errors.Is(err, position.ErrPortfolioHeat):
		e.events.Add(LevelWarn, fmt.Sprintf("%s skipped: %v", sym, err))
	default:
		e.events.Add(LevelError, fmt.Sprintf("%s open failed: %v", sym, err))
		monitoring.RecordError("open")
	}
	e.log.LogWarning(sym, "open rejected: %v", err)
}

func randomSample(symbols []string, n int) []string {
	out := append([]string(nil), symbols...)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out[:n]
}
