package risk

import (
	"fmt"
	"math"
	"sync"
)

// Limits configures the portfolio risk manager.
type Limits struct {
	MaxRiskPerTrade  float64 // fraction of capital lost at stop
	MaxPortfolioHeat float64
	MaxDrawdown      float64
	MaxKelly         float64
	MaxPositionPct   float64 // cap on a single position as a fraction of capital
}

// DefaultLimits returns 2% risk per trade, 10% heat, 20% drawdown.
func DefaultLimits() Limits {
	return Limits{
		MaxRiskPerTrade:  0.02,
		MaxPortfolioHeat: 0.10,
		MaxDrawdown:      0.20,
		MaxKelly:         0.25,
		MaxPositionPct:   0.25,
	}
}

// Manager is a capital-aware Collaborator.
type Manager struct {
	mu        sync.RWMutex
	limits    Limits
	capital   float64
	peak      float64
	drawdown  float64
	positions map[string]exposure
}

// NewManager creates a risk manager for the given starting capital.
func NewManager(capital float64, limits Limits) *Manager {
	return &Manager{
		limits:    limits,
		capital:   capital,
		peak:      capital,
		positions: make(map[string]exposure),
	}
}

// Enabled implements Collaborator.
func (m *Manager) Enabled() bool { return true }

// AddPosition implements Collaborator.
func (m *Manager) AddPosition(symbol string, size, entry, stopLoss float64, leverage int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[symbol] = exposure{size: size, entry: entry, stopLoss: stopLoss, leverage: leverage}
}

// RemovePosition implements Collaborator.
func (m *Manager) RemovePosition(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, symbol)
}

// PortfolioHeat returns the sum of leveraged losses at stop divided by
// capital.
func (m *Manager) PortfolioHeat() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.heatLocked()
}

func (m *Manager) heatLocked() float64 {
	if m.capital <= 0 {
		return 0
	}
	total := 0.0
	for _, p := range m.positions {
		if p.entry <= 0 {
			continue
		}
		total += p.size * float64(p.leverage) * math.Abs(p.entry-p.stopLoss) / p.entry
	}
	return total / m.capital
}

// ShouldStopTrading implements Collaborator.
func (m *Manager) ShouldStopTrading() (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.capital <= 0 {
		return true, "no capital left"
	}
	if m.drawdown >= m.limits.MaxDrawdown {
		return true, fmt.Sprintf("max drawdown reached (%.1f%%)", m.drawdown*100)
	}
	if heat := m.heatLocked(); heat >= m.limits.MaxPortfolioHeat {
		return true, fmt.Sprintf("portfolio heat limit (%.1f%%)", heat*100)
	}
	return false, ""
}

// PositionSize sizes by half-Kelly when history is supplied and gives a
// positive edge, otherwise by fixed fractional risk at the stop.
func (m *Manager) PositionSize(req SizingRequest) SizingResult {
	m.mu.RLock()
	capital := m.capital
	m.mu.RUnlock()

	if capital <= 0 || req.Entry <= 0 {
		return SizingResult{Method: MethodFixedRisk}
	}

	lev := float64(req.Leverage)
	if lev < 1 {
		lev = 1
	}
	stopDistance := math.Abs(req.Entry-req.StopLoss) / req.Entry
	maxSize := capital * m.limits.MaxPositionPct

	size := maxSize
	method := MethodFixedRisk
	if stopDistance > 0 {
		size = capital * m.limits.MaxRiskPerTrade / (stopDistance * lev)
	}

	if req.HasHistory && req.AvgLoss > 0 && req.AvgWin > 0 {
		payoff := req.AvgWin / req.AvgLoss
		kelly := req.WinRate - (1-req.WinRate)/payoff
		if kelly > 0 {
			half := math.Min(kelly/2, m.limits.MaxKelly)
			size = capital * half
			method = MethodKelly
		}
	}

	size = math.Min(size, maxSize)
	return SizingResult{
		SizeUSD:    size,
		SizePct:    size / capital * 100,
		RiskAmount: size * lev * stopDistance,
		Method:     method,
	}
}

// UpdateCapital implements Collaborator.
func (m *Manager) UpdateCapital(capital float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capital = capital
}

// UpdateDrawdown implements Collaborator.
func (m *Manager) UpdateDrawdown(balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if balance > m.peak {
		m.peak = balance
	}
	if m.peak > 0 {
		m.drawdown = (m.peak - balance) / m.peak
	}
}

// CurrentDrawdown implements Collaborator.
func (m *Manager) CurrentDrawdown() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drawdown
}
