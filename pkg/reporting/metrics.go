package reporting

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// maxRatio caps ratios that would otherwise be infinite.
const maxRatio = 99.9

// Trade is one closed paper trade as seen by reports.
type Trade struct {
	ID         int
	Symbol     string
	Direction  string
	Strategy   string
	ExitReason string
	Entry      float64
	Exit       float64
	Size       float64
	Leverage   int
	PnL        float64
	PnLPct     float64
	Commission float64
	Slippage   float64
	MaxPnL     float64
	MinPnL     float64
	OpenedAt   time.Time
	ClosedAt   time.Time
	Duration   string
	Won        bool
}

// Summary is the account state at report time.
type Summary struct {
	StartBalance  float64
	Balance       float64
	WinRate       float64
	ProfitFactor  float64
	DrawdownPct   float64
	PortfolioHeat float64
	OpenPositions int
	MaxPositions  int
}

// Performance holds trade-sequence statistics.
type Performance struct {
	Trades          int
	TotalReturnPct  float64
	Sharpe          float64
	Sortino         float64
	Calmar          float64
	Expectancy      float64
	ExpectancyRatio float64
	CurrentStreak   int
	MaxWinStreak    int
	MaxLossStreak   int
	Grade           string
	RiskScore       int
}

// Analyze computes performance statistics over the trades.
func Analyze(trades []Trade, s Summary) Performance {
	p := Performance{Trades: len(trades)}
	if s.StartBalance > 0 {
		p.TotalReturnPct = (s.Balance - s.StartBalance) / s.StartBalance * 100
	}

	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = t.PnLPct
	}
	p.Sharpe = sharpe(returns)
	p.Sortino = sortino(returns)
	p.Expectancy, p.ExpectancyRatio = expectancy(trades)
	p.CurrentStreak, p.MaxWinStreak, p.MaxLossStreak = streaks(trades)

	switch {
	case s.DrawdownPct > 0:
		p.Calmar = p.TotalReturnPct / s.DrawdownPct
	case p.TotalReturnPct > 0:
		p.Calmar = maxRatio
	}

	p.Grade = grade(p.Sharpe, s.ProfitFactor)
	p.RiskScore = riskScore(s.DrawdownPct, s.PortfolioHeat)
	return p
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sharpe is mean over population standard deviation, zero risk-free rate.
func sharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	avg := mean(returns)
	variance := 0.0
	for _, r := range returns {
		variance += (r - avg) * (r - avg)
	}
	std := math.Sqrt(variance / float64(len(returns)))
	if std < 1e-10 {
		return 0
	}
	return avg / std
}

func sortino(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	avg := mean(returns)

	downside := 0.0
	count := 0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
			count++
		}
	}
	if count == 0 {
		if avg > 0 {
			return maxRatio
		}
		return 0
	}
	return avg / math.Sqrt(downside/float64(count))
}

func expectancy(trades []Trade) (float64, float64) {
	if len(trades) == 0 {
		return 0, 0
	}

	var wins, losses []float64
	for _, t := range trades {
		if t.PnL > 0 {
			wins = append(wins, t.PnL)
		} else {
			losses = append(losses, math.Abs(t.PnL))
		}
	}

	n := float64(len(trades))
	avgLoss := mean(losses)
	exp := float64(len(wins))/n*mean(wins) - float64(len(losses))/n*avgLoss
	if avgLoss == 0 {
		return exp, 0
	}
	return exp, exp / avgLoss
}

// streaks returns the signed current streak (positive for wins) and the
// longest win and loss streaks.
func streaks(trades []Trade) (current, maxWin, maxLoss int) {
	for _, t := range trades {
		if t.PnL > 0 {
			if current < 0 {
				current = 0
			}
			current++
			maxWin = max(maxWin, current)
		} else {
			if current > 0 {
				current = 0
			}
			current--
			maxLoss = max(maxLoss, -current)
		}
	}
	return current, maxWin, maxLoss
}

func grade(sharpe, profitFactor float64) string {
	switch {
	case sharpe >= 1.5 && profitFactor >= 2:
		return "A"
	case sharpe >= 1 && profitFactor >= 1.5:
		return "B"
	case profitFactor >= 1:
		return "C"
	default:
		return "D"
	}
}

func riskScore(drawdownPct, heat float64) int {
	score := 100 - drawdownPct*2 - heat*100
	return int(math.Max(0, math.Min(100, math.Round(score))))
}

// RoundCents rounds half away from zero to two decimals.
func RoundCents(v float64) float64 {
	return Round(v, 2)
}

// Round rounds half away from zero to the given decimal places.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
