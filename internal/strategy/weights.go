package strategy

import (
	"math"
	"math/rand"
	"sync"
)

// Strategy labels attached to every entry.
const (
	TrendFollowing = "Trend Following"
	MeanReversion  = "Mean Reversion"
	Breakout       = "Breakout"
	Scalping       = "Scalping"
	VWAPBounce     = "VWAP Bounce"

	// DefaultStrategy is returned when the draw selects nothing.
	DefaultStrategy = TrendFollowing
)

const (
	initialWeight = 1.0
	minWeight     = 0.1
	maxWeight     = 3.0
	winReward     = 0.18
	lossPenalty   = 0.06
)

// DefaultNames lists the built-in strategies in draw order.
func DefaultNames() []string {
	return []string{TrendFollowing, MeanReversion, Breakout, Scalping, VWAPBounce}
}

// Stats is the exported view of one strategy.
type Stats struct {
	Name    string  `json:"name"`
	Weight  float64 `json:"score"`
	Wins    int     `json:"wins"`
	Trades  int     `json:"trades"`
	WinRate float64 `json:"wr"`
}

type entry struct {
	name   string
	weight float64
	wins   int
	total  int
}

// Weights is a reinforcement-weighted strategy selector. Weights change only
// when a trade closes.
type Weights struct {
	mu      sync.RWMutex
	entries []*entry
	index   map[string]*entry
	rnd     func() float64
}

// NewWeights creates a selector with every strategy at weight 1.0. rnd must
// return values in [0, 1); nil uses math/rand.
func NewWeights(names []string, rnd func() float64) *Weights {
	if rnd == nil {
		rnd = rand.Float64
	}
	w := &Weights{
		index: make(map[string]*entry, len(names)),
		rnd:   rnd,
	}
	for _, name := range names {
		w.add(name)
	}
	return w
}

func (w *Weights) add(name string) *entry {
	e := &entry{name: name, weight: initialWeight}
	w.entries = append(w.entries, e)
	w.index[name] = e
	return e
}

// Pick draws a strategy proportionally to weight.
func (w *Weights) Pick() string {
	return w.PickWith(w.rnd())
}

// PickWith draws using u in [0, 1) scaled to the total weight. Strategies
// that have never traded are floored at 1.0 first so they keep getting tried.
func (w *Weights) PickWith(u float64) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	weights := make([]float64, len(w.entries))
	total := 0.0
	for i, e := range w.entries {
		if e.total == 0 {
			e.weight = math.Max(e.weight, initialWeight)
		}
		weights[i] = e.weight
		total += e.weight
	}

	idx := Sample(weights, u*total)
	if idx < 0 {
		return DefaultStrategy
	}
	return w.entries[idx].name
}

// Sample returns the first index whose cumulative weight reaches draw, or -1
// if draw exceeds the total.
func Sample(weights []float64, draw float64) int {
	cumulative := 0.0
	for i, weight := range weights {
		cumulative += weight
		if draw <= cumulative {
			return i
		}
	}
	return -1
}

// Record reinforces a strategy after a closed trade. Unknown names are added
// at the initial weight first.
func (w *Weights) Record(name string, won bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.index[name]
	if !ok {
		e = w.add(name)
	}

	e.total++
	delta := -lossPenalty
	if won {
		e.wins++
		delta = winReward
	}
	e.weight = math.Max(minWeight, math.Min(maxWeight, e.weight+delta))
}

// Weight returns the current weight of name, 0 if unknown.
func (w *Weights) Weight(name string) float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if e, ok := w.index[name]; ok {
		return e.weight
	}
	return 0
}

// Snapshot returns per-strategy stats in draw order.
func (w *Weights) Snapshot() []Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]Stats, 0, len(w.entries))
	for _, e := range w.entries {
		wr := 0.0
		if e.total > 0 {
			wr = float64(e.wins) / float64(e.total) * 100
		}
		out = append(out, Stats{
			Name:    e.name,
			Weight:  math.Round(e.weight*1000) / 1000,
			Wins:    e.wins,
			Trades:  e.total,
			WinRate: math.Round(wr*10) / 10,
		})
	}
	return out
}
