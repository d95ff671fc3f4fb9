package decision

import "fmt"

// Stage names the guard that vetoed an entry.
type Stage string

const (
	StageNoSignal     Stage = "no_signal"
	StageScore        Stage = "score"
	StageConfidence   Stage = "confidence"
	StageVolume       Stage = "volume"
	StageVolatility   Stage = "volatility"
	StageRSIExtreme   Stage = "rsi_extreme"
	StageConfirmation Stage = "confirmation"
	StageBollinger    Stage = "bollinger"
)

// Rejection is a diagnostic note for a vetoed symbol.
type Rejection struct {
	Symbol string
	Stage  Stage
	Note   string
}

func (r *Rejection) String() string {
	return fmt.Sprintf("%s: %s", r.Symbol, r.Note)
}

// Loggable reports whether the rejection is worth an event log entry.
// Threshold misses are routine and stay silent.
func (r *Rejection) Loggable() bool {
	switch r.Stage {
	case StageNoSignal, StageScore, StageConfidence:
		return false
	}
	return true
}

func reject(symbol string, stage Stage, note string) *Rejection {
	return &Rejection{Symbol: symbol, Stage: stage, Note: note}
}
