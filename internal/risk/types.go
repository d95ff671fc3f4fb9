package risk

// Sizing methods reported in SizingResult.Method.
const (
	MethodFixedRisk = "fixed_risk"
	MethodKelly     = "kelly"
)

// SizingRequest describes a prospective entry. History fields are only
// meaningful when HasHistory is set.
type SizingRequest struct {
	Symbol   string
	Entry    float64
	StopLoss float64
	Leverage int

	HasHistory bool
	WinRate    float64 // fraction in [0, 1]
	AvgWin     float64
	AvgLoss    float64 // positive magnitude
}

// SizingResult is the recommended notional size.
type SizingResult struct {
	SizeUSD    float64
	SizePct    float64
	RiskAmount float64
	Method     string
}

type exposure struct {
	size     float64
	entry    float64
	stopLoss float64
	leverage int
}
