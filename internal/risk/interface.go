package risk

// Collaborator is the optional risk capability consulted by the position
// manager. A disabled collaborator means fixed-percent sizing.
type Collaborator interface {
	// Enabled reports whether enhanced sizing should be used
	Enabled() bool

	// AddPosition registers the exposure of a newly opened position
	AddPosition(symbol string, size, entry, stopLoss float64, leverage int)

	// RemovePosition drops the exposure of a closed position
	RemovePosition(symbol string)

	// PortfolioHeat returns aggregate risk at stop relative to capital
	PortfolioHeat() float64

	// ShouldStopTrading reports whether new entries must be refused
	ShouldStopTrading() (bool, string)

	// PositionSize recommends a notional size for a new entry
	PositionSize(req SizingRequest) SizingResult

	// UpdateCapital sets the capital used for sizing and heat
	UpdateCapital(capital float64)

	// UpdateDrawdown tracks drawdown from the supplied balance
	UpdateDrawdown(balance float64)

	// CurrentDrawdown returns the drawdown as a fraction
	CurrentDrawdown() float64
}

// Noop is the disabled collaborator.
type Noop struct{}

func (Noop) Enabled() bool                                      { return false }
func (Noop) AddPosition(string, float64, float64, float64, int) {}
func (Noop) RemovePosition(string)                              {}
func (Noop) PortfolioHeat() float64                             { return 0 }
func (Noop) ShouldStopTrading() (bool, string)                  { return false, "" }
func (Noop) PositionSize(SizingRequest) SizingResult            { return SizingResult{} }
func (Noop) UpdateCapital(float64)                              {}
func (Noop) UpdateDrawdown(float64)                             {}
func (Noop) CurrentDrawdown() float64                           { return 0 }
