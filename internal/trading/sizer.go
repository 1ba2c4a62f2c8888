package trading

import "math"

// Sizer converts a signal into a share quantity from the portfolio value,
// the configured allocation and the behavioural multipliers.
type Sizer struct {
	positionPercent float64
	brokerage       float64
}

// NewSizer creates a sizer allocating positionPercent of portfolio value
// per trade, reserving the flat brokerage from cash.
func NewSizer(positionPercent, brokerage float64) *Sizer {
	return &Sizer{
		positionPercent: positionPercent,
		brokerage:       brokerage,
	}
}

// Quantity returns the share count for a trade, floored. The multiplier
// aggregates the guard and sentiment adjustments and is clamped to
// [0.3, 1.5] so no single adjustment can zero out or balloon a position.
// Returns 0 when the allocation cannot buy a single share within cash.
func (s *Sizer) Quantity(portfolioValue, cash, price, multiplier float64) int {
	if price <= 0 || portfolioValue <= 0 {
		return 0
	}

	m := math.Min(1.5, math.Max(0.3, multiplier))
	allocation := portfolioValue * s.positionPercent / 100 * m

	qty := int(math.Floor(allocation / price))
	if qty < 1 {
		return 0
	}

	// Never size beyond what cash can settle including brokerage.
	maxAffordable := int(math.Floor((cash - s.brokerage) / price))
	if qty > maxAffordable {
		qty = maxAffordable
	}
	if qty < 1 {
		return 0
	}
	return qty
}
