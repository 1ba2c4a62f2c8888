package strategy

import (
	"fmt"

	"intraday-trader/internal/models"
)

// RangeParams configures the intraday range strategy.
type RangeParams struct {
	// MinProfitMargin is the minimum profit as a percentage of price:
	// potential profit to the day high on entry, realized profit over the
	// average price on exit.
	MinProfitMargin float64
	// BuyThreshold is the upper bound of the buy zone as a fraction of
	// the range, measured from the low.
	BuyThreshold float64
	// SellThreshold is the lower bound of the sell zone.
	SellThreshold float64
	// MinRiskReward rejects setups whose reward-to-risk falls below it.
	MinRiskReward float64
	// StopLossPercent sets the stop distance from entry.
	StopLossPercent float64
}

// DefaultRangeParams returns the standard parameter set.
func DefaultRangeParams() RangeParams {
	return RangeParams{
		MinProfitMargin: 1.0,
		BuyThreshold:    0.3,
		SellThreshold:   0.7,
		MinRiskReward:   2.0,
		StopLossPercent: 2.0,
	}
}

// RangeStrategy trades the day's high-low range: buy near the low when the
// remaining room to the high pays for the risk, and exit near the high once
// the position clears the minimum profit. All conditions are strict
// conjunctions.
type RangeStrategy struct {
	params RangeParams
}

// NewRangeStrategy creates a range strategy with the given parameters.
func NewRangeStrategy(params RangeParams) *RangeStrategy {
	return &RangeStrategy{params: params}
}

func (s *RangeStrategy) Name() string {
	return "range"
}

// Evaluate inspects the current price's position within the day range. A
// degenerate range (high equals low) yields no signal. Entries require a
// flat book; a SELL is always an exit of the open position and never a
// short entry.
func (s *RangeStrategy) Evaluate(ctx Context) models.Signal {
	q := ctx.Quote
	dayRange := q.High - q.Low
	if dayRange <= 0 || q.Low <= 0 || q.LTP <= 0 {
		return hold(ctx, "no tradable range")
	}

	ratio := (q.LTP - q.Low) / dayRange
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}

	if ctx.Position == nil {
		return s.evaluateEntry(ctx, ratio)
	}
	return s.evaluateExit(ctx, ratio)
}

func (s *RangeStrategy) evaluateEntry(ctx Context, ratio float64) models.Signal {
	q := ctx.Quote
	if ratio > s.params.BuyThreshold {
		return hold(ctx, fmt.Sprintf("price at %.0f%% of range, outside buy zone", ratio*100))
	}

	margin := (q.High - q.LTP) / q.LTP * 100
	if margin < s.params.MinProfitMargin {
		return hold(ctx, fmt.Sprintf("potential margin %.2f%% below minimum %.2f%%",
			margin, s.params.MinProfitMargin))
	}

	stop := q.LTP * (1 - s.params.StopLossPercent/100)
	risk := q.LTP - stop
	if risk <= 0 {
		return hold(ctx, "degenerate stop")
	}
	if rr := (q.High - q.LTP) / risk; rr < s.params.MinRiskReward {
		return hold(ctx, fmt.Sprintf("risk-reward %.2f below minimum %.2f", rr, s.params.MinRiskReward))
	}

	return models.Signal{
		Symbol:     ctx.Symbol,
		Action:     models.SignalBuy,
		Price:      q.LTP,
		StopLoss:   stop,
		Target:     q.High,
		Confidence: rangeConfidence(ratio, s.params.BuyThreshold),
		Reasons: []string{
			fmt.Sprintf("price at %.0f%% of day range", ratio*100),
			fmt.Sprintf("potential margin %.2f%%", margin),
		},
		Timestamp: ctx.Now,
	}
}

func (s *RangeStrategy) evaluateExit(ctx Context, ratio float64) models.Signal {
	q := ctx.Quote
	if ratio < s.params.SellThreshold {
		return hold(ctx, fmt.Sprintf("price at %.0f%% of range, below sell zone", ratio*100))
	}

	entry := ctx.Position.AveragePrice
	if entry <= 0 {
		return hold(ctx, "no entry price on record")
	}
	realized := (q.LTP - entry) / entry * 100
	if realized < s.params.MinProfitMargin {
		return hold(ctx, fmt.Sprintf("realized margin %.2f%% below minimum %.2f%%",
			realized, s.params.MinProfitMargin))
	}

	return models.Signal{
		Symbol:     ctx.Symbol,
		Action:     models.SignalSell,
		Price:      q.LTP,
		Confidence: rangeConfidence(1-ratio, 1-s.params.SellThreshold),
		Reasons: []string{
			fmt.Sprintf("price at %.0f%% of day range", ratio*100),
			fmt.Sprintf("realized margin %.2f%%", realized),
		},
		Timestamp: ctx.Now,
	}
}

// rangeConfidence grows from 0.6 at the threshold edge toward 1.0 at the
// range extreme.
func rangeConfidence(depth, threshold float64) float64 {
	if threshold <= 0 {
		return 0.6
	}
	c := 0.6 + 0.4*(1-depth/threshold)
	if c > 1 {
		return 1
	}
	if c < 0.6 {
		return 0.6
	}
	return c
}
