package strategy

import "intraday-trader/internal/models"

// Levels holds the nearest support and resistance derived from recent
// candles.
type Levels struct {
	Support    float64
	Resistance float64
}

// levelsLookback is how many candles back supports and resistances are
// taken from.
const levelsLookback = 20

// FindLevels returns the lowest low and highest high of the lookback
// window. Zero values mean not enough data.
func FindLevels(candles []models.Candle) Levels {
	if len(candles) == 0 {
		return Levels{}
	}
	window := candles
	if len(window) > levelsLookback {
		window = window[len(window)-levelsLookback:]
	}

	lv := Levels{Support: window[0].Low, Resistance: window[0].High}
	for _, c := range window[1:] {
		if c.Low < lv.Support {
			lv.Support = c.Low
		}
		if c.High > lv.Resistance {
			lv.Resistance = c.High
		}
	}
	return lv
}

// levelScore rates how favourably the price sits relative to the levels
// for the given action, in [0, 1]. Buying close to support and selling
// close to resistance score high.
func levelScore(lv Levels, price float64, action models.SignalAction) float64 {
	span := lv.Resistance - lv.Support
	if span <= 0 || price <= 0 {
		return 0.5
	}

	pos := (price - lv.Support) / span
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}

	switch action {
	case models.SignalBuy:
		return 1 - pos
	case models.SignalSell:
		return pos
	default:
		return 0.5
	}
}
