package patterns

import "math"

// Trend is a simple moving-average trend reading used by the fusion layer.
type Trend string

const (
	TrendUp   Trend = "UP"
	TrendDown Trend = "DOWN"
	TrendFlat Trend = "FLAT"
)

// DetectTrend compares a short and long simple moving average of closes.
// It needs at least longPeriod closes, otherwise the trend is flat.
func DetectTrend(closes []float64, shortPeriod, longPeriod int) Trend {
	if len(closes) < longPeriod || shortPeriod >= longPeriod {
		return TrendFlat
	}

	short := sma(closes[len(closes)-shortPeriod:])
	long := sma(closes[len(closes)-longPeriod:])

	switch {
	case short > long*1.01:
		return TrendUp
	case short < long*0.99:
		return TrendDown
	default:
		return TrendFlat
	}
}

// Volatility returns the standard deviation of simple returns over the
// series, as a fraction of price.
func Volatility(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(returns) == 0 {
		return 0
	}

	mean := sma(returns)
	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(returns)))
}

func sma(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
