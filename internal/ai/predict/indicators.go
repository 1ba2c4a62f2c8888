package predict

// Indicator math over close series, oldest first. Lookback periods follow
// common convention: RSI 14, MACD 12/26/9, MA cross 10/30.

func sma(vals []float64, period int) float64 {
	if period <= 0 || len(vals) < period {
		return 0
	}
	var sum float64
	for _, v := range vals[len(vals)-period:] {
		sum += v
	}
	return sum / float64(period)
}

func ema(vals []float64, period int) float64 {
	if period <= 0 || len(vals) < period {
		return 0
	}
	k := 2.0 / float64(period+1)
	e := sma(vals[:period], period)
	for _, v := range vals[period:] {
		e = v*k + e*(1-k)
	}
	return e
}

// rsi computes the relative strength index over the last period changes.
func rsi(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50
	}

	var gains, losses float64
	start := len(closes) - period
	for i := start; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	if losses == 0 {
		if gains == 0 {
			return 50
		}
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// macdHistogram returns MACD line minus its signal line.
func macdHistogram(closes []float64) float64 {
	if len(closes) < 35 {
		return 0
	}

	macdLine := make([]float64, 0, len(closes)-26+1)
	for i := 26; i <= len(closes); i++ {
		window := closes[:i]
		macdLine = append(macdLine, ema(window, 12)-ema(window, 26))
	}
	if len(macdLine) < 9 {
		return 0
	}
	return macdLine[len(macdLine)-1] - ema(macdLine, 9)
}
