// Package patterns provides candlestick pattern recognition with learned
// per-pattern success statistics.
package patterns

import (
	"intraday-trader/internal/models"
)

// Direction is the bias a detected pattern implies.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
	Neutral Direction = "NEUTRAL"
)

// Pattern is a candlestick pattern detected at the end of a series.
type Pattern struct {
	Name       string
	Direction  Direction
	Confidence float64 // learned success rate, 0.5 when unseen
}

// Detection thresholds. Shadows are measured against the body, the doji
// body against the full range.
const (
	dojiBodyMax       = 0.1
	shadowMin         = 2.0
	oppositeShadowMax = 0.3
	starBodyMax       = 0.3
)

// detectAll runs the catalog against the latest candle of the series.
// Stats are applied by the Recognizer, not here.
func detectAll(candles []models.Candle) []Pattern {
	if len(candles) < 1 {
		return nil
	}

	var found []Pattern
	idx := len(candles) - 1

	if p := detectDoji(candles, idx); p != nil {
		found = append(found, *p)
	}
	if p := detectHammer(candles, idx); p != nil {
		found = append(found, *p)
	}
	if p := detectShootingStar(candles, idx); p != nil {
		found = append(found, *p)
	}
	if idx >= 1 {
		if p := detectEngulfing(candles, idx); p != nil {
			found = append(found, *p)
		}
	}
	if idx >= 2 {
		if p := detectMorningStar(candles, idx); p != nil {
			found = append(found, *p)
		}
		if p := detectEveningStar(candles, idx); p != nil {
			found = append(found, *p)
		}
		if p := detectThreeWhiteSoldiers(candles, idx); p != nil {
			found = append(found, *p)
		}
		if p := detectThreeBlackCrows(candles, idx); p != nil {
			found = append(found, *p)
		}
	}

	return found
}

func upperShadow(c models.Candle) float64 {
	if c.Close > c.Open {
		return c.High - c.Close
	}
	return c.High - c.Open
}

func lowerShadow(c models.Candle) float64 {
	if c.Close < c.Open {
		return c.Close - c.Low
	}
	return c.Open - c.Low
}

// detectDoji detects a doji (open and close nearly equal).
func detectDoji(candles []models.Candle, idx int) *Pattern {
	c := candles[idx]
	rng := c.Range()
	if rng == 0 {
		return nil
	}
	if c.Body()/rng > dojiBodyMax {
		return nil
	}
	return &Pattern{Name: "doji", Direction: Neutral}
}

// detectHammer detects a hammer (long lower shadow, tight upper shadow).
func detectHammer(candles []models.Candle, idx int) *Pattern {
	c := candles[idx]
	body := c.Body()
	if body == 0 {
		return nil
	}
	if lowerShadow(c) <= body*shadowMin {
		return nil
	}
	if upperShadow(c) >= body*oppositeShadowMax {
		return nil
	}
	return &Pattern{Name: "hammer", Direction: Bullish}
}

// detectShootingStar detects a shooting star (mirror of the hammer).
func detectShootingStar(candles []models.Candle, idx int) *Pattern {
	c := candles[idx]
	body := c.Body()
	if body == 0 {
		return nil
	}
	if upperShadow(c) <= body*shadowMin {
		return nil
	}
	if lowerShadow(c) >= body*oppositeShadowMax {
		return nil
	}
	return &Pattern{Name: "shooting_star", Direction: Bearish}
}

// detectEngulfing detects bullish and bearish engulfing pairs.
func detectEngulfing(candles []models.Candle, idx int) *Pattern {
	prev, cur := candles[idx-1], candles[idx]

	if !prev.IsBullish() && cur.IsBullish() &&
		cur.Open <= prev.Close && cur.Close >= prev.Open {
		return &Pattern{Name: "bullish_engulfing", Direction: Bullish}
	}
	if prev.IsBullish() && !cur.IsBullish() &&
		cur.Open >= prev.Close && cur.Close <= prev.Open {
		return &Pattern{Name: "bearish_engulfing", Direction: Bearish}
	}
	return nil
}

// detectMorningStar detects a morning star: a bearish candle, a small-bodied
// pause, then a bullish candle closing above the midpoint of the first.
func detectMorningStar(candles []models.Candle, idx int) *Pattern {
	c1, c2, c3 := candles[idx-2], candles[idx-1], candles[idx]

	if c1.IsBullish() || !c3.IsBullish() {
		return nil
	}
	if c1.Body() == 0 || c2.Body() >= c1.Body()*starBodyMax {
		return nil
	}
	mid := (c1.Open + c1.Close) / 2
	if c3.Close <= mid {
		return nil
	}
	return &Pattern{Name: "morning_star", Direction: Bullish}
}

// detectEveningStar detects the bearish mirror of the morning star.
func detectEveningStar(candles []models.Candle, idx int) *Pattern {
	c1, c2, c3 := candles[idx-2], candles[idx-1], candles[idx]

	if !c1.IsBullish() || c3.IsBullish() {
		return nil
	}
	if c1.Body() == 0 || c2.Body() >= c1.Body()*starBodyMax {
		return nil
	}
	mid := (c1.Open + c1.Close) / 2
	if c3.Close >= mid {
		return nil
	}
	return &Pattern{Name: "evening_star", Direction: Bearish}
}

// detectThreeWhiteSoldiers detects three consecutive bullish candles with
// rising closes.
func detectThreeWhiteSoldiers(candles []models.Candle, idx int) *Pattern {
	c1, c2, c3 := candles[idx-2], candles[idx-1], candles[idx]

	if !c1.IsBullish() || !c2.IsBullish() || !c3.IsBullish() {
		return nil
	}
	if c2.Close <= c1.Close || c3.Close <= c2.Close {
		return nil
	}
	return &Pattern{Name: "three_white_soldiers", Direction: Bullish}
}

// detectThreeBlackCrows detects three consecutive bearish candles with
// falling closes.
func detectThreeBlackCrows(candles []models.Candle, idx int) *Pattern {
	c1, c2, c3 := candles[idx-2], candles[idx-1], candles[idx]

	if c1.IsBullish() || c2.IsBullish() || c3.IsBullish() {
		return nil
	}
	if c2.Close >= c1.Close || c3.Close >= c2.Close {
		return nil
	}
	return &Pattern{Name: "three_black_crows", Direction: Bearish}
}
