package patterns

import (
	"testing"
	"time"

	"intraday-trader/internal/models"
)

func candle(open, high, low, close float64) models.Candle {
	return models.Candle{
		Timestamp: time.Now(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    1000,
	}
}

func names(found []Pattern) map[string]Direction {
	out := map[string]Direction{}
	for _, p := range found {
		out[p.Name] = p.Direction
	}
	return out
}

func TestDetectDoji(t *testing.T) {
	// Tiny body relative to the range.
	found := names(detectAll([]models.Candle{candle(100, 105, 95, 100.2)}))
	if d, ok := found["doji"]; !ok || d != Neutral {
		t.Errorf("expected neutral doji, got %v", found)
	}

	// Large body, no doji.
	found = names(detectAll([]models.Candle{candle(100, 105, 95, 104)}))
	if _, ok := found["doji"]; ok {
		t.Errorf("unexpected doji for wide body")
	}
}

func TestDetectHammer(t *testing.T) {
	// Long lower shadow, tight upper shadow.
	found := names(detectAll([]models.Candle{candle(100, 101.1, 90, 101)}))
	if d, ok := found["hammer"]; !ok || d != Bullish {
		t.Errorf("expected bullish hammer, got %v", found)
	}
}

func TestDetectShootingStar(t *testing.T) {
	found := names(detectAll([]models.Candle{candle(101, 110, 99.95, 100)}))
	if d, ok := found["shooting_star"]; !ok || d != Bearish {
		t.Errorf("expected bearish shooting star, got %v", found)
	}
}

func TestDetectEngulfing(t *testing.T) {
	bearish := candle(105, 106, 99, 100)
	bullishWrap := candle(99.5, 107, 99, 106)
	found := names(detectAll([]models.Candle{bearish, bullishWrap}))
	if d, ok := found["bullish_engulfing"]; !ok || d != Bullish {
		t.Errorf("expected bullish engulfing, got %v", found)
	}

	bullish := candle(100, 106, 99, 105)
	bearishWrap := candle(105.5, 106, 98, 99.5)
	found = names(detectAll([]models.Candle{bullish, bearishWrap}))
	if d, ok := found["bearish_engulfing"]; !ok || d != Bearish {
		t.Errorf("expected bearish engulfing, got %v", found)
	}
}

func TestDetectMorningStar(t *testing.T) {
	series := []models.Candle{
		candle(110, 111, 99, 100),    // long bearish
		candle(100, 101, 99, 100.5),  // small pause
		candle(101, 109, 100.5, 108), // bullish close above midpoint 105
	}
	found := names(detectAll(series))
	if d, ok := found["morning_star"]; !ok || d != Bullish {
		t.Errorf("expected morning star, got %v", found)
	}
}

func TestDetectEveningStar(t *testing.T) {
	series := []models.Candle{
		candle(100, 111, 99, 110),    // long bullish
		candle(110, 111, 109, 110.5), // small pause
		candle(109, 110.5, 101, 102), // bearish close below midpoint 105
	}
	found := names(detectAll(series))
	if d, ok := found["evening_star"]; !ok || d != Bearish {
		t.Errorf("expected evening star, got %v", found)
	}
}

func TestDetectThreeWhiteSoldiers(t *testing.T) {
	series := []models.Candle{
		candle(100, 103, 99, 102),
		candle(102, 105, 101, 104),
		candle(104, 107, 103, 106),
	}
	found := names(detectAll(series))
	if d, ok := found["three_white_soldiers"]; !ok || d != Bullish {
		t.Errorf("expected three white soldiers, got %v", found)
	}
}

func TestDetectThreeBlackCrows(t *testing.T) {
	series := []models.Candle{
		candle(106, 107, 103, 104),
		candle(104, 105, 101, 102),
		candle(102, 103, 99, 100),
	}
	found := names(detectAll(series))
	if d, ok := found["three_black_crows"]; !ok || d != Bearish {
		t.Errorf("expected three black crows, got %v", found)
	}
}

func TestDetectAllEmptySeries(t *testing.T) {
	if found := detectAll(nil); found != nil {
		t.Errorf("expected no patterns for empty series, got %v", found)
	}
}
