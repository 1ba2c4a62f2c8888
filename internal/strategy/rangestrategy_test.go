package strategy

import (
	"math"
	"strings"
	"testing"
	"time"

	"intraday-trader/internal/models"
)

func rangeCtx(ltp, high, low float64) Context {
	return Context{
		Symbol: "RELIANCE",
		Quote: models.Quote{
			Symbol: "RELIANCE",
			LTP:    ltp,
			High:   high,
			Low:    low,
			Volume: 100000,
		},
		Now: time.Now(),
	}
}

func withPosition(ctx Context, avgPrice float64) Context {
	ctx.Position = &models.Position{
		Symbol:       ctx.Symbol,
		Quantity:     10,
		AveragePrice: avgPrice,
	}
	return ctx
}

func holdReason(t *testing.T, sig models.Signal, want string) {
	t.Helper()
	if sig.Action != models.SignalHold {
		t.Fatalf("action = %v (%v), want HOLD", sig.Action, sig.Reasons)
	}
	for _, r := range sig.Reasons {
		if strings.Contains(r, want) {
			return
		}
	}
	t.Errorf("reasons %v missing %q", sig.Reasons, want)
}

func TestRangeRejectsDegenerateRange(t *testing.T) {
	s := NewRangeStrategy(DefaultRangeParams())

	sig := s.Evaluate(rangeCtx(1500, 1500, 1500))
	if sig.Action != models.SignalHold {
		t.Errorf("flat range action = %v, want HOLD", sig.Action)
	}
}

// Price near the low with almost no room left to the high: the potential
// margin conjunction rejects the entry on its own.
func TestRangeRejectsThinPotentialMargin(t *testing.T) {
	s := NewRangeStrategy(DefaultRangeParams())

	// Ratio 0.2 is inside the buy zone, but (1515-1503)/1503 is 0.80%.
	sig := s.Evaluate(rangeCtx(1503, 1515, 1500))
	holdReason(t, sig, "potential margin 0.80%")
}

// A narrow day near the low passes the buy zone and the margin check yet
// still offers terrible reward for the risk taken.
func TestRangeRejectsPoorRiskReward(t *testing.T) {
	s := NewRangeStrategy(DefaultRangeParams())

	// Low 2450, high 2500, price 2460: ratio 0.2, potential margin 1.63%,
	// but reward 40 against risk 49.2 is only 0.81.
	sig := s.Evaluate(rangeCtx(2460, 2500, 2450))
	holdReason(t, sig, "risk-reward 0.81")
}

func TestRangeBuyNearLow(t *testing.T) {
	s := NewRangeStrategy(DefaultRangeParams())

	sig := s.Evaluate(rangeCtx(1450, 1530, 1448))
	if sig.Action != models.SignalBuy {
		t.Fatalf("action = %v (%v), want BUY", sig.Action, sig.Reasons)
	}
	if math.Abs(sig.StopLoss-1421) > 1e-9 {
		t.Errorf("stop = %v, want 1421", sig.StopLoss)
	}
	if sig.Target != 1530 {
		t.Errorf("target = %v, want day high 1530", sig.Target)
	}
	if sig.Confidence < 0.6 || sig.Confidence > 1.0 {
		t.Errorf("confidence = %v outside [0.6, 1.0]", sig.Confidence)
	}
}

// An open position rules out a fresh entry no matter how good the setup.
func TestRangeBuyRequiresFlatBook(t *testing.T) {
	s := NewRangeStrategy(DefaultRangeParams())

	sig := s.Evaluate(withPosition(rangeCtx(1450, 1530, 1448), 1450))
	if sig.Action != models.SignalHold {
		t.Errorf("action with open position = %v, want HOLD", sig.Action)
	}
}

func TestRangeSellExitsNearHigh(t *testing.T) {
	s := NewRangeStrategy(DefaultRangeParams())

	// Price at 98% of the range, 2% above the 1500 entry.
	sig := s.Evaluate(withPosition(rangeCtx(1530, 1532, 1450), 1500))
	if sig.Action != models.SignalSell {
		t.Fatalf("action = %v (%v), want SELL", sig.Action, sig.Reasons)
	}
	if sig.Price != 1530 {
		t.Errorf("price = %v, want 1530", sig.Price)
	}
}

// A position in the sell zone that has not cleared the minimum profit over
// its entry price is held, not dumped: price at the top of the range is no
// reason to book a loss.
func TestRangeSellRequiresRealizedMargin(t *testing.T) {
	s := NewRangeStrategy(DefaultRangeParams())

	// Underwater: entry 101, price 100 even though it sits at 95% of range.
	sig := s.Evaluate(withPosition(rangeCtx(100, 101, 80), 101))
	holdReason(t, sig, "realized margin")

	// Barely green is still below the 1% minimum.
	sig = s.Evaluate(withPosition(rangeCtx(100, 101, 80), 99.5))
	holdReason(t, sig, "realized margin")
}

func TestRangeSellRequiresOpenPosition(t *testing.T) {
	s := NewRangeStrategy(DefaultRangeParams())

	// Flat book near the high: nothing to exit and no short entries.
	sig := s.Evaluate(rangeCtx(1530, 1532, 1450))
	if sig.Action != models.SignalHold {
		t.Errorf("flat book near high action = %v, want HOLD", sig.Action)
	}
}

func TestRangeHoldsMidRange(t *testing.T) {
	s := NewRangeStrategy(DefaultRangeParams())

	// Price at 50% of a wide range sits between the entry zones.
	sig := s.Evaluate(rangeCtx(1490, 1530, 1450))
	if sig.Action != models.SignalHold {
		t.Errorf("mid-range action = %v, want HOLD", sig.Action)
	}
	sig = s.Evaluate(withPosition(rangeCtx(1490, 1530, 1450), 1460))
	if sig.Action != models.SignalHold {
		t.Errorf("mid-range exit action = %v, want HOLD", sig.Action)
	}
}

func TestRangeConfidenceGrowsTowardExtreme(t *testing.T) {
	s := NewRangeStrategy(DefaultRangeParams())

	atEdge := s.Evaluate(rangeCtx(1460, 1560, 1448)) // ~11% of range
	atLow := s.Evaluate(rangeCtx(1449, 1560, 1448))  // ~1% of range
	if atEdge.Action != models.SignalBuy || atLow.Action != models.SignalBuy {
		t.Fatalf("expected BUY at both depths, got %v / %v", atEdge.Action, atLow.Action)
	}
	if atLow.Confidence <= atEdge.Confidence {
		t.Errorf("confidence at low %v not above edge %v", atLow.Confidence, atEdge.Confidence)
	}
}

func TestFindLevels(t *testing.T) {
	var series []models.Candle
	for i := 0; i < 30; i++ {
		series = append(series, models.Candle{
			Timestamp: time.Now(),
			Open:      100,
			High:      110 + float64(i%5),
			Low:       90 - float64(i%3),
			Close:     105,
			Volume:    1000,
		})
	}

	lv := FindLevels(series)
	if lv.Support != 88 {
		t.Errorf("support = %v, want 88", lv.Support)
	}
	if lv.Resistance != 114 {
		t.Errorf("resistance = %v, want 114", lv.Resistance)
	}

	if got := FindLevels(nil); got.Support != 0 || got.Resistance != 0 {
		t.Errorf("empty series levels = %+v, want zero", got)
	}
}

func TestLevelScore(t *testing.T) {
	lv := Levels{Support: 100, Resistance: 200}

	if got := levelScore(lv, 110, models.SignalBuy); got != 0.9 {
		t.Errorf("buy near support score = %v, want 0.9", got)
	}
	if got := levelScore(lv, 190, models.SignalSell); got != 0.9 {
		t.Errorf("sell near resistance score = %v, want 0.9", got)
	}
	if got := levelScore(Levels{}, 110, models.SignalBuy); got != 0.5 {
		t.Errorf("no levels score = %v, want 0.5", got)
	}
}
