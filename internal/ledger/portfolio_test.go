package ledger

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	apperrors "intraday-trader/internal/errors"
	"intraday-trader/internal/models"
	"intraday-trader/internal/state"
)

func newTestPortfolio() *Portfolio {
	return NewPortfolio(100000, 20, "", zerolog.Nop())
}

// A full round trip: buy 4 shares at 1450 with a flat 20 brokerage, sell
// them at 1485. The realized pnl nets both legs' brokerage correctly.
func TestBuySellRoundTrip(t *testing.T) {
	p := newTestPortfolio()
	now := time.Now()

	trade, err := p.Buy("RELIANCE", 4, 1450, 1421, 1530, now)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if trade.Side != models.OrderSideBuy || trade.Quantity != 4 {
		t.Errorf("buy trade = %+v", trade)
	}
	if got := p.Cash(); got != 94180 {
		t.Errorf("cash after buy = %v, want 94180", got)
	}

	pos, ok := p.Position("RELIANCE")
	if !ok {
		t.Fatal("position not opened")
	}
	if pos.Quantity != 4 || pos.AveragePrice != 1450 {
		t.Errorf("position = %+v", pos)
	}
	if pos.StopLoss != 1421 || pos.Target != 1530 {
		t.Errorf("stop/target = %v/%v", pos.StopLoss, pos.Target)
	}

	sell, err := p.Sell("RELIANCE", 4, 1485, "target hit", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if sell.PnL != 120 {
		t.Errorf("realized pnl = %v, want 120", sell.PnL)
	}
	if got := p.Cash(); got != 100100 {
		t.Errorf("cash after sell = %v, want 100100", got)
	}
	if _, ok := p.Position("RELIANCE"); ok {
		t.Error("position not closed after full sell")
	}
}

func TestBuyRejectsInsufficientFunds(t *testing.T) {
	p := newTestPortfolio()

	_, err := p.Buy("MRF", 1, 150000, 147000, 155000, time.Now())
	if err == nil {
		t.Fatal("expected error buying beyond cash")
	}
	if !apperrors.Is(err, apperrors.ErrInsufficientFunds) {
		t.Errorf("error = %v, want ErrInsufficientFunds", err)
	}
	if got := p.Cash(); got != 100000 {
		t.Errorf("cash mutated on rejected buy: %v", got)
	}
}

func TestSellRejectsInvalidPosition(t *testing.T) {
	p := newTestPortfolio()
	now := time.Now()

	if _, err := p.Sell("TCS", 1, 3500, "", now); !apperrors.Is(err, apperrors.ErrInvalidPosition) {
		t.Errorf("sell without position = %v, want ErrInvalidPosition", err)
	}

	if _, err := p.Buy("TCS", 2, 3500, 3430, 3600, now); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if _, err := p.Sell("TCS", 5, 3600, "", now); !apperrors.Is(err, apperrors.ErrInvalidPosition) {
		t.Errorf("oversell = %v, want ErrInvalidPosition", err)
	}
	if pos, _ := p.Position("TCS"); pos.Quantity != 2 {
		t.Errorf("position mutated on rejected sell: %+v", pos)
	}
}

func TestBuyRejectsNonPositiveInputs(t *testing.T) {
	p := newTestPortfolio()
	now := time.Now()

	if _, err := p.Buy("X", 0, 100, 98, 105, now); err == nil {
		t.Error("zero quantity accepted")
	}
	if _, err := p.Buy("X", 1, -5, 98, 105, now); err == nil {
		t.Error("negative price accepted")
	}
	if _, err := p.Sell("X", -1, 100, "", now); err == nil {
		t.Error("negative sell quantity accepted")
	}
}

func TestPyramidingRecomputesAverage(t *testing.T) {
	p := newTestPortfolio()
	now := time.Now()

	if _, err := p.Buy("INFY", 3, 1400, 1372, 1460, now); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if _, err := p.Buy("INFY", 2, 1450, 1421, 1500, now); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	pos, _ := p.Position("INFY")
	if pos.Quantity != 5 {
		t.Fatalf("quantity = %d, want 5", pos.Quantity)
	}
	// (3*1400 + 2*1450) / 5 = 1420, already 2-decimal exact.
	if pos.AveragePrice != 1420 {
		t.Errorf("average = %v, want 1420", pos.AveragePrice)
	}
	// The later buy's stop and target replace the earlier ones.
	if pos.StopLoss != 1421 || pos.Target != 1500 {
		t.Errorf("stop/target = %v/%v, want 1421/1500", pos.StopLoss, pos.Target)
	}
}

func TestAveragePriceRoundsToTwoDecimals(t *testing.T) {
	p := newTestPortfolio()
	now := time.Now()

	if _, err := p.Buy("SBIN", 3, 600, 588, 620, now); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if _, err := p.Buy("SBIN", 4, 601, 589, 621, now); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	pos, _ := p.Position("SBIN")
	// (3*600 + 4*601) / 7 = 600.5714... rounds to 600.57.
	if pos.AveragePrice != 600.57 {
		t.Errorf("average = %v, want 600.57", pos.AveragePrice)
	}
}

func TestPartialSellKeepsAverage(t *testing.T) {
	p := newTestPortfolio()
	now := time.Now()

	if _, err := p.Buy("WIPRO", 10, 400, 392, 415, now); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	trade, err := p.Sell("WIPRO", 4, 410, "scaling out", now)
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if trade.PnL != (410-400)*4-20 {
		t.Errorf("partial pnl = %v, want 20", trade.PnL)
	}

	pos, ok := p.Position("WIPRO")
	if !ok || pos.Quantity != 6 {
		t.Fatalf("remainder = %+v, want 6 held", pos)
	}
	if pos.AveragePrice != 400 {
		t.Errorf("average moved on partial sell: %v", pos.AveragePrice)
	}
}

func TestMarkToMarketFallsBackToAverage(t *testing.T) {
	p := newTestPortfolio()
	now := time.Now()

	if _, err := p.Buy("TCS", 2, 3500, 3430, 3600, now); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	// cash 100000 - 7000 - 20 = 92980
	withPrice := p.MarkToMarket(map[string]float64{"TCS": 3550})
	if withPrice != 92980+2*3550 {
		t.Errorf("marked value = %v, want %v", withPrice, 92980+2*3550.0)
	}
	atAvg := p.MarkToMarket(nil)
	if atAvg != 92980+2*3500 {
		t.Errorf("fallback value = %v, want %v", atAvg, 92980+2*3500.0)
	}
}

func TestMetricsSummarize(t *testing.T) {
	p := newTestPortfolio()
	now := time.Now()

	if _, err := p.Buy("A", 4, 1450, 0, 0, now); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if _, err := p.Sell("A", 4, 1485, "", now); err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if _, err := p.Buy("B", 2, 1000, 0, 0, now); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if _, err := p.Sell("B", 2, 980, "", now); err != nil {
		t.Fatalf("Sell: %v", err)
	}

	m := p.Metrics(nil)
	if m.Wins != 1 || m.Losses != 1 {
		t.Errorf("wins/losses = %d/%d, want 1/1", m.Wins, m.Losses)
	}
	if m.WinRate != 50 {
		t.Errorf("win rate = %v, want 50", m.WinRate)
	}
	if m.AvgWin != 120 {
		t.Errorf("avg win = %v, want 120", m.AvgWin)
	}
	if m.AvgLoss != 60 {
		t.Errorf("avg loss = %v, want 60", m.AvgLoss)
	}
	if math.Abs(m.ProfitFactor-2.0) > 1e-9 {
		t.Errorf("profit factor = %v, want 2.0", m.ProfitFactor)
	}
	if m.TotalPnL != 60 {
		t.Errorf("total pnl = %v, want 60", m.TotalPnL)
	}
	if m.OpenPositions != 0 {
		t.Errorf("open positions = %d, want 0", m.OpenPositions)
	}
}

func TestSquareOffClosesEverything(t *testing.T) {
	p := newTestPortfolio()
	now := time.Now()

	if _, err := p.Buy("A", 2, 100, 98, 105, now); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if _, err := p.Buy("B", 3, 200, 196, 210, now); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	// B has no live price and squares off at its average.
	trades, err := p.SquareOff(map[string]float64{"A": 104}, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("SquareOff: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("square-off trades = %d, want 2", len(trades))
	}
	if len(p.Positions()) != 0 {
		t.Errorf("positions remain after square-off: %v", p.Positions())
	}
	for _, tr := range trades {
		if tr.Reason != "eod square-off" {
			t.Errorf("reason = %q", tr.Reason)
		}
	}
}

func TestEndOfDayRollsCounters(t *testing.T) {
	p := newTestPortfolio()
	now := time.Now()

	if _, err := p.Buy("A", 4, 1450, 0, 0, now); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if _, err := p.Sell("A", 4, 1485, "", now); err != nil {
		t.Fatalf("Sell: %v", err)
	}

	stats, err := p.EndOfDay(nil, now)
	if err != nil {
		t.Fatalf("EndOfDay: %v", err)
	}
	if stats.Trades != 2 || stats.Wins != 1 || stats.Losses != 0 {
		t.Errorf("day stats = %+v", stats)
	}
	if stats.NetPnL != 120 {
		t.Errorf("net pnl = %v, want 120", stats.NetPnL)
	}
	if stats.GrossPnL != 140 {
		t.Errorf("gross pnl = %v, want 140", stats.GrossPnL)
	}
	if stats.WinRate != 100 {
		t.Errorf("win rate = %v, want 100", stats.WinRate)
	}
	if stats.EndValue != 100100 {
		t.Errorf("end value = %v, want 100100", stats.EndValue)
	}

	// Counters cleared for the next session; history retained.
	next, err := p.EndOfDay(nil, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("EndOfDay: %v", err)
	}
	if next.Trades != 0 || next.NetPnL != 0 {
		t.Errorf("second day stats = %+v, want zeroed", next)
	}
	if got := len(p.DayHistory()); got != 2 {
		t.Errorf("day history length = %d, want 2", got)
	}
}

func TestSnapshotSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	now := time.Now()

	p := NewPortfolio(100000, 20, path, zerolog.Nop())
	if _, err := p.Buy("RELIANCE", 4, 1450, 1421, 1530, now); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	restored := NewPortfolio(100000, 20, path, zerolog.Nop())
	if got := restored.Cash(); got != 94180 {
		t.Errorf("restored cash = %v, want 94180", got)
	}
	pos, ok := restored.Position("RELIANCE")
	if !ok || pos.Quantity != 4 || pos.AveragePrice != 1450 {
		t.Errorf("restored position = %+v", pos)
	}
	if got := len(restored.Trades()); got != 1 {
		t.Errorf("restored trades = %d, want 1", got)
	}
}

func TestIncompatibleSnapshotStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	// A snapshot written under an older schema version is unreadable.
	if err := state.Save(path, schemaVersion-1, snapshot{Cash: 42}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	p := NewPortfolio(100000, 20, path, zerolog.Nop())
	if got := p.Cash(); got != 100000 {
		t.Errorf("cash = %v, want fresh 100000", got)
	}
}

// Cash plus open exposure plus total brokerage paid always reconciles back
// to initial capital plus realized gross pnl.
func TestCashReconciliationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	type step struct {
		buy   bool
		qty   int
		price float64
	}

	genStep := gopter.CombineGens(
		gen.Bool(),
		gen.IntRange(1, 5),
		gen.Float64Range(10, 500),
	).Map(func(vals []interface{}) step {
		return step{buy: vals[0].(bool), qty: vals[1].(int), price: vals[2].(float64)}
	})

	properties.Property("ledger reconciles", prop.ForAll(
		func(steps []step) bool {
			p := newTestPortfolio()
			now := time.Now()

			var grossPnL, fees float64
			for _, s := range steps {
				if s.buy {
					if _, err := p.Buy("X", s.qty, s.price, 0, 0, now); err == nil {
						fees += 20
					}
				} else {
					if tr, err := p.Sell("X", s.qty, s.price, "", now); err == nil {
						fees += 20
						grossPnL += tr.PnL + 20
					}
				}
			}

			var exposure float64
			if pos, ok := p.Position("X"); ok {
				exposure = float64(pos.Quantity) * pos.AveragePrice
			}
			// Average-price rounding can drift exposure by a paisa per share.
			return math.Abs(p.Cash()+exposure+fees-(100000+grossPnL)) < 1.0
		},
		gen.SliceOf(genStep),
	))

	properties.TestingRun(t)
}
