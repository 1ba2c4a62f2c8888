package sentiment

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"intraday-trader/internal/models"
)

func TestScoreNeutralWithoutHistory(t *testing.T) {
	a := NewAnalyzer("", zerolog.Nop())

	s := a.Score("RELIANCE")
	if s.Current != 0 || s.Confidence != 0 || s.Trend != TrendStable {
		t.Errorf("empty score = %+v, want neutral", s)
	}
}

func TestUpdateIgnoresNoise(t *testing.T) {
	a := NewAnalyzer("", zerolog.Nop())

	if err := a.Update("TCS", 0.05, 10, time.Now()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if s := a.Score("TCS"); s.Samples != 0 {
		t.Errorf("negligible move recorded, samples = %d", s.Samples)
	}
}

func TestVolumeAmplifiesScore(t *testing.T) {
	a := NewAnalyzer("", zerolog.Nop())
	now := time.Now()

	// +0.5% price, flat volume: raw score 0.25.
	if err := a.Update("INFY", 0.5, 0, now); err != nil {
		t.Fatalf("Update: %v", err)
	}
	base := a.Score("INFY").Current

	b := NewAnalyzer("", zerolog.Nop())
	// Same move with +50% volume doubles the reading.
	if err := b.Update("INFY", 0.5, 50, now); err != nil {
		t.Fatalf("Update: %v", err)
	}
	amplified := b.Score("INFY").Current

	if math.Abs(base-0.25) > 1e-9 {
		t.Errorf("base score = %v, want 0.25", base)
	}
	if math.Abs(amplified-0.5) > 1e-9 {
		t.Errorf("amplified score = %v, want 0.5", amplified)
	}
}

func TestConfidenceGrowsWithSamples(t *testing.T) {
	a := NewAnalyzer("", zerolog.Nop())
	now := time.Now()

	for i := 0; i < 10; i++ {
		if err := a.Update("SBIN", 1.0, 0, now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	if s := a.Score("SBIN"); math.Abs(s.Confidence-0.5) > 1e-9 {
		t.Errorf("confidence after 10 samples = %v, want 0.5", s.Confidence)
	}

	for i := 10; i < 30; i++ {
		if err := a.Update("SBIN", 1.0, 0, now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	if s := a.Score("SBIN"); s.Confidence != 1.0 {
		t.Errorf("confidence after 30 samples = %v, want 1.0", s.Confidence)
	}
}

func TestTrendDetection(t *testing.T) {
	a := NewAnalyzer("", zerolog.Nop())
	now := time.Now()

	// Ten negative readings followed by ten strongly positive ones.
	for i := 0; i < 10; i++ {
		if err := a.Update("HDFC", -1.0, 0, now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	for i := 10; i < 20; i++ {
		if err := a.Update("HDFC", 2.0, 0, now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	if s := a.Score("HDFC"); s.Trend != TrendImproving {
		t.Errorf("trend = %v, want IMPROVING", s.Trend)
	}
}

func TestSupportsSignalVeto(t *testing.T) {
	a := NewAnalyzer("", zerolog.Nop())
	now := time.Now()

	// Strongly negative mood with full confidence.
	for i := 0; i < 20; i++ {
		if err := a.Update("ZEEL", -3.0, 0, now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	if a.SupportsSignal("ZEEL", models.SignalBuy) {
		t.Error("buy permitted against strongly negative sentiment")
	}
	if !a.SupportsSignal("ZEEL", models.SignalSell) {
		t.Error("sell vetoed despite negative sentiment")
	}

	// Low confidence never vetoes.
	b := NewAnalyzer("", zerolog.Nop())
	if err := b.Update("ZEEL", -3.0, 0, now); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !b.SupportsSignal("ZEEL", models.SignalBuy) {
		t.Error("single observation should not veto")
	}
}

func TestSizeAdjustmentBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("multiplier stays in [0.5, 1.5]", prop.ForAll(
		func(changes []float64) bool {
			a := NewAnalyzer("", zerolog.Nop())
			now := time.Now()
			for i, pct := range changes {
				if err := a.Update("X", pct, 0, now.Add(time.Duration(i)*time.Minute)); err != nil {
					return false
				}
			}
			buy := a.SizeAdjustment("X", models.SignalBuy)
			sell := a.SizeAdjustment("X", models.SignalSell)
			return buy >= 0.5 && buy <= 1.5 && sell >= 0.5 && sell <= 1.5
		},
		gen.SliceOf(gen.Float64Range(-10, 10)),
	))

	properties.Property("score stays in [-1, 1]", prop.ForAll(
		func(pct, vol float64) bool {
			a := NewAnalyzer("", zerolog.Nop())
			if err := a.Update("X", pct, vol, time.Now()); err != nil {
				return false
			}
			s := a.Score("X")
			return s.Current >= -1 && s.Current <= 1
		},
		gen.Float64Range(-100, 100),
		gen.Float64Range(-100, 1000),
	))

	properties.TestingRun(t)
}

func TestResetDailyClearsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentiment.json")
	a := NewAnalyzer(path, zerolog.Nop())

	if err := a.Update("TATAMOTORS", 2.0, 0, time.Now()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := a.ResetDaily(); err != nil {
		t.Fatalf("ResetDaily: %v", err)
	}
	if s := a.Score("TATAMOTORS"); s.Samples != 0 {
		t.Errorf("samples after reset = %d, want 0", s.Samples)
	}

	// The cleared state is what the next session restores.
	restored := NewAnalyzer(path, zerolog.Nop())
	if s := restored.Score("TATAMOTORS"); s.Samples != 0 {
		t.Errorf("restored samples = %d, want 0", s.Samples)
	}
}
