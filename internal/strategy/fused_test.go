package strategy

import (
	"strings"
	"testing"
	"time"

	"intraday-trader/internal/ai/patterns"
	"intraday-trader/internal/ai/predict"
	"intraday-trader/internal/ai/sentiment"
	apperrors "intraday-trader/internal/errors"
	"intraday-trader/internal/models"
)

type stubBase struct {
	signal models.Signal
}

func (s stubBase) Name() string { return "stub" }

func (s stubBase) Evaluate(ctx Context) models.Signal { return s.signal }

type stubPatterns struct {
	found []patterns.Pattern
}

func (s stubPatterns) Recognize(candles []models.Candle) []patterns.Pattern { return s.found }

type stubSentiment struct {
	score sentiment.Score
	veto  bool
}

func (s stubSentiment) Score(symbol string) sentiment.Score { return s.score }
func (s stubSentiment) SupportsSignal(symbol string, action models.SignalAction) bool {
	return !s.veto
}

type stubPrediction struct {
	p   predict.Prediction
	err error
}

func (s stubPrediction) Predict(symbol string, price float64) (predict.Prediction, error) {
	return s.p, s.err
}

func buySignal() models.Signal {
	return models.Signal{
		Symbol:     "RELIANCE",
		Action:     models.SignalBuy,
		Price:      1450,
		StopLoss:   1421,
		Target:     1530,
		Confidence: 0.9,
	}
}

func fusedCtx(candles []models.Candle) Context {
	return Context{
		Symbol:  "RELIANCE",
		Quote:   models.Quote{Symbol: "RELIANCE", LTP: 1450, High: 1530, Low: 1448},
		Candles: candles,
		Now:     time.Now(),
	}
}

func risingCandles(n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		price := 1400 + float64(i)*5
		out[i] = models.Candle{
			Timestamp: time.Now(),
			Open:      price,
			High:      price + 6,
			Low:       price - 1,
			Close:     price + 5,
			Volume:    1000,
		}
	}
	return out
}

func fallingCandles(n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		price := 1600 - float64(i)*5
		out[i] = models.Candle{
			Timestamp: time.Now(),
			Open:      price,
			High:      price + 1,
			Low:       price - 6,
			Close:     price - 5,
			Volume:    1000,
		}
	}
	return out
}

func TestFusedPassesThroughHold(t *testing.T) {
	base := stubBase{signal: models.Signal{Symbol: "RELIANCE", Action: models.SignalHold}}
	f := NewFusedStrategy(base, stubPatterns{}, stubSentiment{}, stubPrediction{}, DefaultFusionWeights())

	sig := f.Evaluate(fusedCtx(nil))
	if sig.Action != models.SignalHold {
		t.Errorf("action = %v, want HOLD passed through", sig.Action)
	}
}

// The fusion layer can only suppress the base strategy's signals. With no
// range setup there is no trade, no matter how bullish every component is.
func TestFusedNeverOriginatesSignals(t *testing.T) {
	base := stubBase{signal: models.Signal{Symbol: "RELIANCE", Action: models.SignalHold}}
	f := NewFusedStrategy(base,
		stubPatterns{found: []patterns.Pattern{{Name: "hammer", Direction: patterns.Bullish, Confidence: 1.0}}},
		stubSentiment{score: sentiment.Score{Current: 1.0, Confidence: 1.0}},
		stubPrediction{p: predict.Prediction{Direction: predict.DirectionUp, Confidence: 1.0}},
		DefaultFusionWeights())

	sig := f.Evaluate(fusedCtx(risingCandles(30)))
	if sig.Action != models.SignalHold {
		t.Errorf("fusion originated a %v signal", sig.Action)
	}
}

func TestFusedSentimentVeto(t *testing.T) {
	f := NewFusedStrategy(stubBase{signal: buySignal()},
		stubPatterns{}, stubSentiment{veto: true}, stubPrediction{}, DefaultFusionWeights())

	sig := f.Evaluate(fusedCtx(risingCandles(30)))
	if sig.Action != models.SignalHold {
		t.Fatalf("action = %v, want HOLD on veto", sig.Action)
	}
	if len(sig.Reasons) == 0 || !strings.Contains(sig.Reasons[0], "vetoes") {
		t.Errorf("expected veto reason, got %v", sig.Reasons)
	}
}

func TestFusedAgreementPassesSignal(t *testing.T) {
	f := NewFusedStrategy(stubBase{signal: buySignal()},
		stubPatterns{found: []patterns.Pattern{{Name: "hammer", Direction: patterns.Bullish, Confidence: 0.9}}},
		stubSentiment{score: sentiment.Score{Current: 0.8, Confidence: 1.0}},
		stubPrediction{p: predict.Prediction{Direction: predict.DirectionUp, Confidence: 0.8}},
		DefaultFusionWeights())

	sig := f.Evaluate(fusedCtx(risingCandles(30)))
	if sig.Action != models.SignalBuy {
		t.Fatalf("action = %v (%v), want BUY through fusion", sig.Action, sig.Reasons)
	}
	if sig.Confidence < DefaultFusionWeights().ConfidenceThreshold {
		t.Errorf("confidence %v below threshold", sig.Confidence)
	}
	if sig.StopLoss != 1421 || sig.Target != 1530 {
		t.Errorf("fusion altered stop/target: %v/%v", sig.StopLoss, sig.Target)
	}
}

func TestFusedDisagreementSuppresses(t *testing.T) {
	f := NewFusedStrategy(stubBase{signal: buySignal()},
		stubPatterns{found: []patterns.Pattern{{Name: "shooting_star", Direction: patterns.Bearish, Confidence: 0.9}}},
		stubSentiment{score: sentiment.Score{Current: -0.2, Confidence: 1.0}},
		stubPrediction{p: predict.Prediction{Direction: predict.DirectionDown, Confidence: 0.8}},
		DefaultFusionWeights())

	sig := f.Evaluate(fusedCtx(fallingCandles(30)))
	if sig.Action != models.SignalHold {
		t.Fatalf("action = %v, want suppressed HOLD", sig.Action)
	}
	found := false
	for _, r := range sig.Reasons {
		if strings.Contains(r, "below threshold") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected threshold reason, got %v", sig.Reasons)
	}
}

// Components without data read neutral: an unheard prediction model or an
// empty pattern read should not block a strong range setup on its own.
func TestFusedNeutralComponentsKeepSignal(t *testing.T) {
	f := NewFusedStrategy(stubBase{signal: buySignal()},
		stubPatterns{},
		stubSentiment{score: sentiment.Score{Current: 0.5, Confidence: 1.0}},
		stubPrediction{err: apperrors.ErrDataUnavailable},
		DefaultFusionWeights())

	sig := f.Evaluate(fusedCtx(risingCandles(30)))
	if sig.Action != models.SignalBuy {
		t.Errorf("action = %v (%v), want BUY with neutral components", sig.Action, sig.Reasons)
	}
}
