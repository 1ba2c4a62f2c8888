package strategy

import (
	"fmt"

	"intraday-trader/internal/ai/patterns"
	"intraday-trader/internal/ai/predict"
	"intraday-trader/internal/ai/sentiment"
	"intraday-trader/internal/models"
)

// PatternSource recognizes candlestick patterns with learned confidence.
type PatternSource interface {
	Recognize(candles []models.Candle) []patterns.Pattern
}

// SentimentSource scores market mood per symbol.
type SentimentSource interface {
	Score(symbol string) sentiment.Score
	SupportsSignal(symbol string, action models.SignalAction) bool
}

// PredictionSource produces multi-timeframe directional predictions.
type PredictionSource interface {
	Predict(symbol string, price float64) (predict.Prediction, error)
}

// FusionWeights blends the component scores into a combined confidence.
type FusionWeights struct {
	Pattern    float64
	Trend      float64
	Sentiment  float64
	Prediction float64
	Levels     float64
	// ConfidenceThreshold is the minimum combined confidence required to
	// let a range signal through.
	ConfidenceThreshold float64
}

// DefaultFusionWeights returns the standard blend.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{
		Pattern:             0.20,
		Trend:               0.25,
		Sentiment:           0.15,
		Prediction:          0.30,
		Levels:              0.10,
		ConfidenceThreshold: 0.60,
	}
}

func (w FusionWeights) sum() float64 {
	return w.Pattern + w.Trend + w.Sentiment + w.Prediction + w.Levels
}

// FusedStrategy gates the range strategy's signals through the AI signal
// generators. The range strategy originates every trade; the fusion layer
// may only suppress, never create, a signal.
type FusedStrategy struct {
	base       Strategy
	patterns   PatternSource
	sentiment  SentimentSource
	prediction PredictionSource
	weights    FusionWeights
}

// NewFusedStrategy composes the range strategy with the signal generators.
func NewFusedStrategy(base Strategy, p PatternSource, s SentimentSource, pr PredictionSource, w FusionWeights) *FusedStrategy {
	if w.sum() == 0 {
		w = DefaultFusionWeights()
	}
	return &FusedStrategy{
		base:       base,
		patterns:   p,
		sentiment:  s,
		prediction: pr,
		weights:    w,
	}
}

func (f *FusedStrategy) Name() string {
	return "fused-range"
}

// Evaluate runs the base strategy, then scores each AI component's
// agreement with the proposed action in [0, 1]. A component without
// enough data contributes a neutral 0.5.
func (f *FusedStrategy) Evaluate(ctx Context) models.Signal {
	base := f.base.Evaluate(ctx)
	if base.Action == models.SignalHold {
		return base
	}

	if !f.sentiment.SupportsSignal(ctx.Symbol, base.Action) {
		return hold(ctx, fmt.Sprintf("sentiment vetoes %s", base.Action))
	}

	patternScore := f.patternScore(ctx, base.Action)
	trendScore := f.trendScore(ctx, base.Action)
	sentimentScore := f.sentimentScore(ctx, base.Action)
	predictionScore := f.predictionScore(ctx, base.Action)
	lvScore := levelScore(FindLevels(ctx.Candles), ctx.Quote.LTP, base.Action)

	w := f.weights
	combined := (patternScore*w.Pattern +
		trendScore*w.Trend +
		sentimentScore*w.Sentiment +
		predictionScore*w.Prediction +
		lvScore*w.Levels) / w.sum()

	if combined < w.ConfidenceThreshold {
		return hold(ctx, fmt.Sprintf("combined confidence %.2f below threshold %.2f",
			combined, w.ConfidenceThreshold))
	}

	base.Confidence = combined
	base.Reasons = append(base.Reasons,
		fmt.Sprintf("fusion confidence %.2f (pattern %.2f, trend %.2f, sentiment %.2f, prediction %.2f, levels %.2f)",
			combined, patternScore, trendScore, sentimentScore, predictionScore, lvScore))
	return base
}

// patternScore averages the learned confidence of detected patterns that
// agree with the action; opposing patterns count against it.
func (f *FusedStrategy) patternScore(ctx Context, action models.SignalAction) float64 {
	detected := f.patterns.Recognize(ctx.Candles)
	if len(detected) == 0 {
		return 0.5
	}

	want := patterns.Bullish
	if action == models.SignalSell {
		want = patterns.Bearish
	}

	var sum float64
	var n int
	for _, p := range detected {
		switch p.Direction {
		case want:
			sum += p.Confidence
			n++
		case patterns.Neutral:
			sum += 0.5
			n++
		default:
			sum += 1 - p.Confidence
			n++
		}
	}
	if n == 0 {
		return 0.5
	}
	return sum / float64(n)
}

func (f *FusedStrategy) trendScore(ctx Context, action models.SignalAction) float64 {
	closes := make([]float64, len(ctx.Candles))
	for i, c := range ctx.Candles {
		closes[i] = c.Close
	}

	t := patterns.DetectTrend(closes, 5, 20)
	switch {
	case t == patterns.TrendFlat:
		return 0.5
	case t == patterns.TrendUp && action == models.SignalBuy,
		t == patterns.TrendDown && action == models.SignalSell:
		return 1.0
	default:
		return 0.0
	}
}

func (f *FusedStrategy) sentimentScore(ctx Context, action models.SignalAction) float64 {
	s := f.sentiment.Score(ctx.Symbol)
	aligned := s.Current
	if action == models.SignalSell {
		aligned = -aligned
	}
	// Map [-1, 1] alignment to [0, 1], dampened by confidence.
	return 0.5 + aligned*0.5*s.Confidence
}

func (f *FusedStrategy) predictionScore(ctx Context, action models.SignalAction) float64 {
	p, err := f.prediction.Predict(ctx.Symbol, ctx.Quote.LTP)
	if err != nil {
		return 0.5
	}

	switch {
	case p.Direction == predict.DirectionSideways:
		return 0.5
	case p.Direction == predict.DirectionUp && action == models.SignalBuy,
		p.Direction == predict.DirectionDown && action == models.SignalSell:
		return 0.5 + p.Confidence*0.5
	default:
		return 0.5 - p.Confidence*0.5
	}
}
