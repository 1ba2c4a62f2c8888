// Package predict aggregates technical readings across multiple timeframes
// into a single directional prediction with a learned per-timeframe
// weighting.
package predict

import (
	"math"
	"os"
	"sync"

	"github.com/rs/zerolog"

	apperrors "intraday-trader/internal/errors"
	"intraday-trader/internal/state"
)

const schemaVersion = 1

// Timeframe identifies one of the model's observation horizons.
type Timeframe string

const (
	TF5Min  Timeframe = "5m"
	TF30Min Timeframe = "30m"
	TF4Hour Timeframe = "4h"
	TFDaily Timeframe = "daily"
)

// Timeframes lists all horizons in weighting order.
var Timeframes = []Timeframe{TF5Min, TF30Min, TF4Hour, TFDaily}

var windowCaps = map[Timeframe]int{
	TF5Min:  200,
	TF30Min: 100,
	TF4Hour: 50,
	TFDaily: 100,
}

var defaultWeights = map[Timeframe]float64{
	TF5Min:  0.15,
	TF30Min: 0.25,
	TF4Hour: 0.30,
	TFDaily: 0.30,
}

// Direction is the predicted price direction.
type Direction string

const (
	DirectionUp       Direction = "UP"
	DirectionDown     Direction = "DOWN"
	DirectionSideways Direction = "SIDEWAYS"
)

// Prediction is the model's aggregated output for one symbol.
type Prediction struct {
	Symbol      string
	Direction   Direction
	Strength    float64 // [-1, 1], signed toward the direction
	Confidence  float64
	TargetPrice float64
	Votes       map[Timeframe]float64
}

type point struct {
	Price  float64
	Volume int64
}

// learned is the persisted part of the model.
type learned struct {
	Weights map[string]map[Timeframe]float64 `json:"weights"`
	Total   map[string]int                   `json:"total"`
	Correct map[string]int                   `json:"correct"`
}

// Model holds per-symbol, per-timeframe price windows and learned weights.
type Model struct {
	mu        sync.Mutex
	windows   map[string]map[Timeframe][]point
	lastVotes map[string]map[Timeframe]float64
	learned   learned
	statePath string
	logger    zerolog.Logger
}

// NewModel creates a model, restoring learned weights from statePath when a
// compatible snapshot exists.
func NewModel(statePath string, logger zerolog.Logger) *Model {
	m := &Model{
		windows:   map[string]map[Timeframe][]point{},
		lastVotes: map[string]map[Timeframe]float64{},
		learned: learned{
			Weights: map[string]map[Timeframe]float64{},
			Total:   map[string]int{},
			Correct: map[string]int{},
		},
		statePath: statePath,
		logger:    logger.With().Str("component", "predict").Logger(),
	}

	if statePath == "" {
		return m
	}
	var saved learned
	err := state.Load(statePath, schemaVersion, &saved)
	switch {
	case err == nil:
		if saved.Weights != nil {
			m.learned = saved
		}
	case os.IsNotExist(err):
	default:
		m.logger.Warn().Err(err).Str("path", statePath).
			Msg("Prediction weights unreadable, reinitializing")
	}
	return m
}

// Record appends a price observation to the symbol's timeframe window.
func (m *Model) Record(symbol string, tf Timeframe, price float64, volume int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byTF := m.windows[symbol]
	if byTF == nil {
		byTF = map[Timeframe][]point{}
		m.windows[symbol] = byTF
	}
	w := append(byTF[tf], point{Price: price, Volume: volume})
	if limit := windowCaps[tf]; len(w) > limit {
		w = w[len(w)-limit:]
	}
	byTF[tf] = w
}

// Predict aggregates the timeframe votes into a direction, strength and
// target price. It returns ErrDataUnavailable until at least one timeframe
// has enough history to vote.
func (m *Model) Predict(symbol string, price float64) (Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	votes := map[Timeframe]float64{}
	weights := m.weightsFor(symbol)

	var strength, weightSum float64
	voted := false
	for _, tf := range Timeframes {
		closes, volumes := seriesOf(m.windows[symbol][tf])
		if len(closes) < 15 {
			continue
		}
		v := timeframeVote(closes, volumes)
		votes[tf] = v
		strength += v * weights[tf]
		weightSum += weights[tf]
		voted = true
	}
	if !voted {
		return Prediction{}, apperrors.NewDataError("prediction", symbol,
			"insufficient history on all timeframes", apperrors.ErrDataUnavailable)
	}
	strength /= weightSum

	dir := DirectionSideways
	switch {
	case strength > 0.2:
		dir = DirectionUp
	case strength < -0.2:
		dir = DirectionDown
	}

	vol := volatilityOf(m.windows[symbol])
	target := price * (1 + vol*strength*2)

	m.lastVotes[symbol] = votes

	conf := math.Abs(strength) * m.accuracyMultiplier(symbol)
	if conf > 1 {
		conf = 1
	}

	return Prediction{
		Symbol:      symbol,
		Direction:   dir,
		Strength:    strength,
		Confidence:  conf,
		TargetPrice: target,
		Votes:       votes,
	}, nil
}

// Calibrate feeds a realized outcome back into the model. Timeframes whose
// vote agreed with the realized direction are nudged up, the rest down,
// using a bounded exponential update. The result is persisted.
func (m *Model) Calibrate(symbol string, realized Direction) error {
	const alpha = 0.1

	m.mu.Lock()
	votes := m.lastVotes[symbol]
	if votes == nil {
		m.mu.Unlock()
		return nil
	}

	weights := m.weightsFor(symbol)
	anyCorrect := false
	for tf, v := range votes {
		target := 0.1
		if agrees(v, realized) {
			target = 0.9
			anyCorrect = true
		}
		w := weights[tf] + alpha*(target-weights[tf])
		weights[tf] = clampWeight(w)
	}
	normalize(weights)
	m.learned.Weights[symbol] = weights

	m.learned.Total[symbol]++
	if anyCorrect {
		m.learned.Correct[symbol]++
	}
	snapshot := m.learned
	m.mu.Unlock()

	if m.statePath == "" {
		return nil
	}
	if err := state.Save(m.statePath, schemaVersion, snapshot); err != nil {
		return apperrors.Wrap(err, "saving prediction weights")
	}
	return nil
}

// Weights returns the symbol's current timeframe weights.
func (m *Model) Weights(symbol string) map[Timeframe]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.weightsFor(symbol)
}

// weightsFor returns a mutable copy of the symbol's weights, falling back
// to the defaults. Callers hold the lock.
func (m *Model) weightsFor(symbol string) map[Timeframe]float64 {
	out := map[Timeframe]float64{}
	saved := m.learned.Weights[symbol]
	for _, tf := range Timeframes {
		if saved != nil {
			if w, ok := saved[tf]; ok {
				out[tf] = w
				continue
			}
		}
		out[tf] = defaultWeights[tf]
	}
	return out
}

// accuracyMultiplier scales confidence by historical hit rate, in
// [0.5, 1.5]. Callers hold the lock.
func (m *Model) accuracyMultiplier(symbol string) float64 {
	total := m.learned.Total[symbol]
	if total < 5 {
		return 1.0
	}
	acc := float64(m.learned.Correct[symbol]) / float64(total)
	return 0.5 + acc
}

// timeframeVote combines RSI, MACD, MA crossover and volume trend readings
// into a single vote in [-1, 1].
func timeframeVote(closes []float64, volumes []int64) float64 {
	var vote float64

	r := rsi(closes, 14)
	switch {
	case r < 30:
		vote += 0.25
	case r > 70:
		vote -= 0.25
	}

	if h := macdHistogram(closes); h > 0 {
		vote += 0.25
	} else if h < 0 {
		vote -= 0.25
	}

	if len(closes) >= 30 {
		short, long := sma(closes, 10), sma(closes, 30)
		if short > long {
			vote += 0.30
		} else if short < long {
			vote -= 0.30
		}
	}

	if n := len(volumes); n >= 10 {
		var recent, prior int64
		for _, v := range volumes[n-5:] {
			recent += v
		}
		for _, v := range volumes[n-10 : n-5] {
			prior += v
		}
		rising := recent > prior
		up := closes[len(closes)-1] > closes[len(closes)-5]
		if rising && up {
			vote += 0.20
		} else if rising && !up {
			vote -= 0.20
		}
	}

	return clamp(vote, -1, 1)
}

func volatilityOf(byTF map[Timeframe][]point) float64 {
	closes, _ := seriesOf(byTF[TF5Min])
	if len(closes) < 2 {
		closes, _ = seriesOf(byTF[TF30Min])
	}
	if len(closes) < 2 {
		return 0.01
	}

	var sum, sq float64
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		r := (closes[i] - closes[i-1]) / closes[i-1]
		returns = append(returns, r)
		sum += r
	}
	if len(returns) == 0 {
		return 0.01
	}
	mean := sum / float64(len(returns))
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(returns)))
}

func seriesOf(pts []point) ([]float64, []int64) {
	closes := make([]float64, len(pts))
	volumes := make([]int64, len(pts))
	for i, p := range pts {
		closes[i] = p.Price
		volumes[i] = p.Volume
	}
	return closes, volumes
}

func agrees(vote float64, realized Direction) bool {
	switch realized {
	case DirectionUp:
		return vote > 0
	case DirectionDown:
		return vote < 0
	default:
		return vote > -0.2 && vote < 0.2
	}
}

func clampWeight(w float64) float64 {
	return clamp(w, 0.1, 0.9)
}

func normalize(weights map[Timeframe]float64) {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		return
	}
	for tf, w := range weights {
		weights[tf] = w / sum
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
