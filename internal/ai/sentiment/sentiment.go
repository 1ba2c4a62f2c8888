// Package sentiment derives a market mood score per symbol from observed
// price and volume changes. No external news feed is involved; the score is
// a decayed aggregate of recent tape behaviour.
package sentiment

import (
	"math"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "intraday-trader/internal/errors"
	"intraday-trader/internal/models"
	"intraday-trader/internal/state"
)

const (
	schemaVersion = 1

	// Observations below this absolute price change carry no information.
	minPriceChangePct = 0.1

	// History kept per symbol.
	maxHistory = 50

	// decay is the per-step weight falloff, newest first.
	decay = 0.5
)

// Trend labels the direction the sentiment itself is moving.
type Trend string

const (
	TrendImproving Trend = "IMPROVING"
	TrendDeclining Trend = "DECLINING"
	TrendStable    Trend = "STABLE"
)

// Score is the analyzer's reading for one symbol.
type Score struct {
	Current    float64
	Average    float64
	Trend      Trend
	Confidence float64
	Samples    int
}

type observation struct {
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// Analyzer accumulates per-symbol sentiment observations.
type Analyzer struct {
	mu        sync.Mutex
	history   map[string][]observation
	statePath string
	logger    zerolog.Logger
}

// NewAnalyzer creates an analyzer, restoring history from statePath when a
// compatible snapshot exists.
func NewAnalyzer(statePath string, logger zerolog.Logger) *Analyzer {
	a := &Analyzer{
		history:   map[string][]observation{},
		statePath: statePath,
		logger:    logger.With().Str("component", "sentiment").Logger(),
	}

	if statePath == "" {
		return a
	}
	var saved map[string][]observation
	err := state.Load(statePath, schemaVersion, &saved)
	switch {
	case err == nil:
		a.history = saved
	case os.IsNotExist(err):
	default:
		a.logger.Warn().Err(err).Str("path", statePath).
			Msg("Sentiment history unreadable, reinitializing")
	}
	return a
}

// Update records one observation. Price and volume changes are percentages
// relative to the previous reading. Observations with negligible price
// movement are discarded.
func (a *Analyzer) Update(symbol string, priceChangePct, volumeChangePct float64, now time.Time) error {
	if math.Abs(priceChangePct) < minPriceChangePct {
		return nil
	}

	raw := clamp(priceChangePct/2.0, -1, 1)

	// Rising volume amplifies the reading, capped at 3x.
	factor := 1.0
	if volumeChangePct > 0 {
		factor += math.Min(volumeChangePct/50.0, 2.0)
	}
	score := clamp(raw*factor, -1, 1)

	a.mu.Lock()
	h := append(a.history[symbol], observation{Score: score, Timestamp: now})
	if len(h) > maxHistory {
		h = h[len(h)-maxHistory:]
	}
	a.history[symbol] = h
	snapshot := a.copyHistory()
	a.mu.Unlock()

	return a.persist(snapshot)
}

// Score returns the current reading for a symbol. With no history the
// reading is neutral with zero confidence.
func (a *Analyzer) Score(symbol string) Score {
	a.mu.Lock()
	defer a.mu.Unlock()

	h := a.history[symbol]
	if len(h) == 0 {
		return Score{Trend: TrendStable}
	}

	// Exponentially decayed average, newest first.
	var weighted, weights float64
	w := 1.0
	for i := len(h) - 1; i >= 0; i-- {
		weighted += h[i].Score * w
		weights += w
		w *= decay
	}

	var sum float64
	for _, o := range h {
		sum += o.Score
	}

	return Score{
		Current:    weighted / weights,
		Average:    sum / float64(len(h)),
		Trend:      a.trend(h),
		Confidence: math.Min(float64(len(h))/20.0, 1.0),
		Samples:    len(h),
	}
}

// trend compares the mean of the last 10 observations against the 10
// before them.
func (a *Analyzer) trend(h []observation) Trend {
	if len(h) < 20 {
		return TrendStable
	}

	recent := mean(h[len(h)-10:])
	prior := mean(h[len(h)-20 : len(h)-10])

	switch {
	case recent > prior+0.1:
		return TrendImproving
	case recent < prior-0.1:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// SupportsSignal reports whether sentiment permits acting on the given
// action. The veto only applies once enough observations exist.
func (a *Analyzer) SupportsSignal(symbol string, action models.SignalAction) bool {
	s := a.Score(symbol)
	if s.Confidence < 0.5 {
		return true
	}
	switch action {
	case models.SignalBuy:
		return s.Current > -0.3
	case models.SignalSell:
		return s.Current < 0.3
	default:
		return true
	}
}

// SizeAdjustment returns a position size multiplier in [0.5, 1.5] scaled
// by sentiment agreement with the trade direction.
func (a *Analyzer) SizeAdjustment(symbol string, action models.SignalAction) float64 {
	s := a.Score(symbol)
	aligned := s.Current
	if action == models.SignalSell {
		aligned = -aligned
	}
	return clamp(1.0+aligned*0.5*s.Confidence, 0.5, 1.5)
}

// ResetDaily clears accumulated history for a fresh session.
func (a *Analyzer) ResetDaily() error {
	a.mu.Lock()
	a.history = map[string][]observation{}
	snapshot := a.copyHistory()
	a.mu.Unlock()

	return a.persist(snapshot)
}

func (a *Analyzer) copyHistory() map[string][]observation {
	out := make(map[string][]observation, len(a.history))
	for k, v := range a.history {
		cp := make([]observation, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

func (a *Analyzer) persist(snapshot map[string][]observation) error {
	if a.statePath == "" {
		return nil
	}
	if err := state.Save(a.statePath, schemaVersion, snapshot); err != nil {
		return apperrors.Wrap(err, "saving sentiment history")
	}
	return nil
}

func mean(obs []observation) float64 {
	if len(obs) == 0 {
		return 0
	}
	var sum float64
	for _, o := range obs {
		sum += o.Score
	}
	return sum / float64(len(obs))
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
