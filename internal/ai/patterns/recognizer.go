package patterns

import (
	"os"
	"sync"

	"github.com/rs/zerolog"

	apperrors "intraday-trader/internal/errors"
	"intraday-trader/internal/models"
	"intraday-trader/internal/state"
)

const schemaVersion = 1

// defaultConfidence is reported for patterns with no recorded outcomes yet.
const defaultConfidence = 0.5

// Stats tracks how often a pattern occurred and how often acting on it was
// profitable. Occurrences never decrease and Successes never exceeds them.
type Stats struct {
	Occurrences int `json:"occurrences"`
	Successes   int `json:"successes"`
}

// SuccessRate returns the observed success rate, or the default for
// patterns without history.
func (s Stats) SuccessRate() float64 {
	if s.Occurrences == 0 {
		return defaultConfidence
	}
	return float64(s.Successes) / float64(s.Occurrences)
}

// Recognizer detects candlestick patterns and scores them with learned
// success statistics persisted across sessions.
type Recognizer struct {
	mu        sync.Mutex
	stats     map[string]Stats
	statePath string
	logger    zerolog.Logger
}

// NewRecognizer creates a recognizer, restoring learned statistics from
// statePath. A missing, unreadable or stale snapshot reinitializes with a
// warning rather than failing.
func NewRecognizer(statePath string, logger zerolog.Logger) *Recognizer {
	r := &Recognizer{
		stats:     map[string]Stats{},
		statePath: statePath,
		logger:    logger.With().Str("component", "patterns").Logger(),
	}

	if statePath == "" {
		return r
	}
	var saved map[string]Stats
	err := state.Load(statePath, schemaVersion, &saved)
	switch {
	case err == nil:
		r.stats = saved
	case os.IsNotExist(err):
		// First run, nothing to restore.
	default:
		r.logger.Warn().Err(err).Str("path", statePath).
			Msg("Pattern stats unreadable, reinitializing")
	}
	return r
}

// Recognize detects patterns at the end of the series and attaches each
// pattern's learned confidence.
func (r *Recognizer) Recognize(candles []models.Candle) []Pattern {
	found := detectAll(candles)

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range found {
		found[i].Confidence = r.stats[found[i].Name].SuccessRate()
	}
	return found
}

// Confidence returns the learned success rate for a pattern name.
func (r *Recognizer) Confidence(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats[name].SuccessRate()
}

// Learn records the outcome of a trade that acted on the named pattern and
// persists the updated statistics.
func (r *Recognizer) Learn(name string, success bool) error {
	r.mu.Lock()
	s := r.stats[name]
	s.Occurrences++
	if success {
		s.Successes++
	}
	r.stats[name] = s
	snapshot := r.copyStats()
	r.mu.Unlock()

	return r.persist(snapshot)
}

// Snapshot returns a copy of all learned statistics.
func (r *Recognizer) Snapshot() map[string]Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyStats()
}

func (r *Recognizer) copyStats() map[string]Stats {
	out := make(map[string]Stats, len(r.stats))
	for k, v := range r.stats {
		out[k] = v
	}
	return out
}

func (r *Recognizer) persist(snapshot map[string]Stats) error {
	if r.statePath == "" {
		return nil
	}
	if err := state.Save(r.statePath, schemaVersion, snapshot); err != nil {
		return apperrors.Wrap(err, "saving pattern stats")
	}
	return nil
}
