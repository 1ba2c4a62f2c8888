// Package candles maintains bounded per-symbol rolling OHLCV history for
// the signal generators.
package candles

import (
	"sync"

	"intraday-trader/internal/models"
)

// DefaultCapacity is the number of candles kept per symbol when no
// capacity is configured.
const DefaultCapacity = 100

// Window holds the most recent candles per symbol, oldest first.
type Window struct {
	mu       sync.RWMutex
	capacity int
	series   map[string][]models.Candle
}

// NewWindow creates a window keeping at most capacity candles per symbol.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{
		capacity: capacity,
		series:   map[string][]models.Candle{},
	}
}

// Append adds a candle to the symbol's series, evicting the oldest when
// full. Invalid candles are rejected.
func (w *Window) Append(symbol string, c models.Candle) bool {
	if !c.IsValid() {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.series[symbol]
	s = append(s, c)
	if len(s) > w.capacity {
		s = s[len(s)-w.capacity:]
	}
	w.series[symbol] = s
	return true
}

// Candles returns a copy of the symbol's series, oldest first.
func (w *Window) Candles(symbol string) []models.Candle {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := w.series[symbol]
	out := make([]models.Candle, len(s))
	copy(out, s)
	return out
}

// Last returns the most recent candle for the symbol.
func (w *Window) Last(symbol string) (models.Candle, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := w.series[symbol]
	if len(s) == 0 {
		return models.Candle{}, false
	}
	return s[len(s)-1], true
}

// Len returns the number of candles held for the symbol.
func (w *Window) Len(symbol string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.series[symbol])
}

// Closes returns the closing prices of the symbol's series, oldest first.
func (w *Window) Closes(symbol string) []float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := w.series[symbol]
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Highs returns the high prices of the symbol's series, oldest first.
func (w *Window) Highs(symbol string) []float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := w.series[symbol]
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

// Lows returns the low prices of the symbol's series, oldest first.
func (w *Window) Lows(symbol string) []float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := w.series[symbol]
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

// Volumes returns the volumes of the symbol's series, oldest first.
func (w *Window) Volumes(symbol string) []int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := w.series[symbol]
	out := make([]int64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// Reset clears all series.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.series = map[string][]models.Candle{}
}
