// Package psychology enforces behavioural discipline over the trading
// session: trade frequency limits, loss cooldowns, drawdown halts and
// size reductions when the account is running hot or cold.
package psychology

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "intraday-trader/internal/errors"
	"intraday-trader/internal/models"
	"intraday-trader/internal/state"
)

const schemaVersion = 1

// Limits configures the guard. Zero values fall back to the defaults.
type Limits struct {
	MaxDailyTrades       int
	ConsecutiveLossLimit int
	Cooldown             time.Duration
	WinStreakThreshold   int
	MaxDrawdownPercent   float64
	FOMOWindow           time.Duration
}

// DefaultLimits returns the standard intraday limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDailyTrades:       5,
		ConsecutiveLossLimit: 3,
		Cooldown:             15 * time.Minute,
		WinStreakThreshold:   3,
		MaxDrawdownPercent:   5.0,
		FOMOWindow:           5 * time.Minute,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxDailyTrades == 0 {
		l.MaxDailyTrades = d.MaxDailyTrades
	}
	if l.ConsecutiveLossLimit == 0 {
		l.ConsecutiveLossLimit = d.ConsecutiveLossLimit
	}
	if l.Cooldown == 0 {
		l.Cooldown = d.Cooldown
	}
	if l.WinStreakThreshold == 0 {
		l.WinStreakThreshold = d.WinStreakThreshold
	}
	if l.MaxDrawdownPercent == 0 {
		l.MaxDrawdownPercent = d.MaxDrawdownPercent
	}
	if l.FOMOWindow == 0 {
		l.FOMOWindow = d.FOMOWindow
	}
	return l
}

// Decision is the guard's verdict on a proposed trade.
type Decision struct {
	Allowed        bool
	State          models.EmotionalState
	SizeMultiplier float64
	Reason         string
	Coaching       string
}

// guardState is the persisted daily state. SignalFirstSeen records when
// each (symbol, side) signal was first observed so the FOMO check can
// demand persistence before letting it trade.
type guardState struct {
	DailyTrades       int                  `json:"daily_trades"`
	ConsecutiveLosses int                  `json:"consecutive_losses"`
	ConsecutiveWins   int                  `json:"consecutive_wins"`
	DayPnL            float64              `json:"day_pnl"`
	DayStartValue     float64              `json:"day_start_value"`
	PeakValue         float64              `json:"peak_value"`
	LastTradeAt       time.Time            `json:"last_trade_at"`
	CooldownUntil     time.Time            `json:"cooldown_until"`
	Halted            bool                 `json:"halted"`
	FOMOBlocks        int                  `json:"fomo_blocks"`
	RevengeBlocks     int                  `json:"revenge_blocks"`
	SignalFirstSeen   map[string]time.Time `json:"signal_first_seen,omitempty"`
}

// clone copies the state deeply so a snapshot can be persisted outside
// the guard's lock.
func (s guardState) clone() guardState {
	cp := s
	cp.SignalFirstSeen = make(map[string]time.Time, len(s.SignalFirstSeen))
	for k, v := range s.SignalFirstSeen {
		cp.SignalFirstSeen[k] = v
	}
	return cp
}

// Guard tracks session behaviour and gates every trade before sizing.
type Guard struct {
	mu        sync.Mutex
	limits    Limits
	st        guardState
	statePath string
	logger    zerolog.Logger
}

// NewGuard creates a guard, restoring intraday state from statePath so a
// restart mid-session keeps its limits.
func NewGuard(limits Limits, statePath string, logger zerolog.Logger) *Guard {
	g := &Guard{
		limits:    limits.withDefaults(),
		statePath: statePath,
		logger:    logger.With().Str("component", "psychology").Logger(),
	}

	if statePath != "" {
		var saved guardState
		err := state.Load(statePath, schemaVersion, &saved)
		switch {
		case err == nil:
			g.st = saved
		case os.IsNotExist(err):
		default:
			g.logger.Warn().Err(err).Str("path", statePath).
				Msg("Guard state unreadable, reinitializing")
		}
	}
	if g.st.SignalFirstSeen == nil {
		g.st.SignalFirstSeen = map[string]time.Time{}
	}
	return g
}

// ShouldAllowTrade evaluates the proposed signal against the current
// behavioural state. States are checked in strict precedence order:
// HALTED, REVENGE, GREEDY, FEARFUL, OVERCONFIDENT, FOMO, NEUTRAL.
func (g *Guard) ShouldAllowTrade(symbol string, sig models.Signal, now time.Time) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	// HALTED: drawdown breach blocks everything for the day.
	if g.st.Halted {
		return g.verdict(models.StateHalted, false, 0,
			"trading halted for the day after drawdown breach")
	}

	// REVENGE: consecutive losses inside the cooldown window.
	if g.st.ConsecutiveLosses >= g.limits.ConsecutiveLossLimit && now.Before(g.st.CooldownUntil) {
		g.st.RevengeBlocks++
		return g.verdict(models.StateRevenge, false, 0,
			fmt.Sprintf("%d consecutive losses, cooling down until %s",
				g.st.ConsecutiveLosses, g.st.CooldownUntil.Format("15:04:05")))
	}

	// GREEDY: the daily trade budget is spent.
	if g.st.DailyTrades >= g.limits.MaxDailyTrades {
		return g.verdict(models.StateGreedy, false, 0,
			fmt.Sprintf("daily trade limit reached (%d)", g.limits.MaxDailyTrades))
	}

	// FEARFUL: any loss streak shrinks size until a win breaks it.
	if g.st.ConsecutiveLosses >= 1 {
		reduction := math.Min(0.4, float64(g.st.ConsecutiveLosses)*0.15)
		return g.verdict(models.StateFearful, true, 1-reduction,
			fmt.Sprintf("%d consecutive losses, reducing size", g.st.ConsecutiveLosses))
	}

	// OVERCONFIDENT: a win streak also shrinks size.
	if g.st.ConsecutiveWins >= g.limits.WinStreakThreshold {
		over := g.st.ConsecutiveWins - g.limits.WinStreakThreshold + 1
		reduction := math.Min(0.3, float64(over)*0.1)
		return g.verdict(models.StateOverconfident, true, 1-reduction,
			fmt.Sprintf("%d consecutive wins, reducing size", g.st.ConsecutiveWins))
	}

	// FOMO: a candidate signal trades only after persisting for the window.
	if d, blocked := g.fomoCheck(symbol, sig, now); blocked {
		return d
	}

	return g.verdict(models.StateNeutral, true, 1.0, "")
}

// fomoCheck blocks a BUY or SELL candidate until it has been observed for
// the full persistence window. The first sighting starts the clock;
// RecordTrade clears the record so a re-entry must persist again.
// Called with the mutex held.
func (g *Guard) fomoCheck(symbol string, sig models.Signal, now time.Time) (Decision, bool) {
	if sig.Action != models.SignalBuy && sig.Action != models.SignalSell {
		return Decision{}, false
	}

	key := signalKey(symbol, sig.Action)
	first, seen := g.st.SignalFirstSeen[key]
	if !seen {
		g.st.SignalFirstSeen[key] = now
		g.st.FOMOBlocks++
		return g.verdict(models.StateFOMO, false, 0,
			fmt.Sprintf("%s signal just appeared, waiting %s for it to persist",
				sig.Action, g.limits.FOMOWindow)), true
	}
	if age := now.Sub(first); age < g.limits.FOMOWindow {
		g.st.FOMOBlocks++
		return g.verdict(models.StateFOMO, false, 0,
			fmt.Sprintf("%s signal is %s old, needs %s to persist",
				sig.Action, age.Round(time.Second), g.limits.FOMOWindow)), true
	}
	return Decision{}, false
}

func signalKey(symbol string, action models.SignalAction) string {
	return symbol + "_" + string(action)
}

// RecordTrade feeds an executed trade's outcome back into the guard.
// Entries carry zero pnl and only advance the trade clock. Executing the
// signal resets its persistence record, and every loss re-arms the
// cooldown timer.
func (g *Guard) RecordTrade(symbol string, action models.SignalAction, pnl float64, closed bool, now time.Time) error {
	g.mu.Lock()
	g.st.DailyTrades++
	g.st.LastTradeAt = now
	delete(g.st.SignalFirstSeen, signalKey(symbol, action))

	if closed {
		g.st.DayPnL += pnl
		if pnl < 0 {
			g.st.ConsecutiveLosses++
			g.st.ConsecutiveWins = 0
			g.st.CooldownUntil = now.Add(g.limits.Cooldown)
		} else if pnl > 0 {
			g.st.ConsecutiveWins++
			g.st.ConsecutiveLosses = 0
		}
	}
	snapshot := g.st.clone()
	g.mu.Unlock()

	return g.persist(snapshot)
}

// ObserveEquity updates the drawdown monitor with the current portfolio
// value and halts the day when the configured drawdown is breached.
func (g *Guard) ObserveEquity(value float64, now time.Time) error {
	g.mu.Lock()
	if g.st.DayStartValue == 0 {
		g.st.DayStartValue = value
	}
	if value > g.st.PeakValue {
		g.st.PeakValue = value
	}

	if !g.st.Halted && g.st.PeakValue > 0 {
		drawdown := (g.st.PeakValue - value) / g.st.PeakValue * 100
		if drawdown >= g.limits.MaxDrawdownPercent {
			g.st.Halted = true
			g.logger.Warn().
				Float64("drawdown_percent", drawdown).
				Float64("limit_percent", g.limits.MaxDrawdownPercent).
				Msg("Drawdown limit breached, halting for the day")
		}
	}
	snapshot := g.st.clone()
	g.mu.Unlock()

	return g.persist(snapshot)
}

// EnforceStopLoss reports whether a long position must be closed at the
// given price. Pure function of its inputs.
func EnforceStopLoss(pos models.Position, ltp float64) bool {
	return pos.StopLoss > 0 && ltp <= pos.StopLoss
}

// ShouldTakeProfit reports whether a long position has reached its target.
func ShouldTakeProfit(pos models.Position, ltp float64) bool {
	return pos.Target > 0 && ltp >= pos.Target
}

// State returns the current emotional state without evaluating a signal.
func (g *Guard) State(now time.Time) models.EmotionalState {
	d := g.ShouldAllowTrade("", models.Signal{}, now)
	return d.State
}

// DisciplineScore summarizes session discipline on a 0-100 scale with
// penalties proportional to the severity of each violation.
func (g *Guard) DisciplineScore() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	score := 100.0

	// Overtrading, up to 20 points.
	if g.limits.MaxDailyTrades > 0 && g.st.DailyTrades > g.limits.MaxDailyTrades {
		excess := float64(g.st.DailyTrades-g.limits.MaxDailyTrades) / float64(g.limits.MaxDailyTrades)
		score -= 20 * math.Min(1, excess)
	}

	// Loss chasing, up to 30 points.
	if g.limits.ConsecutiveLossLimit > 0 {
		ratio := float64(g.st.ConsecutiveLosses) / float64(g.limits.ConsecutiveLossLimit)
		score -= 30 * math.Min(1, ratio)
	}

	// Impatience, up to 10 points.
	score -= 10 * math.Min(1, float64(g.st.FOMOBlocks)/5.0)

	// Drawdown, up to 25 points.
	if g.st.PeakValue > 0 && g.limits.MaxDrawdownPercent > 0 {
		drawdown := (g.st.PeakValue - g.st.DayStartValue - g.st.DayPnL) / g.st.PeakValue * 100
		if g.st.Halted {
			drawdown = g.limits.MaxDrawdownPercent
		}
		if drawdown > 0 {
			score -= 25 * math.Min(1, drawdown/g.limits.MaxDrawdownPercent)
		}
	}

	return math.Max(0, score)
}

// Stats exposes the guard's counters for reporting.
type Stats struct {
	DailyTrades       int
	ConsecutiveLosses int
	ConsecutiveWins   int
	DayPnL            float64
	Halted            bool
	FOMOBlocks        int
	RevengeBlocks     int
	DisciplineScore   float64
}

// SessionStats returns a snapshot of the counters.
func (g *Guard) SessionStats() Stats {
	score := g.DisciplineScore()

	g.mu.Lock()
	defer g.mu.Unlock()
	return Stats{
		DailyTrades:       g.st.DailyTrades,
		ConsecutiveLosses: g.st.ConsecutiveLosses,
		ConsecutiveWins:   g.st.ConsecutiveWins,
		DayPnL:            g.st.DayPnL,
		Halted:            g.st.Halted,
		FOMOBlocks:        g.st.FOMOBlocks,
		RevengeBlocks:     g.st.RevengeBlocks,
		DisciplineScore:   score,
	}
}

// ResetDaily clears all intraday counters for a fresh session.
func (g *Guard) ResetDaily(currentValue float64) error {
	g.mu.Lock()
	g.st = guardState{
		DayStartValue:   currentValue,
		PeakValue:       currentValue,
		SignalFirstSeen: map[string]time.Time{},
	}
	snapshot := g.st.clone()
	g.mu.Unlock()

	return g.persist(snapshot)
}

func (g *Guard) verdict(s models.EmotionalState, allowed bool, mult float64, reason string) Decision {
	return Decision{
		Allowed:        allowed,
		State:          s,
		SizeMultiplier: mult,
		Reason:         reason,
		Coaching:       coaching(s),
	}
}

func (g *Guard) persist(snapshot guardState) error {
	if g.statePath == "" {
		return nil
	}
	if err := state.Save(g.statePath, schemaVersion, snapshot); err != nil {
		return apperrors.Wrap(err, "saving guard state")
	}
	return nil
}
