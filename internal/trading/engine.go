// Package trading runs the evaluation cycle: market data in, decisions
// through the strategy stack, simulated executions out. All trading state
// mutation happens on a single goroutine.
package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"intraday-trader/internal/ai/patterns"
	"intraday-trader/internal/ai/predict"
	"intraday-trader/internal/ai/psychology"
	"intraday-trader/internal/ai/sentiment"
	"intraday-trader/internal/broker"
	"intraday-trader/internal/candles"
	apperrors "intraday-trader/internal/errors"
	"intraday-trader/internal/ledger"
	"intraday-trader/internal/logging"
	"intraday-trader/internal/models"
	"intraday-trader/internal/strategy"
	"intraday-trader/pkg/utils"
)

// Journal records trades, candles and daily roll-ups durably. Implemented
// by the SQLite store.
type Journal interface {
	LogTrade(ctx context.Context, trade models.Trade) error
	SaveCandle(ctx context.Context, symbol, timeframe string, c models.Candle) error
	SaveDayStats(ctx context.Context, stats models.DayStats) error
}

// Options configures the engine.
type Options struct {
	Symbols        []string
	Exchange       models.Exchange
	MaxRetries     int
	SquareOffAtEOD bool
}

// entryRecord remembers the evidence a position was opened on, so its
// outcome can be fed back to the learners when it closes.
type entryRecord struct {
	Patterns []string
	EntryAt  time.Time
}

// timeframe recording intervals for the predictive model.
var tfIntervals = map[predict.Timeframe]time.Duration{
	predict.TF5Min:  5 * time.Minute,
	predict.TF30Min: 30 * time.Minute,
	predict.TF4Hour: 4 * time.Hour,
	predict.TFDaily: 24 * time.Hour,
}

// Engine wires market data, the AI stack, the guard and the ledger into
// one evaluation cycle per symbol.
type Engine struct {
	opts       Options
	market     broker.MarketData
	strat      strategy.Strategy
	portfolio  *ledger.Portfolio
	guard      *psychology.Guard
	window     *candles.Window
	recognizer *patterns.Recognizer
	sentiment  *sentiment.Analyzer
	model      *predict.Model
	sizer      *Sizer
	journal    Journal
	logger     zerolog.Logger

	prevQuote  map[string]models.Quote
	entries    map[string]entryRecord
	lastRecord map[string]map[predict.Timeframe]time.Time
	lastPrices map[string]float64
}

// NewEngine assembles the engine. The journal may be nil in tests.
func NewEngine(
	opts Options,
	market broker.MarketData,
	strat strategy.Strategy,
	portfolio *ledger.Portfolio,
	guard *psychology.Guard,
	window *candles.Window,
	recognizer *patterns.Recognizer,
	sent *sentiment.Analyzer,
	model *predict.Model,
	sizer *Sizer,
	journal Journal,
	logger zerolog.Logger,
) *Engine {
	if opts.Exchange == "" {
		opts.Exchange = models.NSE
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	return &Engine{
		opts:       opts,
		market:     market,
		strat:      strat,
		portfolio:  portfolio,
		guard:      guard,
		window:     window,
		recognizer: recognizer,
		sentiment:  sent,
		model:      model,
		sizer:      sizer,
		journal:    journal,
		logger:     logger.With().Str("component", "engine").Logger(),
		prevQuote:  map[string]models.Quote{},
		entries:    map[string]entryRecord{},
		lastRecord: map[string]map[predict.Timeframe]time.Time{},
		lastPrices: map[string]float64{},
	}
}

// RunCycle evaluates every configured symbol once. A symbol whose market
// data stays unavailable after retries is skipped for this cycle; a
// persistence failure aborts the cycle and must stop the session.
func (e *Engine) RunCycle(ctx context.Context, now time.Time) ([]models.Trade, error) {
	var executed []models.Trade

	for _, symbol := range e.opts.Symbols {
		trades, err := e.evaluateSymbol(ctx, symbol, now)
		if err != nil {
			var perr *apperrors.PersistenceError
			if apperrors.As(err, &perr) {
				return executed, err
			}
			e.logger.Warn().Err(err).Str("symbol", symbol).Msg("Skipping symbol this cycle")
			continue
		}
		executed = append(executed, trades...)
	}

	if err := e.guard.ObserveEquity(e.portfolio.MarkToMarket(e.lastPrices), now); err != nil {
		return executed, err
	}
	return executed, nil
}

func (e *Engine) evaluateSymbol(ctx context.Context, symbol string, now time.Time) ([]models.Trade, error) {
	quote, err := e.fetchQuote(ctx, symbol)
	if err != nil {
		return nil, apperrors.NewDataError("quote", symbol, "market data unavailable", err)
	}
	e.lastPrices[symbol] = quote.LTP

	e.observe(symbol, *quote, now)

	series := e.window.Candles(symbol)

	var executed []models.Trade

	// Exits run before entries so a stop is never held through a cycle.
	if pos, ok := e.portfolio.Position(symbol); ok {
		switch {
		case psychology.EnforceStopLoss(pos, quote.LTP):
			t, err := e.closePosition(ctx, symbol, pos, quote.LTP, "stop-loss", now)
			if err != nil {
				return executed, err
			}
			executed = append(executed, t)
		case psychology.ShouldTakeProfit(pos, quote.LTP):
			t, err := e.closePosition(ctx, symbol, pos, quote.LTP, "target", now)
			if err != nil {
				return executed, err
			}
			executed = append(executed, t)
		}
	}

	// The strategy sees the book as it stands after exits: a fresh entry
	// evaluates against a flat position, an exit against the live one.
	sctx := strategy.Context{
		Symbol:  symbol,
		Quote:   *quote,
		Candles: series,
		Now:     now,
	}
	if pos, ok := e.portfolio.Position(symbol); ok {
		sctx.Position = &pos
	}

	sig := e.strat.Evaluate(sctx)
	logging.LogDecision(e.logger, symbol, string(sig.Action), sig.Confidence, reasonSummary(sig))

	switch sig.Action {
	case models.SignalBuy:
		if _, ok := e.portfolio.Position(symbol); ok {
			return executed, nil
		}
		t, opened, err := e.openPosition(ctx, symbol, sig, series, now)
		if err != nil {
			return executed, err
		}
		if opened {
			executed = append(executed, t)
		}

	case models.SignalSell:
		if pos, ok := e.portfolio.Position(symbol); ok {
			t, err := e.closePosition(ctx, symbol, pos, quote.LTP, "signal", now)
			if err != nil {
				return executed, err
			}
			executed = append(executed, t)
		}
	}

	return executed, nil
}

func (e *Engine) fetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	cfg := utils.DefaultRetryConfig()
	cfg.MaxAttempts = e.opts.MaxRetries
	return utils.RetryWithResult(ctx, cfg, func() (*models.Quote, error) {
		return e.market.GetQuote(ctx, e.qualify(symbol))
	})
}

// observe feeds the cycle's quote into the rolling window, the sentiment
// analyzer and the predictive model.
func (e *Engine) observe(symbol string, q models.Quote, now time.Time) {
	prev, hasPrev := e.prevQuote[symbol]
	e.prevQuote[symbol] = q

	open := q.LTP
	volume := int64(0)
	if hasPrev {
		open = prev.LTP
		if q.Volume > prev.Volume {
			volume = q.Volume - prev.Volume
		}
	}
	candle := models.Candle{
		Timestamp: now,
		Open:      open,
		High:      maxf(open, q.LTP),
		Low:       minf(open, q.LTP),
		Close:     q.LTP,
		Volume:    volume,
	}
	if e.window.Append(symbol, candle) && e.journal != nil {
		if err := e.journal.SaveCandle(context.Background(), symbol, "cycle", candle); err != nil {
			e.logger.Warn().Err(err).Str("symbol", symbol).Msg("Candle journal write failed")
		}
	}

	if hasPrev && prev.LTP > 0 {
		priceChange := (q.LTP - prev.LTP) / prev.LTP * 100
		volumeChange := 0.0
		if prev.Volume > 0 {
			volumeChange = float64(q.Volume-prev.Volume) / float64(prev.Volume) * 100
		}
		if err := e.sentiment.Update(symbol, priceChange, volumeChange, now); err != nil {
			e.logger.Warn().Err(err).Str("symbol", symbol).Msg("Sentiment state write failed")
		}
	}

	byTF := e.lastRecord[symbol]
	if byTF == nil {
		byTF = map[predict.Timeframe]time.Time{}
		e.lastRecord[symbol] = byTF
	}
	for tf, interval := range tfIntervals {
		if last, ok := byTF[tf]; !ok || now.Sub(last) >= interval {
			e.model.Record(symbol, tf, q.LTP, q.Volume)
			byTF[tf] = now
		}
	}
}

func (e *Engine) openPosition(ctx context.Context, symbol string, sig models.Signal, series []models.Candle, now time.Time) (models.Trade, bool, error) {
	verdict := e.guard.ShouldAllowTrade(symbol, sig, now)
	logging.LogGuard(e.logger, symbol, string(verdict.State), verdict.Allowed, verdict.Reason)
	if !verdict.Allowed {
		return models.Trade{}, false, nil
	}

	multiplier := verdict.SizeMultiplier * e.sentiment.SizeAdjustment(symbol, sig.Action)
	value := e.portfolio.MarkToMarket(e.lastPrices)
	qty := e.sizer.Quantity(value, e.portfolio.Cash(), sig.Price, multiplier)
	if qty == 0 {
		e.logger.Debug().Str("symbol", symbol).Msg("Sized to zero, not trading")
		return models.Trade{}, false, nil
	}

	trade, err := e.portfolio.Buy(symbol, qty, sig.Price, sig.StopLoss, sig.Target, now)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInsufficientFunds) {
			e.logger.Warn().Err(err).Str("symbol", symbol).Msg("Buy rejected")
			return models.Trade{}, false, nil
		}
		return models.Trade{}, false, err
	}
	logging.LogTrade(e.logger, symbol, string(trade.Side), trade.Quantity, trade.Price, 0)

	var names []string
	for _, p := range e.recognizer.Recognize(series) {
		names = append(names, p.Name)
	}
	e.entries[symbol] = entryRecord{Patterns: names, EntryAt: now}

	if err := e.guard.RecordTrade(symbol, sig.Action, 0, false, now); err != nil {
		return trade, true, err
	}
	if err := e.journalTrade(ctx, trade); err != nil {
		return trade, true, err
	}
	return trade, true, nil
}

func (e *Engine) closePosition(ctx context.Context, symbol string, pos models.Position, price float64, reason string, now time.Time) (models.Trade, error) {
	trade, err := e.portfolio.Sell(symbol, pos.Quantity, price, reason, now)
	if err != nil {
		return models.Trade{}, err
	}
	logging.LogTrade(e.logger, symbol, string(trade.Side), trade.Quantity, trade.Price, trade.PnL)

	success := trade.PnL > 0
	entry := e.entries[symbol]
	delete(e.entries, symbol)
	for _, name := range entry.Patterns {
		if err := e.recognizer.Learn(name, success); err != nil {
			return trade, err
		}
	}

	realized := predict.DirectionSideways
	if price > pos.AveragePrice {
		realized = predict.DirectionUp
	} else if price < pos.AveragePrice {
		realized = predict.DirectionDown
	}
	if err := e.model.Calibrate(symbol, realized); err != nil {
		return trade, err
	}

	if err := e.guard.RecordTrade(symbol, models.SignalSell, trade.PnL, true, now); err != nil {
		return trade, err
	}
	if err := e.journalTrade(ctx, trade); err != nil {
		return trade, err
	}
	return trade, nil
}

func (e *Engine) journalTrade(ctx context.Context, trade models.Trade) error {
	if e.journal == nil {
		return nil
	}
	if err := e.journal.LogTrade(ctx, trade); err != nil {
		return apperrors.NewPersistenceError("journal", "log trade", err)
	}
	return nil
}

// ResetDailyState squares off per policy, rolls up the day and clears the
// guard and sentiment state for the next session.
func (e *Engine) ResetDailyState(ctx context.Context, now time.Time) (models.DayStats, error) {
	if e.opts.SquareOffAtEOD {
		trades, err := e.portfolio.SquareOff(e.lastPrices, now)
		if err != nil {
			return models.DayStats{}, err
		}
		for _, t := range trades {
			logging.LogTrade(e.logger, t.Symbol, string(t.Side), t.Quantity, t.Price, t.PnL)
			if err := e.journalTrade(ctx, t); err != nil {
				return models.DayStats{}, err
			}
		}
	}

	stats, err := e.portfolio.EndOfDay(e.lastPrices, now)
	if err != nil {
		return stats, err
	}
	if e.journal != nil {
		if err := e.journal.SaveDayStats(ctx, stats); err != nil {
			return stats, apperrors.NewPersistenceError("journal", "save day stats", err)
		}
	}

	if err := e.guard.ResetDaily(e.portfolio.MarkToMarket(e.lastPrices)); err != nil {
		return stats, err
	}
	if err := e.sentiment.ResetDaily(); err != nil {
		return stats, err
	}
	e.entries = map[string]entryRecord{}

	e.logger.Info().
		Int("trades", stats.Trades).
		Float64("net_pnl", stats.NetPnL).
		Float64("discipline", e.guard.DisciplineScore()).
		Msg("Daily state reset")
	return stats, nil
}

// Metrics combines ledger performance with the guard's session stats.
type Metrics struct {
	Ledger models.Metrics
	Guard  psychology.Stats
}

// GetMetrics returns a combined metrics snapshot.
func (e *Engine) GetMetrics() Metrics {
	return Metrics{
		Ledger: e.portfolio.Metrics(e.lastPrices),
		Guard:  e.guard.SessionStats(),
	}
}

func (e *Engine) qualify(symbol string) string {
	return fmt.Sprintf("%s:%s", e.opts.Exchange, symbol)
}

func reasonSummary(sig models.Signal) string {
	if len(sig.Reasons) == 0 {
		return ""
	}
	return sig.Reasons[len(sig.Reasons)-1]
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
