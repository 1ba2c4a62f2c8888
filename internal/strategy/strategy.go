// Package strategy defines the decision capabilities of the trading engine.
// Every capability consumes a market context and produces a Signal; the
// engine composes them without knowing their internals.
package strategy

import (
	"time"

	"intraday-trader/internal/models"
)

// Context carries everything a strategy may evaluate for one symbol in one
// cycle. Candles are oldest first. Position is the open position for the
// symbol, nil when the book is flat.
type Context struct {
	Symbol   string
	Quote    models.Quote
	Candles  []models.Candle
	Position *models.Position
	Now      time.Time
}

// Strategy is the capability interface: evaluate a context, produce a
// signal. A HOLD signal means no action.
type Strategy interface {
	Name() string
	Evaluate(ctx Context) models.Signal
}

func hold(ctx Context, reasons ...string) models.Signal {
	return models.Signal{
		Symbol:    ctx.Symbol,
		Action:    models.SignalHold,
		Price:     ctx.Quote.LTP,
		Reasons:   reasons,
		Timestamp: ctx.Now,
	}
}
