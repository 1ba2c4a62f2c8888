// Package store provides the durable SQLite journal: candle history,
// executed trades and daily roll-ups.
package store

import (
	"context"
	"time"

	"intraday-trader/internal/models"
)

// DataStore defines the persistence interface of the trading journal.
type DataStore interface {
	// Candles
	SaveCandle(ctx context.Context, symbol, timeframe string, c models.Candle) error
	SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Candle, error)

	// Trades
	LogTrade(ctx context.Context, trade models.Trade) error
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)

	// Daily roll-ups
	SaveDayStats(ctx context.Context, stats models.DayStats) error
	GetDayStats(ctx context.Context, from, to time.Time) ([]models.DayStats, error)

	// Lifecycle
	Close() error
}

// TradeFilter represents filters for querying trades.
type TradeFilter struct {
	Symbol    string
	StartDate time.Time
	EndDate   time.Time
	Side      string
	Limit     int
}
