// Package broker provides the market data boundary of the trading engine.
// The engine never routes real orders; it only reads quotes and candles.
package broker

import (
	"context"
	"time"

	"intraday-trader/internal/models"
)

// MarketData is the external market data collaborator. All methods are
// synchronous and rate-limited by the Throttled wrapper.
type MarketData interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetLTP(ctx context.Context, symbol string) (float64, error)
	GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error)
}

// HistoricalRequest describes a candle history query.
type HistoricalRequest struct {
	Symbol    string
	Exchange  models.Exchange
	Timeframe string // "1min", "5min", "15min", "30min", "1hour", "1day"
	From      time.Time
	To        time.Time
}
