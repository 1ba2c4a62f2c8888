package models

import "time"

// Trade represents a completed (executed) paper trade.
type Trade struct {
	ID         string
	Timestamp  time.Time
	Symbol     string
	Exchange   Exchange
	Side       OrderSide
	Quantity   int
	Price      float64
	Brokerage  float64
	PnL        float64
	PnLPercent float64
	Strategy   string
	Reason     string
}

// Position represents an open paper position.
type Position struct {
	Symbol       string
	Quantity     int
	AveragePrice float64
	StopLoss     float64
	Target       float64
	OpenedAt     time.Time
}

// Value returns the position's cost basis.
func (p Position) Value() float64 {
	return float64(p.Quantity) * p.AveragePrice
}

// UnrealizedPnL returns the mark-to-market profit at the given price.
func (p Position) UnrealizedPnL(ltp float64) float64 {
	return (ltp - p.AveragePrice) * float64(p.Quantity)
}

// DayStats is the roll-up recorded when the trading day is reset.
type DayStats struct {
	Date     time.Time
	Trades   int
	Wins     int
	Losses   int
	GrossPnL float64
	NetPnL   float64
	WinRate  float64
	EndValue float64
}

// Metrics summarizes ledger performance across all recorded trades.
type Metrics struct {
	Cash           float64
	PortfolioValue float64
	TotalPnL       float64
	TotalTrades    int
	Wins           int
	Losses         int
	WinRate        float64
	AvgWin         float64
	AvgLoss        float64
	ProfitFactor   float64
	OpenPositions  int
}
