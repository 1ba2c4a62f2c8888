// Package models provides domain models for the trading application.
package models

import (
	"time"
)

// Exchange represents a stock exchange.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
)

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// MarketStatus represents the current market status.
type MarketStatus string

const (
	MarketOpen    MarketStatus = "OPEN"
	MarketPreOpen MarketStatus = "PRE_OPEN"
	MarketClosed  MarketStatus = "CLOSED"
)

// Candle represents OHLCV data for a time period.
// Low <= min(Open, Close) and High >= max(Open, Close) must hold;
// candles violating that are rejected at ingestion.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// IsValid reports whether the candle's OHLC values are internally consistent.
func (c Candle) IsValid() bool {
	if c.Volume < 0 {
		return false
	}
	lo := c.Open
	if c.Close < lo {
		lo = c.Close
	}
	hi := c.Open
	if c.Close > hi {
		hi = c.Close
	}
	return c.Low <= lo && c.High >= hi
}

// Body returns the absolute body size of the candle.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the high-low range of the candle.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// Quote represents a market quote.
type Quote struct {
	Symbol        string
	LTP           float64
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        int64
	Change        float64
	ChangePercent float64
	Timestamp     time.Time
}

// SignalAction is the action a strategy signal proposes.
type SignalAction string

const (
	SignalBuy  SignalAction = "BUY"
	SignalSell SignalAction = "SELL"
	SignalHold SignalAction = "HOLD"
)

// Signal is the common output of every decision capability: the range
// strategy, the fusion layer, and the AI signal generators all speak it.
type Signal struct {
	Symbol     string
	Action     SignalAction
	Price      float64
	StopLoss   float64
	Target     float64
	Confidence float64
	Reasons    []string
	Timestamp  time.Time
}

// EmotionalState classifies the trading account's behavioural condition.
type EmotionalState string

const (
	StateNeutral       EmotionalState = "NEUTRAL"
	StateFOMO          EmotionalState = "FOMO"
	StateRevenge       EmotionalState = "REVENGE"
	StateOverconfident EmotionalState = "OVERCONFIDENT"
	StateFearful       EmotionalState = "FEARFUL"
	StateGreedy        EmotionalState = "GREEDY"
	StateHalted        EmotionalState = "HALTED"
)
