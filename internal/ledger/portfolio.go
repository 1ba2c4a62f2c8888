// Package ledger implements the virtual portfolio: cash, open positions
// and the trade record of the paper trading account. Every mutation is
// snapshotted atomically so a crash never loses a fill.
package ledger

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

const (
	schemaVersion = 2

	// tradeHistoryCap bounds the trades kept in the snapshot. The full
	// journal lives in the SQLite store.
	tradeHistoryCap = 100
)

// snapshot is the persisted shape of the portfolio.
type snapshot struct {
	InitialCapital float64                    `json:"initial_capital"`
	Cash           float64                    `json:"cash"`
	Positions      map[string]models.Position `json:"positions"`
	Trades         []models.Trade             `json:"trades"`
	DayStats       []models.DayStats          `json:"day_stats"`
	Wins           int                        `json:"wins"`
	Losses         int                        `json:"losses"`
	GrossWin       float64                    `json:"gross_win"`
	GrossLoss      float64                    `json:"gross_loss"`
	TotalTrades    int                        `json:"total_trades"`
	DayTrades      int                        `json:"day_trades"`
	DayWins        int                        `json:"day_wins"`
	DayLosses      int                        `json:"day_losses"`
	DayGrossPnL    float64                    `json:"day_gross_pnl"`
	DayNetPnL      float64                    `json:"day_net_pnl"`
	Sequence       int                        `json:"sequence"`
}

// Portfolio is the virtual paper trading account.
type Portfolio struct {
	mu        sync.Mutex
	st        snapshot
	brokerage float64
	statePath string
	logger    zerolog.Logger
}

// NewPortfolio creates a portfolio with the given starting capital and flat
// per-trade brokerage, restoring a prior snapshot when one exists. A
// missing or incompatible snapshot reinitializes with a warning.
func NewPortfolio(initialCapital, brokerage float64, statePath string, logger zerolog.Logger) *Portfolio {
	p := &Portfolio{
		st: snapshot{
			InitialCapital: initialCapital,
			Cash:           initialCapital,
			Positions:      map[string]models.Position{},
		},
		brokerage: brokerage,
		statePath: statePath,
		logger:    logger.With().Str("component", "ledger").Logger(),
	}

	if statePath == "" {
		return p
	}
	var saved snapshot
	err := state.Load(statePath, schemaVersion, &saved)
	switch {
	case err == nil:
		if saved.Positions == nil {
			saved.Positions = map[string]models.Position{}
		}
		p.st = saved
	case os.IsNotExist(err):
	default:
		p.logger.Warn().Err(err).Str("path", statePath).
			Msg("Ledger snapshot unreadable, starting fresh")
	}
	return p
}

// Buy executes a simulated purchase. Cost plus brokerage must be covered by
// available cash. Adding to an existing position recomputes the average
// price quantity-weighted, rounded to 2 decimals.
func (p *Portfolio) Buy(symbol string, qty int, price, stopLoss, target float64, now time.Time) (models.Trade, error) {
	if qty <= 0 || price <= 0 {
		return models.Trade{}, apperrors.NewTradeError(symbol, "BUY", "non-positive quantity or price", apperrors.ErrInvalidPosition)
	}

	p.mu.Lock()
	cost := float64(qty)*price + p.brokerage
	if cost > p.st.Cash {
		cash := p.st.Cash
		p.mu.Unlock()
		return models.Trade{}, apperrors.NewTradeError(symbol, "BUY",
			fmt.Sprintf("need %.2f, have %.2f", cost, cash), apperrors.ErrInsufficientFunds)
	}

	p.st.Cash -= cost

	pos, ok := p.st.Positions[symbol]
	if ok {
		totalQty := pos.Quantity + qty
		avg := (float64(pos.Quantity)*pos.AveragePrice + float64(qty)*price) / float64(totalQty)
		pos.Quantity = totalQty
		pos.AveragePrice = round2(avg)
		pos.StopLoss = stopLoss
		pos.Target = target
	} else {
		pos = models.Position{
			Symbol:       symbol,
			Quantity:     qty,
			AveragePrice: round2(price),
			StopLoss:     stopLoss,
			Target:       target,
			OpenedAt:     now,
		}
	}
	p.st.Positions[symbol] = pos

	trade := p.record(symbol, models.OrderSideBuy, qty, price, 0, "", now)
	snap := p.copyState()
	p.mu.Unlock()

	if err := p.persist(snap); err != nil {
		return trade, err
	}
	return trade, nil
}

// Sell closes all or part of a position and realizes
// (price - entry) * qty - brokerage.
func (p *Portfolio) Sell(symbol string, qty int, price float64, reason string, now time.Time) (models.Trade, error) {
	if qty <= 0 || price <= 0 {
		return models.Trade{}, apperrors.NewTradeError(symbol, "SELL", "non-positive quantity or price", apperrors.ErrInvalidPosition)
	}

	p.mu.Lock()
	pos, ok := p.st.Positions[symbol]
	if !ok {
		p.mu.Unlock()
		return models.Trade{}, apperrors.NewTradeError(symbol, "SELL", "no open position", apperrors.ErrInvalidPosition)
	}
	if qty > pos.Quantity {
		held := pos.Quantity
		p.mu.Unlock()
		return models.Trade{}, apperrors.NewTradeError(symbol, "SELL",
			fmt.Sprintf("selling %d, holding %d", qty, held), apperrors.ErrInvalidPosition)
	}

	pnl := (price-pos.AveragePrice)*float64(qty) - p.brokerage
	p.st.Cash += float64(qty)*price - p.brokerage

	if qty == pos.Quantity {
		delete(p.st.Positions, symbol)
	} else {
		pos.Quantity -= qty
		p.st.Positions[symbol] = pos
	}

	p.applyOutcome(pnl)
	trade := p.record(symbol, models.OrderSideSell, qty, price, pnl, reason, now)
	if pos.AveragePrice > 0 {
		trade.PnLPercent = pnl / (pos.AveragePrice * float64(qty)) * 100
		n := len(p.st.Trades)
		p.st.Trades[n-1].PnLPercent = trade.PnLPercent
	}
	snap := p.copyState()
	p.mu.Unlock()

	if err := p.persist(snap); err != nil {
		return trade, err
	}
	return trade, nil
}

// applyOutcome updates win/loss counters for a realized pnl. Callers hold
// the lock.
func (p *Portfolio) applyOutcome(pnl float64) {
	p.st.DayGrossPnL += pnl + p.brokerage
	p.st.DayNetPnL += pnl
	if pnl > 0 {
		p.st.Wins++
		p.st.DayWins++
		p.st.GrossWin += pnl
	} else if pnl < 0 {
		p.st.Losses++
		p.st.DayLosses++
		p.st.GrossLoss += -pnl
	}
}

func (p *Portfolio) record(symbol string, side models.OrderSide, qty int, price, pnl float64, reason string, now time.Time) models.Trade {
	p.st.Sequence++
	p.st.TotalTrades++
	p.st.DayTrades++

	trade := models.Trade{
		ID:        fmt.Sprintf("PT-%06d", p.st.Sequence),
		Timestamp: now,
		Symbol:    symbol,
		Exchange:  models.NSE,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		Brokerage: p.brokerage,
		PnL:       pnl,
		Strategy:  "fused-range",
		Reason:    reason,
	}
	p.st.Trades = append(p.st.Trades, trade)
	if len(p.st.Trades) > tradeHistoryCap {
		p.st.Trades = p.st.Trades[len(p.st.Trades)-tradeHistoryCap:]
	}
	return trade
}

// Cash returns available cash.
func (p *Portfolio) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.Cash
}

// Position returns the open position for a symbol.
func (p *Portfolio) Position(symbol string) (models.Position, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.st.Positions[symbol]
	return pos, ok
}

// Positions returns a copy of all open positions.
func (p *Portfolio) Positions() map[string]models.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]models.Position, len(p.st.Positions))
	for k, v := range p.st.Positions {
		out[k] = v
	}
	return out
}

// Trades returns the retained trade history, oldest first.
func (p *Portfolio) Trades() []models.Trade {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Trade, len(p.st.Trades))
	copy(out, p.st.Trades)
	return out
}

// MarkToMarket values the account at the given prices. Positions without a
// price are carried at their average.
func (p *Portfolio) MarkToMarket(prices map[string]float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	value := p.st.Cash
	for sym, pos := range p.st.Positions {
		price, ok := prices[sym]
		if !ok {
			price = pos.AveragePrice
		}
		value += float64(pos.Quantity) * price
	}
	return value
}

// Metrics summarizes account performance.
func (p *Portfolio) Metrics(prices map[string]float64) models.Metrics {
	value := p.MarkToMarket(prices)

	p.mu.Lock()
	defer p.mu.Unlock()

	m := models.Metrics{
		Cash:           p.st.Cash,
		PortfolioValue: value,
		TotalPnL:       p.st.GrossWin - p.st.GrossLoss,
		TotalTrades:    p.st.TotalTrades,
		Wins:           p.st.Wins,
		Losses:         p.st.Losses,
		OpenPositions:  len(p.st.Positions),
	}
	closed := p.st.Wins + p.st.Losses
	if closed > 0 {
		m.WinRate = float64(p.st.Wins) / float64(closed) * 100
	}
	if p.st.Wins > 0 {
		m.AvgWin = p.st.GrossWin / float64(p.st.Wins)
	}
	if p.st.Losses > 0 {
		m.AvgLoss = p.st.GrossLoss / float64(p.st.Losses)
	}
	if p.st.GrossLoss > 0 {
		m.ProfitFactor = p.st.GrossWin / p.st.GrossLoss
	}
	return m
}

// SquareOff closes every open position at the given prices. Used by the
// end-of-day policy.
func (p *Portfolio) SquareOff(prices map[string]float64, now time.Time) ([]models.Trade, error) {
	var trades []models.Trade
	for sym, pos := range p.Positions() {
		price, ok := prices[sym]
		if !ok {
			price = pos.AveragePrice
		}
		t, err := p.Sell(sym, pos.Quantity, price, "eod square-off", now)
		if err != nil {
			return trades, err
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// EndOfDay rolls the day's counters into a DayStats record and clears them
// for the next session.
func (p *Portfolio) EndOfDay(prices map[string]float64, now time.Time) (models.DayStats, error) {
	value := p.MarkToMarket(prices)

	p.mu.Lock()
	stats := models.DayStats{
		Date:     now,
		Trades:   p.st.DayTrades,
		Wins:     p.st.DayWins,
		Losses:   p.st.DayLosses,
		GrossPnL: p.st.DayGrossPnL,
		NetPnL:   p.st.DayNetPnL,
		EndValue: value,
	}
	if closed := p.st.DayWins + p.st.DayLosses; closed > 0 {
		stats.WinRate = float64(p.st.DayWins) / float64(closed) * 100
	}
	p.st.DayStats = append(p.st.DayStats, stats)
	p.st.DayTrades = 0
	p.st.DayWins = 0
	p.st.DayLosses = 0
	p.st.DayGrossPnL = 0
	p.st.DayNetPnL = 0
	snap := p.copyState()
	p.mu.Unlock()

	return stats, p.persist(snap)
}

// DayHistory returns recorded daily roll-ups, oldest first.
func (p *Portfolio) DayHistory() []models.DayStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.DayStats, len(p.st.DayStats))
	copy(out, p.st.DayStats)
	return out
}

func (p *Portfolio) copyState() snapshot {
	cp := p.st
	cp.Positions = make(map[string]models.Position, len(p.st.Positions))
	for k, v := range p.st.Positions {
		cp.Positions[k] = v
	}
	cp.Trades = append([]models.Trade(nil), p.st.Trades...)
	cp.DayStats = append([]models.DayStats(nil), p.st.DayStats...)
	return cp
}

func (p *Portfolio) persist(snap snapshot) error {
	if p.statePath == "" {
		return nil
	}
	if err := state.Save(p.statePath, schemaVersion, snap); err != nil {
		return apperrors.Wrap(err, "saving ledger snapshot")
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
