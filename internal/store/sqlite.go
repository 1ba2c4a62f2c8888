package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"intraday-trader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based journal at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Candles table for OHLCV history
	CREATE TABLE IF NOT EXISTS candles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, timeframe, timestamp)
	);

	-- Trades table for executed paper trades
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		exchange TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price REAL NOT NULL,
		brokerage REAL NOT NULL,
		pnl REAL,
		pnl_percent REAL,
		strategy TEXT,
		reason TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Daily roll-up table
	CREATE TABLE IF NOT EXISTS daily_stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date DATE NOT NULL UNIQUE,
		trades INTEGER NOT NULL,
		wins INTEGER NOT NULL,
		losses INTEGER NOT NULL,
		gross_pnl REAL NOT NULL,
		net_pnl REAL NOT NULL,
		win_rate REAL NOT NULL,
		end_value REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_candles_lookup ON candles(symbol, timeframe, timestamp);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveCandle inserts or replaces one candle.
func (s *SQLiteStore) SaveCandle(ctx context.Context, symbol, timeframe string, c models.Candle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, timeframe, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		symbol, timeframe, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume)
	if err != nil {
		return fmt.Errorf("saving candle: %w", err)
	}
	return nil
}

// SaveCandles inserts a batch of candles in one transaction.
func (s *SQLiteStore) SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, timeframe, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, timeframe, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return fmt.Errorf("inserting candle: %w", err)
		}
	}

	return tx.Commit()
}

// GetCandles returns candles for a symbol and timeframe in a time range,
// oldest first.
func (s *SQLiteStore) GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC`,
		symbol, timeframe, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying candles: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scanning candle: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// LogTrade records an executed trade.
func (s *SQLiteStore) LogTrade(ctx context.Context, trade models.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trades (id, timestamp, symbol, exchange, side, quantity, price, brokerage, pnl, pnl_percent, strategy, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.Timestamp, trade.Symbol, string(trade.Exchange), string(trade.Side),
		trade.Quantity, trade.Price, trade.Brokerage, trade.PnL, trade.PnLPercent, trade.Strategy, trade.Reason)
	if err != nil {
		return fmt.Errorf("logging trade: %w", err)
	}
	return nil
}

// GetTrades returns trades matching the filter, newest first.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := `SELECT id, timestamp, symbol, exchange, side, quantity, price, brokerage, pnl, pnl_percent, strategy, reason FROM trades`
	var conds []string
	var args []interface{}

	if filter.Symbol != "" {
		conds = append(conds, "symbol = ?")
		args = append(args, filter.Symbol)
	}
	if filter.Side != "" {
		conds = append(conds, "side = ?")
		args = append(args, filter.Side)
	}
	if !filter.StartDate.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		conds = append(conds, "timestamp <= ?")
		args = append(args, filter.EndDate)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var exchange, side string
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.Symbol, &exchange, &side,
			&t.Quantity, &t.Price, &t.Brokerage, &t.PnL, &t.PnLPercent, &t.Strategy, &t.Reason); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		t.Exchange = models.Exchange(exchange)
		t.Side = models.OrderSide(side)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// SaveDayStats records one day's roll-up.
func (s *SQLiteStore) SaveDayStats(ctx context.Context, stats models.DayStats) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO daily_stats (date, trades, wins, losses, gross_pnl, net_pnl, win_rate, end_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stats.Date.Format("2006-01-02"), stats.Trades, stats.Wins, stats.Losses,
		stats.GrossPnL, stats.NetPnL, stats.WinRate, stats.EndValue)
	if err != nil {
		return fmt.Errorf("saving day stats: %w", err)
	}
	return nil
}

// GetDayStats returns daily roll-ups in a date range, oldest first.
func (s *SQLiteStore) GetDayStats(ctx context.Context, from, to time.Time) ([]models.DayStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, trades, wins, losses, gross_pnl, net_pnl, win_rate, end_value
		FROM daily_stats
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC`,
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("querying day stats: %w", err)
	}
	defer rows.Close()

	var out []models.DayStats
	for rows.Next() {
		var st models.DayStats
		var date string
		if err := rows.Scan(&date, &st.Trades, &st.Wins, &st.Losses,
			&st.GrossPnL, &st.NetPnL, &st.WinRate, &st.EndValue); err != nil {
			return nil, fmt.Errorf("scanning day stats: %w", err)
		}
		st.Date, _ = time.Parse("2006-01-02", date)
		out = append(out, st)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements DataStore.
var _ DataStore = (*SQLiteStore)(nil)
