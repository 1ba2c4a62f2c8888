package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Intraday Trader Configuration

[trading]
# Symbols to trade (NSE trading symbols)
symbols = ["RELIANCE", "TCS", "INFY"]
# Exchange: NSE, BSE
exchange = "NSE"
# Seconds between evaluation cycles
cycle_seconds = 60
# Candles kept per symbol for signal generation
candle_window = 100
# Square off open positions at end of day
square_off_at_eod = true
# Only trade during market hours
market_hours_only = true

[strategy]
# Minimum profit margin as a percentage of price (entry and exit)
min_profit_margin = 1.0
# Buy when price is in the bottom fraction of the range
buy_threshold = 0.3
# Sell when price is in the top fraction of the range
sell_threshold = 0.7
# Minimum risk-reward ratio
min_risk_reward = 2.0
# Stop-loss percentage below entry
stop_loss_percent = 2.0
# Position size as percentage of portfolio
position_size_percent = 10.0

[fusion]
# Weights for combined confidence (normalized at load)
pattern_weight = 0.20
trend_weight = 0.25
sentiment_weight = 0.15
prediction_weight = 0.30
levels_weight = 0.10
# Minimum combined confidence to act on a range signal
confidence_threshold = 0.60

[guard]
# Maximum trades per day
max_daily_trades = 5
# Cool down after this many consecutive losses
consecutive_loss_limit = 3
# Cooldown duration in minutes
cooldown_minutes = 15
# Reduce size after this many consecutive wins
win_streak_threshold = 3
# Halt the day when drawdown from day start exceeds this percentage
max_drawdown_percent = 5.0
# Block entries this soon after the last trade
fomo_window_minutes = 5

[ledger]
# Starting virtual capital in INR
initial_capital = 100000.0
# Flat brokerage charged per executed trade in INR
brokerage_per_trade = 20.0

[broker]
# Market data request budget
requests_per_second = 3.0
# Retries before a symbol is skipped for the cycle
max_retries = 3

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"
`

const credentialsTemplate = `# Intraday Trader Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[zerodha]
api_key = ""
api_secret = ""
user_id = ""
password = ""
totp_secret = ""
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, created template at %s", path)
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return fmt.Errorf("credentials file not found, created template at %s", path)
}
