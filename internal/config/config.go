// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Trading     TradingConfig  `mapstructure:"trading"`
	Strategy    StrategyConfig `mapstructure:"strategy"`
	Fusion      FusionConfig   `mapstructure:"fusion"`
	Guard       GuardConfig    `mapstructure:"guard"`
	Ledger      LedgerConfig   `mapstructure:"ledger"`
	Broker      BrokerConfig   `mapstructure:"broker"`
	UI          UIConfig       `mapstructure:"ui"`
	Credentials Credentials    `mapstructure:"-"` // Loaded separately
}

// TradingConfig holds session-level trading configuration.
type TradingConfig struct {
	Symbols         []string `mapstructure:"symbols"`
	Exchange        string   `mapstructure:"exchange"`
	CycleSeconds    int      `mapstructure:"cycle_seconds"`
	CandleWindow    int      `mapstructure:"candle_window"`
	SquareOffAtEOD  bool     `mapstructure:"square_off_at_eod"`
	MarketHoursOnly bool     `mapstructure:"market_hours_only"`
	StateDir        string   `mapstructure:"state_dir"`
}

// StrategyConfig holds range strategy parameters.
type StrategyConfig struct {
	MinProfitMargin     float64 `mapstructure:"min_profit_margin"`
	BuyThreshold        float64 `mapstructure:"buy_threshold"`
	SellThreshold       float64 `mapstructure:"sell_threshold"`
	MinRiskReward       float64 `mapstructure:"min_risk_reward"`
	StopLossPercent     float64 `mapstructure:"stop_loss_percent"`
	PositionSizePercent float64 `mapstructure:"position_size_percent"`
}

// FusionConfig holds signal fusion weights and gates.
type FusionConfig struct {
	PatternWeight       float64 `mapstructure:"pattern_weight"`
	TrendWeight         float64 `mapstructure:"trend_weight"`
	SentimentWeight     float64 `mapstructure:"sentiment_weight"`
	PredictionWeight    float64 `mapstructure:"prediction_weight"`
	LevelsWeight        float64 `mapstructure:"levels_weight"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// GuardConfig holds psychology guard limits.
type GuardConfig struct {
	MaxDailyTrades       int     `mapstructure:"max_daily_trades"`
	ConsecutiveLossLimit int     `mapstructure:"consecutive_loss_limit"`
	CooldownMinutes      int     `mapstructure:"cooldown_minutes"`
	WinStreakThreshold   int     `mapstructure:"win_streak_threshold"`
	MaxDrawdownPercent   float64 `mapstructure:"max_drawdown_percent"`
	FOMOWindowMinutes    int     `mapstructure:"fomo_window_minutes"`
}

// LedgerConfig holds paper trading ledger parameters.
type LedgerConfig struct {
	InitialCapital    float64 `mapstructure:"initial_capital"`
	BrokeragePerTrade float64 `mapstructure:"brokerage_per_trade"`
}

// BrokerConfig holds market data client parameters.
type BrokerConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	MaxRetries        int     `mapstructure:"max_retries"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	Zerodha ZerodhaCredentials `mapstructure:"zerodha"`
}

// ZerodhaCredentials holds Zerodha API credentials.
type ZerodhaCredentials struct {
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	UserID     string `mapstructure:"user_id"`
	Password   string `mapstructure:"password"`    // For auto-login
	TOTPSecret string `mapstructure:"totp_secret"` // For auto-login with 2FA
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/intraday-trader"
	}
	return filepath.Join(home, ".config", "intraday-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			return createTemplateConfig(configDir, name)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZERODHA_API_KEY"); v != "" {
		cfg.Credentials.Zerodha.APIKey = v
	}
	if v := os.Getenv("ZERODHA_API_SECRET"); v != "" {
		cfg.Credentials.Zerodha.APISecret = v
	}
	if v := os.Getenv("ZERODHA_USER_ID"); v != "" {
		cfg.Credentials.Zerodha.UserID = v
	}
	if v := os.Getenv("TRADER_STATE_DIR"); v != "" {
		cfg.Trading.StateDir = v
	}
}

// applyDefaults fills zero-valued parameters with the documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Trading.Exchange == "" {
		cfg.Trading.Exchange = "NSE"
	}
	if cfg.Trading.CycleSeconds == 0 {
		cfg.Trading.CycleSeconds = 60
	}
	if cfg.Trading.CandleWindow == 0 {
		cfg.Trading.CandleWindow = 100
	}
	if cfg.Trading.StateDir == "" {
		cfg.Trading.StateDir = filepath.Join(DefaultConfigDir(), "state")
	}

	if cfg.Strategy.MinProfitMargin == 0 {
		cfg.Strategy.MinProfitMargin = 1.0
	}
	if cfg.Strategy.BuyThreshold == 0 {
		cfg.Strategy.BuyThreshold = 0.3
	}
	if cfg.Strategy.SellThreshold == 0 {
		cfg.Strategy.SellThreshold = 0.7
	}
	if cfg.Strategy.MinRiskReward == 0 {
		cfg.Strategy.MinRiskReward = 2.0
	}
	if cfg.Strategy.StopLossPercent == 0 {
		cfg.Strategy.StopLossPercent = 2.0
	}
	if cfg.Strategy.PositionSizePercent == 0 {
		cfg.Strategy.PositionSizePercent = 10.0
	}

	if cfg.Fusion.PatternWeight == 0 {
		cfg.Fusion.PatternWeight = 0.20
	}
	if cfg.Fusion.TrendWeight == 0 {
		cfg.Fusion.TrendWeight = 0.25
	}
	if cfg.Fusion.SentimentWeight == 0 {
		cfg.Fusion.SentimentWeight = 0.15
	}
	if cfg.Fusion.PredictionWeight == 0 {
		cfg.Fusion.PredictionWeight = 0.30
	}
	if cfg.Fusion.LevelsWeight == 0 {
		cfg.Fusion.LevelsWeight = 0.10
	}
	if cfg.Fusion.ConfidenceThreshold == 0 {
		cfg.Fusion.ConfidenceThreshold = 0.60
	}

	if cfg.Guard.MaxDailyTrades == 0 {
		cfg.Guard.MaxDailyTrades = 5
	}
	if cfg.Guard.ConsecutiveLossLimit == 0 {
		cfg.Guard.ConsecutiveLossLimit = 3
	}
	if cfg.Guard.CooldownMinutes == 0 {
		cfg.Guard.CooldownMinutes = 15
	}
	if cfg.Guard.WinStreakThreshold == 0 {
		cfg.Guard.WinStreakThreshold = 3
	}
	if cfg.Guard.MaxDrawdownPercent == 0 {
		cfg.Guard.MaxDrawdownPercent = 5.0
	}
	if cfg.Guard.FOMOWindowMinutes == 0 {
		cfg.Guard.FOMOWindowMinutes = 5
	}

	if cfg.Ledger.InitialCapital == 0 {
		cfg.Ledger.InitialCapital = 100000.0
	}
	if cfg.Ledger.BrokeragePerTrade == 0 {
		cfg.Ledger.BrokeragePerTrade = 20.0
	}

	if cfg.Broker.RequestsPerSecond == 0 {
		cfg.Broker.RequestsPerSecond = 3.0
	}
	if cfg.Broker.MaxRetries == 0 {
		cfg.Broker.MaxRetries = 3
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Strategy.PositionSizePercent < 0 || c.Strategy.PositionSizePercent > 100 {
		return fmt.Errorf("position_size_percent must be between 0 and 100")
	}
	if c.Strategy.BuyThreshold < 0 || c.Strategy.BuyThreshold > 1 {
		return fmt.Errorf("buy_threshold must be between 0 and 1")
	}
	if c.Strategy.SellThreshold < 0 || c.Strategy.SellThreshold > 1 {
		return fmt.Errorf("sell_threshold must be between 0 and 1")
	}
	if c.Strategy.BuyThreshold >= c.Strategy.SellThreshold {
		return fmt.Errorf("buy_threshold must be below sell_threshold")
	}
	if c.Strategy.MinRiskReward < 0 {
		return fmt.Errorf("min_risk_reward must be non-negative")
	}
	if c.Fusion.ConfidenceThreshold < 0 || c.Fusion.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0 and 1")
	}
	if c.Guard.MaxDrawdownPercent < 0 || c.Guard.MaxDrawdownPercent > 100 {
		return fmt.Errorf("max_drawdown_percent must be between 0 and 100")
	}
	if c.Ledger.InitialCapital < 0 {
		return fmt.Errorf("initial_capital must be non-negative")
	}
	if c.Broker.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive")
	}
	return nil
}

// StatePath returns the path of a state file under the configured state dir.
func (c *Config) StatePath(name string) string {
	return filepath.Join(c.Trading.StateDir, name)
}
