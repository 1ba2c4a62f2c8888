// Package cli provides the command-line interface for the trading application.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"intraday-trader/internal/config"
	"intraday-trader/internal/logging"
	"intraday-trader/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize SQLite journal
	dbPath := config.DefaultConfigDir() + "/trader.db"
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize journal, trades will not be recorded durably")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite journal initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "trader",
		Short: "Intraday Trader - decision-fusion paper trading CLI",
		Long: `Intraday Trader is a paper trading CLI for the Indian stock market.

It fuses a range breakout strategy with pattern recognition, sentiment
tracking and a self-calibrating predictive model, guarded by behavioural
limits, and executes against a simulated ledger.

Use 'trader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/intraday-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newLoginCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newCycleCmd(app))
	rootCmd.AddCommand(newStatusCmd(app))
	rootCmd.AddCommand(newResetDayCmd(app))
	rootCmd.AddCommand(newTradesCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Intraday Trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Trading Configuration")
	output.Printf("  Symbols:          %v\n", cfg.Trading.Symbols)
	output.Printf("  Exchange:         %s\n", cfg.Trading.Exchange)
	output.Printf("  Cycle Interval:   %ds\n", cfg.Trading.CycleSeconds)
	output.Printf("  Candle Window:    %d\n", cfg.Trading.CandleWindow)
	output.Printf("  EOD Square-off:   %v\n", cfg.Trading.SquareOffAtEOD)
	output.Println()

	output.Bold("Range Strategy")
	output.Printf("  Min Profit:       %.1f%%\n", cfg.Strategy.MinProfitMargin)
	output.Printf("  Buy Threshold:    %.2f\n", cfg.Strategy.BuyThreshold)
	output.Printf("  Sell Threshold:   %.2f\n", cfg.Strategy.SellThreshold)
	output.Printf("  Min Risk/Reward:  %.1f\n", cfg.Strategy.MinRiskReward)
	output.Printf("  Stop Loss:        %.1f%%\n", cfg.Strategy.StopLossPercent)
	output.Printf("  Position Size:    %.1f%%\n", cfg.Strategy.PositionSizePercent)
	output.Println()

	output.Bold("Signal Fusion")
	output.Printf("  Weights:          pattern %.2f  trend %.2f  sentiment %.2f  prediction %.2f  levels %.2f\n",
		cfg.Fusion.PatternWeight, cfg.Fusion.TrendWeight, cfg.Fusion.SentimentWeight,
		cfg.Fusion.PredictionWeight, cfg.Fusion.LevelsWeight)
	output.Printf("  Threshold:        %.2f\n", cfg.Fusion.ConfidenceThreshold)
	output.Println()

	output.Bold("Psychology Guard")
	output.Printf("  Max Daily Trades: %d\n", cfg.Guard.MaxDailyTrades)
	output.Printf("  Loss Limit:       %d consecutive\n", cfg.Guard.ConsecutiveLossLimit)
	output.Printf("  Cooldown:         %d min\n", cfg.Guard.CooldownMinutes)
	output.Printf("  Max Drawdown:     %.1f%%\n", cfg.Guard.MaxDrawdownPercent)
	output.Println()

	output.Bold("Paper Ledger")
	output.Printf("  Initial Capital:  %s\n", FormatIndianCurrency(cfg.Ledger.InitialCapital))
	output.Printf("  Brokerage/Trade:  %s\n", FormatIndianCurrency(cfg.Ledger.BrokeragePerTrade))

	return nil
}
