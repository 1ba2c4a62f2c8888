package cli

import (
	"context"
	"fmt"
	"time"

	"intraday-trader/internal/ai/patterns"
	"intraday-trader/internal/ai/predict"
	"intraday-trader/internal/ai/psychology"
	"intraday-trader/internal/ai/sentiment"
	"intraday-trader/internal/broker"
	"intraday-trader/internal/candles"
	"intraday-trader/internal/ledger"
	"intraday-trader/internal/models"
	"intraday-trader/internal/strategy"
	"intraday-trader/internal/trading"
)

// session bundles the assembled engine with the components commands need
// to inspect directly.
type session struct {
	engine    *trading.Engine
	portfolio *ledger.Portfolio
	guard     *psychology.Guard
}

// buildSession wires the full trading stack from configuration. When
// needMarket is set the Kite session must be valid; offline commands such
// as status and reset-day pass false.
func buildSession(ctx context.Context, app *App, needMarket bool) (*session, error) {
	cfg := app.Config

	var market broker.MarketData
	if needMarket {
		kb := broker.NewKiteBroker(broker.KiteConfig{
			APIKey:     cfg.Credentials.Zerodha.APIKey,
			APISecret:  cfg.Credentials.Zerodha.APISecret,
			UserID:     cfg.Credentials.Zerodha.UserID,
			Password:   cfg.Credentials.Zerodha.Password,
			TOTPSecret: cfg.Credentials.Zerodha.TOTPSecret,
		})
		if err := kb.Login(ctx); err != nil {
			return nil, fmt.Errorf("broker login: %w", err)
		}
		market = broker.NewThrottled(kb, cfg.Broker.RequestsPerSecond)
	}

	recognizer := patterns.NewRecognizer(cfg.StatePath("patterns.json"), app.Logger)
	analyzer := sentiment.NewAnalyzer(cfg.StatePath("sentiment.json"), app.Logger)
	model := predict.NewModel(cfg.StatePath("predict.json"), app.Logger)

	guard := psychology.NewGuard(psychology.Limits{
		MaxDailyTrades:       cfg.Guard.MaxDailyTrades,
		ConsecutiveLossLimit: cfg.Guard.ConsecutiveLossLimit,
		Cooldown:             time.Duration(cfg.Guard.CooldownMinutes) * time.Minute,
		WinStreakThreshold:   cfg.Guard.WinStreakThreshold,
		MaxDrawdownPercent:   cfg.Guard.MaxDrawdownPercent,
		FOMOWindow:           time.Duration(cfg.Guard.FOMOWindowMinutes) * time.Minute,
	}, cfg.StatePath("guard.json"), app.Logger)

	portfolio := ledger.NewPortfolio(cfg.Ledger.InitialCapital, cfg.Ledger.BrokeragePerTrade,
		cfg.StatePath("ledger.json"), app.Logger)

	base := strategy.NewRangeStrategy(strategy.RangeParams{
		MinProfitMargin: cfg.Strategy.MinProfitMargin,
		BuyThreshold:    cfg.Strategy.BuyThreshold,
		SellThreshold:   cfg.Strategy.SellThreshold,
		MinRiskReward:   cfg.Strategy.MinRiskReward,
		StopLossPercent: cfg.Strategy.StopLossPercent,
	})
	fused := strategy.NewFusedStrategy(base, recognizer, analyzer, model, strategy.FusionWeights{
		Pattern:             cfg.Fusion.PatternWeight,
		Trend:               cfg.Fusion.TrendWeight,
		Sentiment:           cfg.Fusion.SentimentWeight,
		Prediction:          cfg.Fusion.PredictionWeight,
		Levels:              cfg.Fusion.LevelsWeight,
		ConfidenceThreshold: cfg.Fusion.ConfidenceThreshold,
	})

	sizer := trading.NewSizer(cfg.Strategy.PositionSizePercent, cfg.Ledger.BrokeragePerTrade)
	window := candles.NewWindow(cfg.Trading.CandleWindow)

	var journal trading.Journal
	if app.Store != nil {
		journal = app.Store
	}

	engine := trading.NewEngine(trading.Options{
		Symbols:        cfg.Trading.Symbols,
		Exchange:       models.Exchange(cfg.Trading.Exchange),
		MaxRetries:     cfg.Broker.MaxRetries,
		SquareOffAtEOD: cfg.Trading.SquareOffAtEOD,
	}, market, fused, portfolio, guard, window, recognizer, analyzer, model, sizer, journal, app.Logger)

	return &session{
		engine:    engine,
		portfolio: portfolio,
		guard:     guard,
	}, nil
}
