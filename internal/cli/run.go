package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"intraday-trader/internal/models"
	"intraday-trader/pkg/utils"
)

// newRunCmd creates the continuous trading session command.
func newRunCmd(app *App) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading session loop",
		Long: `Runs evaluation cycles at the configured interval until the market
closes or the process is interrupted. Each cycle fetches quotes for the
configured symbols, evaluates the fused strategy and executes against
the paper ledger. At market close the daily state is reset.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			output := NewOutput(cmd)

			sess, err := buildSession(ctx, app, true)
			if err != nil {
				return err
			}

			interval := time.Duration(app.Config.Trading.CycleSeconds) * time.Second
			output.Info("Session started: %v every %s", app.Config.Trading.Symbols, interval)

			if once {
				return runOneCycle(ctx, app, sess, output)
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					output.Warning("Session interrupted")
					return nil
				case now := <-ticker.C:
					status := utils.MarketStatusAt(now)
					if app.Config.Trading.MarketHoursOnly && status != models.MarketOpen {
						if status == models.MarketClosed && utils.GetMarketClose().Before(now) {
							return endSession(ctx, app, sess, output, now)
						}
						app.Logger.Debug().Str("status", string(status)).Msg("Market not open, idle")
						continue
					}
					if err := runOneCycle(ctx, app, sess, output); err != nil {
						output.Error("Cycle failed: %v", err)
						return err
					}
				}
			}
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	return cmd
}

func runOneCycle(ctx context.Context, app *App, sess *session, output *Output) error {
	now := time.Now()
	trades, err := sess.engine.RunCycle(ctx, now)
	if err != nil {
		return err
	}
	for _, t := range trades {
		output.Printf("%s %s %s %d @ %s",
			now.Format("15:04:05"), t.Side, t.Symbol, t.Quantity, FormatIndianCurrency(t.Price))
		if t.Side == models.OrderSideSell {
			output.Printf("  pnl %s", output.FormatPnL(t.PnL))
		}
		output.Println()
	}
	return nil
}

func endSession(ctx context.Context, app *App, sess *session, output *Output, now time.Time) error {
	stats, err := sess.engine.ResetDailyState(ctx, now)
	if err != nil {
		return err
	}
	output.Info("Market closed, day rolled up: %d trades, net %s",
		stats.Trades, output.FormatPnL(stats.NetPnL))
	return nil
}
