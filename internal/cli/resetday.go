package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// newResetDayCmd creates the daily state reset command.
func newResetDayCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-day",
		Short: "Roll up the day and reset intraday state",
		Long: `Closes out the trading day: squares off open positions per policy,
records the daily roll-up, and clears the guard and sentiment counters
for the next session. Learned pattern statistics and model weights
persist across days. Positions without a live price are squared off at
their average price.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			output := NewOutput(cmd)

			sess, err := buildSession(ctx, app, false)
			if err != nil {
				return err
			}

			stats, err := sess.engine.ResetDailyState(ctx, time.Now())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(stats)
			}
			output.Success("Day rolled up: %d trades (%d W / %d L), net %s",
				stats.Trades, stats.Wins, stats.Losses, output.FormatPnL(stats.NetPnL))
			output.Dim("End value: %s", FormatIndianCurrency(stats.EndValue))
			return nil
		},
	}
}
