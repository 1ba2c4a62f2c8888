package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"intraday-trader/pkg/utils"
)

// newStatusCmd creates the portfolio and guard status command. It works
// entirely from persisted state and needs no broker session.
func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show portfolio, performance and discipline status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			sess, err := buildSession(cmd.Context(), app, false)
			if err != nil {
				return err
			}

			m := sess.engine.GetMetrics()
			if output.IsJSON() {
				return output.JSON(m)
			}

			output.Printf("Market: %s\n\n", output.MarketStatus(string(utils.GetMarketStatus())))

			output.Bold("Portfolio")
			output.Printf("  Cash:            %s\n", FormatIndianCurrency(m.Ledger.Cash))
			output.Printf("  Portfolio Value: %s\n", FormatIndianCurrency(m.Ledger.PortfolioValue))
			output.Printf("  Total P&L:       %s\n", output.FormatPnL(m.Ledger.TotalPnL))
			output.Println()

			output.Bold("Performance")
			output.Printf("  Trades:          %d (%d W / %d L)\n", m.Ledger.TotalTrades, m.Ledger.Wins, m.Ledger.Losses)
			output.Printf("  Win Rate:        %.1f%%\n", m.Ledger.WinRate)
			output.Printf("  Avg Win:         %s\n", FormatIndianCurrency(m.Ledger.AvgWin))
			output.Printf("  Avg Loss:        %s\n", FormatIndianCurrency(m.Ledger.AvgLoss))
			output.Printf("  Profit Factor:   %.2f\n", m.Ledger.ProfitFactor)
			output.Println()

			output.Bold("Discipline")
			output.Printf("  State:           %s\n", sess.guard.State(time.Now()))
			output.Printf("  Score:           %.0f/100\n", m.Guard.DisciplineScore)
			output.Printf("  Trades Today:    %d\n", m.Guard.DailyTrades)
			output.Printf("  Day P&L:         %s\n", output.FormatPnL(m.Guard.DayPnL))
			if m.Guard.Halted {
				output.Error("  Trading is HALTED for the day")
			}
			output.Println()

			positions := sess.portfolio.Positions()
			if len(positions) > 0 {
				output.Bold("Open Positions")
				table := NewTable(output, "SYMBOL", "QTY", "AVG", "STOP", "TARGET")
				for sym, pos := range positions {
					table.AddRow(sym,
						fmt.Sprintf("%d", pos.Quantity),
						FormatIndianCurrency(pos.AveragePrice),
						FormatIndianCurrency(pos.StopLoss),
						FormatIndianCurrency(pos.Target))
				}
				table.Render()
			}

			return nil
		},
	}
}
