package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	apperrors "intraday-trader/internal/errors"
	"intraday-trader/internal/store"
)

// newTradesCmd creates the trade journal listing command.
func newTradesCmd(app *App) *cobra.Command {
	var symbol string
	var side string
	var limit int
	var days int

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List executed trades from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return apperrors.New("journal unavailable")
			}

			filter := store.TradeFilter{
				Symbol: symbol,
				Side:   side,
				Limit:  limit,
			}
			if days > 0 {
				filter.StartDate = time.Now().AddDate(0, 0, -days)
			}

			trades, err := app.Store.GetTrades(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Dim("No trades recorded")
				return nil
			}

			table := NewTable(output, "TIME", "SYMBOL", "SIDE", "QTY", "PRICE", "P&L", "REASON")
			for _, t := range trades {
				pnl := ""
				if t.Side == "SELL" {
					pnl = output.FormatPnL(t.PnL)
				}
				table.AddRow(
					t.Timestamp.Format("02 Jan 15:04"),
					t.Symbol,
					string(t.Side),
					fmt.Sprintf("%d", t.Quantity),
					FormatIndianCurrency(t.Price),
					pnl,
					t.Reason,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	cmd.Flags().StringVar(&side, "side", "", "filter by side (BUY/SELL)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum trades to show")
	cmd.Flags().IntVar(&days, "days", 0, "only trades from the last N days")
	return cmd
}

// newHistoryCmd creates the daily performance history command.
func newHistoryCmd(app *App) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show daily performance roll-ups",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return apperrors.New("journal unavailable")
			}

			to := time.Now()
			from := to.AddDate(0, 0, -days)
			stats, err := app.Store.GetDayStats(cmd.Context(), from, to)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(stats)
			}
			if len(stats) == 0 {
				output.Dim("No daily roll-ups recorded")
				return nil
			}

			table := NewTable(output, "DATE", "TRADES", "W/L", "NET P&L", "WIN%", "END VALUE")
			for _, d := range stats {
				table.AddRow(
					d.Date.Format("02 Jan 2006"),
					fmt.Sprintf("%d", d.Trades),
					fmt.Sprintf("%d/%d", d.Wins, d.Losses),
					output.FormatPnL(d.NetPnL),
					fmt.Sprintf("%.0f%%", d.WinRate),
					FormatIndianCurrency(d.EndValue),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "number of days to show")
	return cmd
}
