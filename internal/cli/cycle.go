package cli

import (
	"github.com/spf13/cobra"
)

// newCycleCmd creates the single evaluation cycle command.
func newCycleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cycle",
		Short: "Run a single evaluation cycle",
		Long: `Fetches quotes for the configured symbols, evaluates the fused
strategy once and executes any resulting trades against the paper
ledger. Useful for cron-driven setups and debugging.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			output := NewOutput(cmd)

			sess, err := buildSession(ctx, app, true)
			if err != nil {
				return err
			}
			if err := runOneCycle(ctx, app, sess, output); err != nil {
				return err
			}

			m := sess.engine.GetMetrics()
			if output.IsJSON() {
				return output.JSON(m)
			}
			output.Dim("Cash %s  Portfolio %s  Open positions %d",
				FormatIndianCurrency(m.Ledger.Cash),
				FormatIndianCurrency(m.Ledger.PortfolioValue),
				m.Ledger.OpenPositions)
			return nil
		},
	}
}
