package cli

import (
	"github.com/spf13/cobra"

	"intraday-trader/internal/broker"
)

// newLoginCmd creates the broker authentication commands.
func newLoginCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the Zerodha Kite API",
		Long: `Establishes a Kite session for market data. With user id, password and
TOTP secret in credentials.toml the login is fully automatic; otherwise
the printed login URL must be visited and the request token passed to
'login complete'. Sessions expire at 6 AM IST the next day.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			kb := newKiteBroker(app)
			if err := kb.Login(cmd.Context()); err != nil {
				return err
			}
			output.Success("✓ Logged in")
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "complete <request_token>",
		Short: "Complete a manual login with the request token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			kb := newKiteBroker(app)
			if err := kb.CompleteLogin(cmd.Context(), args[0]); err != nil {
				return err
			}
			output.Success("✓ Session established")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			kb := newKiteBroker(app)
			authenticated := kb.IsAuthenticated()
			if output.IsJSON() {
				return output.JSON(map[string]bool{"authenticated": authenticated})
			}
			if authenticated {
				output.Success("✓ Session valid")
			} else {
				output.Warning("No valid session, run 'trader login'")
			}
			return nil
		},
	})

	return cmd
}

func newKiteBroker(app *App) *broker.KiteBroker {
	creds := app.Config.Credentials.Zerodha
	return broker.NewKiteBroker(broker.KiteConfig{
		APIKey:     creds.APIKey,
		APISecret:  creds.APISecret,
		UserID:     creds.UserID,
		Password:   creds.Password,
		TOTPSecret: creds.TOTPSecret,
	})
}
