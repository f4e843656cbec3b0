package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/nfrund/podclient/cmd/podctl/internal/format"
	"github.com/nfrund/podclient/internal/app"
	"github.com/nfrund/podclient/internal/config"
	"github.com/nfrund/podclient/internal/logging"
	"github.com/nfrund/podclient/internal/session"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	outputFormat string

	// fs holds the token directory. Tests swap it for an in-memory one.
	fs afero.Fs = afero.NewOsFs()
)

var rootCmd = &cobra.Command{
	Use:   "podctl",
	Short: "Command-line client for the pods network",
	Long: `podctl talks to the pods backend from the terminal.

Sign in once with "podctl login"; the token is kept in TOKEN_DIR
(default ~/.podclient) and reused by later commands.

Environment:
  APP_ENV      "production" selects the hosted backend
  API_URL      REST base URL outside production (default http://localhost:5000)
  WS_URL       realtime URL outside production (default ws://localhost:5000/ws)
  TOKEN_DIR    where the auth token is stored
  LOG_LEVEL    debug, info, warn or error
  LOG_FORMAT   text or json`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.New()
		if !format.Valid(outputFormat) {
			return fmt.Errorf("unsupported output format %q, use table or json", outputFormat)
		}
		return nil
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", format.Table, "Output format (table, json)")
}

// withApp builds the services, restores any saved session and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := app.Build(app.NewInjector(cfg, cmd.ErrOrStderr(), fs))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a.Session.Restore(ctx)
	return fn(ctx, a)
}

// requireLogin fails unless the session was restored.
func requireLogin(a *app.App) error {
	if a.Session.State() != session.Authenticated {
		return fmt.Errorf("not logged in, run \"podctl login\" first")
	}
	return nil
}
