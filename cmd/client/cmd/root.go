// cmd/client/cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"golang.org/x/exp/slog"

	"daylog/cmd/client/cmd/clientctx"
	"daylog/internal/app/client"
	"daylog/internal/app/client/config"
	"daylog/internal/utils/logger"

	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	log        *slog.Logger
	app        *client.App
	debug      bool
	jsonOutput bool
	serverURL  string
)

var rootCmd = &cobra.Command{
	Use:   "daylog",
	Short: "daylog - offline-first journal client",
	Long: `daylog is the command-line client for the daylog journal: timestamped
blocks for today, a short list of tasks for tomorrow, and settings, all kept
in sync across every device you're signed into.

Edits made offline are cached locally and pushed the next time the client
reaches the server; the server is always the final word on conflicts.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	cfg = config.MustLoad()

	if serverURL != "" {
		cfg.APIURL = serverURL
	}

	log = logger.New(cfg.Env)

	var err error
	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize client: %w", err)
	}

	cmd.SetContext(clientctx.With(cmd.Context(), app))
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "accepted but ignored; the log level follows APP_ENV")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "accepted but ignored; output is always plain text")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "override the configured daylog server URL")
}
