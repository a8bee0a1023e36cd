package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wabroker/internal/app"
	"wabroker/internal/config"
)

const stopTimeout = 10 * time.Second

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dispatch server",
	Long:  "Opens the WhatsApp Web session (pairing by QR code on first run) and serves the HTTP API until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := app.NewApp(configPath)
		if err != nil {
			return err
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)

		ctx := cmd.Context()
		if err := a.Start(ctx); err != nil {
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			_ = a.Stop(stopCtx, app.StopFatalError)
			return err
		}

		reason := app.StopAppStop
		select {
		case sig := <-sigs:
			reason = app.StopReasonFor(sig)
		case <-a.Done():
			if a.Err() != nil {
				reason = app.StopFatalError
			}
		}

		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = a.Stop(stopCtx, reason)
		if reason == app.StopFatalError {
			return a.Err()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "path to config file (json or yaml)")
}
