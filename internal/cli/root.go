// Package cli is the wabroker command line: the server itself and a thin
// client for its HTTP API.
package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"wabroker/internal/client"
)

var (
	serverURL string
	token     string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "wabroker",
	Short:         "WhatsApp Web message and poll dispatch service",
	Long:          "wabroker keeps one WhatsApp Web session open and exposes an HTTP API for sending messages and polls. The client commands talk to a running server.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&serverURL, "server", client.DefaultServer, "wabroker server URL")
	pf.StringVar(&token, "token", os.Getenv("WABROKER_TOKEN"), "bearer token (default $WABROKER_TOKEN)")
	pf.DurationVar(&timeout, "timeout", client.DefaultTimeout, "per-request timeout")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func newClient() (*client.Client, error) {
	return client.New(serverURL, client.WithToken(token), client.WithTimeout(timeout))
}
