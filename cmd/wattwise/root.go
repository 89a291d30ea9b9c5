package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/wattwise/pkg/client"
)

// requestTimeout bounds a single CLI request.
const requestTimeout = 90 * time.Second

var (
	daemonURL string
	retries   int
)

var rootCmd = &cobra.Command{
	Use:   "wattwise",
	Short: "Track household appliance usage and forecast electricity bills",
	Long: `wattwise talks to a running wattwise-d daemon to manage the appliance
ledger, predict next month's bill, print usage and savings reports, and chat
with the energy assistant.`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&daemonURL, "url", envOrDefault("WATTWISE_URL", "http://127.0.0.1:5000"), "wattwise-d base URL")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 2, "retries for read requests on network errors")
}

// newClient returns an SDK client for the configured daemon.
func newClient() *client.Client {
	return client.NewClient(daemonURL,
		client.WithRetries(retries, client.DefaultBackoff()),
	)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
