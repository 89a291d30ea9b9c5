package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var eventsLimit int

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent ledger changes, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		events, err := newClient().GetEvents(ctx, eventsLimit)
		if err != nil {
			return fmt.Errorf("fetching events: %w", err)
		}
		printEvents(cmd.OutOrStdout(), events, time.Now())
		return nil
	},
}

func init() {
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 20, "number of events to show")
	rootCmd.AddCommand(eventsCmd)
}
