package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show each appliance's share of daily hours",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		r, err := newClient().Report(ctx)
		if err != nil {
			return fmt.Errorf("fetching report: %w", err)
		}
		printHours(cmd.OutOrStdout(), r)
		return nil
	},
}

var analysisCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Show estimated daily cost per appliance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		r, err := newClient().Analysis(ctx)
		if err != nil {
			return fmt.Errorf("fetching analysis: %w", err)
		}
		printCost(cmd.OutOrStdout(), r)
		return nil
	},
}

var savingsCmd = &cobra.Command{
	Use:   "savings",
	Short: "Show monthly savings from cutting each appliance to two hours a day",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		r, err := newClient().Savings(ctx)
		if err != nil {
			return fmt.Errorf("fetching savings: %w", err)
		}
		printSavings(cmd.OutOrStdout(), r)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd, analysisCmd, savingsCmd)
}
