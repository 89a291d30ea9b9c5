package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var appliancesCmd = &cobra.Command{
	Use:     "appliances",
	Aliases: []string{"ls"},
	Short:   "List tracked appliances",
	Args:    cobra.NoArgs,
	RunE:    runAppliances,
}

var addCmd = &cobra.Command{
	Use:   "add <appliance> <hours>",
	Short: "Add an appliance or update its daily hours",
	Args:  cobra.ExactArgs(2),
	RunE:  runAdd,
}

var removeCmd = &cobra.Command{
	Use:     "remove <appliance>",
	Aliases: []string{"rm"},
	Short:   "Stop tracking an appliance",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

func init() {
	rootCmd.AddCommand(appliancesCmd, addCmd, removeCmd)
}

func runAppliances(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	entries, err := newClient().Appliances(ctx)
	if err != nil {
		return fmt.Errorf("listing appliances: %w", err)
	}
	printAppliances(cmd.OutOrStdout(), entries)
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	hours, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("hours must be a whole number: %q", args[1])
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	entries, err := newClient().AddAppliance(ctx, args[0], hours)
	if err != nil {
		return fmt.Errorf("adding %s: %w", args[0], err)
	}
	printAppliances(cmd.OutOrStdout(), entries)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	entries, err := newClient().RemoveAppliance(ctx, args[0])
	if err != nil {
		return fmt.Errorf("removing %s: %w", args[0], err)
	}
	printAppliances(cmd.OutOrStdout(), entries)
	return nil
}
