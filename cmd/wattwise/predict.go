package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var predictChart string

var predictCmd = &cobra.Command{
	Use:   "predict <bill1> <bill2> <bill3>",
	Short: "Forecast next month's bill from the last three, oldest first",
	Args:  cobra.ExactArgs(3),
	RunE:  runPredict,
}

func init() {
	predictCmd.Flags().StringVar(&predictChart, "chart", "", "also write the bill trend chart to this PNG file")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	bills := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("bill %d is not a number: %q", i+1, a)
		}
		bills[i] = v
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	c := newClient()
	p, err := c.Predict(ctx, bills)
	if err != nil {
		return fmt.Errorf("predicting bill: %w", err)
	}
	printPrediction(cmd.OutOrStdout(), p)

	if predictChart != "" {
		png, err := c.PredictChart(ctx, bills)
		if err != nil {
			return fmt.Errorf("rendering chart: %w", err)
		}
		if err := os.WriteFile(predictChart, png, 0644); err != nil {
			return fmt.Errorf("writing chart: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", predictChart)
	}
	return nil
}
