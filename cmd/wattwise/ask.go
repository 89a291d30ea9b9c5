package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askConversation string
	askInteractive  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the energy assistant a question",
	Long: `Sends a question to the energy assistant. With --interactive, starts a new
conversation and reads questions from stdin until EOF or "exit".`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askConversation, "conversation", "", "conversation id to continue (default: shared)")
	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "chat interactively in a fresh conversation")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	c := newClient()
	out := cmd.OutOrStdout()

	if !askInteractive {
		if len(args) == 0 {
			return fmt.Errorf("a question is required")
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		reply, err := c.Ask(ctx, askConversation, strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("asking: %w", err)
		}
		fmt.Fprintln(out, reply.Response)
		return nil
	}

	id, err := c.NewConversation(cmd.Context())
	if err != nil {
		return fmt.Errorf("starting conversation: %w", err)
	}
	defer c.EndConversation(context.Background(), id)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		q := strings.TrimSpace(scanner.Text())
		if q == "" {
			continue
		}
		if q == "exit" || q == "quit" {
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		reply, err := c.Ask(ctx, id, q)
		cancel()
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, reply.Response)
	}
}
