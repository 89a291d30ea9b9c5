package main

import (
	"github.com/spf13/cobra"

	"github.com/rmax-ai/wattwise/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve wattwise tools to an MCP client over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcp.NewServer(daemonURL).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
