// Package cmd implements the clickchat command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "clickchat",
	Short: "ClickChat - a task-management chat assistant",
	Long: `ClickChat wires a hosted LLM to your task-management workspace over MCP.
Conversations are stored locally in sqlite and can be resumed at any time.

Running clickchat with no arguments starts the interactive chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
