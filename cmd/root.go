// Package cmd defines the taskpilot command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskpilot",
	Short: "taskpilot - a conversational task assistant",
	Long: `taskpilot is an AI-backed task assistant served over HTTP.

It keeps tasks and conversations in PostgreSQL and lets an LLM manage
them through a fixed set of tools. Run "taskpilot serve" to start the
API server.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
