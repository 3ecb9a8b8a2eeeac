package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName    = "mmbroker"
	appVersion = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Cross-context media picker broker",
	Long: `mmbroker opens a media manager in its own browser window and hands the
file the user picks back to the caller.

  - pick / video: open a picker and print the selection as JSON
  - mcp: MCP server exposing the pickers to AI coding assistants
  - picker: Go-side picker for exercising a running opener
  - query: the launch-parameter codec`,
	Version: appVersion,
	// Default behavior: if stdin is not a terminal, run as MCP server
	Run: func(cmd *cobra.Command, args []string) {
		if !isTerminal(os.Stdin) {
			runMCP(cmd, args)
		} else {
			cmd.Help()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: nearest mmbroker.kdl, then global config)")

	// Add subcommands
	rootCmd.AddCommand(pickCmd)
	rootCmd.AddCommand(videoCmd)
	rootCmd.AddCommand(pickerCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)

	// Version template
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s v%s\n", appName, appVersion))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
