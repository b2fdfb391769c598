// Package cmd provides the CLI commands for fulfild.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gatherline/fulfil/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fulfild",
	Short: "fulfild - fulfilment session engine",
	Long: `fulfild runs the server-authoritative fulfilment session engine.

A fulfilment session walks a buyer through an ordered sequence of
completion steps (payment, form submission, waitlist signup) for a
transaction. The engine owns the step sequence, gates forward
navigation on step completion, and expires abandoned sessions.

Quick start:
  1. Create a config file: fulfild.yaml
  2. Run: fulfild start

Configuration:
  Config is loaded from fulfild.yaml in the current directory,
  $HOME/.fulfild/, or /etc/fulfild/.

  Environment variables can override config values with the FULFILD_ prefix.
  Example: FULFILD_SERVER_HTTP_ADDR=:9090

Commands:
  start       Start the engine server
  purge       Remove expired sessions from a sqlite store
  config      Print the effective configuration as YAML
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./fulfild.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
