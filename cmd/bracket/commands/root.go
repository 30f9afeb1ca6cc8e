package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bracket",
	Short: "Bracket order engine",
	Long: `Bracket order engine CLI

Manages multi-leg conditional orders: entry plus stop-loss and up to
two take-profit targets, validated and reconciled against a server of
record.

Usage:
  go run ./cmd/bracket [command]

Examples:
  go run ./cmd/bracket serve
  go run ./cmd/bracket check --side buy --entry 45000 --stop 44000
  go run ./cmd/bracket test-db
  go run ./cmd/bracket test-logger`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
