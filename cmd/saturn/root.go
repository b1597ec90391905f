package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "saturn",
	Short: "Saturn - budget admission control for lead generation",
	Long: `Saturn is a budget-constrained admission control and cost accounting
engine for lead-generation workloads.

It gates every billable operation (scraping, enrichment, messaging) against
per-account daily and monthly budgets, records realized costs to a durable
audit trail, and raises alerts as budgets approach exhaustion.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
