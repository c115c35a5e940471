package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "loader",
	Short: "TelHawk log loader",
	Long: `loader ingests raw log batches from object storage and log streams,
normalizes them into ECS-shaped documents, and bulk-indexes them into
the configured search backends.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
}
