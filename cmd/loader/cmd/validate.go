package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-loader/internal/logtypes"
)

var validateCmd = &cobra.Command{
	Use:   "validate <logtypes.yaml>",
	Short: "Validate a log type table",
	Long: `Parse a log type definition file and report problems: unknown
formats, uncompilable patterns, duplicate names, bad rotation policies.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	table, err := logtypes.Load(args[0])
	if err != nil {
		return err
	}

	for _, lt := range table.All() {
		route := "stream"
		if lt.S3Key != "" {
			route = "s3"
		}
		fmt.Printf("%-24s format=%-5s route=%-6s index=%s\n",
			lt.Name, lt.FileFormat, route, lt.IndexName)
	}
	fmt.Printf("\n%d log types OK\n", len(table.All()))
	return nil
}
