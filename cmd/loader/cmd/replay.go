package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-loader/internal/config"
	"github.com/telhawk-systems/telhawk-loader/internal/intake"
	"github.com/telhawk-systems/telhawk-loader/internal/logging"
	"github.com/telhawk-systems/telhawk-loader/internal/seeder"
)

var replayCmd = &cobra.Command{
	Use:   "replay <bucket> <key>...",
	Short: "Replay stored objects through the pipeline",
	Long: `Publish bucket notifications for existing objects so a running
loader picks them up again. Useful after fixing a log type definition.

Examples:
  loader replay security-logs AWSLogs/123456789012/CloudTrail/us-east-1/x.json.gz
  loader replay security-logs key1.gz key2.gz key3.gz`,
	Args: cobra.MinimumNArgs(2),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)

	client, err := intake.Connect(cfg.Intake, logger)
	if err != nil {
		return fmt.Errorf("failed to connect intake: %w", err)
	}
	defer client.Close()

	bucket := args[0]
	for _, key := range args[1:] {
		payload, err := seeder.ObjectNotification(bucket, key, 0)
		if err != nil {
			return err
		}
		if err := client.Publish(cfg.Intake.ObjectSubject, payload); err != nil {
			return fmt.Errorf("publishing notification for %s: %w", key, err)
		}
		fmt.Printf("replayed s3://%s/%s\n", bucket, key)
	}
	return client.Drain()
}
