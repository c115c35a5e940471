package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-loader/internal/config"
	"github.com/telhawk-systems/telhawk-loader/internal/intake"
	"github.com/telhawk-systems/telhawk-loader/internal/logging"
	"github.com/telhawk-systems/telhawk-loader/internal/seeder"
)

var (
	seedKind   string
	seedCount  int
	seedSpread time.Duration
	seedOut    string
	seedGroup  string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate synthetic log batches",
	Long: `Generate realistic synthetic batches for development and load
testing. Output goes to a file, or straight onto the stream subject of
a running loader when no output path is given.

Examples:
  # Write a gzipped CloudTrail object to disk
  loader seed --kind cloudtrail --count 500 --out trail.json.gz

  # Publish a stream payload to the loader
  loader seed --kind stream --count 100 --group /var/log/secure`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedKind, "kind", "cloudtrail", "batch kind: cloudtrail, syslog, stream")
	seedCmd.Flags().IntVar(&seedCount, "count", 100, "number of entries to generate")
	seedCmd.Flags().DurationVar(&seedSpread, "spread", time.Hour, "time window to spread entries over")
	seedCmd.Flags().StringVar(&seedOut, "out", "", "output file (default: publish to the stream subject)")
	seedCmd.Flags().StringVar(&seedGroup, "group", "/var/log/secure", "log group for stream payloads")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	var payload []byte
	var err error

	switch seedKind {
	case "cloudtrail":
		payload, err = seeder.CloudTrailObject(seedCount, seedSpread)
	case "syslog":
		payload, err = seeder.SyslogObject(seedCount, seedSpread)
	case "stream":
		payload, err = seeder.StreamPayload(seedGroup, "seeder", seedCount)
	default:
		return fmt.Errorf("unknown kind %q", seedKind)
	}
	if err != nil {
		return err
	}

	if seedOut != "" {
		if err := os.WriteFile(seedOut, payload, 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %d entries to %s (%d bytes)\n", seedCount, seedOut, len(payload))
		return nil
	}

	if seedKind != "stream" {
		return fmt.Errorf("kind %q produces an object body, use --out to write it", seedKind)
	}

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

	if err := client.Publish(cfg.Intake.StreamSubject, payload); err != nil {
		return err
	}
	fmt.Printf("published %d entries to %s\n", seedCount, cfg.Intake.StreamSubject)
	return client.Drain()
}
