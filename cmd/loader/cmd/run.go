package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-loader/internal/config"
	"github.com/telhawk-systems/telhawk-loader/internal/delivery"
	"github.com/telhawk-systems/telhawk-loader/internal/enrich"
	"github.com/telhawk-systems/telhawk-loader/internal/fetch"
	"github.com/telhawk-systems/telhawk-loader/internal/intake"
	"github.com/telhawk-systems/telhawk-loader/internal/logging"
	"github.com/telhawk-systems/telhawk-loader/internal/logtypes"
	"github.com/telhawk-systems/telhawk-loader/internal/service"
	"github.com/telhawk-systems/telhawk-loader/internal/transform"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the loader service",
	Long: `Start the loader: subscribe to the intake subjects, process
announced objects and stream payloads, and deliver documents to the
configured search backends.`,
	RunE: runLoader,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runLoader(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("loader"))
	logging.SetDefault(logger)

	logger.Info("starting loader",
		"log_types_path", cfg.LogTypesPath,
		"workers", cfg.Pipeline.Workers,
	)

	table, err := logtypes.Load(cfg.LogTypesPath)
	if err != nil {
		return fmt.Errorf("failed to load log type table: %w", err)
	}
	logger.Info("log type table loaded", "log_types", len(table.All()))

	enricher, err := enrich.Open(cfg.GeoIP.CityDBPath, cfg.GeoIP.ASNDBPath)
	if err != nil {
		return fmt.Errorf("failed to open geoip databases: %w", err)
	}
	defer enricher.Close()
	if enricher.Degraded() {
		logger.Warn("geoip databases missing, enrichment degraded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, err := fetch.NewS3Fetcher(ctx, cfg.S3, cfg.Pipeline.MaxObjectBytes)
	if err != nil {
		return fmt.Errorf("failed to build object fetcher: %w", err)
	}

	var sinks []delivery.Sink
	if cfg.OpenSearch.Enabled {
		sinks = append(sinks, delivery.NewOpenSearchSink(cfg.OpenSearch, logger))
	}
	if cfg.Elasticsearch.Enabled {
		sinks = append(sinks, delivery.NewElasticsearchSink(cfg.Elasticsearch, logger))
	}
	if len(sinks) == 0 {
		return fmt.Errorf("no delivery backend enabled")
	}
	sink := delivery.NewFanout(sinks...)
	if err := sink.Start(ctx); err != nil {
		return fmt.Errorf("failed to start delivery: %w", err)
	}

	loader := service.NewLoader(table, fetcher, sink, enricher,
		transform.NewRegistry(), cfg.Pipeline.Workers, logger)

	client, err := intake.Connect(cfg.Intake, logger)
	if err != nil {
		return fmt.Errorf("failed to connect intake: %w", err)
	}
	defer client.Close()

	err = client.SubscribeObjects(ctx, func(ctx context.Context, ref intake.ObjectRef) error {
		_, err := loader.ProcessObject(ctx, ref)
		return err
	})
	if err != nil {
		return err
	}
	err = client.SubscribeStreams(ctx, func(ctx context.Context, payload []byte) error {
		_, err := loader.ProcessStream(ctx, payload)
		return err
	})
	if err != nil {
		return err
	}
	logger.Info("intake subscribed",
		"object_subject", cfg.Intake.ObjectSubject,
		"stream_subject", cfg.Intake.StreamSubject,
	)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "ok")
		})
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logging.Err(err))
			}
		}()
		logger.Info("metrics server listening", "port", cfg.Metrics.Port)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Drain(); err != nil {
		logger.Warn("intake drain failed", logging.Err(err))
	}
	if err := sink.Close(shutdownCtx); err != nil {
		logger.Warn("delivery close failed", logging.Err(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", logging.Err(err))
		}
	}

	stats := sink.Stats()
	logger.Info("loader stopped", "indexed", stats.Indexed, "failed", stats.Failed)
	return nil
}
