package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	LogTypesPath string `mapstructure:"log_types_path"`

	Intake        IntakeConfig        `mapstructure:"intake"`
	S3            S3Config            `mapstructure:"s3"`
	OpenSearch    OpenSearchConfig    `mapstructure:"opensearch"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	GeoIP         GeoIPConfig         `mapstructure:"geoip"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

type IntakeConfig struct {
	NATSURL        string        `mapstructure:"nats_url"`
	ObjectSubject  string        `mapstructure:"object_subject"`
	StreamSubject  string        `mapstructure:"stream_subject"`
	QueueGroup     string        `mapstructure:"queue_group"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type S3Config struct {
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

type OpenSearchConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	URL               string        `mapstructure:"url"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	TLSSkipVerify     bool          `mapstructure:"tls_skip_verify"`
	BulkWorkers       int           `mapstructure:"bulk_workers"`
	BulkFlushBytes    int           `mapstructure:"bulk_flush_bytes"`
	BulkFlushInterval time.Duration `mapstructure:"bulk_flush_interval"`
}

type ElasticsearchConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Addresses         []string      `mapstructure:"addresses"`
	APIKey            string        `mapstructure:"api_key"`
	BulkWorkers       int           `mapstructure:"bulk_workers"`
	BulkFlushBytes    int           `mapstructure:"bulk_flush_bytes"`
	BulkFlushInterval time.Duration `mapstructure:"bulk_flush_interval"`
}

type GeoIPConfig struct {
	CityDBPath string `mapstructure:"city_db_path"`
	ASNDBPath  string `mapstructure:"asn_db_path"`
}

type PipelineConfig struct {
	Workers        int `mapstructure:"workers"`
	MaxObjectBytes int `mapstructure:"max_object_bytes"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("log_types_path", "logtypes.yaml")
	v.SetDefault("intake.nats_url", "nats://localhost:4222")
	v.SetDefault("intake.object_subject", "loader.objects")
	v.SetDefault("intake.stream_subject", "loader.streams")
	v.SetDefault("intake.queue_group", "loader")
	v.SetDefault("intake.connect_timeout", "10s")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.use_path_style", false)
	v.SetDefault("opensearch.enabled", true)
	v.SetDefault("opensearch.url", "https://localhost:9200")
	v.SetDefault("opensearch.username", "admin")
	v.SetDefault("opensearch.tls_skip_verify", true)
	v.SetDefault("opensearch.bulk_workers", 2)
	v.SetDefault("opensearch.bulk_flush_bytes", 5242880)
	v.SetDefault("opensearch.bulk_flush_interval", "5s")
	v.SetDefault("elasticsearch.enabled", false)
	v.SetDefault("elasticsearch.bulk_workers", 2)
	v.SetDefault("elasticsearch.bulk_flush_bytes", 5242880)
	v.SetDefault("elasticsearch.bulk_flush_interval", "5s")
	v.SetDefault("geoip.city_db_path", "")
	v.SetDefault("geoip.asn_db_path", "")
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.max_object_bytes", 134217728)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9108)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/telhawk/loader")
	}

	// Environment variables override
	v.SetEnvPrefix("LOADER")
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
