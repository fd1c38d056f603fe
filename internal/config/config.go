package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BreakerConfig tunes the circuit breaker guarding the sensor's sends.
type BreakerConfig struct {
	FailureThreshold uint32 `yaml:"failure_threshold"`
	OpenTimeout      string `yaml:"open_timeout"`
}

// SensorConfig holds the settings for ns-sensor.
type SensorConfig struct {
	CollectorURL     string        `yaml:"collector_url"`
	Interface        string        `yaml:"interface"`
	PcapFile         string        `yaml:"pcap_file"`
	SnapshotLen      int32         `yaml:"snapshot_len"`
	Promiscuous      bool          `yaml:"promiscuous"`
	BatchSize        int           `yaml:"batch_size"`
	MaxBatchInterval string        `yaml:"max_batch_interval"`
	RequestTimeout   string        `yaml:"request_timeout"`
	Breaker          BreakerConfig `yaml:"breaker"`
}

// CollectorConfig holds the settings for ns-collector.
type CollectorConfig struct {
	ListenAddr      string `yaml:"listen_addr"`
	GRPCListenAddr  string `yaml:"grpc_listen_addr"`
	NumWorkers      int    `yaml:"num_workers"`
	QueueSize       int    `yaml:"queue_size"`
	TrainingSetSize int    `yaml:"training_set_size"`
	FitTimeout      string `yaml:"fit_timeout"`
	AlertsLimit     int    `yaml:"alerts_limit"`
	TopSources      int    `yaml:"top_sources"`
}

// ScorerConfig holds the anomaly model hyperparameters and artifact location.
type ScorerConfig struct {
	ModelDir      string  `yaml:"model_dir"`
	Contamination float64 `yaml:"contamination"`
	Seed          int64   `yaml:"seed"`
	NumTrees      int     `yaml:"num_trees"`
	SampleSize    int     `yaml:"sample_size"`
}

// ClickHouseConfig holds the connection details for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// StorageConfig selects the record store backend.
type StorageConfig struct {
	Type       string           `yaml:"type"` // "memory" or "clickhouse"
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// NATSConfig configures the event relay. With Embedded set the collector
// runs its own server on EmbeddedHost:EmbeddedPort and relays through it.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Embedded      bool   `yaml:"embedded"`
	EmbeddedHost  string `yaml:"embedded_host"`
	EmbeddedPort  int    `yaml:"embedded_port"`
}

// AlerterConfig configures the periodic alert digest.
type AlerterConfig struct {
	Enabled       bool   `yaml:"enabled"`
	CheckInterval string `yaml:"check_interval"`
}

// SMTPConfig holds the configuration for the email notifier.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"` // Comma-separated list of recipients
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Collector CollectorConfig `yaml:"collector"`
	Scorer    ScorerConfig    `yaml:"scorer"`
	Storage   StorageConfig   `yaml:"storage"`
	NATS      NATSConfig      `yaml:"nats"`
	Alerter   AlerterConfig   `yaml:"alerter"`
	SMTP      SMTPConfig      `yaml:"smtp"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Sensor: SensorConfig{
			CollectorURL:     "http://127.0.0.1:8000/api/v1/ingest",
			SnapshotLen:      1600,
			Promiscuous:      true,
			BatchSize:        50,
			MaxBatchInterval: "5s",
			RequestTimeout:   "10s",
			Breaker:          BreakerConfig{FailureThreshold: 5, OpenTimeout: "30s"},
		},
		Collector: CollectorConfig{
			ListenAddr:      ":8000",
			GRPCListenAddr:  ":9090",
			NumWorkers:      4,
			QueueSize:       256,
			TrainingSetSize: 100,
			FitTimeout:      "2m",
			AlertsLimit:     50,
			TopSources:      10,
		},
		Scorer: ScorerConfig{
			ModelDir:      "models",
			Contamination: 0.01,
			Seed:          42,
			NumTrees:      100,
			SampleSize:    256,
		},
		Storage: StorageConfig{Type: "memory"},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "netsentinel.events",
			EmbeddedHost:  "127.0.0.1",
			EmbeddedPort:  4222,
		},
		Alerter: AlerterConfig{CheckInterval: "1m"},
	}
}

// LoadConfig reads the configuration from a YAML file on top of the defaults.
// An empty path or a missing file yields the defaults.
func LoadConfig(filePath string) (*Config, error) {
	cfg := Default()
	if filePath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and that every duration parses.
func (c *Config) Validate() error {
	if c.Sensor.BatchSize <= 0 {
		return fmt.Errorf("sensor.batch_size must be positive, got %d", c.Sensor.BatchSize)
	}
	if c.Collector.NumWorkers <= 0 {
		return fmt.Errorf("collector.num_workers must be positive, got %d", c.Collector.NumWorkers)
	}
	if c.Collector.QueueSize < 0 {
		return fmt.Errorf("collector.queue_size must not be negative, got %d", c.Collector.QueueSize)
	}
	if c.Collector.TrainingSetSize <= 0 {
		return fmt.Errorf("collector.training_set_size must be positive, got %d", c.Collector.TrainingSetSize)
	}
	if c.Scorer.Contamination <= 0 || c.Scorer.Contamination >= 0.5 {
		return fmt.Errorf("scorer.contamination must be in (0, 0.5), got %v", c.Scorer.Contamination)
	}
	if c.NATS.Enabled && c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("nats.subject_prefix must be set when nats is enabled")
	}
	switch c.Storage.Type {
	case "memory", "clickhouse":
	default:
		return fmt.Errorf("unknown storage.type %q", c.Storage.Type)
	}

	durations := map[string]string{
		"sensor.max_batch_interval":   c.Sensor.MaxBatchInterval,
		"sensor.request_timeout":      c.Sensor.RequestTimeout,
		"sensor.breaker.open_timeout": c.Sensor.Breaker.OpenTimeout,
		"collector.fit_timeout":       c.Collector.FitTimeout,
		"alerter.check_interval":      c.Alerter.CheckInterval,
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	return nil
}

// Duration parses a duration field that Validate has already checked.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
