// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Reports    ReportsConfig    `yaml:"reports"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type MonitoringConfig struct {
	// Interval between scheduled check-all runs per environment.
	Interval time.Duration `yaml:"interval"`
	// CheckTimeout bounds a single management call to one instance.
	CheckTimeout time.Duration `yaml:"check_timeout"`
	// BatchTimeout is the ceiling for a whole check-all batch; hosts still
	// outstanding when it elapses are reported down.
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	// MaxWorkers caps concurrent outbound checks across the whole process.
	MaxWorkers int `yaml:"max_workers"`
}

type ReportsConfig struct {
	// MaxPerEnvironment is the retention window for completed reports and
	// comparisons per environment.
	MaxPerEnvironment int    `yaml:"max_per_environment"`
	DefaultFormat     string `yaml:"default_format"`
}

type PrometheusConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MetricsPath string `yaml:"metrics_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	setDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	config := &Config{}
	setDefaults(config)
	return config
}

func setDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = ":8080"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 30 * time.Second
	}
	if config.Database.Path == "" {
		config.Database.Path = "data/jbossmon.db"
	}
	if config.Monitoring.Interval == 0 {
		config.Monitoring.Interval = 60 * time.Second
	}
	if config.Monitoring.CheckTimeout == 0 {
		config.Monitoring.CheckTimeout = 30 * time.Second
	}
	if config.Monitoring.BatchTimeout == 0 {
		config.Monitoring.BatchTimeout = 5 * time.Minute
	}
	if config.Monitoring.MaxWorkers == 0 {
		config.Monitoring.MaxWorkers = 10
	}
	if config.Reports.MaxPerEnvironment == 0 {
		config.Reports.MaxPerEnvironment = 20
	}
	if config.Reports.DefaultFormat == "" {
		config.Reports.DefaultFormat = "pdf"
	}
	if config.Prometheus.MetricsPath == "" {
		config.Prometheus.MetricsPath = "/metrics"
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
}

func validate(config *Config) error {
	if config.Monitoring.MaxWorkers < 1 {
		return fmt.Errorf("monitoring.max_workers must be at least 1")
	}
	if config.Monitoring.Interval < time.Second {
		return fmt.Errorf("monitoring.interval must be at least 1s")
	}
	if config.Monitoring.BatchTimeout < config.Monitoring.CheckTimeout {
		return fmt.Errorf("monitoring.batch_timeout must not be shorter than check_timeout")
	}
	if config.Reports.MaxPerEnvironment < 1 {
		return fmt.Errorf("reports.max_per_environment must be at least 1")
	}
	switch config.Reports.DefaultFormat {
	case "pdf", "csv":
	default:
		return fmt.Errorf("reports.default_format must be pdf or csv, got %q", config.Reports.DefaultFormat)
	}
	return nil
}
