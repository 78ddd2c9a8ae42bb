package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Rule catalog sources
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Default file locations, relative to the working directory
const (
	DefaultRulesPath   = "../rules/rules-catalog-template.csv"
	DefaultRecordsPath = "sample_pr_po.csv"
	DefaultReportPath  = "rule_application_report.csv"
)

type Config struct {
	Rules struct {
		Source   string        `yaml:"source"`
		Path     string        `yaml:"path"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"rules"`

	Records struct {
		Path string `yaml:"path"`
	} `yaml:"records"`

	Report struct {
		Path string `yaml:"path"`
	} `yaml:"report"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level       string `yaml:"level"`
		Format      string `yaml:"format"`
		OTEL        bool   `yaml:"otel"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	cfg.Rules.Source = SourceCSV
	cfg.Rules.Path = DefaultRulesPath
	cfg.Records.Path = DefaultRecordsPath
	cfg.Report.Path = DefaultReportPath
	cfg.Server.Addr = ":8080"
	cfg.Log.Level = "INFO"
	cfg.Log.Format = "text"
	cfg.Log.ServiceName = "prrules"
	return cfg
}

func (c *Config) Validate() error {
	switch c.Rules.Source {
	case SourceCSV:
		if c.Rules.Path == "" {
			return fmt.Errorf("rules path is required for the csv source")
		}
	case SourcePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database url is required for the postgres source")
		}
	default:
		return fmt.Errorf("unknown rules source %q (use %s or %s)", c.Rules.Source, SourceCSV, SourcePostgres)
	}
	if c.Rules.CacheTTL < 0 {
		return fmt.Errorf("rules cache ttl must not be negative")
	}
	return nil
}

// ApplyEnv overrides settings from the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv("RULE_SOURCE"); v != "" {
		c.Rules.Source = strings.ToLower(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if strings.ToLower(os.Getenv("OTEL_ENABLED")) == "true" {
		c.Log.OTEL = true
	}
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		c.Log.ServiceName = v
	}
}

// LoadConfig reads filename over the defaults and applies environment
// overrides. An empty filename skips the file.
func LoadConfig(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}
