package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/amosWeiskopf/corpuscrawl/pkg/crawler"
)

// Config holds all application configuration
type Config struct {
	// Crawler configuration
	Crawler CrawlerConfig `mapstructure:"crawler"`

	// Storage configuration
	Storage StorageConfig `mapstructure:"storage"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlerConfig holds crawler-specific configuration
type CrawlerConfig struct {
	Seeds                 []string      `mapstructure:"seeds"`
	MaxDepth              int           `mapstructure:"max_depth"`
	MaxLinksPerPage       int           `mapstructure:"max_links_per_page"`
	MaxConcurrentChildren int           `mapstructure:"max_concurrent_children"`
	RequestDelay          time.Duration `mapstructure:"request_delay"`
	Timeout               time.Duration `mapstructure:"timeout"`
	RunTimeout            time.Duration `mapstructure:"run_timeout"`
	UserAgent             string        `mapstructure:"user_agent"`
	Workers               int           `mapstructure:"workers"`
	ContentLimit          int           `mapstructure:"content_limit"`
	MaxBodyBytes          int64         `mapstructure:"max_body_bytes"`
	AllowSubdomains       bool          `mapstructure:"allow_subdomains"`
	MainContent           bool          `mapstructure:"main_content"`
	Annotate              bool          `mapstructure:"annotate"`
}

// Storage types
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageS3     = "s3"
)

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type string   `mapstructure:"type"` // StorageFile, StorageSQLite or StorageS3
	Path string   `mapstructure:"path"`
	S3   S3Config `mapstructure:"s3"`
}

// S3Config holds object storage settings for the "s3" storage type
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Key       string `mapstructure:"key"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // "json" or "console"
	OutputPath string `mapstructure:"output_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load reads configuration from file and environment into v. A nil v gets a
// fresh viper instance. Flags bound to v before the call take precedence.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.corpuscrawl")
	}

	// Set defaults
	SetDefaults(v)

	// Bind environment variables
	v.SetEnvPrefix("CORPUSCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error, we'll use defaults and env
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// Crawler defaults
	v.SetDefault("crawler.seeds", []string{})
	v.SetDefault("crawler.max_depth", 2)
	v.SetDefault("crawler.max_links_per_page", 10)
	v.SetDefault("crawler.max_concurrent_children", 5)
	v.SetDefault("crawler.request_delay", "1s")
	v.SetDefault("crawler.timeout", "10s")
	v.SetDefault("crawler.run_timeout", "10m")
	v.SetDefault("crawler.user_agent", crawler.DefaultUserAgent)
	v.SetDefault("crawler.workers", 1)
	v.SetDefault("crawler.content_limit", 2000)
	v.SetDefault("crawler.max_body_bytes", 5*1024*1024)
	v.SetDefault("crawler.allow_subdomains", false)
	v.SetDefault("crawler.main_content", false)
	v.SetDefault("crawler.annotate", true)

	// Storage defaults
	v.SetDefault("storage.type", StorageFile)
	v.SetDefault("storage.path", "crawled_data.json")
	v.SetDefault("storage.s3.key", "crawled_data.json")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.use_ssl", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output_path", "stderr")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_age_days", 28)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must not be negative")
	}
	if c.Crawler.MaxLinksPerPage <= 0 {
		return fmt.Errorf("crawler.max_links_per_page must be positive")
	}
	if c.Crawler.MaxConcurrentChildren <= 0 {
		return fmt.Errorf("crawler.max_concurrent_children must be positive")
	}
	if c.Crawler.RequestDelay < 0 {
		return fmt.Errorf("crawler.request_delay must not be negative")
	}
	if c.Crawler.Timeout <= 0 {
		return fmt.Errorf("crawler.timeout must be positive")
	}
	if c.Crawler.Workers <= 0 {
		return fmt.Errorf("crawler.workers must be positive")
	}
	if c.Crawler.ContentLimit <= 0 {
		return fmt.Errorf("crawler.content_limit must be positive")
	}

	switch c.Storage.Type {
	case StorageFile, StorageSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for storage type %q", c.Storage.Type)
		}
	case StorageS3:
		if c.Storage.S3.Endpoint == "" || c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.endpoint and storage.s3.bucket are required for storage type s3")
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}

	return nil
}

// Options projects the crawler section onto engine options
func (c *Config) Options() crawler.Options {
	return crawler.Options{
		Policy: crawler.Policy{
			MaxDepth:              c.Crawler.MaxDepth,
			MaxLinksPerPage:       c.Crawler.MaxLinksPerPage,
			MaxConcurrentChildren: c.Crawler.MaxConcurrentChildren,
			RequestDelay:          c.Crawler.RequestDelay,
		},
		Workers:         c.Crawler.Workers,
		UserAgent:       c.Crawler.UserAgent,
		Timeout:         c.Crawler.Timeout,
		RunTimeout:      c.Crawler.RunTimeout,
		ContentLimit:    c.Crawler.ContentLimit,
		MaxBodyBytes:    c.Crawler.MaxBodyBytes,
		AllowSubdomains: c.Crawler.AllowSubdomains,
		MainContent:     c.Crawler.MainContent,
		Annotate:        c.Crawler.Annotate,
	}
}
