package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// DefaultURLExpiryHours is the presigned URL lifetime when the flag is
// not given. It equals the maximum expiry the signer accepts.
const DefaultURLExpiryHours = 168

const defaultEndpoint = "s3.amazonaws.com"

// Config represents the application configuration.
type Config struct {
	S3       S3Config `yaml:"s3"`
	Upload   Upload   `yaml:"upload"`
	LogLevel string   `yaml:"log_level"`
}

// S3Config represents the target object store.
type S3Config struct {
	Region     string `yaml:"region"`
	Bucket     string `yaml:"bucket"`
	Profile    string `yaml:"profile"`
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Secure     bool   `yaml:"secure"`
	TargetPath string `yaml:"target_path"`
}

// Upload represents per-run upload behavior.
type Upload struct {
	Extensions     []string          `yaml:"extensions"`
	MaxConcurrent  int               `yaml:"max_concurrent"`
	URLExpiryHours int               `yaml:"url_expiry_hours"`
	URLOnly        bool              `yaml:"url_only"`
	DryRun         bool              `yaml:"dry_run"`
	Flatten        bool              `yaml:"flatten"`
	Prefix         string            `yaml:"prefix"`
	ContentType    string            `yaml:"content_type"`
	Metadata       map[string]string `yaml:"metadata"`
	Tags           map[string]string `yaml:"tags"`
	History        string            `yaml:"history"`
	MetricsAddr    string            `yaml:"metrics_addr"`
}

// Load loads configuration from the environment (including an optional
// .env file in the working directory), an optional YAML file, and
// command line flags, in that order of increasing precedence.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel: "info",
		S3: S3Config{
			Endpoint: defaultEndpoint,
			Secure:   true,
		},
		Upload: Upload{
			Extensions:     []string{"mp4", "mov"},
			MaxConcurrent:  4,
			URLExpiryHours: DefaultURLExpiryHours,
		},
	}

	cfg.loadFromEnv()

	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if flags != nil {
		loadFromFlags(cfg, flags)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.S3.Region = v
	}
	if v := os.Getenv("AWS_PROFILE"); v != "" {
		c.S3.Profile = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.S3.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.S3.SecretKey = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		c.S3.Bucket = v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		c.S3.Endpoint = v
	}
	if v := os.Getenv("S3_TARGET_PATH"); v != "" {
		c.S3.TargetPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadFromFlags(cfg *Config, flags *pflag.FlagSet) {
	if flags.Changed("extensions") {
		cfg.Upload.Extensions, _ = flags.GetStringSlice("extensions")
	}
	if flags.Changed("max-concurrent") {
		cfg.Upload.MaxConcurrent, _ = flags.GetInt("max-concurrent")
	}
	if flags.Changed("url-expiry-hours") {
		cfg.Upload.URLExpiryHours, _ = flags.GetInt("url-expiry-hours")
	}
	if flags.Changed("url-only") {
		cfg.Upload.URLOnly, _ = flags.GetBool("url-only")
	}
	if flags.Changed("dry-run") {
		cfg.Upload.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("flatten") {
		cfg.Upload.Flatten, _ = flags.GetBool("flatten")
	}
	if flags.Changed("prefix") {
		cfg.Upload.Prefix, _ = flags.GetString("prefix")
	}
	if flags.Changed("content-type") {
		cfg.Upload.ContentType, _ = flags.GetString("content-type")
	}
	if flags.Changed("metadata") {
		s, _ := flags.GetString("metadata")
		cfg.Upload.Metadata = ParseMetadata(s)
	}
	if flags.Changed("tags") {
		s, _ := flags.GetString("tags")
		cfg.Upload.Tags = ParseTags(s)
	}
	if flags.Changed("history") {
		cfg.Upload.History, _ = flags.GetString("history")
	}
	if flags.Changed("metrics-addr") {
		cfg.Upload.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
}

func (c *Config) validate() error {
	if c.S3.Region == "" {
		return fmt.Errorf("AWS_REGION is required (set it in the environment or .env)")
	}
	if c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required (set it in the environment or .env)")
	}
	if c.S3.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if c.Upload.MaxConcurrent <= 0 {
		return fmt.Errorf("max-concurrent must be positive")
	}
	if c.Upload.URLExpiryHours <= 0 {
		return fmt.Errorf("url-expiry-hours must be positive")
	}
	if len(c.Upload.Extensions) == 0 {
		return fmt.Errorf("at least one extension is required")
	}
	return nil
}

// KeyPrefix returns the remote key prefix for this run. The --prefix
// flag overrides the configured target path without mutating it.
func (c *Config) KeyPrefix() string {
	if c.Upload.Prefix != "" {
		return c.Upload.Prefix
	}
	return c.S3.TargetPath
}

// BuildKey constructs a remote object key from a prefix and a relative
// path. A trailing slash on the prefix and a leading "./" on the path
// are stripped; an empty prefix yields the bare path.
func BuildKey(prefix, relativePath string) string {
	path := strings.TrimPrefix(relativePath, "./")
	if prefix == "" {
		return path
	}
	return strings.TrimSuffix(prefix, "/") + "/" + path
}
