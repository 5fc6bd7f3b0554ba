package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by bucketinv
const EnvPrefix = "BUCKETINV"

// Supported storage providers
const (
	ProviderAWS   = "aws"
	ProviderGCP   = "gcp"
	ProviderMinIO = "minio"
)

// Config represents the application configuration
type Config struct {
	Provider       string        `mapstructure:"provider" yaml:"provider"`
	OutputDir      string        `mapstructure:"output_dir" yaml:"output_dir"`
	FlushThreshold int           `mapstructure:"flush_threshold" yaml:"flush_threshold"`
	PageSize       int           `mapstructure:"page_size" yaml:"page_size"`
	Profile        string        `mapstructure:"profile" yaml:"profile,omitempty"`
	Project        string        `mapstructure:"project" yaml:"project,omitempty"`
	Region         string        `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint       string        `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	PathStyle      bool          `mapstructure:"path_style" yaml:"path_style,omitempty"`
	MaxConcurrency int           `mapstructure:"max_concurrency" yaml:"max_concurrency"`
	BucketTimeout  time.Duration `mapstructure:"bucket_timeout" yaml:"bucket_timeout"`
	Include        []string      `mapstructure:"include" yaml:"include,omitempty"`
	Exclude        []string      `mapstructure:"exclude" yaml:"exclude,omitempty"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat      string        `mapstructure:"log_format" yaml:"log_format"`
}

// GetConfigDir returns the config directory path ($XDG_CONFIG_HOME/bucketinv)
func GetConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bucketinv")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bucketinv"
	}
	return filepath.Join(home, ".config", "bucketinv")
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderAWS)
	v.SetDefault("output_dir", ".")
	v.SetDefault("flush_threshold", 500000)
	v.SetDefault("page_size", 1000)
	v.SetDefault("profile", "")
	v.SetDefault("project", "")
	v.SetDefault("region", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("path_style", false)
	v.SetDefault("max_concurrency", 0)
	v.SetDefault("bucket_timeout", time.Duration(0))
	v.SetDefault("include", []string{})
	v.SetDefault("exclude", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// Load resolves the configuration from, in increasing priority: defaults,
// the config file, the .env file, BUCKETINV_* environment variables and
// flags already bound on v. An empty configFile reads the default path if
// it exists; an empty envFile reads .env from the working directory.
func Load(v *viper.Viper, configFile, envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(GetConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch {
	case c.OutputDir == "":
		return errors.New("output_dir must not be empty")
	case c.FlushThreshold <= 0:
		return fmt.Errorf("flush_threshold must be positive, got %d", c.FlushThreshold)
	case c.PageSize <= 0 || c.PageSize > 1000:
		return fmt.Errorf("page_size must be between 1 and 1000, got %d", c.PageSize)
	case c.MaxConcurrency < 0:
		return fmt.Errorf("max_concurrency must not be negative, got %d", c.MaxConcurrency)
	case c.BucketTimeout < 0:
		return fmt.Errorf("bucket_timeout must not be negative, got %s", c.BucketTimeout)
	}

	switch c.Provider {
	case ProviderAWS, ProviderGCP:
	case ProviderMinIO:
		if c.Endpoint == "" {
			return errors.New("endpoint is required for the minio provider")
		}
	default:
		return fmt.Errorf("provider must be aws, gcp or minio, got %q", c.Provider)
	}

	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}

	return nil
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// SaveConfig writes cfg to path, creating its directory
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
