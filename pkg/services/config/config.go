package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/de-tools/cloudprice/pkg/services/fetcher/awssdk"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	AWSSourceUpstream = "upstream"
	AWSSourceSDK      = "sdk"

	EnvironmentProduction = "production"
)

type Config struct {
	UpstreamBaseURL    string        `mapstructure:"upstream_base_url"`
	UpstreamAPIKey     string        `mapstructure:"upstream_api_key"`
	AzureSchema        string        `mapstructure:"azure_schema"`
	AWSSource          string        `mapstructure:"aws_source"`
	AWSRegion          string        `mapstructure:"aws_region"`
	CacheDSN           string        `mapstructure:"cache_dsn"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
	RateLimitMax       int           `mapstructure:"rate_limit_max"`
	LogLevel           string        `mapstructure:"log_level"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Environment        string        `mapstructure:"environment"`
	FetchTimeout       time.Duration `mapstructure:"fetch_timeout"`
	FetchRetries       int           `mapstructure:"fetch_retries"`
	AWSSDKTimeout      time.Duration `mapstructure:"aws_sdk_timeout"`
	PageSize           int           `mapstructure:"page_size"`
	CurrencyRatesFile  string        `mapstructure:"currency_rates_file"`
	RefreshInterval    time.Duration `mapstructure:"refresh_interval"`
	SpotRatio          float64       `mapstructure:"spot_ratio"`
}

var defaults = map[string]any{
	"upstream_base_url":    "",
	"upstream_api_key":     "",
	"azure_schema":         string(fetcher.AzureSchemaRegionAverage),
	"aws_source":           AWSSourceUpstream,
	"aws_region":           "us-east-1",
	"cache_dsn":            "",
	"cors_allowed_origins": "",
	"rate_limit_window":    "15m",
	"rate_limit_max":       100,
	"log_level":            "info",
	"host":                 "0.0.0.0",
	"port":                 8080,
	"environment":          "development",
	"fetch_timeout":        fetcher.DefaultTimeout.String(),
	"fetch_retries":        2,
	"aws_sdk_timeout":      awssdk.DefaultTimeout.String(),
	"page_size":            20,
	"currency_rates_file":  "",
	"refresh_interval":     "0s",
	"spot_ratio":           0.7,
}

// Load reads the server configuration from the environment, optionally layered over a config
// file. Environment variables are the upper-cased keys, e.g. UPSTREAM_BASE_URL.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCLI is Load without the HTTP listener settings, which the command line tools ignore.
func LoadCLI(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validatePipeline(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.CORSAllowedOrigins = cleanList(cfg.CORSAllowedOrigins)
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.CORSAllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.RateLimitMax < 0 || c.RateLimitWindow < 0 {
		return fmt.Errorf("rate limit window and max must not be negative")
	}
	return c.validatePipeline()
}

func (c *Config) validatePipeline() error {
	if _, err := fetcher.ParseAzureSchema(c.AzureSchema); err != nil {
		return fmt.Errorf("AZURE_SCHEMA: %w", err)
	}
	if c.AWSSource != AWSSourceUpstream && c.AWSSource != AWSSourceSDK {
		return fmt.Errorf("AWS_SOURCE must be %q or %q, got %q", AWSSourceUpstream, AWSSourceSDK, c.AWSSource)
	}
	if c.SpotRatio <= 0 || c.SpotRatio > 1 {
		return fmt.Errorf("SPOT_RATIO must be in (0, 1], got %v", c.SpotRatio)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.AWSSDKTimeout < 0 {
		return fmt.Errorf("AWS_SDK_TIMEOUT must not be negative, got %s", c.AWSSDKTimeout)
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("FETCH_RETRIES must not be negative, got %d", c.FetchRetries)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvironmentProduction)
}

func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func (c *Config) FetcherSettings() fetcher.Settings {
	schema, _ := fetcher.ParseAzureSchema(c.AzureSchema)
	return fetcher.Settings{
		BaseURL:     c.UpstreamBaseURL,
		APIKey:      c.UpstreamAPIKey,
		AzureSchema: schema,
		Timeout:     c.FetchTimeout,
		Retries:     c.FetchRetries,
	}
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
