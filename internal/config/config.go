// Package config handles configuration loading for krxvalue.
// It supports YAML config files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. KRXVALUE_VALUATION_REQUIRED_RETURN.
const EnvPrefix = "KRXVALUE"

// Config represents the complete application configuration.
type Config struct {
	Sources   SourcesConfig   `mapstructure:"sources"   yaml:"sources"   json:"sources"`
	Valuation ValuationConfig `mapstructure:"valuation" yaml:"valuation" json:"valuation"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"  yaml:"analysis"  json:"analysis"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"       json:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"   json:"logging"`
}

// SourcesConfig holds the market data site settings.
type SourcesConfig struct {
	Naver      NaverConfig      `mapstructure:"naver"      yaml:"naver"      json:"naver"`
	WiseReport WiseReportConfig `mapstructure:"wisereport" yaml:"wisereport" json:"wisereport"`
	RateLimit  float64          `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit" validate:"gte=0"` // requests per second, 0 = unlimited
	RateBurst  int              `mapstructure:"rate_burst" yaml:"rate_burst" json:"rate_burst" validate:"gte=1"`
	Timeout    time.Duration    `mapstructure:"timeout"    yaml:"timeout"    json:"timeout"    validate:"gt=0"`
	CacheTTL   time.Duration    `mapstructure:"cache_ttl"  yaml:"cache_ttl"  json:"cache_ttl"  validate:"gte=0"`
}

// NaverConfig points at Naver Finance.
type NaverConfig struct {
	BaseURL    string `mapstructure:"base_url"    yaml:"base_url"    json:"base_url"    validate:"required,url"`
	PollingURL string `mapstructure:"polling_url" yaml:"polling_url" json:"polling_url" validate:"required,url"`
}

// WiseReportConfig points at the WiseReport company summary, the primary
// statement source.
type WiseReportConfig struct {
	Enabled bool   `mapstructure:"enabled"  yaml:"enabled"  json:"enabled"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url" json:"base_url" validate:"required,url"`
}

// ValuationConfig holds the S-RIM defaults applied when a query does not
// override them.
type ValuationConfig struct {
	RequiredReturn float64 `mapstructure:"required_return" yaml:"required_return" json:"required_return" validate:"gt=0,lte=100"` // K, percent
	AveragePeriods int     `mapstructure:"average_periods" yaml:"average_periods" json:"average_periods" validate:"min=1,max=10"`
	AmountUnit     float64 `mapstructure:"amount_unit"     yaml:"amount_unit"     json:"amount_unit"     validate:"gt=0"`         // KRW per table unit
	Basis          string  `mapstructure:"basis"           yaml:"basis"           json:"basis"           validate:"oneof=annual quarterly"`
}

// AnalysisConfig holds analysis engine settings.
type AnalysisConfig struct {
	ConcurrentFetches int           `mapstructure:"concurrent_fetches" yaml:"concurrent_fetches" json:"concurrent_fetches" validate:"min=1,max=32"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"      yaml:"query_timeout"      json:"query_timeout"      validate:"gt=0"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"         json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         json:"port"         validate:"min=1,max=65535"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"oneof=text json"`
}

// Addr returns the listen address of the API server.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.krxvalue/config.yaml (home directory)
//  3. /etc/krxvalue/config.yaml (system)
//
// Environment variables override config file values.
// Format: KRXVALUE_<SECTION>_<KEY>, e.g., KRXVALUE_API_PORT
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".krxvalue"))
	v.AddConfigPath("/etc/krxvalue")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks every field against its validate tag.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Sources
	v.SetDefault("sources.naver.base_url", "https://finance.naver.com")
	v.SetDefault("sources.naver.polling_url", "https://polling.finance.naver.com")
	v.SetDefault("sources.wisereport.enabled", true)
	v.SetDefault("sources.wisereport.base_url", "https://navercomp.wisereport.co.kr")
	v.SetDefault("sources.rate_limit", 2.0)
	v.SetDefault("sources.rate_burst", 2)
	v.SetDefault("sources.timeout", "10s")
	v.SetDefault("sources.cache_ttl", "1m")

	// Valuation
	v.SetDefault("valuation.required_return", 8.0)
	v.SetDefault("valuation.average_periods", 3)
	v.SetDefault("valuation.amount_unit", 1e8) // 억원
	v.SetDefault("valuation.basis", "annual")

	// Analysis
	v.SetDefault("analysis.concurrent_fetches", 4)
	v.SetDefault("analysis.query_timeout", "30s")

	// API
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
