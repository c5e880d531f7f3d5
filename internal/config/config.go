package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/carmatch/internal/domain"
)

// Catalog sources.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
	SourceRedis    = "redis"
	SourceParquet  = "parquet"
)

// Predictor kinds.
const (
	PredictorLinear = "linear"
	PredictorRemote = "remote"
)

// Config holds the carmatch API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Database   DatabaseConfig   `yaml:"database"`
	Predictors PredictorsConfig `yaml:"predictors"`
	Cache      CacheConfig      `yaml:"cache"`
	Advisor    AdvisorConfig    `yaml:"advisor"`
	Recommend  RecommendConfig  `yaml:"recommend"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CatalogConfig selects where listings are loaded from.
type CatalogConfig struct {
	Source            string `yaml:"source"` // csv (default), postgres, redis, parquet
	Path              string `yaml:"path"`   // csv / parquet file
	DSN               string `yaml:"dsn"`    // postgres
	Table             string `yaml:"table"`  // postgres, default "listings"
	KeyPrefix         string `yaml:"key_prefix"`
	ReloadIntervalSec int    `yaml:"reload_interval_sec"` // 0 = load once
}

// DatabaseConfig holds Redis-compatible store settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PredictorsConfig holds both model endpoints.
type PredictorsConfig struct {
	Price PredictorConfig `yaml:"price"`
	Score PredictorConfig `yaml:"score"`
}

// PredictorConfig configures one model.
type PredictorConfig struct {
	Kind       string `yaml:"kind"`       // linear (default), remote
	ModelPath  string `yaml:"model_path"` // linear
	URL        string `yaml:"url"`        // remote
	Name       string `yaml:"name"`       // remote model name, default = model role
	TimeoutSec int    `yaml:"timeout_sec"`
}

// CacheConfig holds prediction cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"`
}

// AdvisorConfig holds the optional LLM advisor settings.
type AdvisorConfig struct {
	Enabled    bool        `yaml:"enabled"`
	APIKey     string      `yaml:"api_key"`
	BaseURL    string      `yaml:"base_url"`
	Model      string      `yaml:"model"`
	MaxTokens  int         `yaml:"max_tokens"`
	TimeoutSec int         `yaml:"timeout_sec"`
	Quota      QuotaConfig `yaml:"quota"`
}

// QuotaConfig holds advisor token limits.
type QuotaConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// RecommendConfig holds request defaults.
type RecommendConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, when present, seeds the environment first.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references, decodes, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = SourceCSV
	}
	if c.Catalog.Table == "" {
		c.Catalog.Table = "listings"
	}
	if c.Catalog.KeyPrefix == "" {
		c.Catalog.KeyPrefix = domain.ListingKeyPrefix
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	c.Predictors.Price.applyDefaults(domain.ModelPrice)
	c.Predictors.Score.applyDefaults(domain.ModelScore)
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Advisor.Model == "" {
		c.Advisor.Model = "gpt-4o-mini"
	}
	if c.Advisor.MaxTokens <= 0 {
		c.Advisor.MaxTokens = 256
	}
	if c.Advisor.TimeoutSec <= 0 {
		c.Advisor.TimeoutSec = 15
	}
	if c.Advisor.Quota.Action == "" {
		c.Advisor.Quota.Action = "warn"
	}
	if c.Recommend.DefaultLimit <= 0 {
		c.Recommend.DefaultLimit = 8
	}
	if c.Recommend.MaxLimit <= 0 {
		c.Recommend.MaxLimit = 100
	}
}

func (p *PredictorConfig) applyDefaults(role string) {
	if p.Kind == "" {
		p.Kind = PredictorLinear
	}
	if p.Kind == PredictorLinear && p.ModelPath == "" {
		p.ModelPath = filepath.Join("models", role+".yaml")
	}
	if p.Name == "" {
		p.Name = role
	}
	if p.TimeoutSec <= 0 {
		p.TimeoutSec = 5
	}
}

// NeedsStore reports whether any enabled component uses the Redis-compatible store.
func (c *Config) NeedsStore() bool {
	return c.Catalog.Source == SourceRedis || c.Cache.Enabled || c.Advisor.quotaEnabled()
}

func (a *AdvisorConfig) quotaEnabled() bool {
	return a.Enabled && (a.Quota.DailyTokenLimit > 0 || a.Quota.MonthlyTokenLimit > 0)
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Catalog.Source {
	case SourceCSV, SourceParquet:
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required for source %q", c.Catalog.Source)
		}
	case SourcePostgres:
		if c.Catalog.DSN == "" {
			return errors.New("catalog.dsn is required for source \"postgres\"")
		}
	case SourceRedis:
	default:
		return fmt.Errorf("catalog.source must be one of csv, postgres, redis, parquet, got %q", c.Catalog.Source)
	}
	if c.Catalog.ReloadIntervalSec < 0 {
		return fmt.Errorf("catalog.reload_interval_sec must be >= 0, got %d", c.Catalog.ReloadIntervalSec)
	}

	if c.NeedsStore() && len(c.Database.Addrs) == 0 {
		return errors.New("database.addrs is required when the redis catalog, cache or advisor quota is enabled")
	}

	if err := c.Predictors.Price.validate("price"); err != nil {
		return err
	}
	if err := c.Predictors.Score.validate("score"); err != nil {
		return err
	}

	if c.Advisor.Enabled && c.Advisor.APIKey == "" {
		return errors.New("advisor.api_key is required when the advisor is enabled")
	}
	switch c.Advisor.Quota.Action {
	case "warn", "reject":
	default:
		return fmt.Errorf("advisor.quota.action must be \"warn\" or \"reject\", got %q", c.Advisor.Quota.Action)
	}

	if c.Recommend.DefaultLimit > c.Recommend.MaxLimit {
		return fmt.Errorf("recommend.default_limit %d exceeds recommend.max_limit %d",
			c.Recommend.DefaultLimit, c.Recommend.MaxLimit)
	}
	return nil
}

func (p *PredictorConfig) validate(role string) error {
	switch p.Kind {
	case PredictorLinear:
		if p.ModelPath == "" {
			return fmt.Errorf("predictors.%s.model_path is required for kind \"linear\"", role)
		}
	case PredictorRemote:
		if p.URL == "" {
			return fmt.Errorf("predictors.%s.url is required for kind \"remote\"", role)
		}
	default:
		return fmt.Errorf("predictors.%s.kind must be \"linear\" or \"remote\", got %q", role, p.Kind)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
