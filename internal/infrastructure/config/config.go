// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	AI         AIConfig         `mapstructure:"ai"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Nutrition  NutritionConfig  `mapstructure:"nutrition"`
	Learning   LearningConfig   `mapstructure:"learning"`
	Matching   MatchingConfig   `mapstructure:"matching"`
	Geocoder   GeocoderConfig   `mapstructure:"geocoder"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Database           string        `mapstructure:"database"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel           string        `mapstructure:"log_level"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	AutoMigrate        bool          `mapstructure:"auto_migrate"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	MaxRetries   int           `mapstructure:"max_retries"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	Enabled      bool          `mapstructure:"enabled"`
}

// AIConfig contains the vision model configuration
type AIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// AnalysisConfig tunes the analysis pipeline policies
type AnalysisConfig struct {
	Retries             int           `mapstructure:"retries"`
	BackoffBase         time.Duration `mapstructure:"backoff_base"`
	AttemptTimeout      time.Duration `mapstructure:"attempt_timeout"`
	PerUserRPS          float64       `mapstructure:"per_user_rps"`
	PerUserBurst        int           `mapstructure:"per_user_burst"`
	MaxConcurrent       int           `mapstructure:"max_concurrent"`
	BreakerWindow       int           `mapstructure:"breaker_window"`
	BreakerThresholdPct float64       `mapstructure:"breaker_threshold_pct"`
	BreakerMinCalls     int           `mapstructure:"breaker_min_calls"`
	BreakerCooldown     time.Duration `mapstructure:"breaker_cooldown"`
}

// NutritionConfig tunes the physical-law validation thresholds
type NutritionConfig struct {
	AtwaterWarnPct     float64 `mapstructure:"atwater_warn_pct"`
	AtwaterErrorPct    float64 `mapstructure:"atwater_error_pct"`
	CalorieSoftCeiling float64 `mapstructure:"calorie_soft_ceiling"`
}

// LearningConfig tunes the ingredient library learner
type LearningConfig struct {
	WelfordDecayK             float64 `mapstructure:"welford_decay_k"`
	TypicalQuantityEWMAWeight float64 `mapstructure:"typical_quantity_ewma_weight"`
	PrunePatternFraction      float64 `mapstructure:"prune_pattern_fraction"`
}

// MatchingConfig tunes name normalization and fuzzy lookup. Aliases and
// UnitGrams overlay the built-in tables.
type MatchingConfig struct {
	MaxEditDistance    int                `mapstructure:"max_edit_distance"`
	DefaultSearchLimit int                `mapstructure:"default_search_limit"`
	MaxPageSize        int                `mapstructure:"max_page_size"`
	Aliases            map[string]string  `mapstructure:"aliases"`
	UnitGrams          map[string]float64 `mapstructure:"unit_grams"`
}

// GeocoderConfig contains reverse geocoder configuration
type GeocoderConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Enabled  bool          `mapstructure:"enabled"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics   bool   `mapstructure:"enable_metrics"`
	MetricsPath     string `mapstructure:"metrics_path"`
	HealthCheckPath string `mapstructure:"health_check_path"`
	ReadinessPath   string `mapstructure:"readiness_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/platewise")
	}

	// Enable environment variable override
	v.SetEnvPrefix("PLATEWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Unmarshal configuration
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "PlateWise")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.max_header_bytes", 1<<20) // 1MB
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "platewise")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.slow_query_threshold", "100ms")
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.enabled", true)

	// AI defaults
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("ai.temperature", 0.1)
	v.SetDefault("ai.timeout", "30s")

	// Analysis pipeline defaults
	v.SetDefault("analysis.retries", 3)
	v.SetDefault("analysis.backoff_base", "2s")
	v.SetDefault("analysis.attempt_timeout", "30s")
	v.SetDefault("analysis.per_user_rps", 1)
	v.SetDefault("analysis.per_user_burst", 5)
	v.SetDefault("analysis.max_concurrent", 16)
	v.SetDefault("analysis.breaker_window", 10)
	v.SetDefault("analysis.breaker_threshold_pct", 50)
	v.SetDefault("analysis.breaker_min_calls", 5)
	v.SetDefault("analysis.breaker_cooldown", "60s")

	// Nutrition validation defaults
	v.SetDefault("nutrition.atwater_warn_pct", 20)
	v.SetDefault("nutrition.atwater_error_pct", 50)
	v.SetDefault("nutrition.calorie_soft_ceiling", 2500)

	// Learning defaults
	v.SetDefault("learning.welford_decay_k", 5)
	v.SetDefault("learning.typical_quantity_ewma_weight", 0.3)
	v.SetDefault("learning.prune_pattern_fraction", 0)

	// Matching defaults
	v.SetDefault("matching.max_edit_distance", 2)
	v.SetDefault("matching.default_search_limit", 8)
	v.SetDefault("matching.max_page_size", 100)

	// Geocoder defaults
	v.SetDefault("geocoder.timeout", "2s")
	v.SetDefault("geocoder.cache_ttl", "24h")
	v.SetDefault("geocoder.enabled", false)

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.health_check_path", "/health")
	v.SetDefault("monitoring.readiness_path", "/ready")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}

	if c.AI.APIKey == "" && c.App.Environment == "production" {
		return fmt.Errorf("ai.api_key is required in production")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Analysis.BreakerThresholdPct < 0 || c.Analysis.BreakerThresholdPct > 100 {
		return fmt.Errorf("analysis.breaker_threshold_pct must be between 0 and 100")
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.Username,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// RedisAddr returns the host:port address of the redis server
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
