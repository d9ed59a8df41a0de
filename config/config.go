package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Detection DetectionConfig
	Cache     CacheConfig
	Scheduler SchedulerConfig
	Catalog   CatalogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DetectionConfig holds the variant-detection engine knobs
type DetectionConfig struct {
	MinConfidence            float64 `mapstructure:"min_confidence"`
	MinGroupSize             int     `mapstructure:"min_group_size"`
	MaxPatternLength         int     `mapstructure:"max_pattern_length"`
	EnableSKUDetection       bool    `mapstructure:"enable_sku_detection"`
	EnableNameSimilarity     bool    `mapstructure:"enable_name_similarity"`
	EnableAttributeDetection bool    `mapstructure:"enable_attribute_detection"`
	EnableMLDetection        bool    `mapstructure:"enable_ml_detection"`
}

// CacheConfig holds cache and blob persistence configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory", "file" or "redis"
	Dir      string        `mapstructure:"dir"`
	RedisURL string        `mapstructure:"redis_url"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// SchedulerConfig holds background scheduler configuration
type SchedulerConfig struct {
	AnalysisInterval time.Duration `mapstructure:"analysis_interval"`
	BatchSize        int           `mapstructure:"batch_size"`
}

// CatalogConfig locates the product catalog consumed by full scans
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Best-effort .env support for local development
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/variantlens/")

	// Environment variable settings
	v.SetEnvPrefix("VARIANTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// Detection defaults
	v.SetDefault("detection.min_confidence", 0.6)
	v.SetDefault("detection.min_group_size", 2)
	v.SetDefault("detection.max_pattern_length", 4)
	v.SetDefault("detection.enable_sku_detection", true)
	v.SetDefault("detection.enable_name_similarity", true)
	v.SetDefault("detection.enable_attribute_detection", true)
	v.SetDefault("detection.enable_ml_detection", false)

	// Cache defaults
	v.SetDefault("cache.type", "file")
	v.SetDefault("cache.dir", "./data")
	v.SetDefault("cache.max_age", "30m")

	// Scheduler defaults
	v.SetDefault("scheduler.analysis_interval", "5m")
	v.SetDefault("scheduler.batch_size", 100)

	// Catalog defaults
	v.SetDefault("catalog.path", "./data/catalog.json")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Detection.MinConfidence < 0 || config.Detection.MinConfidence > 1 {
		return fmt.Errorf("detection min_confidence must be in [0,1], got: %g", config.Detection.MinConfidence)
	}

	if config.Detection.MinGroupSize < 2 {
		return fmt.Errorf("detection min_group_size must be at least 2, got: %d", config.Detection.MinGroupSize)
	}

	switch config.Cache.Type {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("cache type must be 'memory', 'file' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "file" && config.Cache.Dir == "" {
		return fmt.Errorf("cache dir is required when cache type is 'file'")
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when cache type is 'redis'")
	}

	if config.Scheduler.AnalysisInterval <= 0 {
		return fmt.Errorf("scheduler analysis_interval must be positive, got: %s", config.Scheduler.AnalysisInterval)
	}

	return nil
}

// loadEnvFile loads KEY=VALUE pairs from an optional .env file into the
// process environment. Existing variables are never overridden.
func loadEnvFile() error {
	f, err := os.Open(".env")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" || os.Getenv(key) != "" {
			continue
		}
		os.Setenv(key, strings.TrimSpace(value))
	}
	return scanner.Err()
}
