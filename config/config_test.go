package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Clean up environment before tests
	cleanupEnv := func() {
		os.Unsetenv("VARIANTLENS_SERVER_PORT")
		os.Unsetenv("VARIANTLENS_SERVER_ENVIRONMENT")
		os.Unsetenv("VARIANTLENS_DETECTION_MIN_CONFIDENCE")
		os.Unsetenv("VARIANTLENS_DETECTION_ENABLE_ML_DETECTION")
		os.Unsetenv("VARIANTLENS_CACHE_TYPE")
		os.Unsetenv("VARIANTLENS_CACHE_DIR")
		os.Unsetenv("VARIANTLENS_CACHE_REDIS_URL")
		os.Unsetenv("VARIANTLENS_CACHE_MAX_AGE")
		os.Unsetenv("VARIANTLENS_SCHEDULER_ANALYSIS_INTERVAL")
		os.Unsetenv("VARIANTLENS_RATELIMIT_PER_IP")
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		// Check defaults
		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Detection.MinConfidence != 0.6 {
			t.Errorf("Detection.MinConfidence = %g, want 0.6", cfg.Detection.MinConfidence)
		}
		if cfg.Detection.MinGroupSize != 2 {
			t.Errorf("Detection.MinGroupSize = %d, want 2", cfg.Detection.MinGroupSize)
		}
		if !cfg.Detection.EnableSKUDetection {
			t.Error("Detection.EnableSKUDetection = false, want true")
		}
		if cfg.Detection.EnableMLDetection {
			t.Error("Detection.EnableMLDetection = true, want false")
		}
		if cfg.Cache.Type != "file" {
			t.Errorf("Cache.Type = %s, want file", cfg.Cache.Type)
		}
		if cfg.Cache.MaxAge != 30*time.Minute {
			t.Errorf("Cache.MaxAge = %v, want 30m", cfg.Cache.MaxAge)
		}
		if cfg.Scheduler.AnalysisInterval != 5*time.Minute {
			t.Errorf("Scheduler.AnalysisInterval = %v, want 5m", cfg.Scheduler.AnalysisInterval)
		}
		if cfg.Scheduler.BatchSize != 100 {
			t.Errorf("Scheduler.BatchSize = %d, want 100", cfg.Scheduler.BatchSize)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("VARIANTLENS_SERVER_PORT", "9090")
		os.Setenv("VARIANTLENS_SERVER_ENVIRONMENT", "production")
		os.Setenv("VARIANTLENS_DETECTION_MIN_CONFIDENCE", "0.75")
		os.Setenv("VARIANTLENS_DETECTION_ENABLE_ML_DETECTION", "true")
		os.Setenv("VARIANTLENS_CACHE_TYPE", "redis")
		os.Setenv("VARIANTLENS_CACHE_REDIS_URL", "redis://localhost:6379")
		os.Setenv("VARIANTLENS_CACHE_MAX_AGE", "1h")
		os.Setenv("VARIANTLENS_RATELIMIT_PER_IP", "200")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Detection.MinConfidence != 0.75 {
			t.Errorf("Detection.MinConfidence = %g, want 0.75", cfg.Detection.MinConfidence)
		}
		if !cfg.Detection.EnableMLDetection {
			t.Error("Detection.EnableMLDetection = false, want true")
		}
		if cfg.Cache.Type != "redis" {
			t.Errorf("Cache.Type = %s, want redis", cfg.Cache.Type)
		}
		if cfg.Cache.RedisURL != "redis://localhost:6379" {
			t.Errorf("Cache.RedisURL = %s, want redis://localhost:6379", cfg.Cache.RedisURL)
		}
		if cfg.Cache.MaxAge != time.Hour {
			t.Errorf("Cache.MaxAge = %v, want 1h", cfg.Cache.MaxAge)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("VARIANTLENS_CACHE_TYPE", "invalid")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for invalid cache type")
		}
	})

	t.Run("fails validation when redis URL missing for redis cache", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("VARIANTLENS_CACHE_TYPE", "redis")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for missing Redis URL")
		}
	})

	t.Run("fails validation for out-of-range confidence", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("VARIANTLENS_DETECTION_MIN_CONFIDENCE", "1.5")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for min_confidence > 1")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		if err := loadEnvFile(); err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables from .env file", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		envContent := `
# Comment line
TEST_VAR_1=value1
TEST_VAR_2=value2
`
		if err := os.WriteFile(".env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_VAR_1") != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", os.Getenv("TEST_VAR_1"))
		}
		if os.Getenv("TEST_VAR_2") != "value2" {
			t.Errorf("TEST_VAR_2 = %s, want value2", os.Getenv("TEST_VAR_2"))
		}

		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		os.Setenv("TEST_OVERRIDE", "existing-value")

		if err := os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}

		os.Unsetenv("TEST_OVERRIDE")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Detection: DetectionConfig{MinConfidence: 0.6, MinGroupSize: 2},
			Cache:     CacheConfig{Type: "memory"},
			Scheduler: SchedulerConfig{AnalysisInterval: 5 * time.Minute},
		}
	}

	t.Run("validates successfully with all required fields", func(t *testing.T) {
		if err := validate(valid()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	t.Run("fails for group size below two", func(t *testing.T) {
		cfg := valid()
		cfg.Detection.MinGroupSize = 1
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for min_group_size < 2")
		}
	})

	t.Run("fails for file cache without dir", func(t *testing.T) {
		cfg := valid()
		cfg.Cache.Type = "file"
		cfg.Cache.Dir = ""
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for file cache without dir")
		}
	})

	t.Run("validates redis cache type with URL", func(t *testing.T) {
		cfg := valid()
		cfg.Cache.Type = "redis"
		cfg.Cache.RedisURL = "redis://localhost:6379"
		if err := validate(cfg); err != nil {
			t.Errorf("validate() error = %v, want nil for valid redis config", err)
		}
	})

	t.Run("fails for non-positive analysis interval", func(t *testing.T) {
		cfg := valid()
		cfg.Scheduler.AnalysisInterval = 0
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for zero analysis_interval")
		}
	})
}
