// Package config provides environment-driven configuration for the Scrapply server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration. Every field is a pure parameter:
// none of them changes the shape of the pipeline state machine.
type Config struct {
	Port        int
	DatabaseURL string
	APIKey      string

	// Sandbox limits. Static scrapers get the shorter timeout and lower
	// memory ceiling; browser-backed scrapers launch a rendering engine and
	// need the larger pair.
	SandboxTimeout       time.Duration
	DynamicTimeout       time.Duration
	MemoryLimitMB        int
	DynamicMemoryLimitMB int
	PythonBin            string

	// Pipeline behavior.
	MaxConcurrentJobs int
	SampleSize        int

	// Strategy confidence cut points.
	DynamicThreshold float64
	HybridThreshold  float64

	// Fetching.
	FetchTimeout time.Duration
	MaxPageSize  int
	UserAgent    string
}

// Default returns the configuration defaults used when an environment
// variable is unset.
func Default() *Config {
	return &Config{
		Port:                 8080,
		SandboxTimeout:       30 * time.Second,
		DynamicTimeout:       60 * time.Second,
		MemoryLimitMB:        512,
		DynamicMemoryLimitMB: 1024,
		PythonBin:            "python3",
		MaxConcurrentJobs:    5,
		SampleSize:           3,
		DynamicThreshold:     0.7,
		HybridThreshold:      0.3,
		FetchTimeout:         10 * time.Second,
		MaxPageSize:          2_000_000,
		UserAgent:            "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	}
}

// FromEnv loads configuration from environment variables on top of defaults.
func FromEnv() (*Config, error) {
	cfg := Default()

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.APIKey = os.Getenv("GEMINI_API_KEY")

	var err error
	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return nil, err
	}
	if cfg.SandboxTimeout, err = envSeconds("SANDBOX_TIMEOUT", cfg.SandboxTimeout); err != nil {
		return nil, err
	}
	if cfg.DynamicTimeout, err = envSeconds("SANDBOX_DYNAMIC_TIMEOUT", cfg.DynamicTimeout); err != nil {
		return nil, err
	}
	if cfg.MemoryLimitMB, err = envInt("SANDBOX_MEMORY_LIMIT", cfg.MemoryLimitMB); err != nil {
		return nil, err
	}
	if cfg.DynamicMemoryLimitMB, err = envInt("SANDBOX_DYNAMIC_MEMORY_LIMIT", cfg.DynamicMemoryLimitMB); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentJobs, err = envInt("MAX_CONCURRENT_JOBS", cfg.MaxConcurrentJobs); err != nil {
		return nil, err
	}
	if cfg.SampleSize, err = envInt("SAMPLE_SIZE", cfg.SampleSize); err != nil {
		return nil, err
	}
	if cfg.DynamicThreshold, err = envFloat("DYNAMIC_CONFIDENCE_THRESHOLD", cfg.DynamicThreshold); err != nil {
		return nil, err
	}
	if cfg.HybridThreshold, err = envFloat("HYBRID_CONFIDENCE_THRESHOLD", cfg.HybridThreshold); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = envSeconds("FETCH_TIMEOUT", cfg.FetchTimeout); err != nil {
		return nil, err
	}
	if cfg.MaxPageSize, err = envInt("MAX_PAGE_SIZE", cfg.MaxPageSize); err != nil {
		return nil, err
	}
	if v := os.Getenv("PYTHON_BIN"); v != "" {
		cfg.PythonBin = v
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}

	return cfg, cfg.Validate()
}

// Validate checks numeric ranges and threshold ordering.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: invalid port %d", c.Port)
	}
	if c.MaxConcurrentJobs < 1 {
		return fmt.Errorf("config error: MAX_CONCURRENT_JOBS must be at least 1")
	}
	if c.SampleSize < 1 {
		return fmt.Errorf("config error: SAMPLE_SIZE must be at least 1")
	}
	if c.DynamicThreshold < 0 || c.DynamicThreshold > 1 {
		return fmt.Errorf("config error: DYNAMIC_CONFIDENCE_THRESHOLD must be in [0,1]")
	}
	if c.HybridThreshold < 0 || c.HybridThreshold > 1 {
		return fmt.Errorf("config error: HYBRID_CONFIDENCE_THRESHOLD must be in [0,1]")
	}
	if c.HybridThreshold > c.DynamicThreshold {
		return fmt.Errorf("config error: hybrid threshold (%.2f) must not exceed dynamic threshold (%.2f)",
			c.HybridThreshold, c.DynamicThreshold)
	}
	if c.SandboxTimeout <= 0 || c.DynamicTimeout <= 0 {
		return fmt.Errorf("config error: sandbox timeouts must be positive")
	}
	if c.MemoryLimitMB < 1 || c.DynamicMemoryLimitMB < 1 {
		return fmt.Errorf("config error: memory limits must be positive")
	}
	return nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config error: %s=%q is not an integer", key, v)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config error: %s=%q is not a number", key, v)
	}
	return f, nil
}

func envSeconds(key string, def time.Duration) (time.Duration, error) {
	n, err := envInt(key, int(def/time.Second))
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}
