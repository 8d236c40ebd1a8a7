package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.SandboxTimeout)
	assert.Equal(t, 60*time.Second, cfg.DynamicTimeout)
	assert.Equal(t, 512, cfg.MemoryLimitMB)
	assert.Equal(t, 1024, cfg.DynamicMemoryLimitMB)
	assert.Equal(t, 5, cfg.MaxConcurrentJobs)
	assert.Equal(t, 3, cfg.SampleSize)
	assert.InDelta(t, 0.7, cfg.DynamicThreshold, 1e-9)
	assert.InDelta(t, 0.3, cfg.HybridThreshold, 1e-9)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/scrapply")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("SANDBOX_TIMEOUT", "45")
	t.Setenv("SANDBOX_MEMORY_LIMIT", "256")
	t.Setenv("MAX_CONCURRENT_JOBS", "2")
	t.Setenv("DYNAMIC_CONFIDENCE_THRESHOLD", "0.8")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "postgres://localhost/scrapply", cfg.DatabaseURL)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, 45*time.Second, cfg.SandboxTimeout)
	assert.Equal(t, 256, cfg.MemoryLimitMB)
	assert.Equal(t, 2, cfg.MaxConcurrentJobs)
	assert.InDelta(t, 0.8, cfg.DynamicThreshold, 1e-9)
}

func TestFromEnv_BadValue(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	cfg := Default()
	cfg.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.MaxConcurrentJobs = 0
	assert.Error(t, cfg.Validate())

	// Thresholds must keep hybrid below dynamic.
	cfg = Default()
	cfg.HybridThreshold = 0.9
	assert.Error(t, cfg.Validate())
}
