package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerDefaults(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	cfg := manager.GetConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxFileSize)
	assert.Equal(t, []string{"csv", "xlsx", "pdf", "png", "jpg", "jpeg"}, cfg.Upload.AllowedExtensions)
	assert.True(t, cfg.Upload.OCREnabled)
	assert.Equal(t, 256, cfg.Upload.CacheSize)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 60.0, cfg.RateLimit.RequestsPerMinute)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestManagerValidate(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)
	require.NoError(t, manager.Validate())

	t.Run("invalid port", func(t *testing.T) {
		manager.config.Server.Port = 0
		assert.Error(t, manager.Validate())
		manager.config.Server.Port = 8080
	})

	t.Run("invalid max file size", func(t *testing.T) {
		manager.config.Upload.MaxFileSize = 0
		assert.Error(t, manager.Validate())
		manager.config.Upload.MaxFileSize = 1024
	})

	t.Run("no extensions", func(t *testing.T) {
		saved := manager.config.Upload.AllowedExtensions
		manager.config.Upload.AllowedExtensions = nil
		assert.Error(t, manager.Validate())
		manager.config.Upload.AllowedExtensions = saved
	})

	t.Run("invalid rate limit", func(t *testing.T) {
		manager.config.RateLimit.RequestsPerMinute = 0
		assert.Error(t, manager.Validate())
		manager.config.RateLimit.RequestsPerMinute = 60
	})

	t.Run("invalid log level", func(t *testing.T) {
		manager.config.Logging.Level = "verbose"
		assert.Error(t, manager.Validate())
		manager.config.Logging.Level = "info"
	})
}

func TestManagerEnvironmentOverride(t *testing.T) {
	t.Setenv("HEALTHSCORE_SERVER_PORT", "9090")

	manager, err := NewManager()
	require.NoError(t, err)
	assert.Equal(t, 9090, manager.GetServerConfig().Port)
}

func TestManagerAccessors(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	assert.Same(t, &manager.config.Server, manager.GetServerConfig())
	assert.Same(t, &manager.config.Upload, manager.GetUploadConfig())
}
