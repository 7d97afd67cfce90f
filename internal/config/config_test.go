package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "swap-server", cfg.App.Name)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 70, cfg.Swap.HealthThreshold)
	assert.Equal(t, "reject", cfg.Swap.MismatchPolicy)
	assert.Equal(t, time.Hour, cfg.Swap.RetryGrace)
	assert.Equal(t, 30*time.Minute, cfg.Swap.SweepInterval)
	assert.Equal(t, time.Hour, cfg.Swap.CancelCutoff)
	assert.Equal(t, "@every 15m", cfg.Audit.Spec)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swap.yaml")
	content := []byte(`
database:
  driver: sqlite
  dsn: "file:swap.db"
swap:
  mismatchPolicy: defer
  retryGrace: 90m
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("SWAP_SWAP_HEALTHTHRESHOLD", "65")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "defer", cfg.Swap.MismatchPolicy)
	assert.Equal(t, 90*time.Minute, cfg.Swap.RetryGrace)
	assert.Equal(t, 65, cfg.Swap.HealthThreshold)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "postgres"},
			Swap: SwapConfig{
				HealthThreshold: 70,
				MismatchPolicy:  "reject",
				RetryGrace:      time.Hour,
				SweepInterval:   30 * time.Minute,
				NodeID:          1,
			},
		}
	}

	t.Run("合法配置", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("未知数据库驱动", func(t *testing.T) {
		c := base()
		c.Database.Driver = "mysql"
		assert.Error(t, c.Validate())
	})

	t.Run("未知错配策略", func(t *testing.T) {
		c := base()
		c.Swap.MismatchPolicy = "ignore"
		assert.Error(t, c.Validate())
	})

	t.Run("健康阈值越界", func(t *testing.T) {
		c := base()
		c.Swap.HealthThreshold = 120
		assert.Error(t, c.Validate())
	})
}
