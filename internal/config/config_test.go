package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path string, content []byte) error {
	return os.WriteFile(path, content, 0o600)
}

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, "lending-engine", cfg.RabbitMQ.ExchangeName)
	assert.Equal(t, "America/Bogota", cfg.Batch.Timezone)
	assert.Equal(t, "0 3 * * *", cfg.Batch.OverdueAccrualSchedule)
	assert.Equal(t, 360, cfg.Business.OverdueDayCount)
	assert.Equal(t, "CO", cfg.Business.DefaultCountry)
	assert.Equal(t, 500.0, cfg.Business.ForgivableRounding["CO"])
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL)
}

func TestLoadConfigFromFile(t *testing.T) {
	viper.Reset()

	dir := t.TempDir()
	content := []byte(`
server:
  port: 9999
batch:
  timezone: UTC
business:
  forgivableRounding:
    CO: 100
    MX: 1
`)
	require.NoError(t, writeFile(dir+"/config.yml", content))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "UTC", cfg.Batch.Timezone)
	assert.Equal(t, 100.0, cfg.Business.ForgivableRounding["CO"])
	assert.Equal(t, 1.0, cfg.Business.ForgivableRounding["MX"])
}
