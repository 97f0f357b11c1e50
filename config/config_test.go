package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))

	assert.Equal(t, "bolt", cfg.Database.Type)
	assert.Equal(t, 5, cfg.Inventory.LowStockThreshold)
	assert.Equal(t, 1817, cfg.Web.Port)
	assert.False(t, cfg.License.Enabled)
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sunflower.yml")
	data := []byte("system:\n  workdir: /tmp/sf\nweb:\n  port: 9000\ninventory:\n  low_stock_threshold: 3\n")
	require.NoError(t, os.WriteFile(file, data, 0o600))

	t.Setenv("SUNFLOWER_WEB_PORT", "9100")
	t.Setenv("SUNFLOWER_LICENSE_ENABLED", "TRUE")

	cfg := LoadConfig(file)
	assert.Equal(t, "/tmp/sf", cfg.System.Workdir)
	assert.Equal(t, 9100, cfg.Web.Port)
	assert.Equal(t, 3, cfg.Inventory.LowStockThreshold)
	assert.True(t, cfg.License.Enabled)
	assert.Equal(t, "/tmp/sf/backup", cfg.GetBackupDir())

	// defaults are not mutated by a load
	assert.Equal(t, 1817, DefaultAppConfig.Web.Port)
}
