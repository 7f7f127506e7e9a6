package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Defaults and loading ────────────────────────────────────────────────────

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "reports", cfg.Reports.Dir)
	assert.Equal(t, "reports/zipped_reports", cfg.Reports.ZipDir)
	assert.Equal(t, "database/forensics.db", cfg.Ledger.Path)
	assert.False(t, cfg.Bus.Enabled)
	assert.Equal(t, "info", cfg.LogLevel())

	for _, d := range Domains {
		assert.True(t, cfg.IsDomainEnabled(d), "domain %s should default to enabled", d)
		assert.Empty(t, cfg.ModelPath(d))
	}
}

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "reports", cfg.Reports.Dir)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "droidsift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
reports:
  dir: /evidence/reports
  zip_dir: /evidence/zips
domains:
  bandwidth:
    enabled: true
    settings:
      threshold_mb: 2.5
  ssl:
    enabled: false
models:
  dns: models/dns.json
logging:
  level: DEBUG
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/evidence/reports", cfg.Reports.Dir)
	assert.Equal(t, 2.5, cfg.FloatSetting(DomainBandwidth, "threshold_mb", 1.0))
	assert.False(t, cfg.IsDomainEnabled(DomainSSL))
	assert.True(t, cfg.IsDomainEnabled(DomainBandwidth))
	assert.Equal(t, "models/dns.json", cfg.ModelPath(DomainDNS))
	assert.Equal(t, "debug", cfg.LogLevel())
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "droidsift.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reports: [not a map"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestIntelKeyFromEnv(t *testing.T) {
	t.Setenv("VT_API_KEY", "env-key")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Intel.APIKey)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "droidsift.yaml")
	cfg := DefaultConfig()
	cfg.Logging.Level = "warn"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", loaded.LogLevel())
}

// ─── Setting accessors ───────────────────────────────────────────────────────

func TestFloatSettingToleratesInts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Domains["bandwidth"] = DomainConfig{
		Enabled:  true,
		Settings: map[string]interface{}{"threshold_mb": 3},
	}
	assert.Equal(t, 3.0, cfg.FloatSetting(DomainBandwidth, "threshold_mb", 1.0))
	assert.Equal(t, 1.0, cfg.FloatSetting(DomainBandwidth, "absent", 1.0))
}

func TestIntSettingToleratesFloats(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Domains["email"] = DomainConfig{
		Enabled:  true,
		Settings: map[string]interface{}{"bulk_threshold": 5.0},
	}
	assert.Equal(t, 5, cfg.IntSetting(DomainEmail, "bulk_threshold", 10))
}
