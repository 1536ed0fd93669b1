package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	resetViper(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.GetDataDir())
	assert.Equal(t, filepath.Join("./data", "modsec.db"), cfg.GetSQLitePath())
	assert.Equal(t, 0, cfg.Import.CheckpointRecords)
	assert.Equal(t, 5*time.Second, cfg.Import.ProgressInterval)
	assert.Equal(t, 4096, cfg.Import.TimestampCacheSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Import.MatchTimeout)
	assert.Equal(t, "./rules/weights.txt", cfg.Rules.WeightsFile)
	assert.Empty(t, cfg.Rules.LayoutFile)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadConfigFile(t *testing.T) {
	resetViper(t)
	path := writeConfig(t, `
data_paths:
  data_dir: /srv/modsec
import:
  checkpoint_records: 5000
  progress_interval: 30s
  match_timeout: 250ms
rules:
  weights_file: /etc/modsecdb/weights.txt
  layout_file: /etc/modsecdb/layout.yaml
logging:
  level: debug
  format: json
metrics:
  textfile: /var/lib/node_exporter/modsecdb.prom
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, path, ConfigFileUsed())
	assert.Equal(t, "/srv/modsec/modsec.db", cfg.GetSQLitePath())
	assert.Equal(t, 5000, cfg.Import.CheckpointRecords)
	assert.Equal(t, 30*time.Second, cfg.Import.ProgressInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.Import.MatchTimeout)
	assert.Equal(t, "/etc/modsecdb/layout.yaml", cfg.Rules.LayoutFile)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/var/lib/node_exporter/modsecdb.prom", cfg.Metrics.Textfile)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	resetViper(t)
	t.Setenv("MODSECDB_SQLITE_PATH", "/tmp/override.db")
	t.Setenv("MODSECDB_IMPORT_CHECKPOINT_RECORDS", "250")
	t.Setenv("MODSECDB_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfig(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.db", cfg.GetSQLitePath())
	assert.Equal(t, 250, cfg.Import.CheckpointRecords)
	assert.Equal(t, "warn", cfg.Logging.Level, "environment wins over the file")
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative checkpoint", "import:\n  checkpoint_records: -1\n"},
		{"bad level", "logging:\n  level: verbose\n"},
		{"bad format", "logging:\n  format: xml\n"},
		{"zero cache", "import:\n  timestamp_cache_size: 0\n"},
		{"empty weights", "rules:\n  weights_file: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	resetViper(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestResolveDataPathsKeepsMemory(t *testing.T) {
	cfg := &Config{DataPaths: DataPaths{SQLitePath: ":memory:"}}
	cfg.ResolveDataPaths()
	assert.Equal(t, ":memory:", cfg.GetSQLitePath())
	assert.Equal(t, "./data", cfg.GetDataDir())
}
