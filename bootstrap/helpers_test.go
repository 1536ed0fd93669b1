package bootstrap

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"modsecdb/config"

	"go.uber.org/zap"
)

func TestContainsIgnoreCase(t *testing.T) {
	tests := []struct {
		s        string
		substr   string
		expected bool
	}{
		{"Hello World", "hello", true},
		{"Hello World", "WORLD", true},
		{"Hello World", "xyz", false},
		{"", "", true},
		{"abc", "", true},
		{"", "abc", false},
		{"database is locked", "SQLITE_BUSY", false},
	}

	for _, tt := range tests {
		t.Run(tt.s+"_"+tt.substr, func(t *testing.T) {
			result := containsIgnoreCase(tt.s, tt.substr)
			if result != tt.expected {
				t.Errorf("containsIgnoreCase(%q, %q) = %v, want %v", tt.s, tt.substr, result, tt.expected)
			}
		})
	}
}

func TestClassifySQLiteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		dbPath   string
		contains string
	}{
		{
			name:     "nil error returns empty string",
			err:      nil,
			dbPath:   "/data/modsec.db",
			contains: "",
		},
		{
			name:     "permission denied",
			err:      errors.New("open /data/modsec.db: permission denied"),
			dbPath:   "/data/modsec.db",
			contains: "Permission denied",
		},
		{
			name:     "locked",
			err:      errors.New("database is locked (5) (SQLITE_BUSY)"),
			dbPath:   "/data/modsec.db",
			contains: "locked by another process",
		},
		{
			name:     "disk full",
			err:      errors.New("database or disk is full (13) (SQLITE_FULL)"),
			dbPath:   "/data/modsec.db",
			contains: "Disk full",
		},
		{
			name:     "corrupt",
			err:      errors.New("database disk image is malformed"),
			dbPath:   "/data/modsec.db",
			contains: "corrupted",
		},
		{
			name:     "read-only",
			err:      errors.New("attempt to write a read-only database"),
			dbPath:   "/data/modsec.db",
			contains: "read-only file system",
		},
		{
			name:     "unknown",
			err:      errors.New("boom"),
			dbPath:   "/data/modsec.db",
			contains: "Failed to open SQLite database",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifySQLiteError(tt.err, tt.dbPath)
			if tt.contains == "" && result != "" {
				t.Errorf("ClassifySQLiteError() = %q, want empty string", result)
			}
			if tt.contains != "" && !strings.Contains(result, tt.contains) {
				t.Errorf("ClassifySQLiteError() = %q, want to contain %q", result, tt.contains)
			}
		})
	}
}

func TestDataDirectoriesFromConfig(t *testing.T) {
	cfg := &config.Config{DataPaths: config.DataPaths{DataDir: "/srv/modsec"}}
	cfg.ResolveDataPaths()

	dirs := DataDirectoriesFromConfig(cfg)
	if dirs.Base != "/srv/modsec" {
		t.Errorf("Base = %q, want /srv/modsec", dirs.Base)
	}
	if dirs.SQLite != filepath.Join("/srv/modsec", "modsec.db") {
		t.Errorf("SQLite = %q", dirs.SQLite)
	}
}

func TestEnsureDataDirectories(t *testing.T) {
	root := t.TempDir()
	dirs := DataDirectories{
		Base:   filepath.Join(root, "data"),
		SQLite: filepath.Join(root, "db", "nested", "modsec.db"),
	}

	if err := EnsureDataDirectories(dirs, zap.NewNop().Sugar()); err != nil {
		t.Fatalf("EnsureDataDirectories() error = %v", err)
	}
	for _, dir := range []string{dirs.Base, filepath.Dir(dirs.SQLite)} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %s was not created", dir)
		}
		if _, err := os.Stat(filepath.Join(dir, ".modsecdb_write_test")); !os.IsNotExist(err) {
			t.Errorf("write test file left behind in %s", dir)
		}
	}
}

func TestInitLogger(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		t.Run(format, func(t *testing.T) {
			logger, sugar, err := InitLogger("debug", format)
			if err != nil {
				t.Fatalf("InitLogger() error = %v", err)
			}
			if logger == nil || sugar == nil {
				t.Fatal("InitLogger() returned nil logger")
			}
		})
	}

	if _, _, err := InitLogger("verbose", "console"); err == nil {
		t.Error("InitLogger() accepted an unknown level")
	}
	if _, _, err := InitLogger("info", "xml"); err == nil {
		t.Error("InitLogger() accepted an unknown format")
	}
}
