package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MODSECDB_LOGGING_LEVEL.
const EnvPrefix = "MODSECDB"

// DataPaths holds the data directory and database location
type DataPaths struct {
	// DataDir is the base data directory (MODSECDB_DATA_DIR, default: ./data)
	DataDir string `mapstructure:"data_dir"`
	// SQLitePath is the output database (MODSECDB_SQLITE_PATH, default: {data_dir}/modsec.db)
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Import tunes the import pipeline
type Import struct {
	// CheckpointRecords commits every N records; 0 commits once per run.
	CheckpointRecords  int           `mapstructure:"checkpoint_records" validate:"gte=0"`
	ProgressInterval   time.Duration `mapstructure:"progress_interval" validate:"gte=0"`
	TimestampCacheSize int           `mapstructure:"timestamp_cache_size" validate:"gte=1"`
	MatchTimeout       time.Duration `mapstructure:"match_timeout" validate:"gt=0"`
}

// Rules locates the rule weight file and the optional category layout
type Rules struct {
	WeightsFile string `mapstructure:"weights_file" validate:"required"`
	LayoutFile  string `mapstructure:"layout_file"`
}

// Logging configures the zap logger
type Logging struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// Metrics configures the optional Prometheus textfile export
type Metrics struct {
	Textfile string `mapstructure:"textfile"`
}

// Config holds all application configuration
type Config struct {
	DataPaths DataPaths `mapstructure:"data_paths"`
	Import    Import    `mapstructure:"import"`
	Rules     Rules     `mapstructure:"rules"`
	Logging   Logging   `mapstructure:"logging"`
	Metrics   Metrics   `mapstructure:"metrics"`
}

func setDefaults() {
	viper.SetDefault("data_paths.data_dir", "./data")
	viper.SetDefault("data_paths.sqlite_path", "") // Empty = derive from data_dir
	viper.SetDefault("import.checkpoint_records", 0)
	viper.SetDefault("import.progress_interval", 5*time.Second)
	viper.SetDefault("import.timestamp_cache_size", 4096)
	viper.SetDefault("import.match_timeout", 100*time.Millisecond)
	viper.SetDefault("rules.weights_file", "./rules/weights.txt")
	viper.SetDefault("rules.layout_file", "")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("metrics.textfile", "")
}

func loadFromEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Shorter names for the path settings
	_ = viper.BindEnv("data_paths.data_dir", EnvPrefix+"_DATA_DIR")
	_ = viper.BindEnv("data_paths.sqlite_path", EnvPrefix+"_SQLITE_PATH")
}

// LoadConfig reads config.yaml from the working directory or ./config, or
// the explicit file when path is set, then applies MODSECDB_* environment
// overrides. A missing default config file is not an error.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	config.ResolveDataPaths()
	return &config, nil
}

// ConfigFileUsed returns the config file that was read, if any.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// ResolveDataPaths derives unset paths from data_dir.
func (c *Config) ResolveDataPaths() {
	dataDir := c.DataPaths.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}

	if c.DataPaths.SQLitePath == "" {
		c.DataPaths.SQLitePath = filepath.Join(dataDir, "modsec.db")
	} else if c.DataPaths.SQLitePath != ":memory:" && !filepath.IsAbs(c.DataPaths.SQLitePath) {
		// Relative to the working directory, not data_dir
		c.DataPaths.SQLitePath = filepath.Clean(c.DataPaths.SQLitePath)
	}

	c.DataPaths.DataDir = dataDir
}

// GetDataDir returns the resolved data directory
func (c *Config) GetDataDir() string {
	return c.DataPaths.DataDir
}

// GetSQLitePath returns the resolved database path
func (c *Config) GetSQLitePath() string {
	return c.DataPaths.SQLitePath
}

func validateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
