package bootstrap

import (
	"context"
	"fmt"
	"os"

	"modsecdb/storage"

	"go.uber.org/zap"
)

// InitSQLite opens the output database and creates the tables schema names.
func InitSQLite(ctx context.Context, dirs DataDirectories, schema *storage.Schema, sugar *zap.SugaredLogger) (*storage.SQLite, error) {
	sqlite, err := storage.NewSQLite(dirs.SQLite, sugar)
	if err != nil {
		printFatal("SQLite Initialization Failed", ClassifySQLiteError(err, dirs.SQLite))
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}

	if err := sqlite.HealthCheck(ctx); err != nil {
		_ = sqlite.Close()
		printFatal("SQLite Health Check Failed", ClassifySQLiteError(err, dirs.SQLite))
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}

	if err := sqlite.EnsureSchema(ctx, schema); err != nil {
		_ = sqlite.Close()
		printFatal("Schema Creation Failed", ClassifySQLiteError(err, dirs.SQLite))
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	sugar.Infow("SQLite initialized", "path", dirs.SQLite, "tables", len(schema.Tables()))
	return sqlite, nil
}

func printFatal(title, msg string) {
	fmt.Fprintf(os.Stderr, "\n========================================\n")
	fmt.Fprintf(os.Stderr, "FATAL: %s\n", title)
	fmt.Fprintf(os.Stderr, "========================================\n")
	fmt.Fprintf(os.Stderr, "%s\n", msg)
	fmt.Fprintf(os.Stderr, "========================================\n\n")
}
