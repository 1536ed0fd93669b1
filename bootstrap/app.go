package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"modsecdb/config"
	"modsecdb/core"
	"modsecdb/detect"
	"modsecdb/dictionary"
	"modsecdb/ingest"
	"modsecdb/metrics"
	"modsecdb/storage"

	"go.uber.org/zap"
)

// App holds the long lived components of an import: the rule catalog and
// layout, the compiled extractor and the open output database.
type App struct {
	Config *config.Config
	Sugar  *zap.SugaredLogger

	Catalog   *detect.Catalog
	Layout    *detect.Layout
	Scorer    *detect.Scorer
	Extractor *ingest.Extractor
	Schema    *storage.Schema
	SQLite    *storage.SQLite
}

// ImportOptions selects the inputs of one import.
type ImportOptions struct {
	// LogPath is the audit log to import.
	LogPath string
	// IndexPath is an optional saved boundary index. When empty, the log is
	// scanned for boundaries first.
	IndexPath string
}

// ImportResult summarizes one import.
type ImportResult struct {
	RunID   string
	Markers int
	Stats   ingest.Stats
}

// LoadRules reads the rule catalog and the category layout named by cfg. A
// missing layout file is replaced by one derived from the catalog. Catalog
// categories absent from the layout are appended.
func LoadRules(cfg *config.Config, sugar *zap.SugaredLogger) (*detect.Catalog, *detect.Layout, error) {
	catalog, err := detect.LoadCatalog(cfg.Rules.WeightsFile, sugar)
	if err != nil {
		return nil, nil, err
	}

	var layout *detect.Layout
	if cfg.Rules.LayoutFile != "" {
		layout, err = detect.LoadLayout(cfg.Rules.LayoutFile, sugar)
		if err != nil {
			return nil, nil, err
		}
		layout.Complete(catalog, sugar)
	} else {
		layout = detect.DeriveLayout(catalog)
		sugar.Infow("No layout file configured, deriving tables from catalog",
			"categories", len(layout.Categories))
	}

	if err := layout.Validate(); err != nil {
		return nil, nil, err
	}
	return catalog, layout, nil
}

// NewApp loads rules, compiles the extraction patterns and opens the
// database with its schema in place.
func NewApp(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*App, error) {
	if sugar == nil {
		sugar = zap.NewNop().Sugar()
	}

	catalog, layout, err := LoadRules(cfg, sugar)
	if err != nil {
		return nil, err
	}

	extractor, err := ingest.NewExtractor(cfg.Import.MatchTimeout, sugar)
	if err != nil {
		return nil, err
	}

	schema, err := storage.NewSchema(layout.Tables())
	if err != nil {
		return nil, err
	}

	dirs := DataDirectoriesFromConfig(cfg)
	if err := EnsureDataDirectories(dirs, sugar); err != nil {
		return nil, err
	}

	sqlite, err := InitSQLite(ctx, dirs, schema, sugar)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:    cfg,
		Sugar:     sugar,
		Catalog:   catalog,
		Layout:    layout,
		Scorer:    detect.NewScorer(catalog, layout, sugar),
		Extractor: extractor,
		Schema:    schema,
		SQLite:    sqlite,
	}, nil
}

// Import runs one audit log through the pipeline and records the run in the
// import_runs table. Records committed before a failure stay committed when
// the failure is a truncated log.
func (a *App) Import(ctx context.Context, opts ImportOptions) (*ImportResult, error) {
	f, err := os.Open(opts.LogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	markers, err := a.boundaries(ctx, f, opts)
	if err != nil {
		return nil, err
	}

	writer, err := storage.NewRecordWriter(ctx, a.SQLite, a.Schema)
	if err != nil {
		return nil, err
	}
	defer writer.Close()

	dict := dictionary.New(a.Sugar)
	if err := a.SQLite.SeedDictionary(ctx, dict); err != nil {
		return nil, err
	}

	runID, err := a.SQLite.StartRun(ctx, opts.LogPath)
	if err != nil {
		return nil, err
	}

	processor, err := ingest.NewProcessor(writer, dict, a.Scorer, a.Extractor, ingest.ProcessorConfig{
		CheckpointRecords:  a.Config.Import.CheckpointRecords,
		ProgressInterval:   a.Config.Import.ProgressInterval,
		TimestampCacheSize: a.Config.Import.TimestampCacheSize,
	}, a.Sugar)
	if err != nil {
		return nil, err
	}

	a.Sugar.Infow("Import started",
		"run_id", runID,
		"log_file", opts.LogPath,
		"boundaries", len(markers))

	stats, runErr := processor.Run(ctx, f, markers)

	// The import context may be cancelled; the run row is still closed out.
	if err := a.SQLite.FinishRun(context.WithoutCancel(ctx), runID, stats.Records, stats.Skipped, stats.Elapsed, runErr); err != nil {
		a.Sugar.Errorw("Failed to record import run", "run_id", runID, "error", err)
	}
	a.writeMetrics()

	result := &ImportResult{RunID: runID, Markers: len(markers), Stats: stats}
	if runErr != nil {
		a.Sugar.Errorw("Import failed",
			"run_id", runID,
			"records", stats.Records,
			"error", runErr)
		return result, fmt.Errorf("import of %s failed: %w", opts.LogPath, runErr)
	}

	a.Sugar.Infow("Import finished",
		"run_id", runID,
		"records", stats.Records,
		"skipped", stats.Skipped,
		"abandoned", stats.Abandoned,
		"elapsed", stats.Elapsed,
		"records_per_second", stats.Rate())
	return result, nil
}

// boundaries loads the saved index, or scans f and rewinds it.
func (a *App) boundaries(ctx context.Context, f *os.File, opts ImportOptions) ([]core.BoundaryMarker, error) {
	if opts.IndexPath != "" {
		idx, err := ingest.ReadIndex(opts.IndexPath)
		if err != nil {
			return nil, err
		}
		if idx.Source != "" && filepath.Base(idx.Source) != filepath.Base(opts.LogPath) {
			return nil, fmt.Errorf("%w: index built from %s", ingest.ErrIndexMismatch, idx.Source)
		}
		a.Sugar.Infow("Loaded boundary index", "file", opts.IndexPath, "boundaries", len(idx.Markers))
		return idx.Markers, nil
	}

	markers, err := ingest.BuildIndex(ctx, f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind log file: %w", err)
	}
	return markers, nil
}

func (a *App) writeMetrics() {
	path := a.Config.Metrics.Textfile
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		a.Sugar.Warnw("Failed to export metrics", "file", path, "error", err)
	}
}

// Close releases the database.
func (a *App) Close() error {
	if a.SQLite == nil {
		return nil
	}
	if err := a.SQLite.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
