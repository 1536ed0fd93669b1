package cmd

import (
	"errors"
	"fmt"
	"time"

	"modsecdb/bootstrap"
	"modsecdb/ingest"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// importSummary is the JSON form of a finished import.
type importSummary struct {
	RunID            string  `json:"run_id"`
	LogFile          string  `json:"log_file"`
	Database         string  `json:"database"`
	Boundaries       int     `json:"boundaries"`
	Records          int     `json:"records"`
	Skipped          int     `json:"skipped"`
	Abandoned        int     `json:"abandoned"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
	RecordsPerSecond float64 `json:"records_per_second"`
	Truncated        bool    `json:"truncated,omitempty"`
}

// newImportCmd creates the 'import' command
func newImportCmd() *cobra.Command {
	var (
		indexPath   string
		dbPath      string
		weightsFile string
		layoutFile  string
		checkpoint  int
		progress    bool
	)

	cmd := &cobra.Command{
		Use:   "import <audit-log>",
		Short: "Import an audit log into the database",
		Long: `Import a ModSecurity audit log into the SQLite database.

Section boundaries are read from a saved index (see 'modsecdb index') or
found by scanning the log first. Records that are already in the database
are replaced, so a log can be imported again safely.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sugar, err := loadRuntime()
			if err != nil {
				return err
			}
			defer sugar.Sync() //nolint:errcheck

			if dbPath != "" {
				cfg.DataPaths.SQLitePath = dbPath
			}
			if weightsFile != "" {
				cfg.Rules.WeightsFile = weightsFile
			}
			if layoutFile != "" {
				cfg.Rules.LayoutFile = layoutFile
			}
			if cmd.Flags().Changed("checkpoint") {
				if checkpoint < 0 {
					return fmt.Errorf("--checkpoint must not be negative")
				}
				cfg.Import.CheckpointRecords = checkpoint
			}

			ctx, cancel := signalContext()
			defer cancel()

			app, err := bootstrap.NewApp(ctx, cfg, sugar)
			if err != nil {
				return err
			}
			defer app.Close()

			if !quiet && !outputJSON {
				infoColor.Printf("Importing %s into %s\n", args[0], cfg.GetSQLitePath())
			}

			var s *spinner.Spinner
			if progress && !outputJSON && !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Suffix = " Importing audit records..."
				s.Start()
			}

			result, err := app.Import(ctx, bootstrap.ImportOptions{LogPath: args[0], IndexPath: indexPath})

			if s != nil {
				s.Stop()
			}

			truncated := errors.Is(err, ingest.ErrBoundaryPastEOF)
			if err != nil && !truncated {
				return err
			}

			summary := importSummary{
				RunID:            result.RunID,
				LogFile:          args[0],
				Database:         cfg.GetSQLitePath(),
				Boundaries:       result.Markers,
				Records:          result.Stats.Records,
				Skipped:          result.Stats.Skipped,
				Abandoned:        result.Stats.Abandoned,
				ElapsedSeconds:   result.Stats.Elapsed.Seconds(),
				RecordsPerSecond: result.Stats.Rate(),
				Truncated:        truncated,
			}
			if outputJSON {
				if jerr := outputAsJSON(summary); jerr != nil {
					return jerr
				}
			} else if !quiet {
				renderImportSummary(summary)
			}

			// Records before the truncation are committed, but the run failed.
			return err
		},
	}

	cmd.Flags().StringVar(&indexPath, "index", "", "Saved boundary index for the log")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides data_paths.sqlite_path)")
	cmd.Flags().StringVar(&weightsFile, "weights", "", "Rule weight file (overrides rules.weights_file)")
	cmd.Flags().StringVar(&layoutFile, "layout", "", "Category layout YAML (overrides rules.layout_file)")
	cmd.Flags().IntVar(&checkpoint, "checkpoint", 0, "Commit every N records (overrides import.checkpoint_records)")
	cmd.Flags().BoolVar(&progress, "progress", true, "Show progress indicator")

	return cmd
}
