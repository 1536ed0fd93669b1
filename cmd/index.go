package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"modsecdb/ingest"

	"github.com/spf13/cobra"
)

// newIndexCmd creates the 'index' command
func newIndexCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "index <audit-log>",
		Short: "Find the section boundaries of an audit log",
		Long: `Scan an audit log for section boundary lines (--<id>-<letter>--).

With --out the boundaries are saved in a binary index that 'modsecdb import
--index' can reuse. Otherwise they are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer f.Close()

			markers, err := ingest.BuildIndex(ctx, f)
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := ingest.WriteIndex(outPath, filepath.Base(args[0]), markers); err != nil {
					return err
				}
				if outputJSON {
					return outputAsJSON(map[string]interface{}{
						"source":     args[0],
						"index":      outPath,
						"boundaries": len(markers),
					})
				}
				if !quiet {
					successColor.Printf("✓ Saved %d boundaries to %s\n", len(markers), outPath)
				}
				return nil
			}

			if outputJSON {
				return outputAsJSON(ingest.Index{
					Version: ingest.IndexVersion,
					Source:  filepath.Base(args[0]),
					Markers: markers,
				})
			}
			renderMarkers(args[0], markers)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write a binary index to this file")

	return cmd
}
