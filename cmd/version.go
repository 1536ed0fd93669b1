package cmd

import (
	"fmt"
	"runtime"

	"modsecdb/ingest"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X modsecdb/cmd.Version=...".
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputJSON {
				return outputAsJSON(map[string]interface{}{
					"version":       Version,
					"go":            runtime.Version(),
					"index_version": ingest.IndexVersion,
				})
			}
			fmt.Printf("modsecdb %s (%s, index format v%d)\n", Version, runtime.Version(), ingest.IndexVersion)
			return nil
		},
	}
}
