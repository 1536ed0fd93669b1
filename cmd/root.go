// Package cmd provides the modsecdb command-line interface.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"modsecdb/bootstrap"
	"modsecdb/config"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags
var (
	outputJSON bool
	configFile string
	noColor    bool
	quiet      bool
)

// NewRootCmd creates the modsecdb command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modsecdb",
		Short: "Import ModSecurity audit logs into SQLite",
		Long: `modsecdb imports ModSecurity audit logs into a SQLite database.

Each audit record is split into its lettered sections, header fields are
dictionary encoded into lookup tables, and the rule ids reported in the
trailer are scored per category using a rule weight file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || outputJSON {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// loadRuntime loads configuration and builds the logger it describes.
// --quiet raises the log level to warn.
func loadRuntime() (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := bootstrap.InitConfig(configFile, zap.NewNop().Sugar())
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Logging.Level
	if quiet && (level == "debug" || level == "info") {
		level = "warn"
	}
	_, sugar, err := bootstrap.InitLogger(level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, sugar, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// outputAsJSON outputs data as formatted JSON
func outputAsJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
