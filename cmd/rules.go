package cmd

import (
	"modsecdb/bootstrap"
	"modsecdb/detect"

	"github.com/spf13/cobra"
)

// categorySummary is one row of the 'rules' output.
type categorySummary struct {
	Name        string `json:"name"`
	Table       string `json:"table"`
	Columns     int    `json:"columns"`
	Rules       int    `json:"rules"`
	TotalWeight int    `json:"total_weight"`
}

// newRulesCmd creates the 'rules' command
func newRulesCmd() *cobra.Command {
	var (
		weightsFile string
		layoutFile  string
	)

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Show the rule catalog and category layout",
		Long: `Load the rule weight file and category layout the way an import would and
print one line per category: its score column, its match table and the
number of rules and total weight behind it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sugar, err := loadRuntime()
			if err != nil {
				return err
			}
			defer sugar.Sync() //nolint:errcheck

			if weightsFile != "" {
				cfg.Rules.WeightsFile = weightsFile
			}
			if layoutFile != "" {
				cfg.Rules.LayoutFile = layoutFile
			}

			catalog, layout, err := bootstrap.LoadRules(cfg, sugar)
			if err != nil {
				return err
			}

			summaries := summarizeCategories(catalog, layout)
			if outputJSON {
				return outputAsJSON(summaries)
			}
			renderCategories(cfg.Rules.WeightsFile, catalog.Len(), summaries)
			return nil
		},
	}

	cmd.Flags().StringVar(&weightsFile, "weights", "", "Rule weight file (overrides rules.weights_file)")
	cmd.Flags().StringVar(&layoutFile, "layout", "", "Category layout YAML (overrides rules.layout_file)")

	return cmd
}

// summarizeCategories joins layout entries with catalog weights, in layout
// order.
func summarizeCategories(catalog *detect.Catalog, layout *detect.Layout) []categorySummary {
	out := make([]categorySummary, 0, len(layout.Categories))
	for _, ct := range layout.Categories {
		s := categorySummary{Name: ct.Name, Table: ct.Table, Columns: len(ct.Rules)}
		for _, id := range catalog.RulesFor(ct.Name) {
			if rule, ok := catalog.Lookup(id); ok {
				s.Rules++
				s.TotalWeight += rule.Weight
			}
		}
		out = append(out, s)
	}
	return out
}
