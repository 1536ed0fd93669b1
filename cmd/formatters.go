package cmd

import (
	"fmt"
	"strings"

	"modsecdb/core"
)

// renderImportSummary displays the result of an import
func renderImportSummary(s importSummary) {
	if s.Truncated {
		warningColor.Printf("! %s ended before its last boundary\n", s.LogFile)
	} else {
		successColor.Printf("✓ Imported %s\n", s.LogFile)
	}

	fmt.Printf("  Processed %d records in %.2f seconds (%.1f records/s)\n",
		s.Records, s.ElapsedSeconds, s.RecordsPerSecond)
	if s.Skipped > 0 || s.Abandoned > 0 {
		warningColor.Printf("  Skipped: %d, Incomplete: %d\n", s.Skipped, s.Abandoned)
	}
	fmt.Printf("  Boundaries: %d\n", s.Boundaries)
	fmt.Printf("  Database: %s\n", s.Database)
	fmt.Printf("  Run ID: %s\n", s.RunID)
}

// renderMarkers displays boundary markers in a table
func renderMarkers(source string, markers []core.BoundaryMarker) {
	if len(markers) == 0 {
		warningColor.Printf("No section boundaries found in %s\n", source)
		return
	}

	headerColor.Printf("BOUNDARIES (%s)\n", source)
	headerColor.Println(strings.Repeat("=", 60))
	fmt.Printf("%-10s %-8s %s\n", "Line", "Section", "Header")
	fmt.Println(strings.Repeat("-", 60))

	for _, m := range markers {
		header := m.Header
		if header == "" {
			header = "(end of log)"
		}
		fmt.Printf("%-10d %-8s %s\n", m.Line, m.Label, header)
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("%d boundaries, %d records\n", len(markers), countRecords(markers))
}

// renderCategories displays the category layout in a table
func renderCategories(weightsFile string, rules int, categories []categorySummary) {
	headerColor.Printf("CATEGORIES (%s, %d rules)\n", weightsFile, rules)
	headerColor.Println(strings.Repeat("=", 90))
	if len(categories) == 0 {
		warningColor.Println("No categories defined, every score will be zero")
		return
	}
	fmt.Printf("%-35s %-35s %-8s %-8s %-8s\n", "Category", "Table", "Columns", "Rules", "Weight")
	fmt.Println(strings.Repeat("-", 90))

	for _, c := range categories {
		fmt.Printf("%-35s %-35s %-8d %-8d %-8d\n",
			truncate(c.Name, 34), truncate(c.Table, 34), c.Columns, c.Rules, c.TotalWeight)
	}

	fmt.Println(strings.Repeat("=", 90))
}

func countRecords(markers []core.BoundaryMarker) int {
	n := 0
	for _, m := range markers {
		if m.Label == core.SectionA {
			n++
		}
	}
	return n
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
