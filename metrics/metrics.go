package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modsecdb_records_processed_total",
			Help: "Total number of audit records committed",
		},
	)

	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modsecdb_records_skipped_total",
			Help: "Total number of audit records not committed",
		},
		[]string{"reason"},
	)

	SectionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modsecdb_sections_total",
			Help: "Total number of sections dispatched, by section letter",
		},
		[]string{"label"},
	)

	PatternMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modsecdb_pattern_misses_total",
			Help: "Total number of required line patterns that failed to match",
		},
		[]string{"pattern"},
	)

	RuleLookupMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modsecdb_rule_lookup_misses_total",
			Help: "Total number of matched rule ids missing from the rule catalog",
		},
	)

	StatementErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modsecdb_statement_errors_total",
			Help: "Total number of failed statement executions, by table",
		},
		[]string{"table"},
	)

	DictionaryEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modsecdb_dictionary_entries_total",
			Help: "Total number of dictionary entries created during import",
		},
		[]string{"category"},
	)

	RecordDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "modsecdb_record_duration_seconds",
			Help:    "Time from section A to commit for one record",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		},
	)
)

// WriteTextfile dumps every registered metric to path in the Prometheus text
// format, for pickup by the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
