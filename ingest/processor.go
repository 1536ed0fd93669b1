package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"modsecdb/core"
	"modsecdb/detect"
	"modsecdb/dictionary"
	"modsecdb/metrics"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RecordStore is the write side of an import. Begin opens the long running
// transaction; Commit ends it. Dictionary pairs are written through the same
// transaction.
type RecordStore interface {
	dictionary.PairWriter
	Begin(ctx context.Context) error
	WriteRecord(ctx context.Context, rec *core.Record) error
	Commit(ctx context.Context) error
	Rollback() error
}

// ProcessorConfig holds import tuning knobs.
type ProcessorConfig struct {
	// CheckpointRecords commits and reopens the transaction every N records.
	// Zero commits once at the end of the run.
	CheckpointRecords int
	// ProgressInterval throttles progress log lines.
	ProgressInterval time.Duration
	// TimestampCacheSize bounds the section A timestamp cache.
	TimestampCacheSize int
}

// Stats summarizes one run.
type Stats struct {
	Records   int
	Skipped   int
	Abandoned int
	Sections  int
	Elapsed   time.Duration
}

// Rate returns committed records per second.
func (s Stats) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Records) / s.Elapsed.Seconds()
}

// Processor assembles records from dispatched sections and hands complete
// records to a RecordStore. It is single threaded and owns the only state
// shared across records: the dictionary and the timestamp cache.
type Processor struct {
	store     RecordStore
	dict      *dictionary.Dictionary
	scorer    *detect.Scorer
	extractor *Extractor
	times     *core.TimestampCache
	cfg       ProcessorConfig
	logger    *zap.SugaredLogger

	state    *RecordState
	rec      *core.Record
	opened   time.Time
	started  time.Time
	pending  int
	stats    Stats
	progress rate.Sometimes
}

// NewProcessor wires a processor. The dictionary should already be seeded
// from persisted state.
func NewProcessor(store RecordStore, dict *dictionary.Dictionary, scorer *detect.Scorer, extractor *Extractor, cfg ProcessorConfig, logger *zap.SugaredLogger) (*Processor, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.TimestampCacheSize <= 0 {
		cfg.TimestampCacheSize = core.DefaultTimestampCacheSize
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 5 * time.Second
	}
	times, err := core.NewTimestampCache(cfg.TimestampCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create timestamp cache: %w", err)
	}

	return &Processor{
		store:     store,
		dict:      dict,
		scorer:    scorer,
		extractor: extractor,
		times:     times,
		cfg:       cfg,
		logger:    logger,
		state:     NewRecordState(),
		progress:  rate.Sometimes{Interval: cfg.ProgressInterval},
	}, nil
}

// Stats returns the counters accumulated so far.
func (p *Processor) Stats() Stats {
	return p.stats
}

// Run segments r along boundaries and imports every complete record.
// Dictionaries are flushed and the transaction committed on success. A log
// that ends before a boundary keeps the records read so far and still
// returns ErrBoundaryPastEOF; any other failure rolls the batch back. Fewer
// than two boundaries delimit no section and leave the store untouched.
func (p *Processor) Run(ctx context.Context, r io.Reader, boundaries []core.BoundaryMarker) (Stats, error) {
	if len(boundaries) < 2 {
		return p.stats, nil
	}
	if err := ValidateBoundaries(boundaries); err != nil {
		return p.stats, err
	}
	if err := p.store.Begin(ctx); err != nil {
		return p.stats, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	p.started = time.Now()

	runErr := NewSegmenter(r).Run(ctx, boundaries, p)
	if runErr != nil && !errors.Is(runErr, ErrBoundaryPastEOF) {
		if err := p.store.Rollback(); err != nil {
			p.logger.Errorw("Failed to roll back import transaction", "error", err)
		}
		p.stats.Elapsed = time.Since(p.started)
		return p.stats, runErr
	}

	if err := p.Finish(ctx); err != nil {
		return p.stats, err
	}
	return p.stats, runErr
}

// Finish discards a record left open at end of input, flushes every
// dictionary and commits.
func (p *Processor) Finish(ctx context.Context) error {
	if p.state.State() == StateInRecord {
		p.logger.Warnw("Input ended inside a record", "unique_id", p.rec.UniqueID)
		p.abandon()
		p.state = NewRecordState()
	}
	if err := p.dict.FlushAll(ctx, p.store); err != nil {
		_ = p.store.Rollback()
		return fmt.Errorf("failed to flush dictionaries: %w", err)
	}
	if err := p.store.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit import transaction: %w", err)
	}
	p.stats.Elapsed = time.Since(p.started)
	return nil
}

// HandleSection advances the record state machine with one section.
func (p *Processor) HandleSection(ctx context.Context, s Section) error {
	p.stats.Sections++
	metrics.SectionsProcessed.WithLabelValues(s.Label.String()).Inc()

	switch action := p.state.Next(s.Label); action {
	case ActionOpen:
		p.open(s)
	case ActionReopen:
		p.logger.Warnw("Record abandoned without Z marker",
			"unique_id", p.rec.UniqueID,
			"line", s.StartLine)
		p.abandon()
		p.open(s)
	case ActionCollect:
		p.collect(s)
	case ActionCommit:
		return p.commit(ctx)
	case ActionIgnoreOutside:
		p.logger.Warnw("Section outside of a record", "label", s.Label.String(), "line", s.StartLine)
	case ActionIgnoreUnknown:
		p.logger.Debugw("Ignoring unknown section", "label", s.Label.String(), "line", s.StartLine)
	}
	return nil
}

func (p *Processor) open(s Section) {
	p.rec = core.NewRecord(p.scorer.Categories())
	p.opened = time.Now()
	p.rec.Header = s.Header
	p.rec.Sections[core.SectionA] = s.Text

	fields, ok := p.extractor.MatchLine(core.SectionA, s.Text)
	if !ok {
		p.logger.Warnw("Section summary line did not match",
			"label", "A",
			"pattern", p.extractor.PatternName(core.SectionA),
			"line", s.StartLine)
	}
	p.merge(fields)
	p.rec.UniqueID = p.rec.Field(core.FieldUniqueID)
	if ts := p.rec.Field(core.FieldTimestamp); ts != "" {
		p.rec.UnixTime, p.rec.HasUnixTime = p.times.Parse(ts)
		if !p.rec.HasUnixTime {
			p.logger.Warnw("Unparseable timestamp", "unique_id", p.rec.UniqueID, "timestamp", ts)
		}
	}
	p.encode(core.SectionA)
}

func (p *Processor) collect(s Section) {
	p.rec.Sections[s.Label] = s.Text

	switch s.Label {
	case core.SectionB, core.SectionF:
		fields, ok := p.extractor.MatchLine(s.Label, s.Text)
		if !ok {
			p.logger.Warnw("Section summary line did not match",
				"unique_id", p.rec.UniqueID,
				"label", s.Label.String(),
				"pattern", p.extractor.PatternName(s.Label))
		}
		p.merge(fields)
		p.merge(p.extractor.ExtractHeaders(s.Label, s.Text))
		p.encode(s.Label)
	case core.SectionH:
		p.merge(p.extractor.ExtractHeaders(s.Label, s.Text))
		p.rec.Scores = p.scorer.Score(p.rec.UniqueID, s.Text)
		p.encode(s.Label)
	}
}

func (p *Processor) merge(fields map[core.Field]string) {
	for f, v := range fields {
		p.rec.Fields[f] = v
	}
}

func (p *Processor) encode(label core.SectionLabel) {
	for _, f := range core.EncodedFields[label] {
		p.rec.IDs[f] = p.dict.Resolve(dictionary.Category(f), p.rec.Fields[f])
	}
}

func (p *Processor) abandon() {
	p.stats.Abandoned++
	metrics.RecordsSkipped.WithLabelValues("abandoned").Inc()
	p.rec = nil
}

func (p *Processor) commit(ctx context.Context) error {
	rec := p.rec
	p.rec = nil

	err := p.store.WriteRecord(ctx, rec)
	if errors.Is(err, core.ErrMissingUniqueID) {
		p.stats.Skipped++
		metrics.RecordsSkipped.WithLabelValues("missing_unique_id").Inc()
		p.logger.Warnw("Skipping record without unique id", "header", rec.Header)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to write record %s: %w", rec.UniqueID, err)
	}

	p.stats.Records++
	p.pending++
	metrics.RecordsProcessed.Inc()
	metrics.RecordDuration.Observe(time.Since(p.opened).Seconds())

	if p.cfg.CheckpointRecords > 0 && p.pending >= p.cfg.CheckpointRecords {
		if err := p.checkpoint(ctx); err != nil {
			return err
		}
	}

	p.progress.Do(func() {
		elapsed := time.Since(p.started)
		p.logger.Infow("Import progress",
			"records", p.stats.Records,
			"skipped", p.stats.Skipped,
			"elapsed", elapsed.Round(time.Millisecond),
			"rate", Stats{Records: p.stats.Records, Elapsed: elapsed}.Rate())
	})
	return nil
}

func (p *Processor) checkpoint(ctx context.Context) error {
	if err := p.dict.FlushAll(ctx, p.store); err != nil {
		return fmt.Errorf("failed to flush dictionaries at checkpoint: %w", err)
	}
	if err := p.store.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	if err := p.store.Begin(ctx); err != nil {
		return fmt.Errorf("failed to reopen import transaction: %w", err)
	}
	p.logger.Debugw("Checkpoint committed", "records", p.stats.Records, "batch", p.pending)
	p.pending = 0
	return nil
}
