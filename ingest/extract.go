package ingest

import (
	"fmt"
	"strings"
	"time"

	"modsecdb/core"
	"modsecdb/metrics"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
)

// DefaultMatchTimeout bounds a single pattern evaluation.
const DefaultMatchTimeout = 100 * time.Millisecond

type compiledLine struct {
	name   string
	re     *regexp2.Regexp
	groups []string
}

type compiledHeader struct {
	field core.Field
	re    *regexp2.Regexp
	multi bool
}

// Extractor applies the section patterns to raw section text. It is safe for
// concurrent use.
type Extractor struct {
	lines   map[core.SectionLabel]compiledLine
	headers map[core.SectionLabel][]compiledHeader
	logger  *zap.SugaredLogger
}

// NewExtractor compiles every line and header pattern. A non-positive timeout
// uses DefaultMatchTimeout.
func NewExtractor(timeout time.Duration, logger *zap.SugaredLogger) (*Extractor, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if timeout <= 0 {
		timeout = DefaultMatchTimeout
	}

	e := &Extractor{
		lines:   make(map[core.SectionLabel]compiledLine),
		headers: make(map[core.SectionLabel][]compiledHeader),
		logger:  logger,
	}

	for _, p := range LinePatterns {
		re, err := regexp2.Compile(p.Expr, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPattern, p.Name, err)
		}
		re.MatchTimeout = timeout
		var groups []string
		for _, name := range re.GetGroupNames() {
			if name != "0" {
				groups = append(groups, name)
			}
		}
		e.lines[p.Label] = compiledLine{name: p.Name, re: re, groups: groups}
	}

	for label, patterns := range HeaderPatterns {
		for _, p := range patterns {
			re, err := regexp2.Compile(p.Expr, regexp2.Multiline|regexp2.IgnoreCase)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPattern, p.Field, err)
			}
			re.MatchTimeout = timeout
			e.headers[label] = append(e.headers[label], compiledHeader{field: p.Field, re: re, multi: p.Multi})
		}
	}
	return e, nil
}

// PatternName returns the name of the single-shot pattern for label, or ""
// when the section has none.
func (e *Extractor) PatternName(label core.SectionLabel) string {
	return e.lines[label].name
}

// MatchLine applies the single-shot pattern for label to the first non-empty
// line of text. The result maps each named group to its capture. ok is false
// when the section has no pattern or the pattern did not match; a miss is
// counted in metrics.PatternMisses.
func (e *Extractor) MatchLine(label core.SectionLabel, text string) (fields map[core.Field]string, ok bool) {
	p, exists := e.lines[label]
	if !exists {
		return nil, false
	}

	m, err := p.re.FindStringMatch(FirstLine(text))
	if err != nil {
		e.logger.Warnw("Pattern evaluation failed", "pattern", p.name, "error", err)
	}
	if m == nil {
		metrics.PatternMisses.WithLabelValues(p.name).Inc()
		return nil, false
	}

	fields = make(map[core.Field]string, len(p.groups))
	for _, name := range p.groups {
		if g := m.GroupByName(name); g != nil && len(g.Captures) > 0 {
			fields[core.Field(name)] = strings.TrimSpace(g.String())
		}
	}
	return fields, true
}

// ExtractHeaders searches text for every header field of label. Fields whose
// header is absent are left out of the result.
func (e *Extractor) ExtractHeaders(label core.SectionLabel, text string) map[core.Field]string {
	fields := make(map[core.Field]string)
	for _, h := range e.headers[label] {
		if h.multi {
			if values := e.findAll(h, text); len(values) > 0 {
				fields[h.field] = strings.Join(values, "\n")
			}
			continue
		}
		m, err := h.re.FindStringMatch(text)
		if err != nil {
			e.logger.Warnw("Pattern evaluation failed", "field", h.field, "error", err)
			continue
		}
		if m != nil {
			fields[h.field] = strings.TrimSpace(m.GroupByNumber(1).String())
		}
	}
	return fields
}

func (e *Extractor) findAll(h compiledHeader, text string) []string {
	var values []string
	m, err := h.re.FindStringMatch(text)
	for m != nil && err == nil {
		values = append(values, strings.TrimSpace(m.GroupByNumber(1).String()))
		m, err = h.re.FindNextMatch(m)
	}
	if err != nil {
		e.logger.Warnw("Pattern evaluation failed", "field", h.field, "error", err)
	}
	return values
}

// FirstLine returns the first line of text that is not blank.
func FirstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
