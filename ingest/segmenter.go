package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"modsecdb/core"
)

// Section is the raw text found between two boundary markers, excluding both
// header lines.
type Section struct {
	Label  core.SectionLabel
	Header string
	Text   string

	// StartLine is the header line of this section, EndLine the header line
	// of the next one. Text covers the lines strictly between them.
	StartLine int
	EndLine   int
}

// SectionHandler receives sections in file order. A returned error stops the
// scan and is returned by Segmenter.Run.
type SectionHandler interface {
	HandleSection(ctx context.Context, s Section) error
}

// SectionHandlerFunc adapts a function to SectionHandler.
type SectionHandlerFunc func(ctx context.Context, s Section) error

// HandleSection calls f.
func (f SectionHandlerFunc) HandleSection(ctx context.Context, s Section) error {
	return f(ctx, s)
}

// Segmenter splits an audit log into sections using a precomputed boundary
// list. It reads strictly forward and never rewinds its reader.
type Segmenter struct {
	r    *bufio.Reader
	line int
	eof  bool
}

// NewSegmenter creates a segmenter positioned at the start of r.
func NewSegmenter(r io.Reader) *Segmenter {
	return &Segmenter{r: bufio.NewReaderSize(r, 64*1024)}
}

// Line returns the number of lines consumed so far.
func (s *Segmenter) Line() int {
	return s.line
}

// ValidateBoundaries checks that line numbers are positive and strictly
// increasing.
func ValidateBoundaries(boundaries []core.BoundaryMarker) error {
	prev := 0
	for i, b := range boundaries {
		if b.Line <= prev {
			return fmt.Errorf("%w: marker %d at line %d follows line %d", ErrUnorderedBoundaries, i, b.Line, prev)
		}
		prev = b.Line
	}
	return nil
}

// Run dispatches one section per consecutive pair of boundaries. Section r
// holds lines boundaries[r].Line+1 through boundaries[r+1].Line-1, each
// terminated by a newline, and is labeled boundaries[r].Label. The last
// boundary only closes the section before it. Fewer than two boundaries is a
// no-op.
//
// The log may end inside the final interval; the lines read so far form the
// last section. Reaching EOF before any earlier boundary returns
// ErrBoundaryPastEOF.
func (s *Segmenter) Run(ctx context.Context, boundaries []core.BoundaryMarker, h SectionHandler) error {
	if len(boundaries) < 2 {
		return nil
	}
	if err := ValidateBoundaries(boundaries); err != nil {
		return err
	}

	last := len(boundaries) - 2
	var text strings.Builder
	for r := 0; r <= last; r++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start, end := boundaries[r].Line, boundaries[r+1].Line

		text.Reset()
		for s.line < end-1 {
			line, err := s.readLine()
			if errors.Is(err, io.EOF) {
				if r == last {
					break
				}
				return fmt.Errorf("%w: line %d (read %d lines)", ErrBoundaryPastEOF, end, s.line)
			}
			if err != nil {
				return fmt.Errorf("failed to read line %d: %w", s.line+1, err)
			}
			if s.line > start {
				text.WriteString(line)
				text.WriteByte('\n')
			}
		}

		section := Section{
			Label:     boundaries[r].Label,
			Header:    boundaries[r].Header,
			Text:      text.String(),
			StartLine: start,
			EndLine:   end,
		}
		if err := h.HandleSection(ctx, section); err != nil {
			return err
		}
	}
	return nil
}

// readLine returns the next line without its terminator. A final line with
// no trailing newline is returned normally; io.EOF follows on the next call.
func (s *Segmenter) readLine() (string, error) {
	if s.eof {
		return "", io.EOF
	}
	line, err := s.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		s.eof = true
		if line == "" {
			return "", io.EOF
		}
	}
	s.line++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}
