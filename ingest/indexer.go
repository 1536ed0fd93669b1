package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"modsecdb/core"
)

// boundaryPattern matches a section header line such as --5a3b9c1d-A--.
var boundaryPattern = regexp.MustCompile(`^--([0-9A-Fa-f]{8,})-([A-Z])--\s*$`)

// BuildIndex scans an audit log and returns one marker per section header
// line, numbered from 1. A trailing sentinel Z marker one line past the end
// of input bounds the final section.
func BuildIndex(ctx context.Context, r io.Reader) ([]core.BoundaryMarker, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var markers []core.BoundaryMarker
	line := 0
	for {
		text, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read line %d: %w", line+1, err)
		}
		if text == "" && err != nil {
			break
		}
		line++
		if line%4096 == 0 {
			if cerr := ctx.Err(); cerr != nil {
				return nil, cerr
			}
		}

		text = strings.TrimRight(text, "\r\n")
		if m := boundaryPattern.FindStringSubmatch(text); m != nil {
			markers = append(markers, core.BoundaryMarker{
				Line:   line,
				Label:  core.SectionLabel(m[2][0]),
				Header: text,
			})
		}
		if err != nil {
			break
		}
	}

	if len(markers) == 0 {
		return nil, nil
	}
	return append(markers, core.BoundaryMarker{Line: line + 1, Label: core.SectionZ}), nil
}
