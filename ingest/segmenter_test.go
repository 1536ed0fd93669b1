package ingest

import (
	"context"
	"strings"
	"testing"

	"modsecdb/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector records every dispatched section.
type collector struct {
	sections []Section
}

func (c *collector) HandleSection(_ context.Context, s Section) error {
	c.sections = append(c.sections, s)
	return nil
}

func numberedLines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		b.WriteString("line")
		b.WriteString(string(rune('0' + i%10)))
		b.WriteByte('\n')
	}
	return b.String()
}

func TestSegmenterIntervals(t *testing.T) {
	input := "hdrA\na2\na3\na4\nhdrB\nb6\nb7\nb8\nhdrZ\n"
	boundaries := []core.BoundaryMarker{
		{Line: 1, Label: core.SectionA},
		{Line: 5, Label: core.SectionB},
		{Line: 9, Label: core.SectionZ},
	}

	c := &collector{}
	require.NoError(t, NewSegmenter(strings.NewReader(input)).Run(context.Background(), boundaries, c))

	require.Len(t, c.sections, 2)
	assert.Equal(t, core.SectionA, c.sections[0].Label)
	assert.Equal(t, "a2\na3\na4\n", c.sections[0].Text)
	assert.Equal(t, core.SectionB, c.sections[1].Label)
	assert.Equal(t, "b6\nb7\nb8\n", c.sections[1].Text)
	assert.Equal(t, 5, c.sections[1].StartLine)
	assert.Equal(t, 9, c.sections[1].EndLine)
}

func TestSegmenterDegenerateBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		boundaries []core.BoundaryMarker
	}{
		{"nil", nil},
		{"single", []core.BoundaryMarker{{Line: 1, Label: core.SectionA}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &collector{}
			err := NewSegmenter(strings.NewReader(numberedLines(3))).Run(context.Background(), tt.boundaries, c)
			assert.NoError(t, err)
			assert.Empty(t, c.sections)
		})
	}
}

func TestSegmenterAdjacentHeaders(t *testing.T) {
	boundaries := []core.BoundaryMarker{
		{Line: 1, Label: core.SectionA},
		{Line: 2, Label: core.SectionZ},
		{Line: 3, Label: core.SectionZ},
	}
	c := &collector{}
	require.NoError(t, NewSegmenter(strings.NewReader("a\nz\n")).Run(context.Background(), boundaries, c))

	require.Len(t, c.sections, 2)
	assert.Empty(t, c.sections[0].Text)
	assert.Empty(t, c.sections[1].Text)
}

func TestSegmenterRejectsUnorderedBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		boundaries []core.BoundaryMarker
	}{
		{"decreasing", []core.BoundaryMarker{{Line: 5, Label: core.SectionA}, {Line: 3, Label: core.SectionZ}}},
		{"repeated", []core.BoundaryMarker{{Line: 2, Label: core.SectionA}, {Line: 2, Label: core.SectionZ}}},
		{"zero", []core.BoundaryMarker{{Line: 0, Label: core.SectionA}, {Line: 3, Label: core.SectionZ}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &collector{}
			err := NewSegmenter(strings.NewReader(numberedLines(6))).Run(context.Background(), tt.boundaries, c)
			assert.ErrorIs(t, err, ErrUnorderedBoundaries)
			assert.Empty(t, c.sections)
		})
	}
}

func TestSegmenterEOFInFinalInterval(t *testing.T) {
	// No trailing newline, sentinel one past the last line.
	input := "hdrA\na2\nhdrZ\nz4"
	boundaries := []core.BoundaryMarker{
		{Line: 1, Label: core.SectionA},
		{Line: 3, Label: core.SectionZ},
		{Line: 10, Label: core.SectionZ},
	}
	c := &collector{}
	require.NoError(t, NewSegmenter(strings.NewReader(input)).Run(context.Background(), boundaries, c))

	require.Len(t, c.sections, 2)
	assert.Equal(t, "a2\n", c.sections[0].Text)
	assert.Equal(t, "z4\n", c.sections[1].Text)
}

func TestSegmenterBoundaryPastEOF(t *testing.T) {
	boundaries := []core.BoundaryMarker{
		{Line: 1, Label: core.SectionA},
		{Line: 20, Label: core.SectionB},
		{Line: 30, Label: core.SectionZ},
	}
	c := &collector{}
	err := NewSegmenter(strings.NewReader(numberedLines(4))).Run(context.Background(), boundaries, c)
	assert.ErrorIs(t, err, ErrBoundaryPastEOF)
	assert.Empty(t, c.sections)
}

func TestSegmenterNormalizesCRLF(t *testing.T) {
	input := "hdrA\r\nvalue\r\nhdrZ\r\n"
	boundaries := []core.BoundaryMarker{
		{Line: 1, Label: core.SectionA},
		{Line: 3, Label: core.SectionZ},
	}
	c := &collector{}
	require.NoError(t, NewSegmenter(strings.NewReader(input)).Run(context.Background(), boundaries, c))
	require.Len(t, c.sections, 1)
	assert.Equal(t, "value\n", c.sections[0].Text)
}

func TestSegmenterForwardOnlyAcrossRuns(t *testing.T) {
	seg := NewSegmenter(strings.NewReader("hdrA\na2\nhdrZ\nhdrA\na5\nhdrZ\n"))
	c := &collector{}

	require.NoError(t, seg.Run(context.Background(), []core.BoundaryMarker{
		{Line: 1, Label: core.SectionA},
		{Line: 3, Label: core.SectionZ},
	}, c))
	assert.Equal(t, 2, seg.Line())

	require.NoError(t, seg.Run(context.Background(), []core.BoundaryMarker{
		{Line: 4, Label: core.SectionA},
		{Line: 6, Label: core.SectionZ},
	}, c))

	require.Len(t, c.sections, 2)
	assert.Equal(t, "a2\n", c.sections[0].Text)
	assert.Equal(t, "a5\n", c.sections[1].Text)
}

func TestSegmenterCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &collector{}
	err := NewSegmenter(strings.NewReader(numberedLines(4))).Run(ctx, []core.BoundaryMarker{
		{Line: 1, Label: core.SectionA},
		{Line: 3, Label: core.SectionZ},
	}, c)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.sections)
}
