package ingest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"modsecdb/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

const fixtureLog = "testdata/two_records.log"

func TestBuildIndexFixture(t *testing.T) {
	f, err := os.Open(fixtureLog)
	require.NoError(t, err)
	defer f.Close()

	markers, err := BuildIndex(context.Background(), f)
	require.NoError(t, err)

	var got []string
	for _, m := range markers {
		got = append(got, m.String())
	}
	assert.Equal(t, []string{
		"1:A", "3:B", "10:F", "17:H", "25:Z",
		"27:A", "29:B", "33:F", "37:H", "42:Z",
		"44:Z",
	}, got)
	assert.Equal(t, "--5a3b9c1d-A--", markers[0].Header)
	assert.Empty(t, markers[len(markers)-1].Header, "sentinel carries no header")
	assert.NoError(t, ValidateBoundaries(markers))
}

func TestBuildIndexIgnoresLookalikes(t *testing.T) {
	input := strings.Join([]string{
		"--abc-A--",           // id too short
		"--5a3b9c1d-a--",      // lower-case label
		" --5a3b9c1d-A--",     // leading space
		"--5a3b9c1d-B--\r",    // CRLF is fine
		"--5A3B9C1DEF-Q-- ",   // unknown label, still a boundary
		"body --5a3b9c1d-Z--", // not anchored
	}, "\n")

	markers, err := BuildIndex(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []core.BoundaryMarker{
		{Line: 4, Label: core.SectionB, Header: "--5a3b9c1d-B--"},
		{Line: 5, Label: 'Q', Header: "--5A3B9C1DEF-Q-- "},
		{Line: 7, Label: core.SectionZ},
	}, markers)
}

func TestBuildIndexEmpty(t *testing.T) {
	markers, err := BuildIndex(context.Background(), strings.NewReader("no sections here\n"))
	require.NoError(t, err)
	assert.Empty(t, markers)
}

func TestIndexFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.idx")
	markers := []core.BoundaryMarker{
		{Line: 1, Label: core.SectionA, Header: "--0000abcd-A--"},
		{Line: 4, Label: core.SectionH},
		{Line: 9, Label: core.SectionZ},
	}

	require.NoError(t, WriteIndex(path, "audit.log", markers))
	idx, err := ReadIndex(path)
	require.NoError(t, err)

	assert.Equal(t, IndexVersion, idx.Version)
	assert.Equal(t, "audit.log", idx.Source)
	assert.Equal(t, markers, idx.Markers)
}

func TestDecodeIndexRejectsVersion(t *testing.T) {
	data, err := msgpack.Marshal(&Index{Version: 99, Source: "x"})
	require.NoError(t, err)

	_, err = DecodeIndex(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrIndexVersion)
}

func TestDecodeIndexRejectsUnordered(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeIndex(&buf, "x", []core.BoundaryMarker{
		{Line: 5, Label: core.SectionA},
		{Line: 2, Label: core.SectionZ},
	}))

	_, err := DecodeIndex(&buf)
	assert.ErrorIs(t, err, ErrUnorderedBoundaries)
}
