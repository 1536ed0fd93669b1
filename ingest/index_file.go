package ingest

import (
	"fmt"
	"io"
	"os"

	"modsecdb/core"

	"github.com/vmihailenco/msgpack/v5"
)

// IndexVersion is the saved index format version.
const IndexVersion = 1

// Index is the on-disk envelope for a boundary list.
type Index struct {
	Version int                   `msgpack:"version" json:"version"`
	Source  string                `msgpack:"source" json:"source"`
	Markers []core.BoundaryMarker `msgpack:"markers" json:"markers"`
}

// EncodeIndex writes markers for source to w.
func EncodeIndex(w io.Writer, source string, markers []core.BoundaryMarker) error {
	idx := Index{Version: IndexVersion, Source: source, Markers: markers}
	if err := msgpack.NewEncoder(w).Encode(&idx); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return nil
}

// DecodeIndex reads an index written by EncodeIndex.
func DecodeIndex(r io.Reader) (*Index, error) {
	var idx Index
	if err := msgpack.NewDecoder(r).Decode(&idx); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	if idx.Version != IndexVersion {
		return nil, fmt.Errorf("%w: %d", ErrIndexVersion, idx.Version)
	}
	if err := ValidateBoundaries(idx.Markers); err != nil {
		return nil, err
	}
	return &idx, nil
}

// WriteIndex saves markers to path.
func WriteIndex(path, source string, markers []core.BoundaryMarker) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close index file: %w", cerr)
		}
	}()
	return EncodeIndex(f, source, markers)
}

// ReadIndex loads a saved index from path.
func ReadIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()
	return DecodeIndex(f)
}
