package core

import "fmt"

// SectionLabel identifies a lettered audit-log section.
type SectionLabel byte

// Section labels understood by the pipeline. SectionZ is the terminal marker
// and carries no data of its own.
const (
	SectionA SectionLabel = 'A' // audit header: timestamp, unique id, endpoints
	SectionB SectionLabel = 'B' // request line and headers
	SectionC SectionLabel = 'C' // request body
	SectionD SectionLabel = 'D' // intended response headers
	SectionE SectionLabel = 'E' // response body
	SectionF SectionLabel = 'F' // response status line and headers
	SectionG SectionLabel = 'G' // response body (reserved)
	SectionH SectionLabel = 'H' // audit trailer
	SectionI SectionLabel = 'I' // reduced request body
	SectionJ SectionLabel = 'J' // multipart file information
	SectionK SectionLabel = 'K' // matched rules
	SectionZ SectionLabel = 'Z'
)

// DataSections lists every label whose raw text is kept on a record, in the
// column order of the primary table.
var DataSections = []SectionLabel{
	SectionA, SectionB, SectionC, SectionD, SectionE, SectionF,
	SectionG, SectionH, SectionI, SectionJ, SectionK,
}

// Known reports whether the label is one of A-K or Z.
func (l SectionLabel) Known() bool {
	return (l >= SectionA && l <= SectionK) || l == SectionZ
}

// String returns the label as a one-letter string.
func (l SectionLabel) String() string {
	if l == 0 {
		return ""
	}
	return string(rune(l))
}

// ParseSectionLabel converts a one-letter string into a SectionLabel.
// Letters outside A-K and Z are accepted; callers use Known to filter them.
func ParseSectionLabel(s string) (SectionLabel, error) {
	if len(s) != 1 || s[0] < 'A' || s[0] > 'Z' {
		return 0, fmt.Errorf("invalid section label %q", s)
	}
	return SectionLabel(s[0]), nil
}

// MarshalText encodes the label as its letter.
func (l SectionLabel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a one-letter label.
func (l *SectionLabel) UnmarshalText(b []byte) error {
	parsed, err := ParseSectionLabel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// BoundaryMarker locates a section header line in an audit log.
// Line numbers are 1-based.
type BoundaryMarker struct {
	Line   int          `msgpack:"line" json:"line"`
	Label  SectionLabel `msgpack:"label" json:"label"`
	Header string       `msgpack:"header,omitempty" json:"header,omitempty"`
}

func (b BoundaryMarker) String() string {
	return fmt.Sprintf("%d:%s", b.Line, b.Label)
}
