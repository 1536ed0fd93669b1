package core

// Record aggregates everything extracted from one audit-log entry.
// A Record is created when section A opens an entry and discarded after the
// Z marker commits it. Reset is done by building a new Record rather than
// clearing fields in place.
type Record struct {
	UniqueID string
	Header   string

	// Sections holds the raw text of each data section seen so far.
	Sections map[SectionLabel]string

	// Fields holds extracted string values. Missing fields read as "".
	Fields map[Field]string

	// IDs holds dictionary ids for encoded fields. Zero means no value.
	IDs map[Field]int

	// UnixTime is the section A timestamp in epoch seconds. HasUnixTime is
	// false when the timestamp could not be parsed.
	UnixTime    int64
	HasUnixTime bool

	Scores Scorecard
}

// NewRecord returns an empty record whose scorecard already carries every
// known category at zero.
func NewRecord(categories []string) *Record {
	return &Record{
		Sections: make(map[SectionLabel]string),
		Fields:   make(map[Field]string),
		IDs:      make(map[Field]int),
		Scores:   NewScorecard(categories),
	}
}

// Field returns the extracted value for f, or "" when it was not found.
func (r *Record) Field(f Field) string {
	return r.Fields[f]
}

// ID returns the dictionary id for f, or 0 when the field had no value.
func (r *Record) ID(f Field) int {
	return r.IDs[f]
}

// IsEmpty reports whether nothing has been recorded yet.
func (r *Record) IsEmpty() bool {
	return r.UniqueID == "" && r.Header == "" &&
		len(r.Sections) == 0 && len(r.Fields) == 0 && len(r.IDs) == 0 &&
		!r.HasUnixTime && r.Scores.IsZero()
}
