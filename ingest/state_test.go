package ingest

import (
	"testing"

	"modsecdb/core"

	"github.com/stretchr/testify/assert"
)

func TestRecordStateTransitions(t *testing.T) {
	tests := []struct {
		name    string
		labels  []core.SectionLabel
		actions []Action
		final   State
	}{
		{
			name:    "complete record",
			labels:  []core.SectionLabel{'A', 'B', 'F', 'H', 'Z'},
			actions: []Action{ActionOpen, ActionCollect, ActionCollect, ActionCollect, ActionCommit},
			final:   StateIdle,
		},
		{
			name:    "sections before A",
			labels:  []core.SectionLabel{'B', 'Z', 'A'},
			actions: []Action{ActionIgnoreOutside, ActionIgnoreOutside, ActionOpen},
			final:   StateInRecord,
		},
		{
			name:    "A without Z",
			labels:  []core.SectionLabel{'A', 'B', 'A', 'Z'},
			actions: []Action{ActionOpen, ActionCollect, ActionReopen, ActionCommit},
			final:   StateIdle,
		},
		{
			name:    "unknown labels",
			labels:  []core.SectionLabel{'Q', 'A', 'X', 'Z'},
			actions: []Action{ActionIgnoreUnknown, ActionOpen, ActionIgnoreUnknown, ActionCommit},
			final:   StateIdle,
		},
		{
			name:    "raw sections",
			labels:  []core.SectionLabel{'A', 'C', 'E', 'K', 'Z', 'Z'},
			actions: []Action{ActionOpen, ActionCollect, ActionCollect, ActionCollect, ActionCommit, ActionIgnoreOutside},
			final:   StateIdle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewRecordState()
			var got []Action
			for _, l := range tt.labels {
				got = append(got, m.Next(l))
			}
			assert.Equal(t, tt.actions, got)
			assert.Equal(t, tt.final, m.State())
		})
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "commit", ActionCommit.String())
	assert.Equal(t, "ignore_unknown", ActionIgnoreUnknown.String())
	assert.Equal(t, "in_record", StateInRecord.String())
}
