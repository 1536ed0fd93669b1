package ingest

import "modsecdb/core"

// State is the record assembly state.
type State int

const (
	// StateIdle means no record is open; only A starts one.
	StateIdle State = iota
	// StateInRecord means section A has opened a record that Z has not yet
	// closed.
	StateInRecord
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInRecord:
		return "in_record"
	default:
		return "unknown"
	}
}

// Action tells the processor what to do with a section after a transition.
type Action int

const (
	// ActionOpen starts a new record from section A.
	ActionOpen Action = iota
	// ActionReopen discards an open record that never saw Z, then starts a
	// new one from section A.
	ActionReopen
	// ActionCollect handles a data section belonging to the open record.
	ActionCollect
	// ActionCommit writes the open record and returns to idle.
	ActionCommit
	// ActionIgnoreOutside drops a data section or Z seen while idle.
	ActionIgnoreOutside
	// ActionIgnoreUnknown drops a section with an unrecognized label.
	ActionIgnoreUnknown
)

func (a Action) String() string {
	switch a {
	case ActionOpen:
		return "open"
	case ActionReopen:
		return "reopen"
	case ActionCollect:
		return "collect"
	case ActionCommit:
		return "commit"
	case ActionIgnoreOutside:
		return "ignore_outside"
	case ActionIgnoreUnknown:
		return "ignore_unknown"
	default:
		return "unknown"
	}
}

// RecordState is the explicit state machine behind record assembly:
//
//	Idle     --A-->  InRecord            (open)
//	Idle     --B..K, Z-->  Idle          (ignore, no open record)
//	InRecord --A-->  InRecord            (previous record abandoned, reopen)
//	InRecord --B..K-->  InRecord         (collect)
//	InRecord --Z-->  Idle                (commit)
//	any      --unknown label-->  same    (ignore)
type RecordState struct {
	state State
}

// NewRecordState returns a machine in StateIdle.
func NewRecordState() *RecordState {
	return &RecordState{state: StateIdle}
}

// State returns the current state.
func (m *RecordState) State() State {
	return m.state
}

// Next applies the transition for label and returns the resulting action.
func (m *RecordState) Next(label core.SectionLabel) Action {
	if !label.Known() {
		return ActionIgnoreUnknown
	}

	switch m.state {
	case StateIdle:
		if label == core.SectionA {
			m.open()
			return ActionOpen
		}
		return ActionIgnoreOutside

	default:
		switch label {
		case core.SectionA:
			m.open()
			return ActionReopen
		case core.SectionZ:
			m.state = StateIdle
			return ActionCommit
		default:
			return ActionCollect
		}
	}
}

func (m *RecordState) open() {
	m.state = StateInRecord
}
