// Package task defines the Task and Note model and the codec that maps a
// Task plus its embedded Notes to and from the paragraph format of one
// storage file.
package task

import "slices"

// State is the lifecycle state of a task.
type State string

// State constants. Later, Soon and Now are active states; Done and
// Cancelled are terminal.
const (
	StateLater     State = "Later"
	StateSoon      State = "Soon"
	StateNow       State = "Now"
	StateDone      State = "Done"
	StateCancelled State = "Cancelled"
)

var validStates = []State{StateLater, StateSoon, StateNow, StateDone, StateCancelled}

// ParseState parses a storage literal into a State.
func ParseState(s string) (State, bool) {
	state := State(s)

	return state, slices.Contains(validStates, state)
}

// IsActive reports whether the state is one of Later, Soon or Now.
func (s State) IsActive() bool {
	return s == StateLater || s == StateSoon || s == StateNow
}

// IsTerminal reports whether the state is Done or Cancelled.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateCancelled
}

// UnassignedOrdering is the sentinel ordering value for tasks that have not
// been assigned a stable sort position yet. Any negative value counts as
// unassigned; this is the default written by importers.
const UnassignedOrdering int64 = -1

// Task is one stored task record. Guid is the canonical hyphenated
// lowercase UUID form and must equal the storage file's base name
// (case-insensitively). Tick fields are int64 UTC nanoseconds.
type Task struct {
	Guid        string
	CreationUtc int64
	Content     string
	State       State

	// HandlingUtc is set only when State is Done or Cancelled.
	HandlingUtc *int64

	// RepeatedGuid is a non-owning back-reference to the task this one was
	// repeated from. Never validated to exist. Empty means none.
	RepeatedGuid string

	// OrderingUtc is the resolved sort key, lower first. Negative means
	// unassigned (see [UnassignedOrdering]).
	OrderingUtc int64

	// IsSpecial is true iff OrderingUtc was negative at load time. In-memory
	// only, never persisted.
	IsSpecial bool

	Notes []Note
}

// Note is a paragraph embedded in its parent task's file. It has no storage
// location of its own; deleting the task discards it.
type Note struct {
	Guid        string
	CreationUtc int64
	Content     string
}

// SortNotes orders notes by CreationUtc ascending, the display order.
func SortNotes(notes []Note) {
	slices.SortStableFunc(notes, func(a, b Note) int {
		switch {
		case a.CreationUtc < b.CreationUtc:
			return -1
		case a.CreationUtc > b.CreationUtc:
			return 1
		default:
			return 0
		}
	})
}
