package workflow

// State represents a document state in the approval lifecycle
type State string

const (
	StateDraft    State = "DRAFT"
	StatePending  State = "PENDING"
	StateApproved State = "APPROVED"
	StateRejected State = "REJECTED"
	StateCanceled State = "CANCELED"
)

var validStates = map[State]bool{
	StateDraft:    true,
	StatePending:  true,
	StateApproved: true,
	StateRejected: true,
	StateCanceled: true,
}

var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
	StateCanceled: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid document state
func (s State) IsValid() bool {
	return validStates[s]
}
