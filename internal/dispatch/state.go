package dispatch

// State is a position in the per-invocation state machine:
//
//	Idle -> ResolvingCredential -> Expanding -> Composing -> Building -> Sending -> Succeeded | Failed
//
// Skipped is terminal when the notify policy disables the build outcome.
type State int

const (
	StateIdle State = iota
	StateResolvingCredential
	StateExpanding
	StateComposing
	StateBuilding
	StateSending
	StateSucceeded
	StateFailed
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolvingCredential:
		return "resolving_credential"
	case StateExpanding:
		return "expanding"
	case StateComposing:
		return "composing"
	case StateBuilding:
		return "building"
	case StateSending:
		return "sending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// ParseState is the inverse of String.
func ParseState(value string) (State, bool) {
	for s := StateIdle; s <= StateSkipped; s++ {
		if s.String() == value {
			return s, true
		}
	}
	return StateIdle, false
}
