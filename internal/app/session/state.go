// Package session provides the DAW session state owner: the track list
// and transport state, mutated only through the Manager.
package session

// State represents the transport state.
type State int

const (
	StateStopped State = iota // Playhead at rest
	StatePlaying              // Playhead advancing (driven by an external clock)
	StatePaused               // Playhead frozen mid-session
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// IsPlaying reports whether the transport is running.
func (s State) IsPlaying() bool {
	return s == StatePlaying
}
