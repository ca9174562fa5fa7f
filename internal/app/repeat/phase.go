package repeat

// Phase represents the loop watcher state.
type Phase int

const (
	PhaseIdle     Phase = iota // Mode is not Song
	PhaseActive                // Counting plays toward the target
	PhaseDraining              // Target reached, waiting for the track to advance
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseActive:
		return "active"
	case PhaseDraining:
		return "draining"
	default:
		return "unknown"
	}
}
