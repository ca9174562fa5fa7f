package repeat

import (
	"github.com/osa030/loopify/internal/domain/loop"
	"github.com/osa030/loopify/internal/domain/track"
)

// EventType represents a loop watcher event type.
type EventType int

const (
	EventTrackChanged  EventType = iota // A new track identity was observed
	EventLoopRestarted                  // Prev was issued to replay the track
	EventDrainStarted                   // Target reached, waiting for advance
	EventDrainFinished                  // Track advanced, target back to one
	EventCommandFailed                  // A media command could not be issued
	EventLoopChanged                    // A configuration change was committed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventLoopRestarted:
		return "loop_restarted"
	case EventDrainStarted:
		return "drain_started"
	case EventDrainFinished:
		return "drain_finished"
	case EventCommandFailed:
		return "command_failed"
	case EventLoopChanged:
		return "loop_changed"
	default:
		return "unknown"
	}
}

// Event represents a loop watcher event.
type Event struct {
	Type   EventType
	Config loop.Config     // Loop configuration after the event
	Phase  Phase           // Watcher phase after the event
	Track  *track.Snapshot // Observed track (nil for some events)
	Err    error           // Set for EventCommandFailed

	Revision uint64 // Set for EventLoopChanged
}
