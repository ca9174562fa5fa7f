package notification

import (
	"time"

	"github.com/osa030/loopify/internal/app/repeat"
	"github.com/osa030/loopify/internal/domain/loop"
	"github.com/osa030/loopify/internal/domain/track"
)

// Notification types.
const (
	TypeInitialState  = "initial_state"
	TypeLoopChanged   = "loop_changed"
	TypeTrackChanged  = "track_changed"
	TypeLoopRestarted = "loop_restarted"
	TypeDrainStarted  = "drain_started"
	TypeDrainFinished = "drain_finished"
	TypeCommandFailed = "command_failed"
)

// Notification is pushed to stream subscribers as JSON.
type Notification struct {
	Type       string     `json:"type"`
	SequenceNo uint64     `json:"sequence_no"`
	Time       time.Time  `json:"time"`
	Loop       LoopState  `json:"loop"`
	Phase      string     `json:"phase,omitempty"`
	Track      *TrackInfo `json:"track,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// LoopState mirrors the /status payload.
type LoopState struct {
	LoopsDone      int    `json:"loops_done"`
	LoopCount      int    `json:"loop_count"`
	LoopStateIndex int    `json:"loop_state_index"`
	LoopState      string `json:"loop_state"`
	Revision       uint64 `json:"revision,omitempty"`
}

// TrackInfo mirrors the /songinfo payload.
type TrackInfo struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DurationMs int64  `json:"duration_ms"`
	ProgressMs int64  `json:"progress_ms"`
	IsPlaying  bool   `json:"is_playing"`
}

// NewLoopState converts a loop configuration.
func NewLoopState(cfg loop.Config) LoopState {
	return LoopState{
		LoopsDone:      cfg.CompletedCount,
		LoopCount:      cfg.TargetCount,
		LoopStateIndex: int(cfg.Mode),
		LoopState:      cfg.Mode.String(),
	}
}

// NewTrackInfo converts a snapshot. A nil snapshot yields nil.
func NewTrackInfo(s *track.Snapshot) *TrackInfo {
	if s == nil {
		return nil
	}
	return &TrackInfo{
		Title:      s.Title,
		Artist:     s.Artist(),
		DurationMs: s.Duration.Milliseconds(),
		ProgressMs: s.Progress.Milliseconds(),
		IsPlaying:  s.IsPlaying,
	}
}

// InitialState builds the first notification a new subscriber receives.
func InitialState(cfg loop.Config, phase repeat.Phase) *Notification {
	return &Notification{
		Type:  TypeInitialState,
		Time:  time.Now(),
		Loop:  NewLoopState(cfg),
		Phase: phase.String(),
	}
}

// FromEvent builds a notification for a loop watcher event.
func FromEvent(ev repeat.Event) *Notification {
	n := &Notification{
		Type:  eventType(ev.Type),
		Time:  time.Now(),
		Loop:  NewLoopState(ev.Config),
		Phase: ev.Phase.String(),
		Track: NewTrackInfo(ev.Track),
	}
	n.Loop.Revision = ev.Revision
	if ev.Err != nil {
		n.Error = ev.Err.Error()
	}
	return n
}

func eventType(t repeat.EventType) string {
	switch t {
	case repeat.EventLoopChanged:
		return TypeLoopChanged
	case repeat.EventTrackChanged:
		return TypeTrackChanged
	case repeat.EventLoopRestarted:
		return TypeLoopRestarted
	case repeat.EventDrainStarted:
		return TypeDrainStarted
	case repeat.EventDrainFinished:
		return TypeDrainFinished
	case repeat.EventCommandFailed:
		return TypeCommandFailed
	default:
		return t.String()
	}
}
