package connect

import (
	"github.com/osa030/loopify/internal/domain/loop"
	"github.com/osa030/loopify/internal/domain/track"
)

// Empty is the request of methods without parameters.
type Empty struct{}

// CommandResponse is returned by the media command methods.
type CommandResponse struct {
	Success bool   `json:"success"`
	Command string `json:"command"`
}

// Loop describes the loop configuration.
type Loop struct {
	StateIndex int    `json:"state_index"`
	State      string `json:"state"`
	LoopCount  int    `json:"loop_count"`
	LoopsDone  int    `json:"loops_done"`
}

func newLoop(cfg loop.Config) *Loop {
	return &Loop{
		StateIndex: int(cfg.Mode),
		State:      cfg.Mode.String(),
		LoopCount:  cfg.TargetCount,
		LoopsDone:  cfg.CompletedCount,
	}
}

// SetLoopRequest is a partial loop update. Nil fields are left unchanged.
type SetLoopRequest struct {
	StateIndex *int `json:"state_index,omitempty"`
	LoopCount  *int `json:"loop_count,omitempty"`
}

func (r *SetLoopRequest) patch() loop.Patch {
	var p loop.Patch
	if r.StateIndex != nil {
		m := loop.Mode(*r.StateIndex)
		p.Mode = &m
	}
	p.TargetCount = r.LoopCount
	return p
}

// StatusResponse is returned by GetStatus.
type StatusResponse struct {
	Loop  *Loop  `json:"loop"`
	Phase string `json:"phase"`
}

// Track describes the current track.
type Track struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DurationMs int64  `json:"duration_ms"`
	ProgressMs int64  `json:"progress_ms"`
	IsPlaying  bool   `json:"is_playing"`
}

// SongInfoResponse is returned by SongInfo. Track is nil when nothing is
// playing.
type SongInfoResponse struct {
	Track *Track `json:"track,omitempty"`
}

func newTrack(s *track.Snapshot) *Track {
	if s == nil {
		return nil
	}
	return &Track{
		Title:      s.Title,
		Artist:     s.Artist(),
		DurationMs: s.Duration.Milliseconds(),
		ProgressMs: s.Progress.Milliseconds(),
		IsPlaying:  s.IsPlaying,
	}
}
