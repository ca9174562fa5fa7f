// Package track provides the playback snapshot domain entity.
package track

import (
	"strings"
	"time"
)

// keySeparator joins title and artist into an identity key.
const keySeparator = " - "

// Snapshot represents what the player reports at a single poll.
// Snapshots are ephemeral and never persisted.
type Snapshot struct {
	Title     string        // Track title
	Artists   []string      // Artist names, in the order reported by the player
	Duration  time.Duration // Track duration
	Progress  time.Duration // Playback position within the track
	IsPlaying bool          // False when paused or stopped
}

// Artist returns the artists joined with ", ".
func (s *Snapshot) Artist() string {
	return strings.Join(s.Artists, ", ")
}

// Key returns the track identity key used to detect track boundaries.
// Two plays of a track with the same title and artists share a key.
func (s *Snapshot) Key() string {
	return s.Title + keySeparator + s.Artist()
}

// Remaining returns the time left until the end of the track.
// A progress past the reported duration yields a negative value.
func (s *Snapshot) Remaining() time.Duration {
	return s.Duration - s.Progress
}

// IsActive reports whether the snapshot describes a playing track.
// Nil snapshots are treated as inactive.
func (s *Snapshot) IsActive() bool {
	return s != nil && s.IsPlaying
}
