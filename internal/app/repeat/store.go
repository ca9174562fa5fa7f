// Package repeat runs the song-repeat loop: the shared loop configuration
// and the watcher that polls playback and replays the current track.
package repeat

import (
	"sync"

	"github.com/osa030/loopify/internal/domain/loop"
)

// Action is what the watcher must do after an observation.
type Action int

const (
	ActionIdle    Action = iota // Mode is not Song, do nothing
	ActionWait                  // Not near the end yet
	ActionRestart               // Issue Prev to replay the track
	ActionDrain                 // Target reached, wait for the track to advance
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionIdle:
		return "idle"
	case ActionWait:
		return "wait"
	case ActionRestart:
		return "restart"
	case ActionDrain:
		return "drain"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Store.Observe.
type Decision struct {
	Action       Action
	TrackChanged bool        // The identity differed from the last observed one
	Config       loop.Config // Configuration after the observation was committed
	Revision     uint64      // Revision of the commit, zero when nothing changed
}

// Change describes a committed configuration change.
type Change struct {
	Revision uint64
	Config   loop.Config
}

// Store holds the loop configuration shared by the watcher and the control
// surface. Every read and write of the four fields is one critical section.
type Store struct {
	mu        sync.RWMutex
	config    loop.Config
	revision  uint64
	listeners []func(Change)
}

// NewStore creates a store holding the default configuration.
func NewStore() *Store {
	return &Store{
		config: loop.Default(),
	}
}

// OnChange registers fn to be called after every change committed by Update
// or ResetCompleted. Listeners run on the goroutine that made the change,
// outside the lock. Observe and FinishDrain report their commits to the
// caller instead.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Read returns a consistent copy of the configuration.
func (s *Store) Read() loop.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Revision returns the number of committed changes so far.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Update validates and applies a partial update.
// A rejected patch leaves the configuration untouched.
func (s *Store) Update(p loop.Patch) (loop.Config, error) {
	s.mu.Lock()
	next, err := p.Apply(s.config)
	if err != nil {
		current := s.config
		s.mu.Unlock()
		return current, err
	}
	change, changed := s.commitLocked(next)
	listeners := s.listeners
	s.mu.Unlock()

	if changed {
		notify(listeners, change)
	}
	return next, nil
}

// Observe records a playing track and decides the loop action.
// nearEnd reports whether the remaining time is within the threshold.
// The identity reset and the count increment are committed together with
// the decision, so concurrent updates never interleave with them.
func (s *Store) Observe(identity string, nearEnd bool) Decision {
	s.mu.Lock()
	if s.config.Mode != loop.ModeSong {
		d := Decision{Action: ActionIdle, Config: s.config}
		s.mu.Unlock()
		return d
	}

	next := s.config
	d := Decision{Action: ActionWait}
	if next.LastTrackKey != identity {
		next.LastTrackKey = identity
		next.CompletedCount = 0
		d.TrackChanged = true
	}

	if nearEnd {
		switch {
		case next.Infinite():
			d.Action = ActionRestart
		case next.CompletedCount < next.TargetCount-1:
			next.CompletedCount++
			d.Action = ActionRestart
		default:
			d.Action = ActionDrain
		}
	}

	change, _ := s.commitLocked(next)
	d.Config = next
	d.Revision = change.Revision
	s.mu.Unlock()
	return d
}

// FinishDrain ends a drain after the track advanced to identity: the count
// restarts and the target returns to a single play. It reports false and
// changes nothing when the mode is no longer Song. The returned revision is
// zero when nothing was committed.
func (s *Store) FinishDrain(identity string) (Change, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config.Mode != loop.ModeSong {
		return Change{Config: s.config}, false
	}

	next := s.config
	next.LastTrackKey = identity
	next.CompletedCount = 0
	next.TargetCount = loop.DefaultTargetCount

	change, _ := s.commitLocked(next)
	change.Config = next
	return change, true
}

// ResetCompleted zeroes the completed count when the mode is Song.
// It reports whether the mode was Song.
func (s *Store) ResetCompleted() (loop.Config, bool) {
	s.mu.Lock()
	if s.config.Mode != loop.ModeSong {
		current := s.config
		s.mu.Unlock()
		return current, false
	}

	next := s.config
	next.CompletedCount = 0

	change, changed := s.commitLocked(next)
	listeners := s.listeners
	s.mu.Unlock()

	if changed {
		notify(listeners, change)
	}
	return next, true
}

// commitLocked stores next and bumps the revision when it differs.
// Must be called with s.mu held.
func (s *Store) commitLocked(next loop.Config) (Change, bool) {
	if next == s.config {
		return Change{}, false
	}
	s.config = next
	s.revision++
	return Change{Revision: s.revision, Config: next}, true
}

func notify(listeners []func(Change), change Change) {
	for _, fn := range listeners {
		fn(change)
	}
}
