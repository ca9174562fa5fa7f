// Package loop provides the loop configuration domain types.
package loop

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Mode represents the scope of repetition.
// The numeric values are the state indexes exposed to clients.
type Mode int

const (
	ModeOff      Mode = iota // No repetition
	ModePlaylist             // Left to the player, the watcher stays idle
	ModeSong                 // Repeat the current track TargetCount times
)

// modeNames holds the wire names indexed by Mode.
var modeNames = [...]string{"Off", "Playlist", "Song"}

// String returns the wire name of the mode.
func (m Mode) String() string {
	if !m.Valid() {
		return "Unknown"
	}
	return modeNames[m]
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	return m >= ModeOff && m <= ModeSong
}

// Modes returns all defined modes in index order.
func Modes() []Mode {
	return []Mode{ModeOff, ModePlaylist, ModeSong}
}

// ParseMode converts a mode name (case-insensitive) or state index to a Mode.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	for _, m := range Modes() {
		if strings.EqualFold(s, m.String()) || s == strconv.Itoa(int(m)) {
			return m, nil
		}
	}
	return ModeOff, errors.Mark(errors.Newf("unknown loop mode %q", s), ErrInvalidConfiguration)
}
