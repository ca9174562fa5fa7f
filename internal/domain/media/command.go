// Package media provides the transport and volume commands sent to a player.
package media

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Command represents a transport or volume command.
type Command int

const (
	PlayPause Command = iota // Toggle play/pause
	Next                     // Skip to the next track
	Prev                     // Restart or go back to the previous track
	VolumeUp                 // Raise the volume one step
	VolumeDown               // Lower the volume one step
	Mute                     // Toggle mute
)

// String returns the string representation of the command.
func (c Command) String() string {
	switch c {
	case PlayPause:
		return "play_pause"
	case Next:
		return "next"
	case Prev:
		return "prev"
	case VolumeUp:
		return "volume_up"
	case VolumeDown:
		return "volume_down"
	case Mute:
		return "mute"
	default:
		return "unknown"
	}
}

// Commands returns all commands.
func Commands() []Command {
	return []Command{PlayPause, Next, Prev, VolumeUp, VolumeDown, Mute}
}

// ParseCommand converts a command name to a Command.
// Both the snake_case names and the short HTTP route names are accepted.
func ParseCommand(s string) (Command, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "play_pause", "playpause":
		return PlayPause, nil
	case "next":
		return Next, nil
	case "prev", "previous":
		return Prev, nil
	case "volume_up", "volumeup", "volup":
		return VolumeUp, nil
	case "volume_down", "volumedown", "voldown":
		return VolumeDown, nil
	case "mute":
		return Mute, nil
	default:
		return 0, errors.Newf("unknown command %q", s)
	}
}

// IsSkip reports whether the command moves playback to another track.
func (c Command) IsSkip() bool {
	return c == Next || c == Prev
}
