// Package player provides the playback status providers and media command
// issuers the loop watcher and the control surface talk to.
package player

import (
	"context"

	"github.com/osa030/loopify/internal/domain/media"
	"github.com/osa030/loopify/internal/domain/track"
)

// StatusProvider reports what the player is currently playing.
// A nil snapshot with a nil error means nothing is playing.
type StatusProvider interface {
	CurrentPlayback(ctx context.Context) (*track.Snapshot, error)

	// Name returns the provider name (used in config).
	Name() string
}

// CommandIssuer executes a media command on the host.
type CommandIssuer interface {
	Issue(ctx context.Context, cmd media.Command) error

	// Name returns the issuer name (used in config).
	Name() string
}

// Backend is a player integration that can both report and control playback.
type Backend interface {
	StatusProvider
	CommandIssuer
}
