// Package control provides the synchronous control operations shared by the
// HTTP, RPC and stream surfaces.
package control

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/loopify/internal/app/player"
	"github.com/osa030/loopify/internal/app/repeat"
	"github.com/osa030/loopify/internal/domain/loop"
	"github.com/osa030/loopify/internal/domain/media"
	"github.com/osa030/loopify/internal/domain/track"
)

// PhaseReporter reports the loop watcher phase.
type PhaseReporter interface {
	Phase() repeat.Phase
}

// Service implements the control operations.
type Service struct {
	store    *repeat.Store
	provider player.StatusProvider
	issuer   player.CommandIssuer
	phases   PhaseReporter
}

// NewService creates a new control service. phases may be nil.
func NewService(store *repeat.Store, provider player.StatusProvider, issuer player.CommandIssuer, phases PhaseReporter) *Service {
	return &Service{
		store:    store,
		provider: provider,
		issuer:   issuer,
		phases:   phases,
	}
}

// Execute issues a media command. A successful skip in Song mode restarts
// the loop count for whatever track follows.
func (s *Service) Execute(ctx context.Context, cmd media.Command) error {
	if err := s.issuer.Issue(ctx, cmd); err != nil {
		zlog.Warn().Msgf("control: command failed: command=%s issuer=%s error=%v", cmd, s.issuer.Name(), err)
		return errors.Wrapf(err, "failed to execute %s", cmd)
	}
	zlog.Debug().Msgf("control: command executed: command=%s", cmd)

	if cmd.IsSkip() {
		if cfg, ok := s.store.ResetCompleted(); ok {
			zlog.Info().Msgf("control: manual skip reset loop count: command=%s target=%d", cmd, cfg.TargetCount)
		}
	}
	return nil
}

// PlayPause toggles playback.
func (s *Service) PlayPause(ctx context.Context) error { return s.Execute(ctx, media.PlayPause) }

// Next skips to the next track.
func (s *Service) Next(ctx context.Context) error { return s.Execute(ctx, media.Next) }

// Prev goes back to the previous track.
func (s *Service) Prev(ctx context.Context) error { return s.Execute(ctx, media.Prev) }

// VolumeUp raises the volume.
func (s *Service) VolumeUp(ctx context.Context) error { return s.Execute(ctx, media.VolumeUp) }

// VolumeDown lowers the volume.
func (s *Service) VolumeDown(ctx context.Context) error { return s.Execute(ctx, media.VolumeDown) }

// Mute toggles mute.
func (s *Service) Mute(ctx context.Context) error { return s.Execute(ctx, media.Mute) }

// SetLoop applies a partial loop update. Invalid values are rejected with
// loop.ErrInvalidConfiguration and never stored.
func (s *Service) SetLoop(p loop.Patch) (loop.Config, error) {
	cfg, err := s.store.Update(p)
	if err != nil {
		return cfg, err
	}
	zlog.Info().Msgf("control: loop updated: mode=%s target=%d", cfg.Mode, cfg.TargetCount)
	return cfg, nil
}

// GetLoop returns the loop configuration.
func (s *Service) GetLoop() loop.Config {
	return s.store.Read()
}

// GetStatus returns the loop configuration and the watcher phase.
func (s *Service) GetStatus() (loop.Config, repeat.Phase) {
	cfg := s.store.Read()
	if s.phases == nil {
		return cfg, repeat.PhaseIdle
	}
	return cfg, s.phases.Phase()
}

// SongInfo returns the current track, or nil when nothing is known.
// Provider failures are logged and reported as nothing playing.
func (s *Service) SongInfo(ctx context.Context) *track.Snapshot {
	snapshot, err := s.provider.CurrentPlayback(ctx)
	if err != nil {
		zlog.Debug().Msgf("control: song info unavailable: provider=%s error=%v", s.provider.Name(), err)
		return nil
	}
	return snapshot
}
