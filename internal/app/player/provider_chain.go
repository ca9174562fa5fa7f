package player

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/loopify/internal/domain/track"
)

// ErrNoProviders is returned when a chain has nothing to ask.
var ErrNoProviders = errors.New("no status providers configured")

// ProviderChain asks multiple status providers in order.
// The first provider reporting a playing track wins. If none is playing,
// the first non-empty snapshot is returned so paused state is still visible.
type ProviderChain struct {
	providers []StatusProvider
}

// NewProviderChain creates a new provider chain.
func NewProviderChain(providers ...StatusProvider) *ProviderChain {
	return &ProviderChain{
		providers: providers,
	}
}

// CurrentPlayback implements StatusProvider.
func (c *ProviderChain) CurrentPlayback(ctx context.Context) (*track.Snapshot, error) {
	if len(c.providers) == 0 {
		return nil, ErrNoProviders
	}

	var fallback *track.Snapshot
	var combined error
	answered := false

	for i, p := range c.providers {
		snapshot, err := p.CurrentPlayback(ctx)
		if err != nil {
			zlog.Debug().Msgf("status provider failed, trying next: index=%d provider=%s error=%v", i+1, p.Name(), err)
			combined = errors.CombineErrors(combined, errors.Wrapf(err, "provider %s", p.Name()))
			continue
		}
		answered = true

		if snapshot.IsActive() {
			return snapshot, nil
		}
		if fallback == nil && snapshot != nil {
			fallback = snapshot
		}
	}

	if !answered {
		return nil, errors.Wrap(combined, "all status providers failed")
	}
	return fallback, nil
}

// Name returns the chain name.
func (c *ProviderChain) Name() string {
	return "provider_chain"
}

// Len returns the number of providers in the chain.
func (c *ProviderChain) Len() int {
	return len(c.providers)
}
