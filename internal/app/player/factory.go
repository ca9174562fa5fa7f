package player

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/loopify/internal/infra/config"
)

// Clients holds the player integrations built by the caller. A field is nil
// when that integration is not configured.
type Clients struct {
	Spotify Backend
	MPD     Backend
}

func (c Clients) backend(backendType string) (Backend, error) {
	var b Backend
	switch backendType {
	case config.BackendSpotify:
		b = c.Spotify
	case config.BackendMPD:
		b = c.MPD
	default:
		return nil, errors.Newf("unsupported backend type: %s", backendType)
	}
	if b == nil {
		return nil, errors.Newf("%s backend is not configured", backendType)
	}
	return b, nil
}

// NewStatusProviderFromConfig creates the provider chain from configuration.
// One poll of the whole chain is bounded by the configured poll timeout, so
// stalled providers share that budget instead of each getting their own.
func NewStatusProviderFromConfig(cfg *config.Config, clients Clients) (StatusProvider, error) {
	if len(cfg.Status.Providers) == 0 {
		return nil, ErrNoProviders
	}

	var providers []StatusProvider
	for i, pcfg := range cfg.Status.Providers {
		zlog.Debug().Msgf("creating status provider: index=%d type=%s", i+1, pcfg.Type)
		b, err := clients.backend(pcfg.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create status provider (index %d)", i+1)
		}
		providers = append(providers, b)
		zlog.Info().Msgf("registered status provider: index=%d type=%s", i+1, pcfg.Type)
	}

	zlog.Info().Msgf("status poll timeout: providers=%d timeout=%v", len(providers), cfg.Loop.PollTimeout())
	return ProviderWithTimeout(NewProviderChain(providers...), cfg.Loop.PollTimeout()), nil
}

// NewCommandIssuerFromConfig creates the command issuer from configuration.
// The issuer is bounded by the configured command timeout.
func NewCommandIssuerFromConfig(cfg *config.Config, clients Clients) (CommandIssuer, error) {
	var issuer CommandIssuer
	var err error

	switch cfg.Commands.Type {
	case config.BackendExec:
		issuer, err = NewExecIssuer(cfg.Commands.Settings)
	case config.BackendLog:
		issuer = LogIssuer{}
	default:
		issuer, err = clients.backend(cfg.Commands.Type)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create command issuer (type %s)", cfg.Commands.Type)
	}

	zlog.Info().Msgf("registered command issuer: type=%s timeout=%v", cfg.Commands.Type, cfg.Loop.CommandTimeout())
	return IssuerWithTimeout(issuer, cfg.Loop.CommandTimeout()), nil
}
