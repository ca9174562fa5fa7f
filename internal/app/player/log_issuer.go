package player

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/loopify/internal/domain/media"
)

// LogIssuer only logs commands. It lets the server run on hosts without a
// controllable player, for example while setting up the status backends.
type LogIssuer struct{}

// Issue implements CommandIssuer.
func (LogIssuer) Issue(ctx context.Context, cmd media.Command) error {
	zlog.Info().Msgf("log issuer: command=%s (not executed)", cmd)
	return nil
}

// Name returns the issuer name.
func (LogIssuer) Name() string {
	return "log"
}
