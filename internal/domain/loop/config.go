package loop

import (
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfiguration marks a rejected loop configuration update.
var ErrInvalidConfiguration = errors.New("invalid loop configuration")

// DefaultTargetCount is the single-play target the configuration starts with
// and returns to after a repeat cycle completes.
const DefaultTargetCount = 1

// Config is a point-in-time copy of the loop configuration.
type Config struct {
	Mode           Mode   // Loop scope
	TargetCount    int    // Desired plays of the current track, 0 = infinite
	CompletedCount int    // Restarts already issued for the current track
	LastTrackKey   string // Identity of the last observed track, empty if none
}

// Default returns the configuration a process starts with.
func Default() Config {
	return Config{
		Mode:        ModeOff,
		TargetCount: DefaultTargetCount,
	}
}

// Infinite reports whether the current track repeats forever.
func (c Config) Infinite() bool {
	return c.TargetCount == 0
}

// HasTrack reports whether a track has been observed.
func (c Config) HasTrack() bool {
	return c.LastTrackKey != ""
}

// Patch is a partial update requested by a client.
// Nil fields are left unchanged.
type Patch struct {
	Mode        *Mode `validate:"omitempty,gte=0,lte=2"`
	TargetCount *int  `validate:"omitempty,gte=0"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Mode == nil && p.TargetCount == nil
}

var validate = validator.New()

// Validate checks the patch values against the allowed ranges.
func (p Patch) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.Mark(errors.Wrap(err, "patch validation failed"), ErrInvalidConfiguration)
	}
	return nil
}

// Apply validates the patch and returns c with the patch applied.
func (p Patch) Apply(c Config) (Config, error) {
	if err := p.Validate(); err != nil {
		return c, err
	}
	if p.Mode != nil {
		c.Mode = *p.Mode
	}
	if p.TargetCount != nil {
		c.TargetCount = *p.TargetCount
	}
	return c, nil
}
