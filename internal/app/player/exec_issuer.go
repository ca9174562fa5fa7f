package player

import (
	"context"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/loopify/internal/domain/media"
)

// ExecIssuerConfig maps each command to a shell command line.
// The defaults press the XF86 media keys through xdotool.
type ExecIssuerConfig struct {
	Shell      string `yaml:"shell" mapstructure:"shell" default:"sh" validate:"required"`
	PlayPause  string `yaml:"play_pause" mapstructure:"play_pause" default:"xdotool key XF86AudioPlay"`
	Next       string `yaml:"next" mapstructure:"next" default:"xdotool key XF86AudioNext"`
	Prev       string `yaml:"prev" mapstructure:"prev" default:"xdotool key XF86AudioPrev"`
	VolumeUp   string `yaml:"volume_up" mapstructure:"volume_up" default:"xdotool key XF86AudioRaiseVolume"`
	VolumeDown string `yaml:"volume_down" mapstructure:"volume_down" default:"xdotool key XF86AudioLowerVolume"`
	Mute       string `yaml:"mute" mapstructure:"mute" default:"xdotool key XF86AudioMute"`
}

// commandLine returns the configured command line for cmd.
func (c *ExecIssuerConfig) commandLine(cmd media.Command) string {
	switch cmd {
	case media.PlayPause:
		return c.PlayPause
	case media.Next:
		return c.Next
	case media.Prev:
		return c.Prev
	case media.VolumeUp:
		return c.VolumeUp
	case media.VolumeDown:
		return c.VolumeDown
	case media.Mute:
		return c.Mute
	default:
		return ""
	}
}

// ErrUnsupportedCommand is returned when a backend cannot execute a command.
var ErrUnsupportedCommand = errors.New("command not supported by backend")

// ExecIssuer issues commands by running shell command lines, typically a
// key-press simulator such as xdotool or a tool like playerctl.
type ExecIssuer struct {
	config *ExecIssuerConfig
}

// NewExecIssuer creates an ExecIssuer from backend settings.
func NewExecIssuer(settings map[string]any) (*ExecIssuer, error) {
	var config ExecIssuerConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &config,
		TagName:     "mapstructure",
		ErrorUnused: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	zlog.Debug().Msgf("exec issuer config: %+v", config)
	return &ExecIssuer{config: &config}, nil
}

// Issue implements CommandIssuer.
func (e *ExecIssuer) Issue(ctx context.Context, cmd media.Command) error {
	line := strings.TrimSpace(e.config.commandLine(cmd))
	if line == "" {
		return errors.Wrapf(ErrUnsupportedCommand, "no command line configured for %s", cmd)
	}

	zlog.Debug().Msgf("exec issuer: running command=%s line=%q", cmd, line)
	c := exec.CommandContext(ctx, e.config.Shell, "-c", line)
	out, err := c.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "%s: %q failed: %s", cmd, line, strings.TrimSpace(string(out)))
	}
	return nil
}

// Name returns the issuer name.
func (e *ExecIssuer) Name() string {
	return "exec"
}
