// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"path"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Backend type names.
const (
	BackendSpotify = "spotify"
	BackendMPD     = "mpd"
	BackendExec    = "exec"
	BackendLog     = "log"
)

// StatusBackends lists the backend types that can report playback status.
var StatusBackends = []string{BackendSpotify, BackendMPD}

// CommandBackends lists the backend types that can issue media commands.
var CommandBackends = []string{BackendSpotify, BackendMPD, BackendExec, BackendLog}

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Loop     LoopConfig     `yaml:"loop"`
	Status   StatusConfig   `yaml:"status"`
	Commands CommandsConfig `yaml:"commands"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	MPD      MPDConfig      `yaml:"mpd"`
}

// ServerConfig represents server configuration.
// AllowedOrigins holds host patterns (path.Match syntax) of browser origins
// allowed to open the WebSocket stream; the request host is always allowed.
type ServerConfig struct {
	Addr           string      `yaml:"addr" default:"127.0.0.1:5000"`
	AllowedOrigins []string    `yaml:"allowed_origins" validate:"dive,required" default:"[\"localhost\",\"localhost:*\",\"127.0.0.1\",\"127.0.0.1:*\"]"`
	Hooks          HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// AdminConfig represents admin-related configuration.
// The RPC control service is only served when Token is set.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// LoopConfig represents loop watcher configuration.
type LoopConfig struct {
	PollTimeoutMs    int `yaml:"poll_timeout_ms" default:"5000" validate:"gte=100,lte=30000"`
	CommandTimeoutMs int `yaml:"command_timeout_ms" default:"5000" validate:"gte=100,lte=30000"`
}

// PollTimeout returns the status poll timeout.
func (l LoopConfig) PollTimeout() time.Duration {
	return time.Duration(l.PollTimeoutMs) * time.Millisecond
}

// CommandTimeout returns the media command timeout.
func (l LoopConfig) CommandTimeout() time.Duration {
	return time.Duration(l.CommandTimeoutMs) * time.Millisecond
}

// StatusConfig lists the status providers, asked in order.
type StatusConfig struct {
	Providers []BackendConfig `yaml:"providers" validate:"required,min=1,dive"`
}

// BackendConfig represents a single status provider selection.
type BackendConfig struct {
	Type     string         `yaml:"type" validate:"required"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// CommandsConfig selects the media command issuer.
type CommandsConfig struct {
	Type     string         `yaml:"type" default:"exec" validate:"required"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// SpotifyConfig represents Spotify API configuration.
// Credentials are only required when a spotify backend is selected.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	VolumeStep   int    `yaml:"volume_step" default:"10" validate:"gte=1,lte=100"`
}

// MPDConfig represents Music Player Daemon connection configuration.
type MPDConfig struct {
	Network    string `yaml:"network" default:"tcp" validate:"oneof=tcp unix"`
	Addr       string `yaml:"addr" default:"localhost:6600" validate:"required"`
	Password   string `yaml:"password"`
	VolumeStep int    `yaml:"volume_step" default:"5" validate:"gte=1,lte=100"`
}

// envOverrides holds the environment variables that take precedence over
// file values. The SPOTIPY_* names are accepted for existing .env files.
type envOverrides struct {
	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
	SpotifyRefreshToken string `env:"SPOTIFY_REFRESH_TOKEN"`
	SpotipyClientID     string `env:"SPOTIPY_CLIENT_ID"`
	SpotipyClientSecret string `env:"SPOTIPY_CLIENT_SECRET"`
	AdminToken          string `env:"LOOPIFY_ADMIN_TOKEN"`
	ServerAddr          string `env:"LOOPIFY_ADDR"`
	MPDPassword         string `env:"MPD_PASSWORD"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses, completes and validates configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	if err := cfg.overrideFromEnv(); err != nil {
		return nil, errors.Wrap(err, "failed to read environment")
	}

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return err
	}

	if v := firstNonEmpty(e.SpotifyClientID, e.SpotipyClientID); v != "" {
		c.Spotify.ClientID = v
	}
	if v := firstNonEmpty(e.SpotifyClientSecret, e.SpotipyClientSecret); v != "" {
		c.Spotify.ClientSecret = v
	}
	if e.SpotifyRefreshToken != "" {
		c.Spotify.RefreshToken = e.SpotifyRefreshToken
	}
	if e.AdminToken != "" {
		c.Admin.Token = e.AdminToken
	}
	if e.ServerAddr != "" {
		c.Server.Addr = e.ServerAddr
	}
	if e.MPDPassword != "" {
		c.MPD.Password = e.MPDPassword
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// UsesBackend checks if any status provider or the command issuer is of the given type.
func (c *Config) UsesBackend(backendType string) bool {
	if c.Commands.Type == backendType {
		return true
	}
	for _, p := range c.Status.Providers {
		if p.Type == backendType {
			return true
		}
	}
	return false
}

// RPCEnabled reports whether the RPC control service should be served.
func (c *Config) RPCEnabled() bool {
	return c.Admin.Token != ""
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if err := c.validateBackends(); err != nil {
		return err
	}

	for _, pattern := range c.Server.AllowedOrigins {
		if _, err := path.Match(pattern, ""); err != nil {
			return errors.Wrapf(err, "server: invalid allowed origin %q", pattern)
		}
	}

	return nil
}

// validateBackends checks backend types and the credentials they need.
func (c *Config) validateBackends() error {
	for i, p := range c.Status.Providers {
		if !slices.Contains(StatusBackends, p.Type) {
			return errors.Newf("status provider %d: unsupported type %q (supported: %v)", i+1, p.Type, StatusBackends)
		}
	}

	if !slices.Contains(CommandBackends, c.Commands.Type) {
		return errors.Newf("commands: unsupported type %q (supported: %v)", c.Commands.Type, CommandBackends)
	}

	if c.UsesBackend(BackendSpotify) {
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" || c.Spotify.RefreshToken == "" {
			return errors.New("spotify backend requires client_id, client_secret and refresh_token")
		}
	}

	return nil
}
