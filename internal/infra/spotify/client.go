// Package spotify provides a client for the Spotify Web API player endpoints.
package spotify

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/loopify/internal/domain/media"
	"github.com/osa030/loopify/internal/domain/track"
)

// ErrNoActiveDevice is returned when no Spotify Connect device is available.
var ErrNoActiveDevice = errors.New("no active spotify device")

// Scopes lists the OAuth scopes the client needs.
var Scopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
}

// Client is a Spotify API client.
type Client struct {
	client     *spotify.Client
	volumeStep int
	maxRetries int
	retryDelay time.Duration

	mu          sync.Mutex
	mutedVolume int // volume before Mute, 0 when not muted
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	VolumeStep   int
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(Scopes...),
	)

	// Create token from refresh token
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	// Get HTTP client with auto-refresh capability
	httpClient := auth.Client(ctx, token)
	return newClient(spotify.New(httpClient), cfg.VolumeStep), nil
}

// NewWithHTTPClient creates a client that talks to baseURL through httpClient.
// It is meant for tests and proxies; baseURL must end with a slash.
func NewWithHTTPClient(httpClient *http.Client, baseURL string, volumeStep int) *Client {
	return newClient(spotify.New(httpClient, spotify.WithBaseURL(baseURL)), volumeStep)
}

func newClient(client *spotify.Client, volumeStep int) *Client {
	if volumeStep <= 0 {
		volumeStep = 10
	}
	return &Client{
		client:     client,
		volumeStep: volumeStep,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Name returns the backend name.
func (c *Client) Name() string {
	return "spotify"
}

// CheckAuth verifies the credentials by fetching the current user profile.
func (c *Client) CheckAuth(ctx context.Context) (string, error) {
	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to get current user")
	}
	if user.DisplayName != "" {
		return user.DisplayName, nil
	}
	return user.ID, nil
}

// CurrentPlayback returns the currently playing track.
// A nil snapshot means nothing (or a non-track item) is playing.
func (c *Client) CurrentPlayback(ctx context.Context) (*track.Snapshot, error) {
	var result *spotify.CurrentlyPlaying
	err := c.retry(ctx, func() error {
		p, err := c.client.PlayerCurrentlyPlaying(ctx)
		if err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get currently playing")
	}

	return convertPlayback(result), nil
}

// Issue implements player.CommandIssuer.
func (c *Client) Issue(ctx context.Context, cmd media.Command) error {
	var err error
	switch cmd {
	case media.PlayPause:
		err = c.togglePlayback(ctx)
	case media.Next:
		err = c.retry(ctx, func() error { return c.client.Next(ctx) })
	case media.Prev:
		err = c.retry(ctx, func() error { return c.client.Previous(ctx) })
	case media.VolumeUp:
		err = c.changeVolume(ctx, c.volumeStep)
	case media.VolumeDown:
		err = c.changeVolume(ctx, -c.volumeStep)
	case media.Mute:
		err = c.toggleMute(ctx)
	default:
		return errors.Newf("unsupported command: %s", cmd)
	}
	if err != nil {
		return errors.Wrapf(classify(err), "spotify %s failed", cmd)
	}
	return nil
}

func (c *Client) playerState(ctx context.Context) (*spotify.PlayerState, error) {
	var state *spotify.PlayerState
	err := c.retry(ctx, func() error {
		s, err := c.client.PlayerState(ctx)
		if err != nil {
			return err
		}
		state = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (c *Client) togglePlayback(ctx context.Context) error {
	state, err := c.playerState(ctx)
	if err != nil {
		return err
	}
	if state.Playing {
		return c.retry(ctx, func() error { return c.client.Pause(ctx) })
	}
	return c.retry(ctx, func() error { return c.client.Play(ctx) })
}

func (c *Client) changeVolume(ctx context.Context, delta int) error {
	state, err := c.playerState(ctx)
	if err != nil {
		return err
	}
	if state.Device.ID == "" {
		return ErrNoActiveDevice
	}
	volume := clampVolume(int(state.Device.Volume) + delta)
	zlog.Debug().Msgf("spotify volume: from=%d to=%d", int(state.Device.Volume), volume)
	return c.setVolume(ctx, volume)
}

func (c *Client) toggleMute(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mutedVolume > 0 {
		if err := c.setVolume(ctx, c.mutedVolume); err != nil {
			return err
		}
		c.mutedVolume = 0
		return nil
	}

	state, err := c.playerState(ctx)
	if err != nil {
		return err
	}
	if state.Device.ID == "" {
		return ErrNoActiveDevice
	}
	current := int(state.Device.Volume)
	if current == 0 {
		// Muted outside loopify, nothing to remember.
		return c.setVolume(ctx, c.volumeStep)
	}
	if err := c.setVolume(ctx, 0); err != nil {
		return err
	}
	c.mutedVolume = current
	return nil
}

func (c *Client) setVolume(ctx context.Context, percent int) error {
	return c.retry(ctx, func() error { return c.client.Volume(ctx, percent) })
}

// convertPlayback converts a Spotify CurrentlyPlaying to a domain Snapshot.
func convertPlayback(p *spotify.CurrentlyPlaying) *track.Snapshot {
	if p == nil || p.Item == nil {
		return nil
	}

	artists := make([]string, len(p.Item.Artists))
	for i, a := range p.Item.Artists {
		artists[i] = a.Name
	}

	return &track.Snapshot{
		Title:     p.Item.Name,
		Artists:   artists,
		Duration:  time.Duration(int(p.Item.Duration)) * time.Millisecond,
		Progress:  time.Duration(int(p.Progress)) * time.Millisecond,
		IsPlaying: p.Playing,
	}
}

func clampVolume(v int) int {
	return max(0, min(100, v))
}

// classify marks errors that mean no device is ready to take commands.
func classify(err error) error {
	if errors.Is(err, ErrNoActiveDevice) {
		return err
	}
	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return errors.Mark(err, ErrNoActiveDevice)
	}
	if strings.Contains(strings.ToLower(err.Error()), "no active device") {
		return errors.Mark(err, ErrNoActiveDevice)
	}
	return err
}

// retry retries an operation with linear backoff.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return errors.CombineErrors(lastErr, ctx.Err())
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}
