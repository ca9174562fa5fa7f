// Package mpd provides a Music Player Daemon backend.
package mpd

import (
	"context"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fhs/gompd/v2/mpd"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/loopify/internal/domain/media"
	"github.com/osa030/loopify/internal/domain/track"
)

// Config represents MPD connection configuration.
type Config struct {
	Network    string // "tcp" or "unix"
	Addr       string // host:port or socket path
	Password   string
	VolumeStep int
}

// Client talks to MPD with one short-lived connection per operation.
type Client struct {
	cfg Config

	mu          sync.Mutex
	mutedVolume int // volume before Mute, 0 when not muted
}

// New creates a new MPD client. No connection is made until the first call.
func New(cfg Config) *Client {
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	if cfg.VolumeStep <= 0 {
		cfg.VolumeStep = 5
	}
	return &Client{cfg: cfg}
}

// Name returns the backend name.
func (c *Client) Name() string {
	return "mpd"
}

// do runs fn with a fresh connection and closes it afterwards.
// The connection is abandoned when ctx ends first.
func (c *Client) do(ctx context.Context, op string, fn func(*mpd.Client) error) error {
	done := make(chan error, 1)
	go func() {
		client, err := c.dial()
		if err != nil {
			done <- errors.Wrapf(err, "mpd %s: connect failed", op)
			return
		}
		defer client.Close()
		done <- fn(client)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "mpd %s", op)
	}
}

func (c *Client) dial() (*mpd.Client, error) {
	if c.cfg.Password != "" {
		return mpd.DialAuthenticated(c.cfg.Network, c.cfg.Addr, c.cfg.Password)
	}
	return mpd.Dial(c.cfg.Network, c.cfg.Addr)
}

// CurrentPlayback implements player.StatusProvider.
func (c *Client) CurrentPlayback(ctx context.Context) (*track.Snapshot, error) {
	var status, song mpd.Attrs
	err := c.do(ctx, "status", func(client *mpd.Client) error {
		var err error
		if status, err = client.Status(); err != nil {
			return err
		}
		song, err = client.CurrentSong()
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get mpd status")
	}
	return snapshotFromAttrs(status, song), nil
}

// Issue implements player.CommandIssuer.
func (c *Client) Issue(ctx context.Context, cmd media.Command) error {
	var err error
	switch cmd {
	case media.PlayPause:
		err = c.do(ctx, cmd.String(), func(client *mpd.Client) error {
			status, err := client.Status()
			if err != nil {
				return err
			}
			switch status["state"] {
			case "play":
				return client.Pause(true)
			case "pause":
				return client.Pause(false)
			default:
				return client.Play(-1)
			}
		})
	case media.Next:
		err = c.do(ctx, cmd.String(), func(client *mpd.Client) error { return client.Next() })
	case media.Prev:
		err = c.do(ctx, cmd.String(), func(client *mpd.Client) error { return client.Previous() })
	case media.VolumeUp:
		err = c.changeVolume(ctx, cmd, c.cfg.VolumeStep)
	case media.VolumeDown:
		err = c.changeVolume(ctx, cmd, -c.cfg.VolumeStep)
	case media.Mute:
		err = c.toggleMute(ctx)
	default:
		return errors.Newf("unsupported command: %s", cmd)
	}
	if err != nil {
		return errors.Wrapf(err, "mpd %s failed", cmd)
	}
	return nil
}

func (c *Client) changeVolume(ctx context.Context, cmd media.Command, delta int) error {
	return c.do(ctx, cmd.String(), func(client *mpd.Client) error {
		current, err := currentVolume(client)
		if err != nil {
			return err
		}
		volume := max(0, min(100, current+delta))
		zlog.Debug().Msgf("mpd volume: from=%d to=%d", current, volume)
		return client.SetVolume(volume)
	})
}

// toggleMute mutes and remembers the volume, or restores it. The remembered
// volume is only committed once the call has completed.
func (c *Client) toggleMute(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	muted := c.mutedVolume
	remembered := 0
	err := c.do(ctx, media.Mute.String(), func(client *mpd.Client) error {
		if muted > 0 {
			return client.SetVolume(muted)
		}

		current, err := currentVolume(client)
		if err != nil {
			return err
		}
		if current == 0 {
			return client.SetVolume(c.cfg.VolumeStep)
		}
		if err := client.SetVolume(0); err != nil {
			return err
		}
		remembered = current
		return nil
	})
	if err != nil {
		return err
	}
	c.mutedVolume = remembered
	return nil
}

// currentVolume reads the mixer volume. MPD reports -1 without a mixer.
func currentVolume(client *mpd.Client) (int, error) {
	status, err := client.Status()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(status["volume"])
	if err != nil || v < 0 {
		return 0, errors.New("mpd has no volume control")
	}
	return v, nil
}

// snapshotFromAttrs converts MPD status and currentsong attributes.
// A stopped player or an empty queue yields nil.
func snapshotFromAttrs(status, song mpd.Attrs) *track.Snapshot {
	state := status["state"]
	if state == "" || state == "stop" || len(song) == 0 {
		return nil
	}

	title := song["Title"]
	if title == "" {
		title = strings.TrimSuffix(path.Base(song["file"]), path.Ext(song["file"]))
	}

	var artists []string
	if artist := song["Artist"]; artist != "" {
		artists = []string{artist}
	}

	duration := parseSeconds(status["duration"])
	if duration == 0 {
		duration = parseSeconds(song["duration"])
	}
	if duration == 0 {
		duration = parseSeconds(song["Time"])
	}

	return &track.Snapshot{
		Title:     title,
		Artists:   artists,
		Duration:  duration,
		Progress:  parseSeconds(status["elapsed"]),
		IsPlaying: state == "play",
	}
}

// parseSeconds parses MPD's fractional seconds ("123.456").
func parseSeconds(s string) time.Duration {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
