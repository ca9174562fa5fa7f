package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/loopify/internal/domain/media"
	"github.com/osa030/loopify/internal/domain/track"
	"github.com/osa030/loopify/internal/infra/config"
)

type fakeBackend struct {
	name     string
	snapshot *track.Snapshot
	err      error
	delay    time.Duration

	mu       sync.Mutex
	commands []media.Command
}

func (f *fakeBackend) CurrentPlayback(ctx context.Context) (*track.Snapshot, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.snapshot, f.err
}

func (f *fakeBackend) Issue(ctx context.Context, cmd media.Command) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	return f.err
}

func (f *fakeBackend) Name() string { return f.name }

func TestProviderChain(t *testing.T) {
	playing := &track.Snapshot{Title: "Playing", IsPlaying: true, Duration: time.Minute}
	paused := &track.Snapshot{Title: "Paused", Duration: time.Minute}

	tests := []struct {
		name      string
		providers []StatusProvider
		want      *track.Snapshot
		wantErr   bool
	}{
		{
			name:    "no providers",
			wantErr: true,
		},
		{
			name: "first playing wins",
			providers: []StatusProvider{
				&fakeBackend{name: "a", snapshot: playing},
				&fakeBackend{name: "b", snapshot: paused},
			},
			want: playing,
		},
		{
			name: "playing preferred over earlier paused",
			providers: []StatusProvider{
				&fakeBackend{name: "a", snapshot: paused},
				&fakeBackend{name: "b", snapshot: playing},
			},
			want: playing,
		},
		{
			name: "paused fallback",
			providers: []StatusProvider{
				&fakeBackend{name: "a"},
				&fakeBackend{name: "b", snapshot: paused},
			},
			want: paused,
		},
		{
			name: "failure skipped",
			providers: []StatusProvider{
				&fakeBackend{name: "a", err: errors.New("down")},
				&fakeBackend{name: "b", snapshot: playing},
			},
			want: playing,
		},
		{
			name: "nothing playing",
			providers: []StatusProvider{
				&fakeBackend{name: "a"},
			},
			want: nil,
		},
		{
			name: "all failed",
			providers: []StatusProvider{
				&fakeBackend{name: "a", err: errors.New("down")},
				&fakeBackend{name: "b", err: errors.New("401")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewProviderChain(tt.providers...).CurrentPlayback(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProviderWithTimeout(t *testing.T) {
	slow := &fakeBackend{name: "slow", snapshot: &track.Snapshot{Title: "A"}, delay: 200 * time.Millisecond}

	start := time.Now()
	_, err := ProviderWithTimeout(slow, 20*time.Millisecond).CurrentPlayback(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 150*time.Millisecond)

	got, err := ProviderWithTimeout(slow, time.Second).CurrentPlayback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)
	assert.Equal(t, "slow", ProviderWithTimeout(slow, time.Second).Name())
}

func TestIssuerWithTimeout(t *testing.T) {
	slow := &fakeBackend{name: "slow", delay: 200 * time.Millisecond}

	err := IssuerWithTimeout(slow, 20*time.Millisecond).Issue(context.Background(), media.Next)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command next")

	fast := &fakeBackend{name: "fast"}
	require.NoError(t, IssuerWithTimeout(fast, time.Second).Issue(context.Background(), media.Mute))
	assert.Equal(t, []media.Command{media.Mute}, fast.commands)
}

func TestExecIssuer(t *testing.T) {
	issuer, err := NewExecIssuer(map[string]any{
		"next": "true",
		"prev": "echo boom >&2; false",
	})
	require.NoError(t, err)
	assert.Equal(t, "exec", issuer.Name())
	assert.Equal(t, "xdotool key XF86AudioPlay", issuer.config.PlayPause)

	ctx := context.Background()
	require.NoError(t, issuer.Issue(ctx, media.Next))

	err = issuer.Issue(ctx, media.Prev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestExecIssuer_InvalidSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		errMsg   string
	}{
		{name: "wrong type", settings: map[string]any{"next": []int{1}}},
		{name: "misspelled key", settings: map[string]any{"volumeup": "amixer set Master 5%+"}, errMsg: "volumeup"},
		{name: "unknown key", settings: map[string]any{"next": "true", "rewind": "true"}, errMsg: "rewind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExecIssuer(tt.settings)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLogIssuer(t *testing.T) {
	var issuer LogIssuer
	assert.NoError(t, issuer.Issue(context.Background(), media.PlayPause))
	assert.Equal(t, "log", issuer.Name())
}

func TestNewStatusProviderFromConfig(t *testing.T) {
	spotify := &fakeBackend{name: "spotify"}
	mpd := &fakeBackend{name: "mpd", snapshot: &track.Snapshot{Title: "B", IsPlaying: true}}

	cfg := &config.Config{}
	cfg.Loop.PollTimeoutMs = 1000
	cfg.Status.Providers = []config.BackendConfig{{Type: config.BackendSpotify}, {Type: config.BackendMPD}}

	provider, err := NewStatusProviderFromConfig(cfg, Clients{Spotify: spotify, MPD: mpd})
	require.NoError(t, err)
	bounded, ok := provider.(*timeoutProvider)
	require.True(t, ok)
	assert.Equal(t, time.Second, bounded.timeout)
	chain, ok := bounded.next.(*ProviderChain)
	require.True(t, ok)
	assert.Equal(t, 2, chain.Len())

	got, err := provider.CurrentPlayback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "B", got.Title)

	_, err = NewStatusProviderFromConfig(cfg, Clients{Spotify: spotify})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mpd backend is not configured")

	_, err = NewStatusProviderFromConfig(&config.Config{}, Clients{})
	assert.True(t, errors.Is(err, ErrNoProviders))
}

func TestNewStatusProviderFromConfig_StalledProvidersShareTimeout(t *testing.T) {
	cfg := &config.Config{}
	cfg.Loop.PollTimeoutMs = 150
	cfg.Status.Providers = []config.BackendConfig{{Type: config.BackendSpotify}, {Type: config.BackendMPD}}

	provider, err := NewStatusProviderFromConfig(cfg, Clients{
		Spotify: &fakeBackend{name: "spotify", delay: time.Second},
		MPD:     &fakeBackend{name: "mpd", delay: time.Second},
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = provider.CurrentPlayback(context.Background())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Less(t, elapsed, 280*time.Millisecond)
}

func TestNewCommandIssuerFromConfig(t *testing.T) {
	mpd := &fakeBackend{name: "mpd"}

	tests := []struct {
		name     string
		commands config.CommandsConfig
		wantName string
		wantErr  bool
	}{
		{name: "exec", commands: config.CommandsConfig{Type: config.BackendExec}, wantName: "exec"},
		{name: "log", commands: config.CommandsConfig{Type: config.BackendLog}, wantName: "log"},
		{name: "mpd", commands: config.CommandsConfig{Type: config.BackendMPD}, wantName: "mpd"},
		{name: "spotify missing", commands: config.CommandsConfig{Type: config.BackendSpotify}, wantErr: true},
		{name: "unknown", commands: config.CommandsConfig{Type: "winamp"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Commands: tt.commands}
			cfg.Loop.CommandTimeoutMs = 1000

			issuer, err := NewCommandIssuerFromConfig(cfg, Clients{MPD: mpd})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, issuer.Name())
		})
	}
}
