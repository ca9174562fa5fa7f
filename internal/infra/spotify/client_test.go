package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/loopify/internal/domain/media"
)

// fakePlayer serves the subset of the Web API player endpoints the client uses.
type fakePlayer struct {
	mu        sync.Mutex
	playing   bool
	volume    int
	deviceID  string
	current   string // JSON body for currently-playing, empty for 204
	calls     []string
	volumeSet []string
}

func (f *fakePlayer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-1","display_name":"Loop Tester"}`))
	})
	mux.HandleFunc("GET /me/player/currently-playing", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.current == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.current))
	})
	mux.HandleFunc("GET /me/player", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"is_playing":` + boolJSON(f.playing) +
			`,"device":{"id":"` + f.deviceID + `","volume_percent":` + strconv.Itoa(f.volume) + `}}`))
	})
	record := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.deviceID == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":{"status":404,"message":"Player command failed: No active device found","reason":"NO_ACTIVE_DEVICE"}}`))
				return
			}
			f.calls = append(f.calls, name)
			if name == "volume" {
				f.volumeSet = append(f.volumeSet, r.URL.Query().Get("volume_percent"))
			}
			w.WriteHeader(http.StatusNoContent)
		}
	}
	mux.HandleFunc("PUT /me/player/play", record("play"))
	mux.HandleFunc("PUT /me/player/pause", record("pause"))
	mux.HandleFunc("POST /me/player/next", record("next"))
	mux.HandleFunc("POST /me/player/previous", record("previous"))
	mux.HandleFunc("PUT /me/player/volume", record("volume"))
	return mux
}

func boolJSON(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func newTestClient(t *testing.T, f *fakePlayer) *Client {
	t.Helper()
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)
	c := NewWithHTTPClient(server.Client(), server.URL+"/", 10)
	c.retryDelay = time.Millisecond
	return c
}

func TestClient_CurrentPlayback(t *testing.T) {
	f := &fakePlayer{
		current: `{"progress_ms":61000,"is_playing":true,"item":{"name":"Song A","duration_ms":200000,` +
			`"artists":[{"name":"Artist X"},{"name":"Artist Y"}]}}`,
	}
	c := newTestClient(t, f)

	snapshot, err := c.CurrentPlayback(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, "Song A", snapshot.Title)
	assert.Equal(t, []string{"Artist X", "Artist Y"}, snapshot.Artists)
	assert.Equal(t, "Song A - Artist X, Artist Y", snapshot.Key())
	assert.Equal(t, 200*time.Second, snapshot.Duration)
	assert.Equal(t, 61*time.Second, snapshot.Progress)
	assert.True(t, snapshot.IsPlaying)
}

func TestClient_CurrentPlayback_NothingPlaying(t *testing.T) {
	c := newTestClient(t, &fakePlayer{})

	snapshot, err := c.CurrentPlayback(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestClient_Issue(t *testing.T) {
	tests := []struct {
		name       string
		playing    bool
		volume     int
		cmd        media.Command
		wantCalls  []string
		wantVolume []string
	}{
		{name: "play when paused", playing: false, cmd: media.PlayPause, wantCalls: []string{"play"}},
		{name: "pause when playing", playing: true, cmd: media.PlayPause, wantCalls: []string{"pause"}},
		{name: "next", cmd: media.Next, wantCalls: []string{"next"}},
		{name: "prev", cmd: media.Prev, wantCalls: []string{"previous"}},
		{name: "volume up", volume: 50, cmd: media.VolumeUp, wantCalls: []string{"volume"}, wantVolume: []string{"60"}},
		{name: "volume up clamps", volume: 95, cmd: media.VolumeUp, wantCalls: []string{"volume"}, wantVolume: []string{"100"}},
		{name: "volume down clamps", volume: 5, cmd: media.VolumeDown, wantCalls: []string{"volume"}, wantVolume: []string{"0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakePlayer{playing: tt.playing, volume: tt.volume, deviceID: "device-1"}
			c := newTestClient(t, f)

			require.NoError(t, c.Issue(context.Background(), tt.cmd))
			assert.Equal(t, tt.wantCalls, f.calls)
			if tt.wantVolume != nil {
				assert.Equal(t, tt.wantVolume, f.volumeSet)
			}
		})
	}
}

func TestClient_Issue_MuteRestoresVolume(t *testing.T) {
	f := &fakePlayer{volume: 40, deviceID: "device-1"}
	c := newTestClient(t, f)

	require.NoError(t, c.Issue(context.Background(), media.Mute))
	require.NoError(t, c.Issue(context.Background(), media.Mute))

	assert.Equal(t, []string{"0", "40"}, f.volumeSet)
}

func TestClient_Issue_NoActiveDevice(t *testing.T) {
	c := newTestClient(t, &fakePlayer{})

	err := c.Issue(context.Background(), media.Next)
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, ErrNoActiveDevice))

	err = c.Issue(context.Background(), media.VolumeUp)
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, ErrNoActiveDevice))
}

func TestClient_CheckAuth(t *testing.T) {
	c := newTestClient(t, &fakePlayer{})

	name, err := c.CheckAuth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Loop Tester", name)
}

func TestClient_Retry(t *testing.T) {
	c := &Client{maxRetries: 3, retryDelay: time.Millisecond}

	attempts := 0
	err := c.retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("503 Service Unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = c.retry(context.Background(), func() error {
		attempts++
		return errors.New("400 Bad Request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "rate limit error with 429",
			err:      errors.New("Error 429: rate limit exceeded"),
			expected: true,
		},
		{
			name:     "rate limit text",
			err:      errors.New("rate limit exceeded"),
			expected: true,
		},
		{
			name:     "server error 500",
			err:      errors.New("Error 500: internal server error"),
			expected: true,
		},
		{
			name:     "server error 503",
			err:      errors.New("503 Service Unavailable"),
			expected: true,
		},
		{
			name:     "client error 400",
			err:      errors.New("400 Bad Request"),
			expected: false,
		},
		{
			name:     "no active device",
			err:      errors.New("Player command failed: No active device found"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isRetryable(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}
