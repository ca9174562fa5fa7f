package loop

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMode_String(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		want string
	}{
		{name: "off", mode: ModeOff, want: "Off"},
		{name: "playlist", mode: ModePlaylist, want: "Playlist"},
		{name: "song", mode: ModeSong, want: "Song"},
		{name: "negative index", mode: Mode(-1), want: "Unknown"},
		{name: "out of range", mode: Mode(3), want: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mode.String())
		})
	}
}

func TestMode_IotaValues(t *testing.T) {
	// State indexes are part of the wire contract.
	assert.Equal(t, 0, int(ModeOff))
	assert.Equal(t, 1, int(ModePlaylist))
	assert.Equal(t, 2, int(ModeSong))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "Song", want: ModeSong},
		{input: "song", want: ModeSong},
		{input: " playlist ", want: ModePlaylist},
		{input: "OFF", want: ModeOff},
		{input: "2", want: ModeSong},
		{input: "0", want: ModeOff},
		{input: "3", wantErr: true},
		{input: "track", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, ModeOff, c.Mode)
	assert.Equal(t, 1, c.TargetCount)
	assert.Equal(t, 0, c.CompletedCount)
	assert.False(t, c.HasTrack())
	assert.False(t, c.Infinite())
}

func TestPatch_Apply(t *testing.T) {
	song := ModeSong
	badMode := Mode(5)
	negMode := Mode(-1)
	zero := 0
	three := 3
	negative := -1

	tests := []struct {
		name    string
		patch   Patch
		want    Config
		wantErr bool
	}{
		{
			name:  "empty patch keeps everything",
			patch: Patch{},
			want:  Config{Mode: ModeOff, TargetCount: 1},
		},
		{
			name:  "mode only",
			patch: Patch{Mode: &song},
			want:  Config{Mode: ModeSong, TargetCount: 1},
		},
		{
			name:  "target only",
			patch: Patch{TargetCount: &three},
			want:  Config{Mode: ModeOff, TargetCount: 3},
		},
		{
			name:  "infinite target",
			patch: Patch{Mode: &song, TargetCount: &zero},
			want:  Config{Mode: ModeSong, TargetCount: 0},
		},
		{
			name:    "mode out of range",
			patch:   Patch{Mode: &badMode},
			wantErr: true,
		},
		{
			name:    "negative mode",
			patch:   Patch{Mode: &negMode},
			wantErr: true,
		},
		{
			name:    "negative target",
			patch:   Patch{TargetCount: &negative},
			wantErr: true,
		},
		{
			name:    "valid mode does not rescue invalid target",
			patch:   Patch{Mode: &song, TargetCount: &negative},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.patch.Apply(Default())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidConfiguration))
				assert.Equal(t, Default(), got, "rejected patch must not change the config")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPatch_IsEmpty(t *testing.T) {
	three := 3
	assert.True(t, Patch{}.IsEmpty())
	assert.False(t, Patch{TargetCount: &three}.IsEmpty())
}
