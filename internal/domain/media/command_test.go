package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_StringRoundTrip(t *testing.T) {
	for _, c := range Commands() {
		t.Run(c.String(), func(t *testing.T) {
			parsed, err := ParseCommand(c.String())
			require.NoError(t, err)
			assert.Equal(t, c, parsed)
		})
	}
}

func TestParseCommand_Aliases(t *testing.T) {
	tests := []struct {
		input string
		want  Command
	}{
		{input: "playpause", want: PlayPause},
		{input: "previous", want: Prev},
		{input: "volumeup", want: VolumeUp},
		{input: "VOLDOWN", want: VolumeDown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCommand(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseCommand("shuffle")
	assert.Error(t, err)
}

func TestCommand_IsSkip(t *testing.T) {
	assert.True(t, Next.IsSkip())
	assert.True(t, Prev.IsSkip())
	assert.False(t, PlayPause.IsSkip())
	assert.False(t, Mute.IsSkip())
	assert.Equal(t, "unknown", Command(42).String())
}
