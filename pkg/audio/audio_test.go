package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borgmon/transit-snoozer/pkg/models"
)

func TestSynthesize(t *testing.T) {
	for _, name := range []string{"default", "notification", "phone"} {
		t.Run(name, func(t *testing.T) {
			s := Synthesize(name, DefaultFormat)

			assert.Equal(t, name, s.Name)
			assert.Equal(t, DefaultFormat, s.Format)
			assert.NotEmpty(t, s.PCM)
			assert.Zero(t, len(s.PCM)%2, "whole 16-bit samples")
			assert.Greater(t, s.Duration(), 500*time.Millisecond)
		})
	}
}

func TestSynthesize_UnknownFallsBackToDefault(t *testing.T) {
	s := Synthesize("klaxon", DefaultFormat)
	assert.Equal(t, "default", s.Name)
	assert.Equal(t, Synthesize("default", DefaultFormat).PCM, s.PCM)
}

func TestSynthesize_Stereo(t *testing.T) {
	stereo := Format{SampleRate: 22050, Channels: 2, BitDepth: 16}
	s := Synthesize("phone", stereo)

	assert.Equal(t, 2*time.Second, s.Duration().Round(10*time.Millisecond))
	assert.Zero(t, len(s.PCM)%4)
}

func TestParseWAV_RoundTrip(t *testing.T) {
	src := Synthesize("notification", DefaultFormat)

	got, err := ParseWAV(EncodeWAV(src))
	require.NoError(t, err)
	assert.Equal(t, src.Format, got.Format)
	assert.Equal(t, src.PCM, got.PCM)
}

func TestParseWAV_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", []byte("OggS0000WAVEfmt ")},
		{"eight bit", EncodeWAV(Sound{Format: Format{SampleRate: 8000, Channels: 1, BitDepth: 8}, PCM: []byte{1, 2}})},
		{"no data", EncodeWAV(Sound{Format: DefaultFormat})[:36]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWAV(tt.data)
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
		})
	}
}

func TestLibrary_Resolve(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "chime.wav")
	require.NoError(t, os.WriteFile(good, EncodeWAV(Synthesize("notification", DefaultFormat)), 0o644))

	bad := filepath.Join(dir, "song.mp3")
	require.NoError(t, os.WriteFile(bad, []byte("ID3 not a wave"), 0o644))

	wrongRate := filepath.Join(dir, "low.wav")
	require.NoError(t, os.WriteFile(wrongRate, EncodeWAV(Synthesize("phone", Format{SampleRate: 8000, Channels: 1, BitDepth: 16})), 0o644))

	lib := NewLibrary(DefaultFormat, map[string]string{
		"chime": good,
		"song":  bad,
		"low":   wrongRate,
		"gone":  filepath.Join(dir, "missing.wav"),
	})

	s, err := lib.Resolve(models.SoundPhone)
	require.NoError(t, err)
	assert.Equal(t, "phone", s.Name)

	s, err = lib.Resolve(models.CustomSound("chime"))
	require.NoError(t, err)
	assert.Equal(t, "chime.wav", s.Name)

	for _, id := range []string{"song", "low", "gone", "unset"} {
		s, err = lib.Resolve(models.CustomSound(id))
		assert.Error(t, err, id)
		assert.Equal(t, "default", s.Name, "%s falls back to the default tone", id)
	}

	s, err = lib.Resolve(models.SoundSelection("bogus"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, "default", s.Name)
}

func TestEngine_RejectsMismatchedFormat(t *testing.T) {
	e := NewEngine(DefaultFormat)

	_, err := e.Play(Synthesize("default", Format{SampleRate: 8000, Channels: 1, BitDepth: 16}))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = e.Play(Sound{Name: "empty", Format: DefaultFormat})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestEngine_Gain(t *testing.T) {
	e := NewEngine(Format{})
	assert.Equal(t, DefaultFormat, e.Format())
	assert.Equal(t, 1.0, e.Gain())

	e.SetGain(0.25)
	assert.Equal(t, 0.25, e.Gain())
	e.SetGain(3)
	assert.Equal(t, 1.0, e.Gain())
	e.SetGain(-1)
	assert.Equal(t, 0.0, e.Gain())

	var p *Player
	p.Stop()
}
