package audio

import (
	"fmt"
	"time"

	"github.com/borgmon/transit-snoozer/pkg/models"
)

// Sound is decoded PCM ready for an Engine
type Sound struct {
	Name   string
	Format Format
	PCM    []byte
}

// Duration returns the length of one pass of the sound
func (s Sound) Duration() time.Duration {
	frame := s.Format.Channels * s.Format.BitDepth / 8
	if frame == 0 || s.Format.SampleRate == 0 {
		return 0
	}
	frames := len(s.PCM) / frame
	return time.Duration(frames) * time.Second / time.Duration(s.Format.SampleRate)
}

// Library resolves a sound selection to playable PCM
type Library struct {
	format Format
	custom map[string]string // custom sound id -> WAV path
}

// NewLibrary creates a library rendering tones in format. custom maps
// custom sound ids to WAV file paths.
func NewLibrary(format Format, custom map[string]string) *Library {
	if format.SampleRate == 0 {
		format = DefaultFormat
	}
	return &Library{format: format, custom: custom}
}

// Resolve returns the sound for sel. When a custom sound cannot be used the
// default tone is returned together with the reason.
func (l *Library) Resolve(sel models.SoundSelection) (Sound, error) {
	switch sel {
	case models.SoundDefault, models.SoundNotification, models.SoundPhone:
		return Synthesize(string(sel), l.format), nil
	}

	fallback := Synthesize(string(models.SoundDefault), l.format)

	id, ok := sel.CustomID()
	if !ok {
		return fallback, fmt.Errorf("%w: unknown sound %q", ErrUnsupportedFormat, sel)
	}
	path, ok := l.custom[id]
	if !ok {
		return fallback, fmt.Errorf("custom sound %q is not configured", id)
	}

	s, err := LoadWAV(path)
	if err != nil {
		return fallback, err
	}
	if s.Format != l.format {
		return fallback, fmt.Errorf("%w: %s is %v, want %v", ErrUnsupportedFormat, s.Name, s.Format, l.format)
	}
	return s, nil
}
