package actuator

import (
	"errors"
	"sync"
)

// ErrVolumeRange is returned when a level is outside [0, max]
var ErrVolumeRange = errors.New("volume level out of range")

// MediaVolume is the media stream volume the alarm overrides
type MediaVolume interface {
	Level() (int, error)
	Max() int
	SetLevel(level int) error
}

// TargetVolume scales the current media level by percent of max, clamped to
// [0, max]. A percent above 100 boosts past the current level.
func TargetVolume(max, current, percent int) int {
	if max <= 0 {
		return 0
	}
	v := int(float64(max) * float64(percent) / 100 * float64(current) / float64(max))
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// Gainer is anything with a [0,1] output gain, such as *audio.Engine
type Gainer interface {
	SetGain(g float64)
}

// StreamVolume models the alarm stream's volume as max discrete steps over
// a Gainer. The desktop has no per-stream system volume to borrow.
type StreamVolume struct {
	out Gainer
	max int

	mu    sync.Mutex
	level int
}

// NewStreamVolume creates a volume with max steps starting at level
func NewStreamVolume(out Gainer, max, level int) *StreamVolume {
	if max <= 0 {
		max = 15
	}
	if level < 0 || level > max {
		level = max
	}
	v := &StreamVolume{out: out, max: max, level: level}
	v.apply(level)
	return v
}

func (v *StreamVolume) Level() (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.level, nil
}

func (v *StreamVolume) Max() int {
	return v.max
}

func (v *StreamVolume) SetLevel(level int) error {
	if level < 0 || level > v.max {
		return ErrVolumeRange
	}
	v.mu.Lock()
	v.level = level
	v.mu.Unlock()
	v.apply(level)
	return nil
}

func (v *StreamVolume) apply(level int) {
	if v.out != nil {
		v.out.SetGain(float64(level) / float64(v.max))
	}
}
