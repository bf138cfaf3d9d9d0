package alarm

import "github.com/borgmon/transit-snoozer/pkg/models"

// Alarm describes what an Actuator should play
type Alarm struct {
	ID       string
	Message  string
	Settings models.AlarmSettings
}

// Actuator produces the physical alarm: sound, vibration and a persistent
// notification with a stop action.
type Actuator interface {
	// Start begins all alarm channels. A returned error is informational;
	// channels that could start keep running.
	Start(a Alarm) error
	// Stop silences every channel and restores the media volume. Safe to
	// call when nothing is playing.
	Stop() error
	IsPlaying() bool
}

// NopActuator is used when a controller only mirrors a remote alarm
type NopActuator struct{}

func (NopActuator) Start(Alarm) error { return nil }
func (NopActuator) Stop() error       { return nil }
func (NopActuator) IsPlaying() bool   { return false }
