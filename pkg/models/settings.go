package models

import "strings"

// SoundSelection identifies the alarm sound
type SoundSelection string

const (
	SoundDefault      SoundSelection = "default"      // Alarm tone
	SoundNotification SoundSelection = "notification" // Notification bell
	SoundPhone        SoundSelection = "phone"        // Phone ringtone

	customSoundPrefix = "custom:"
)

const (
	MinVolumePercent = 0
	MaxVolumePercent = 150

	DefaultVolumePercent      = 80
	DefaultTriggerSensitivity = 1
)

// CustomSound returns the selection for a user supplied sound id
func CustomSound(id string) SoundSelection {
	return SoundSelection(customSoundPrefix + id)
}

// CustomID returns the custom sound id and true if s is a custom selection
func (s SoundSelection) CustomID() (string, bool) {
	if !strings.HasPrefix(string(s), customSoundPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(string(s), customSoundPrefix)
	return id, id != ""
}

// Valid reports whether s is a known built-in or a well formed custom selection
func (s SoundSelection) Valid() bool {
	switch s {
	case SoundDefault, SoundNotification, SoundPhone:
		return true
	}
	_, ok := s.CustomID()
	return ok
}

// AlarmSettings holds the user facing alarm configuration
type AlarmSettings struct {
	TriggerSensitivity int            `json:"trigger_sensitivity" yaml:"trigger_sensitivity"` // stops before destination
	VolumePercent      int            `json:"volume_percent" yaml:"volume_percent"`           // 0-150
	Sound              SoundSelection `json:"sound" yaml:"sound"`
	DebugMode          bool           `json:"debug_mode" yaml:"debug_mode"` // any monitored notification fires
}

// DefaultSettings returns the settings used before the user changes anything
func DefaultSettings() AlarmSettings {
	return AlarmSettings{
		TriggerSensitivity: DefaultTriggerSensitivity,
		VolumePercent:      DefaultVolumePercent,
		Sound:              SoundDefault,
	}
}

// Normalize clamps every field into its valid range
func (s AlarmSettings) Normalize() AlarmSettings {
	if s.TriggerSensitivity < 1 {
		s.TriggerSensitivity = 1
	}
	if s.VolumePercent < MinVolumePercent {
		s.VolumePercent = MinVolumePercent
	}
	if s.VolumePercent > MaxVolumePercent {
		s.VolumePercent = MaxVolumePercent
	}
	if !s.Sound.Valid() {
		s.Sound = SoundDefault
	}
	return s
}

// SettingsUpdate is pushed from the foreground to the background listener
type SettingsUpdate struct {
	Settings   AlarmSettings `json:"settings"`
	Monitored  string        `json:"monitored,omitempty"` // empty when nothing is selected
	Monitoring bool          `json:"monitoring"`
}
