package store

import (
	"sync"

	"fyne.io/fyne/v2"

	"github.com/borgmon/transit-snoozer/pkg/models"
)

const (
	keySensitivity  = "trigger_sensitivity"
	keyVolume       = "volume_percent"
	keySound        = "sound"
	keyDebug        = "debug_mode"
	keyMonitored    = "monitored_app"
	keyAcknowledged = "background_acknowledged"
)

// SettingsStore persists the user facing alarm settings in Fyne preferences
type SettingsStore struct {
	prefs    fyne.Preferences
	fallback models.AlarmSettings

	mu        sync.Mutex
	listeners map[int]func(models.AlarmSettings)
	nextID    int
}

// NewSettingsStore creates a store over app's preferences. fallback is used
// for keys that were never written.
func NewSettingsStore(app fyne.App, fallback models.AlarmSettings) *SettingsStore {
	if fallback == (models.AlarmSettings{}) {
		fallback = models.DefaultSettings()
	}
	return &SettingsStore{
		prefs:     app.Preferences(),
		fallback:  fallback.Normalize(),
		listeners: make(map[int]func(models.AlarmSettings)),
	}
}

// Settings loads the current settings, clamped into range
func (s *SettingsStore) Settings() models.AlarmSettings {
	return models.AlarmSettings{
		TriggerSensitivity: s.prefs.IntWithFallback(keySensitivity, s.fallback.TriggerSensitivity),
		VolumePercent:      s.prefs.IntWithFallback(keyVolume, s.fallback.VolumePercent),
		Sound:              models.SoundSelection(s.prefs.StringWithFallback(keySound, string(s.fallback.Sound))),
		DebugMode:          s.prefs.BoolWithFallback(keyDebug, s.fallback.DebugMode),
	}.Normalize()
}

// Update applies fn to the current settings, saves the result and notifies
// listeners. The saved value is returned.
func (s *SettingsStore) Update(fn func(*models.AlarmSettings)) models.AlarmSettings {
	settings := s.Settings()
	fn(&settings)
	settings = settings.Normalize()

	s.prefs.SetInt(keySensitivity, settings.TriggerSensitivity)
	s.prefs.SetInt(keyVolume, settings.VolumePercent)
	s.prefs.SetString(keySound, string(settings.Sound))
	s.prefs.SetBool(keyDebug, settings.DebugMode)

	s.mu.Lock()
	fns := make([]func(models.AlarmSettings), 0, len(s.listeners))
	for _, l := range s.listeners {
		fns = append(fns, l)
	}
	s.mu.Unlock()

	for _, l := range fns {
		l(settings)
	}
	return settings
}

// OnChange registers fn for saved settings and returns its unsubscribe func
func (s *SettingsStore) OnChange(fn func(models.AlarmSettings)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Monitored returns the last selected transit app identifier
func (s *SettingsStore) Monitored() string {
	return s.prefs.String(keyMonitored)
}

func (s *SettingsStore) SetMonitored(identifier string) {
	s.prefs.SetString(keyMonitored, identifier)
}

// BackgroundAcknowledged reports whether the user confirmed that the
// listener keeps running after the window closes
func (s *SettingsStore) BackgroundAcknowledged() bool {
	return s.prefs.BoolWithFallback(keyAcknowledged, false)
}

func (s *SettingsStore) AcknowledgeBackground() {
	s.prefs.SetBool(keyAcknowledged, true)
}
