package store

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"

	"github.com/borgmon/transit-snoozer/pkg/models"
)

func TestSettingsStore_Defaults(t *testing.T) {
	s := NewSettingsStore(test.NewApp(), models.AlarmSettings{})

	assert.Equal(t, models.DefaultSettings(), s.Settings())
	assert.Empty(t, s.Monitored())
	assert.False(t, s.BackgroundAcknowledged())
}

func TestSettingsStore_Fallback(t *testing.T) {
	fallback := models.AlarmSettings{TriggerSensitivity: 3, VolumePercent: 120, Sound: models.SoundPhone}
	s := NewSettingsStore(test.NewApp(), fallback)
	assert.Equal(t, fallback, s.Settings())
}

func TestSettingsStore_UpdateClampsAndNotifies(t *testing.T) {
	s := NewSettingsStore(test.NewApp(), models.AlarmSettings{})

	var got []models.AlarmSettings
	unsubscribe := s.OnChange(func(a models.AlarmSettings) { got = append(got, a) })

	saved := s.Update(func(a *models.AlarmSettings) {
		a.VolumePercent = 200
		a.TriggerSensitivity = 2
		a.Sound = "klaxon"
		a.DebugMode = true
	})

	want := models.AlarmSettings{TriggerSensitivity: 2, VolumePercent: 150, Sound: models.SoundDefault, DebugMode: true}
	assert.Equal(t, want, saved)
	assert.Equal(t, want, s.Settings())
	assert.Equal(t, []models.AlarmSettings{want}, got)

	unsubscribe()
	s.Update(func(a *models.AlarmSettings) { a.VolumePercent = 10 })
	assert.Len(t, got, 1)
	assert.Equal(t, 10, s.Settings().VolumePercent)
}

func TestSettingsStore_CustomSound(t *testing.T) {
	s := NewSettingsStore(test.NewApp(), models.AlarmSettings{})
	s.Update(func(a *models.AlarmSettings) { a.Sound = models.CustomSound("chime") })

	id, ok := s.Settings().Sound.CustomID()
	assert.True(t, ok)
	assert.Equal(t, "chime", id)
}

func TestSettingsStore_MonitoredAndAcknowledged(t *testing.T) {
	s := NewSettingsStore(test.NewApp(), models.AlarmSettings{})

	s.SetMonitored("com.thetransitapp.droid")
	s.AcknowledgeBackground()

	assert.Equal(t, "com.thetransitapp.droid", s.Monitored())
	assert.True(t, s.BackgroundAcknowledged())
}
