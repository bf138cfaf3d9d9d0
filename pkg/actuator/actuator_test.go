package actuator

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borgmon/transit-snoozer/pkg/alarm"
	"github.com/borgmon/transit-snoozer/pkg/models"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeVolume struct {
	max     int
	level   int
	history []int
	readErr error
}

func (v *fakeVolume) Level() (int, error) { return v.level, v.readErr }
func (v *fakeVolume) Max() int            { return v.max }
func (v *fakeVolume) SetLevel(l int) error {
	v.level = l
	v.history = append(v.history, l)
	return nil
}

type fakeSound struct {
	played  []models.SoundSelection
	stopped int
	err     error
}

func (s *fakeSound) Play(sel models.SoundSelection) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	s.played = append(s.played, sel)
	return func() { s.stopped++ }, nil
}

type fakeNotifier struct {
	shown     []string
	dismissed int
	showErr   error
}

func (n *fakeNotifier) Show(m string) error {
	n.shown = append(n.shown, m)
	return n.showErr
}

func (n *fakeNotifier) Dismiss() error {
	n.dismissed++
	return nil
}

func (n *fakeNotifier) OnStopAction(func()) {}

type countingMotor struct {
	mu  sync.Mutex
	on  int
	off int
}

func (m *countingMotor) On() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.on++
	return nil
}

func (m *countingMotor) Off() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.off++
	return nil
}

func (m *countingMotor) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.on, m.off
}

func TestTargetVolume(t *testing.T) {
	tests := []struct {
		name                 string
		max, current, pct, w int
	}{
		{"boost half volume", 15, 7, 150, 10},
		{"eighty percent of full", 10, 10, 80, 8},
		{"clamped to max", 10, 10, 150, 10},
		{"muted percent", 15, 15, 0, 0},
		{"muted stream", 15, 0, 150, 0},
		{"no max", 0, 5, 100, 0},
		{"negative percent", 15, 10, -20, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.w, TargetVolume(tt.max, tt.current, tt.pct))
		})
	}
}

func TestDevice_ForcesAndRestoresVolume(t *testing.T) {
	vol := &fakeVolume{max: 100, level: 50}
	snd := &fakeSound{}
	note := &fakeNotifier{}
	d := NewDevice(Config{Sound: snd, Volume: vol, Notifier: note, Logger: quiet})

	settings := models.DefaultSettings()
	settings.VolumePercent = 150
	settings.Sound = models.SoundPhone

	err := d.Start(alarm.Alarm{ID: "a1", Message: "Google Maps: Next stop", Settings: settings})
	require.NoError(t, err)
	assert.True(t, d.IsPlaying())
	assert.Equal(t, 75, vol.level)
	assert.Equal(t, []models.SoundSelection{models.SoundPhone}, snd.played)
	assert.Equal(t, []string{"Google Maps: Next stop"}, note.shown)

	require.NoError(t, d.Stop())
	assert.False(t, d.IsPlaying())
	assert.Equal(t, 50, vol.level, "original level restored exactly")
	assert.Equal(t, 1, snd.stopped)
	assert.Equal(t, 1, note.dismissed)

	require.NoError(t, d.Stop())
	assert.Equal(t, []int{75, 50}, vol.history, "second stop does nothing")
}

func TestDevice_ChannelsFailIndependently(t *testing.T) {
	vol := &fakeVolume{max: 15, readErr: errors.New("no mixer")}
	snd := &fakeSound{err: errors.New("no device")}
	note := &fakeNotifier{showErr: errors.New("no bus")}
	motor := &countingMotor{}
	vib := NewPatternVibrator(motor)
	d := NewDevice(Config{Sound: snd, Volume: vol, Vibrator: vib, Pattern: Pattern{On: time.Hour, Off: time.Hour}, Notifier: note, Logger: quiet})

	err := d.Start(alarm.Alarm{ID: "a1", Message: "m", Settings: models.DefaultSettings()})
	require.Error(t, err)
	assert.True(t, d.IsPlaying())

	assert.Eventually(t, func() bool {
		on, _ := motor.counts()
		return on == 1
	}, time.Second, 5*time.Millisecond, "vibration runs although other channels failed")

	require.NoError(t, d.Stop())
	assert.Empty(t, vol.history, "nothing to restore when the level was never read")
	_, off := motor.counts()
	assert.Equal(t, 1, off)
}

func TestDevice_UnsupportedVibrationIsNotAnError(t *testing.T) {
	d := NewDevice(Config{Sound: &fakeSound{}, Logger: quiet})

	assert.NoError(t, d.Start(alarm.Alarm{ID: "a1", Settings: models.DefaultSettings()}))
	assert.NoError(t, d.Stop())
}

func TestDevice_RestartStopsPrevious(t *testing.T) {
	vol := &fakeVolume{max: 10, level: 4}
	snd := &fakeSound{}
	d := NewDevice(Config{Sound: snd, Volume: vol, Logger: quiet})

	require.NoError(t, d.Start(alarm.Alarm{ID: "a1", Settings: models.DefaultSettings()}))
	require.NoError(t, d.Start(alarm.Alarm{ID: "a2", Settings: models.DefaultSettings()}))
	assert.Equal(t, 1, snd.stopped)

	require.NoError(t, d.Stop())
	assert.Equal(t, 4, vol.level)
}

func TestStreamVolume(t *testing.T) {
	g := &recordingGain{}
	v := NewStreamVolume(g, 10, 5)

	lvl, err := v.Level()
	require.NoError(t, err)
	assert.Equal(t, 5, lvl)
	assert.Equal(t, 10, v.Max())
	assert.InDelta(t, 0.5, g.last, 1e-9)

	require.NoError(t, v.SetLevel(10))
	assert.InDelta(t, 1.0, g.last, 1e-9)

	assert.ErrorIs(t, v.SetLevel(11), ErrVolumeRange)
	assert.ErrorIs(t, v.SetLevel(-1), ErrVolumeRange)

	full := NewStreamVolume(nil, 0, -1)
	assert.Equal(t, 15, full.Max())
	lvl, _ = full.Level()
	assert.Equal(t, 15, lvl)
}

type recordingGain struct{ last float64 }

func (g *recordingGain) SetGain(v float64) { g.last = v }

func TestPatternVibrator_Repeats(t *testing.T) {
	motor := &countingMotor{}
	vib := NewPatternVibrator(motor)

	require.NoError(t, vib.Start(Pattern{On: 5 * time.Millisecond, Off: 5 * time.Millisecond}))
	assert.Eventually(t, func() bool {
		on, _ := motor.counts()
		return on >= 3
	}, time.Second, time.Millisecond)

	vib.Stop()
	on, _ := motor.counts()
	time.Sleep(30 * time.Millisecond)
	after, _ := motor.counts()
	assert.Equal(t, on, after, "no segments after stop")

	vib.Stop()
}

func TestPatternVibrator_InvalidPattern(t *testing.T) {
	vib := NewPatternVibrator(&countingMotor{})

	assert.ErrorIs(t, vib.Start(Pattern{}), ErrInvalidPattern)
	assert.ErrorIs(t, vib.Start(Pattern{On: time.Second, Off: -time.Second}), ErrInvalidPattern)
	assert.ErrorIs(t, NoVibration{}.Start(DefaultPattern), ErrVibrationUnsupported)
}

func TestTerminalBell(t *testing.T) {
	var buf bytes.Buffer
	bell := NewTerminalBell(&buf)

	require.NoError(t, bell.On())
	require.NoError(t, bell.Off())
	assert.Equal(t, "\a", buf.String())
}

func TestNotifyArgs(t *testing.T) {
	args := notifyArgs("Transit: Arriving at Elm", 7)
	require.Len(t, args, 8)

	assert.Equal(t, uint32(7), args[1])
	assert.Equal(t, "Transit: Arriving at Elm", args[4])
	assert.Equal(t, []string{"stop", "Stop Alarm"}, args[5])
	assert.Equal(t, int32(0), args[7])

	hints := args[6].(map[string]dbus.Variant)
	assert.Equal(t, byte(2), hints["urgency"].Value())
	assert.Equal(t, true, hints["resident"].Value())
}

func TestDBusNotifier_HandleSignal(t *testing.T) {
	n := &DBusNotifier{logger: quiet, id: 42}

	var stops int
	n.OnStopAction(func() { stops++ })

	signal := func(id uint32, action string) *dbus.Signal {
		return &dbus.Signal{Name: notificationsIface + ".ActionInvoked", Body: []interface{}{id, action}}
	}

	n.handleSignal(signal(42, "stop"))
	assert.Equal(t, 1, stops)

	n.handleSignal(signal(41, "stop"))
	n.handleSignal(signal(42, "default"))
	n.handleSignal(&dbus.Signal{Name: notificationsIface + ".NotificationClosed", Body: []interface{}{uint32(42), uint32(2)}})
	n.handleSignal(&dbus.Signal{Name: notificationsIface + ".ActionInvoked", Body: []interface{}{"bad"}})
	n.handleSignal(nil)
	assert.Equal(t, 1, stops)

	n.id = 0
	n.handleSignal(signal(0, "stop"))
	assert.Equal(t, 1, stops)
}
