package foreground

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borgmon/transit-snoozer/pkg/alarm"
	"github.com/borgmon/transit-snoozer/pkg/bridge"
	"github.com/borgmon/transit-snoozer/pkg/listener"
	"github.com/borgmon/transit-snoozer/pkg/models"
)

const maps = "com.google.android.apps.maps"

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type countingActuator struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (a *countingActuator) Start(alarm.Alarm) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.starts++
	return nil
}

func (a *countingActuator) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stops++
	return nil
}

func (a *countingActuator) IsPlaying() bool { return false }

func (a *countingActuator) started() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.starts
}

func (a *countingActuator) stopped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stops
}

func arrival(title string) models.IncomingNotification {
	return models.IncomingNotification{SourceApp: maps, AppName: "Google Maps", Title: title}
}

// withListener runs a background listener on a shared in-process hub
func withListener(t *testing.T) (*bridge.Local, *listener.Service, *alarm.Controller) {
	t.Helper()
	hub := bridge.NewLocal()
	controller := alarm.NewController(nil, alarm.Config{Origin: models.OriginBackground, Logger: quiet})
	svc := listener.New(controller, hub, nil, listener.Config{Logger: quiet})
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(svc.Close)
	return hub, svc, controller
}

func TestStandalone_TriggersLocally(t *testing.T) {
	act := &countingActuator{}
	c := New(act, nil, Config{Logger: quiet})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	assert.True(t, c.Authoritative())

	c.SetMonitoring(ctx, maps)
	c.HandleNotification(arrival("Next stop: Main St"))
	assert.False(t, c.IsAlarmActive(), "hidden surfaces do not classify")

	c.SetVisible(ctx, true)
	c.HandleNotification(arrival("Next stop: Main St"))
	assert.True(t, c.IsAlarmActive())
	assert.Equal(t, "Google Maps: Next stop: Main St", c.GetCurrentAlarmMessage())
	assert.Equal(t, 1, act.started())

	c.StopAlarm(ctx)
	assert.False(t, c.IsAlarmActive())
	assert.Empty(t, c.GetCurrentAlarmMessage())

	// same notification again is the dismissed one
	c.HandleNotification(arrival("Next stop: Main St"))
	assert.False(t, c.IsAlarmActive())
}

func TestStandalone_TestAlarm(t *testing.T) {
	act := &countingActuator{}
	c := New(act, nil, Config{Logger: quiet})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	assert.Equal(t, alarm.ResultActivated, c.TriggerTestAlarm(ctx))
	assert.Equal(t, "This is a test alarm!", c.GetCurrentAlarmMessage())
	assert.Equal(t, alarm.ResultAlreadyActive, c.TriggerTestAlarm(ctx))

	c.Close()
	assert.False(t, c.IsAlarmActive())
}

func TestStopMonitoring_ClearsMemory(t *testing.T) {
	c := New(&countingActuator{}, nil, Config{Logger: quiet})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	c.SetVisible(ctx, true)
	c.SetMonitoring(ctx, maps)
	assert.Equal(t, maps, c.MonitoredSource())

	c.HandleNotification(arrival("Final stop"))
	require.True(t, c.IsAlarmActive())

	c.StopMonitoring(ctx)
	assert.False(t, c.IsAlarmActive())
	assert.Empty(t, c.MonitoredSource())
	assert.Equal(t, models.PhaseCooldown, c.State().Phase)
}

func TestNotificationObservers(t *testing.T) {
	c := New(nil, nil, Config{Logger: quiet})

	_, ok := c.LastNotification()
	assert.False(t, ok)

	var seen []string
	unsubscribe := c.OnNotificationReceived(func(n models.IncomingNotification) { seen = append(seen, n.Title) })
	c.HandleNotification(arrival("Bus 42 in 5 min"))
	unsubscribe()
	c.HandleNotification(arrival("Bus 42 in 4 min"))

	assert.Equal(t, []string{"Bus 42 in 5 min"}, seen)
	last, ok := c.LastNotification()
	require.True(t, ok)
	assert.Equal(t, "Bus 42 in 4 min", last.Title)
}

func TestMirrorsListener(t *testing.T) {
	hub, svc, bg := withListener(t)
	act := &countingActuator{}
	c := New(act, hub, Config{Logger: quiet})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	assert.False(t, c.Authoritative())

	var changes []models.StateChange
	c.OnAlarmStateChanged(func(sc models.StateChange) { changes = append(changes, sc) })
	var mirrored []string
	c.OnNotificationReceived(func(n models.IncomingNotification) { mirrored = append(mirrored, n.Title) })

	c.SetVisible(ctx, true)
	c.SetMonitoring(ctx, maps)

	st := svc.Status()
	assert.True(t, st.Listening)
	assert.Equal(t, maps, st.Monitored)

	svc.HandleNotification(ctx, arrival("Next stop: Main St"))

	assert.True(t, bg.IsActive())
	assert.True(t, c.IsAlarmActive())
	assert.Equal(t, "Google Maps: Next stop: Main St", c.GetCurrentAlarmMessage())
	assert.Equal(t, 0, act.started(), "the listener actuates, not the surface")
	assert.Equal(t, []string{"Next stop: Main St"}, mirrored)
	require.Len(t, changes, 1)
	assert.Equal(t, bg.State().AlarmID, changes[0].AlarmID)

	c.StopAlarm(ctx)
	assert.False(t, bg.IsActive())
	assert.False(t, c.IsAlarmActive())
}

func TestTestAlarmDelegatedToListener(t *testing.T) {
	hub, _, bg := withListener(t)
	act := &countingActuator{}
	c := New(act, hub, Config{Logger: quiet})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	assert.Equal(t, alarm.ResultActivated, c.TriggerTestAlarm(ctx))
	assert.True(t, bg.IsActive())
	assert.True(t, c.IsAlarmActive())
	assert.Equal(t, 0, act.started())
}

func TestReconcile_AdoptsRunningAlarm(t *testing.T) {
	hub, _, bg := withListener(t)
	require.Equal(t, alarm.ResultActivated, bg.TriggerTest(models.DefaultSettings()))

	c := New(&countingActuator{}, hub, Config{Logger: quiet})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	assert.True(t, c.IsAlarmActive())
	assert.Equal(t, "This is a test alarm!", c.GetCurrentAlarmMessage())
	assert.Equal(t, bg.State().AlarmID, c.State().AlarmID)
}

func TestFallsBackWhenListenerGone(t *testing.T) {
	hub, svc, _ := withListener(t)
	act := &countingActuator{}
	c := New(act, hub, Config{Logger: quiet})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	defer c.Close()
	require.False(t, c.Authoritative())

	svc.Close()

	assert.Equal(t, alarm.ResultActivated, c.TriggerTestAlarm(ctx))
	assert.True(t, c.Authoritative())
	assert.Equal(t, 1, act.started())
}

func TestAdoptRemote_DropsStaleEvents(t *testing.T) {
	c := New(nil, nil, Config{Logger: quiet})

	c.adoptRemote(models.StateChange{Active: true, AlarmID: "b", Message: "second", Seq: 2})
	c.adoptRemote(models.StateChange{Active: false, AlarmID: "a", Seq: 1})

	assert.True(t, c.IsAlarmActive())
	assert.Equal(t, "second", c.GetCurrentAlarmMessage())
}

func TestStart_KeepsListenerMonitoring(t *testing.T) {
	hub, svc, bg := withListener(t)
	ctx := context.Background()
	svc.ApplySettings(models.SettingsUpdate{Settings: models.DefaultSettings(), Monitored: maps, Monitoring: true})
	svc.HandleNotification(ctx, arrival("Next stop: Main St"))
	require.True(t, bg.IsActive())

	c := New(&countingActuator{}, hub, Config{Monitored: maps, Logger: quiet})
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	assert.Equal(t, maps, c.MonitoredSource())
	assert.True(t, bg.IsActive(), "a restarted surface must not silence the alarm")
	assert.True(t, c.IsAlarmActive())
}

func TestLateListener_TakesOverLocalAlarm(t *testing.T) {
	hub := bridge.NewLocal()
	act := &countingActuator{}
	c := New(act, hub, Config{Logger: quiet})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	c.SetVisible(ctx, true)
	c.SetMonitoring(ctx, maps)
	require.True(t, c.Authoritative())

	c.HandleNotification(arrival("Next stop: Main St"))
	require.True(t, c.IsAlarmActive())
	require.Equal(t, 1, act.started())

	// the listener comes up after the surface decided to actuate itself
	bg := alarm.NewController(nil, alarm.Config{Origin: models.OriginBackground, Logger: quiet})
	svc := listener.New(bg, hub, nil, listener.Config{Logger: quiet})
	require.NoError(t, svc.Start(ctx))
	defer svc.Close()
	svc.ApplySettings(models.SettingsUpdate{Settings: models.DefaultSettings(), Monitored: maps, Monitoring: true})

	svc.HandleNotification(ctx, arrival("Next stop: Main St"))
	require.True(t, bg.IsActive())
	assert.False(t, c.Authoritative())
	assert.True(t, c.IsAlarmActive())
	assert.Equal(t, bg.State().AlarmID, c.State().AlarmID)
	assert.Equal(t, 1, act.stopped(), "only the listener's alarm keeps sounding")

	bg.Stop()
	assert.False(t, c.IsAlarmActive())
	c.StopAlarm(ctx)
	assert.Equal(t, 1, act.started())
	assert.Equal(t, 1, act.stopped())
}

// slowPush holds the first settings push until gate is closed
type slowPush struct {
	*bridge.Local
	gate chan struct{}

	mu      sync.Mutex
	volumes []int
}

func (b *slowPush) PushSettings(ctx context.Context, update models.SettingsUpdate) error {
	b.mu.Lock()
	b.volumes = append(b.volumes, update.Settings.VolumePercent)
	first := len(b.volumes) == 1
	b.mu.Unlock()
	if first {
		<-b.gate
	}
	return nil
}

func (b *slowPush) pushed() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.volumes...)
}

func TestQueueSettings_NewestWins(t *testing.T) {
	b := &slowPush{Local: bridge.NewLocal(), gate: make(chan struct{})}
	c := New(&countingActuator{}, b, Config{Logger: quiet})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	withVolume := func(v int) models.AlarmSettings {
		s := models.DefaultSettings()
		s.VolumePercent = v
		return s
	}

	c.QueueSettings(withVolume(10))
	require.Eventually(t, func() bool { return len(b.pushed()) == 1 }, time.Second, 5*time.Millisecond)

	c.QueueSettings(withVolume(20))
	c.QueueSettings(withVolume(30))
	c.QueueSettings(withVolume(40))
	close(b.gate)

	require.Eventually(t, func() bool { return len(b.pushed()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{10, 40}, b.pushed())
	assert.Equal(t, 40, c.Settings().VolumePercent)
}
