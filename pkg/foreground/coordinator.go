// Package foreground drives the alarm from a user-facing surface. It either
// mirrors the background listener or, when none is reachable, classifies and
// actuates on its own.
package foreground

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/borgmon/transit-snoozer/pkg/alarm"
	"github.com/borgmon/transit-snoozer/pkg/bridge"
	"github.com/borgmon/transit-snoozer/pkg/classifier"
	"github.com/borgmon/transit-snoozer/pkg/models"
)

type Config struct {
	Cooldown  time.Duration
	Now       func() time.Time
	Settings  models.AlarmSettings
	Monitored string // source watched from the start, "" for none
	Logger    *slog.Logger
}

// Coordinator is what the tray app and the terminal watcher talk to
type Coordinator struct {
	controller *alarm.Controller
	bridge     bridge.Foreground
	logger     *slog.Logger

	mu         sync.Mutex
	settings   models.AlarmSettings
	monitored  string
	monitoring bool
	remote     bool // background listener is authoritative
	visible    bool
	lastNote   *models.IncomingNotification
	remoteSeq  uint64
	remoteAt   time.Time
	noteObs    map[int]func(models.IncomingNotification)
	nextObs    int
	subs       []bridge.Subscription
	closed     bool

	// queued settings, applied in order on one goroutine
	queueOnce sync.Once
	queued    *models.AlarmSettings
	wake      chan struct{}
	done      chan struct{}
}

// New creates a coordinator actuating through actuator. b may be nil when
// no background listener exists.
func New(actuator alarm.Actuator, b bridge.Foreground, cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	settings := cfg.Settings
	if settings == (models.AlarmSettings{}) {
		settings = models.DefaultSettings()
	}

	return &Coordinator{
		controller: alarm.NewController(actuator, alarm.Config{
			Cooldown: cfg.Cooldown,
			Now:      cfg.Now,
			Origin:   models.OriginForeground,
			Logger:   logger,
		}),
		bridge:     b,
		logger:     logger,
		settings:   settings.Normalize(),
		monitored:  cfg.Monitored,
		monitoring: cfg.Monitored != "",
		noteObs:    make(map[int]func(models.IncomingNotification)),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Start subscribes to the bridge and runs the first reconciliation
func (c *Coordinator) Start(ctx context.Context) error {
	if c.bridge != nil {
		stateSub, err := c.bridge.OnState(c.adoptRemote)
		if err != nil {
			return err
		}
		noteSub, err := c.bridge.OnNotification(c.HandleNotification)
		if err != nil {
			stateSub.Unsubscribe()
			return err
		}
		c.mu.Lock()
		c.subs = append(c.subs, stateSub, noteSub)
		c.mu.Unlock()
	}
	c.Reconcile(ctx)
	return nil
}

// Reconcile re-evaluates which side is authoritative and pulls the live
// alarm state from the listener. It reports whether the listener answered.
func (c *Coordinator) Reconcile(ctx context.Context) bool {
	if c.bridge == nil {
		c.setRemote(false)
		return false
	}

	st, err := c.bridge.Status(ctx)
	if err != nil {
		if !errors.Is(err, bridge.ErrNoListener) {
			c.logger.Warn("listener status query failed", "err", err)
		}
		c.setRemote(false)
		return false
	}

	c.mu.Lock()
	wasRemote := c.remote
	c.remote = true
	c.remoteSeq = 0
	c.remoteAt = time.Time{}
	c.mu.Unlock()

	if !wasRemote {
		c.logger.Info("background listener reachable, mirroring its alarm state", "listening", st.Listening)
		// a local alarm would sound twice
		c.controller.Stop()
	}

	if st.Active != c.controller.IsActive() || (st.Active && st.AlarmID != c.controller.State().AlarmID) {
		c.controller.Adopt(models.StateChange{
			Active:  st.Active,
			Message: st.Message,
			AlarmID: st.AlarmID,
			Origin:  models.OriginBackground,
		})
	}

	c.pushSettings(ctx)
	return true
}

func (c *Coordinator) setRemote(remote bool) {
	c.mu.Lock()
	was := c.remote
	c.remote = remote
	c.mu.Unlock()

	if was && !remote {
		c.logger.Info("background listener unreachable, taking over the alarm")
		// the mirrored alarm can no longer be stopped remotely
		if c.controller.IsActive() {
			c.controller.Adopt(models.StateChange{Active: false, Origin: models.OriginBackground})
		}
	}
}

func (c *Coordinator) adoptRemote(change models.StateChange) {
	c.mu.Lock()
	// seq restarts with the listener, so only older events are stale
	if change.Seq <= c.remoteSeq && !change.At.After(c.remoteAt) {
		c.mu.Unlock()
		c.logger.Debug("dropping stale alarm state", "seq", change.Seq, "last", c.remoteSeq)
		return
	}
	c.remoteSeq = change.Seq
	c.remoteAt = change.At
	wasRemote := c.remote
	c.remote = true
	c.mu.Unlock()

	if !wasRemote {
		c.logger.Info("background listener appeared, mirroring its alarm state")
		c.controller.Stop()
	}
	c.controller.Adopt(change)
}

// SetVisible tells the background whether this surface can take mirrored
// notifications. Becoming visible triggers a reconciliation.
func (c *Coordinator) SetVisible(ctx context.Context, visible bool) {
	c.mu.Lock()
	changed := c.visible != visible
	c.visible = visible
	c.mu.Unlock()

	if !changed {
		return
	}
	if visible {
		c.Reconcile(ctx)
	}
	if c.bridge != nil {
		if err := c.bridge.MarkReady(ctx, visible); err != nil {
			c.logger.Warn("failed to update readiness", "visible", visible, "err", err)
		}
	}
}

// HandleNotification records n and, when this side is authoritative,
// classifies it and triggers locally.
func (c *Coordinator) HandleNotification(n models.IncomingNotification) {
	c.mu.Lock()
	note := n
	c.lastNote = &note
	remote, visible := c.remote, c.visible
	settings, monitored, monitoring := c.settings, c.monitored, c.monitoring
	fns := make([]func(models.IncomingNotification), 0, len(c.noteObs))
	for _, fn := range c.noteObs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(n)
	}

	if remote || !visible || !monitoring {
		return
	}

	decision := classifier.Evaluate(n, settings, monitored)
	c.logger.Debug("notification classified", "source", n.SourceApp, "reason", decision.Reason)
	if !decision.Trigger {
		return
	}
	c.controller.Trigger(alarm.TriggerRequest{
		Message:  classifier.Message(n),
		Title:    n.Title,
		Settings: settings,
	})
}

// OnNotificationReceived registers fn for every notification seen
func (c *Coordinator) OnNotificationReceived(fn func(models.IncomingNotification)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextObs
	c.nextObs++
	c.noteObs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.noteObs, id)
	}
}

// LastNotification returns the most recent notification seen
func (c *Coordinator) LastNotification() (models.IncomingNotification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastNote == nil {
		return models.IncomingNotification{}, false
	}
	return *c.lastNote, true
}

// OnAlarmStateChanged registers fn for alarm start and stop events
func (c *Coordinator) OnAlarmStateChanged(fn func(models.StateChange)) func() {
	return c.controller.Subscribe(fn)
}

// TriggerTestAlarm starts the test alarm on whichever side is authoritative
func (c *Coordinator) TriggerTestAlarm(ctx context.Context) alarm.TriggerResult {
	c.mu.Lock()
	remote, settings := c.remote, c.settings
	c.mu.Unlock()

	if remote {
		reply, err := c.bridge.RequestTrigger(ctx, settings)
		if err == nil {
			return alarm.TriggerResult(reply.Result)
		}
		c.logger.Warn("listener did not take the test alarm, playing locally", "err", err)
		c.setRemote(false)
	}
	return c.controller.TriggerTest(settings)
}

// StopAlarm silences the local alarm and relays the stop so a sound playing
// in the listener is silenced too.
func (c *Coordinator) StopAlarm(ctx context.Context) {
	c.controller.Stop()
	if c.bridge == nil {
		return
	}
	if err := c.bridge.SendStop(ctx); err != nil && !errors.Is(err, bridge.ErrNoListener) {
		c.logger.Warn("failed to relay stop", "err", err)
	}
}

func (c *Coordinator) IsAlarmActive() bool            { return c.controller.IsActive() }
func (c *Coordinator) GetCurrentAlarmMessage() string { return c.controller.CurrentMessage() }
func (c *Coordinator) ClearDismissalMemory()          { c.controller.ClearDismissalMemory() }

// State returns the lifecycle snapshot of the mirrored or local alarm
func (c *Coordinator) State() models.AlarmState {
	return c.controller.State()
}

// Authoritative reports whether this side actuates alarms itself
func (c *Coordinator) Authoritative() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.remote
}

// SetMonitoring starts watching source and pushes the choice to the listener
func (c *Coordinator) SetMonitoring(ctx context.Context, source string) {
	c.mu.Lock()
	c.monitored = source
	c.monitoring = source != ""
	c.mu.Unlock()
	c.logger.Info("monitoring", "source", source)
	c.pushSettings(ctx)
}

// StopMonitoring stops watching, silences any alarm and forgets the
// dismissed title.
func (c *Coordinator) StopMonitoring(ctx context.Context) {
	c.mu.Lock()
	c.monitoring = false
	c.mu.Unlock()

	c.controller.Stop()
	c.controller.ClearDismissalMemory()
	c.pushSettings(ctx)
}

// MonitoredSource returns the selected source, "" when nothing is watched
func (c *Coordinator) MonitoredSource() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.monitoring {
		return ""
	}
	return c.monitored
}

// ApplySettings stores new alarm settings and pushes them to the listener
func (c *Coordinator) ApplySettings(ctx context.Context, settings models.AlarmSettings) {
	c.mu.Lock()
	c.settings = settings.Normalize()
	c.mu.Unlock()
	c.pushSettings(ctx)
}

// QueueSettings applies settings without blocking the caller. Queued
// settings are applied one at a time; when several arrive while one is
// being pushed, only the newest is applied next.
func (c *Coordinator) QueueSettings(settings models.AlarmSettings) {
	c.queueOnce.Do(func() { go c.applyQueued() })

	c.mu.Lock()
	c.queued = &settings
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Coordinator) applyQueued() {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		c.mu.Lock()
		next := c.queued
		c.queued = nil
		c.mu.Unlock()

		if next != nil {
			c.ApplySettings(context.Background(), *next)
		}
	}
}

// Settings returns the current alarm settings
func (c *Coordinator) Settings() models.AlarmSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

func (c *Coordinator) pushSettings(ctx context.Context) {
	if c.bridge == nil {
		return
	}
	c.mu.Lock()
	update := models.SettingsUpdate{
		Settings:   c.settings,
		Monitored:  c.monitored,
		Monitoring: c.monitoring,
	}
	c.mu.Unlock()

	if err := c.bridge.PushSettings(ctx, update); err != nil {
		c.logger.Warn("failed to push settings to listener", "err", err)
	}
}

// Close drops bridge handlers and stops a locally actuated alarm
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	close(c.done)

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	if c.bridge != nil {
		c.bridge.MarkReady(context.Background(), false)
	}
	c.controller.Close()
}
