// Package alarm holds the alarm lifecycle state machine shared by the
// background listener and the foreground coordinator.
//
// The lifecycle is IDLE -> ACTIVE -> COOLDOWN -> IDLE. COOLDOWN is not a
// scheduled state: it is "now - LastStoppedAt < Cooldown", evaluated when a
// trigger arrives.
package alarm

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/borgmon/transit-snoozer/pkg/models"
)

// DefaultCooldown is the post-stop window during which triggers are dropped
const DefaultCooldown = 30 * time.Second

// TriggerResult is the outcome of a trigger attempt
type TriggerResult string

const (
	ResultActivated     TriggerResult = "activated"
	ResultAlreadyActive TriggerResult = "already_active"
	ResultDismissed     TriggerResult = "dismissed" // same title as the last stopped alarm
	ResultCooldown      TriggerResult = "cooldown"
)

// Activated reports whether the trigger started an alarm
func (r TriggerResult) Activated() bool {
	return r == ResultActivated
}

// TriggerRequest asks the controller to start an alarm
type TriggerRequest struct {
	Message  string
	Title    string // title of the triggering notification
	Settings models.AlarmSettings
	Test     bool // operator test, bypasses cooldown and dismissal memory
}

// Config tunes a Controller
type Config struct {
	Cooldown time.Duration
	Origin   string
	Now      func() time.Time
	Logger   *slog.Logger
}

// Controller owns the alarm state. Every transition happens under mu, so
// concurrent triggers from several goroutines are linearized and only the
// first one to observe IDLE activates.
type Controller struct {
	cfg      Config
	actuator Actuator
	memory   *DismissalMemory
	logger   *slog.Logger

	mu            sync.Mutex
	active        bool
	message       string
	title         string
	alarmID       string
	actuated      bool // the active alarm was started through actuator
	lastStoppedAt time.Time
	seq           uint64

	obsMu     sync.Mutex
	observers map[int]func(models.StateChange)
	nextObs   int
}

// NewController creates a controller driving actuator. A nil actuator is
// replaced by NopActuator.
func NewController(actuator Actuator, cfg Config) *Controller {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if actuator == nil {
		actuator = NopActuator{}
	}
	return &Controller{
		cfg:       cfg,
		actuator:  actuator,
		memory:    &DismissalMemory{},
		logger:    logger.With("origin", cfg.Origin),
		observers: make(map[int]func(models.StateChange)),
	}
}

// Trigger starts an alarm unless one is active, the title was just
// dismissed, or the cooldown window is still open.
func (c *Controller) Trigger(req TriggerRequest) TriggerResult {
	c.mu.Lock()

	if c.active {
		c.mu.Unlock()
		c.logger.Debug("alarm already active, ignoring trigger", "message", req.Message)
		return ResultAlreadyActive
	}

	now := c.cfg.Now()
	if !req.Test {
		if c.memory.Matches(req.Title) {
			c.mu.Unlock()
			c.logger.Debug("notification title was just dismissed, ignoring", "title", req.Title)
			return ResultDismissed
		}
		if remaining := c.cooldownRemaining(now); remaining > 0 {
			c.mu.Unlock()
			c.logger.Debug("in cooldown period", "remaining", remaining.Round(time.Second))
			return ResultCooldown
		}
	}

	c.active = true
	c.message = req.Message
	c.title = NormalizeTitle(req.Title)
	c.alarmID = uuid.New().String()
	c.actuated = true
	change := c.changeLocked(now)

	if err := c.actuator.Start(Alarm{ID: c.alarmID, Message: req.Message, Settings: req.Settings}); err != nil {
		// still active; channels that failed are skipped
		c.logger.Warn("alarm actuation degraded", "alarm_id", c.alarmID, "err", err)
	}
	c.mu.Unlock()

	c.logger.Info("alarm activated", "alarm_id", change.AlarmID, "message", req.Message, "test", req.Test)
	c.emit(change)
	return ResultActivated
}

// TriggerTest starts the operator test alarm
func (c *Controller) TriggerTest(settings models.AlarmSettings) TriggerResult {
	return c.Trigger(TriggerRequest{
		Message:  "This is a test alarm!",
		Settings: settings,
		Test:     true,
	})
}

// Stop silences the active alarm. It returns false, doing nothing, when no
// alarm is active.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return false
	}

	now := c.cfg.Now()
	title := c.title
	id := c.alarmID
	c.memory.Remember(title)
	c.lastStoppedAt = now
	c.active = false
	c.message = ""
	c.title = ""
	c.alarmID = ""
	change := c.changeLocked(now)
	change.AlarmID = id
	change.Title = title

	c.actuated = false
	if err := c.actuator.Stop(); err != nil {
		c.logger.Error("failed to stop actuator", "alarm_id", id, "err", err)
	}
	c.mu.Unlock()

	c.logger.Info("alarm stopped", "alarm_id", id)
	c.emit(change)
	return true
}

// Adopt mirrors an alarm that another controller is actuating. Nothing is
// actuated here; observers see the same state change. An alarm this
// controller started itself is silenced first, so only one keeps sounding.
// Changes that do not alter the mirrored state are dropped.
func (c *Controller) Adopt(remote models.StateChange) bool {
	c.mu.Lock()

	if remote.Active == c.active && remote.AlarmID == c.alarmID {
		c.mu.Unlock()
		return false
	}

	if c.actuated {
		c.actuated = false
		if err := c.actuator.Stop(); err != nil {
			c.logger.Error("failed to stop actuator", "alarm_id", c.alarmID, "err", err)
		}
		c.logger.Info("local alarm replaced by remote state", "alarm_id", c.alarmID, "remote_id", remote.AlarmID)
	}

	now := c.cfg.Now()
	if remote.Active {
		c.active = true
		c.message = remote.Message
		c.title = NormalizeTitle(remote.Title)
		c.alarmID = remote.AlarmID
	} else {
		if !c.active {
			c.mu.Unlock()
			return false
		}
		title := c.title
		if remote.Title != "" {
			title = NormalizeTitle(remote.Title)
		}
		c.memory.Remember(title)
		c.lastStoppedAt = now
		c.active = false
		c.message = ""
		c.title = ""
		c.alarmID = ""
	}
	change := c.changeLocked(now)
	if !remote.Active {
		change.AlarmID = remote.AlarmID
		change.Title = NormalizeTitle(remote.Title)
	}
	c.mu.Unlock()

	c.logger.Debug("adopted remote alarm state", "active", remote.Active, "alarm_id", remote.AlarmID)
	c.emit(change)
	return true
}

// State returns a snapshot of the lifecycle
func (c *Controller) State() models.AlarmState {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := models.AlarmState{
		Phase:                       models.PhaseIdle,
		ActiveMessage:               c.message,
		ActiveSourceTitleNormalized: c.title,
		LastStoppedAt:               c.lastStoppedAt,
		AlarmID:                     c.alarmID,
	}
	switch {
	case c.active:
		st.Phase = models.PhaseActive
	case c.cooldownRemaining(c.cfg.Now()) > 0:
		st.Phase = models.PhaseCooldown
	}
	return st
}

// IsActive reports whether an alarm is sounding
func (c *Controller) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// CurrentMessage returns the active alarm message, or "" when idle
func (c *Controller) CurrentMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// ClearDismissalMemory forgets the last dismissed title. Called when the
// user stops monitoring, not when an alarm is merely stopped.
func (c *Controller) ClearDismissalMemory() {
	c.memory.Clear()
	c.logger.Debug("cleared dismissed notification memory")
}

// Memory exposes the controller's dismissal memory
func (c *Controller) Memory() *DismissalMemory {
	return c.memory
}

// Subscribe registers fn for state changes and returns its unsubscribe func
func (c *Controller) Subscribe(fn func(models.StateChange)) func() {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()

	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn

	return func() {
		c.obsMu.Lock()
		defer c.obsMu.Unlock()
		delete(c.observers, id)
	}
}

// Close stops any active alarm so the media volume is restored on teardown
func (c *Controller) Close() {
	c.Stop()
}

func (c *Controller) cooldownRemaining(now time.Time) time.Duration {
	if c.lastStoppedAt.IsZero() {
		return 0
	}
	elapsed := now.Sub(c.lastStoppedAt)
	if elapsed >= c.cfg.Cooldown {
		return 0
	}
	return c.cfg.Cooldown - elapsed
}

func (c *Controller) changeLocked(now time.Time) models.StateChange {
	c.seq++
	return models.StateChange{
		Active:  c.active,
		Message: c.message,
		AlarmID: c.alarmID,
		Title:   c.title,
		Seq:     c.seq,
		At:      now,
		Origin:  c.cfg.Origin,
	}
}

func (c *Controller) emit(change models.StateChange) {
	c.obsMu.Lock()
	fns := make([]func(models.StateChange), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.obsMu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}
