// Package listener is the background capture and actuation path. It keeps
// working while no foreground surface is open.
package listener

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/borgmon/transit-snoozer/pkg/alarm"
	"github.com/borgmon/transit-snoozer/pkg/bridge"
	"github.com/borgmon/transit-snoozer/pkg/capture"
	"github.com/borgmon/transit-snoozer/pkg/classifier"
	"github.com/borgmon/transit-snoozer/pkg/metrics"
	"github.com/borgmon/transit-snoozer/pkg/models"
)

const (
	DefaultPendingLimit  = 50
	DefaultRetryDelay    = 2 * time.Second
	DefaultRetryAttempts = 2
)

type Config struct {
	AllowList     []string // accepted notification sources
	PendingLimit  int
	RetryDelay    time.Duration
	RetryAttempts int                  // retries after the first attempt, 0 for none
	Settings      models.AlarmSettings // used until the foreground pushes its own
	Debug         bool
	Logger        *slog.Logger
}

// Service captures notifications, decides and actuates through its own
// controller, and mirrors everything it accepts to the foreground.
type Service struct {
	cfg        Config
	logger     *slog.Logger
	controller *alarm.Controller
	bridge     bridge.Background
	source     capture.Source
	allowed    map[string]bool

	// handleMu serializes source callbacks and queue flushes
	handleMu sync.Mutex

	mu         sync.Mutex
	settings   models.AlarmSettings
	monitored  string
	monitoring bool
	running    bool
	closed     bool
	pending    []models.IncomingNotification
	retry      backoff.BackOff
	timer      *time.Timer
	timerGen   uint64
	subs       []bridge.Subscription
	unobserve  func()
}

func New(controller *alarm.Controller, b bridge.Background, source capture.Source, cfg Config) *Service {
	if cfg.PendingLimit <= 0 {
		cfg.PendingLimit = DefaultPendingLimit
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}
	if len(cfg.AllowList) == 0 {
		for _, app := range models.DefaultTransitApps {
			cfg.AllowList = append(cfg.AllowList, app.Identifier)
		}
	}
	if cfg.Settings == (models.AlarmSettings{}) {
		cfg.Settings = models.DefaultSettings()
	}
	logger := cfg.Logger
	if logger == nil {
		level := slog.LevelInfo
		if cfg.Debug {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))
	}

	allowed := make(map[string]bool, len(cfg.AllowList))
	for _, id := range cfg.AllowList {
		allowed[id] = true
	}

	return &Service{
		cfg:        cfg,
		logger:     logger,
		controller: controller,
		bridge:     b,
		source:     source,
		allowed:    allowed,
		settings:   cfg.Settings.Normalize(),
		retry:      backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.RetryDelay), uint64(cfg.RetryAttempts)),
	}
}

// Start wires the bridge handlers. Run calls it.
func (s *Service) Start(ctx context.Context) error {
	if s.bridge == nil {
		return errors.New("bridge is required")
	}

	unobserve := s.controller.Subscribe(func(change models.StateChange) {
		metrics.SetAlarmActive(change.Active)
		if err := s.bridge.PublishState(ctx, change); err != nil {
			s.logger.Warn("failed to publish alarm state", "alarm_id", change.AlarmID, "err", err)
		}
	})

	var subs []bridge.Subscription
	register := func(sub bridge.Subscription, err error) error {
		if err != nil {
			return err
		}
		subs = append(subs, sub)
		return nil
	}

	err := errors.Join(
		register(s.bridge.OnStop(func() {
			if s.controller.Stop() {
				metrics.IncAlarmEvent("stopped_remote")
			}
		})),
		register(s.bridge.OnSettings(s.ApplySettings)),
		register(s.bridge.OnTrigger(s.TriggerTest)),
		register(s.bridge.ServeStatus(s.Status)),
		register(s.bridge.OnReady(func() { s.flushNow(ctx) })),
	)
	if err != nil {
		unobserve()
		for _, sub := range subs {
			sub.Unsubscribe()
		}
		return err
	}

	s.mu.Lock()
	s.subs = subs
	s.unobserve = unobserve
	s.running = true
	s.mu.Unlock()

	s.logger.Info("listener started", "allow_list", s.cfg.AllowList, "pending_limit", s.cfg.PendingLimit)
	return nil
}

// Run starts the service and feeds it from the source until ctx is done
func (s *Service) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Close()

	if s.source == nil {
		<-ctx.Done()
		return nil
	}
	return s.source.Run(ctx, func(n models.IncomingNotification) {
		s.HandleNotification(ctx, n)
	})
}

// HandleNotification filters and classifies one notification, then mirrors it
func (s *Service) HandleNotification(ctx context.Context, n models.IncomingNotification) {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()

	if !s.allowed[n.SourceApp] {
		metrics.IncNotification("not_allowed")
		s.logger.Debug("ignoring notification from app outside the allow-list", "source", n.SourceApp)
		return
	}

	s.mu.Lock()
	settings, monitored, monitoring := s.settings, s.monitored, s.monitoring
	s.mu.Unlock()

	if !monitoring {
		metrics.IncNotification("not_monitoring")
		s.logger.Debug("not monitoring, dropping notification", "source", n.SourceApp)
		return
	}

	decision := classifier.Evaluate(n, settings, monitored)
	metrics.IncNotification(string(decision.Reason))
	s.logger.Debug("notification classified",
		"source", n.SourceApp,
		"title", n.Title,
		"reason", decision.Reason,
		"stops_remaining", decision.StopsRemaining,
	)
	if decision.Trigger {
		res := s.controller.Trigger(alarm.TriggerRequest{
			Message:  classifier.Message(n),
			Title:    n.Title,
			Settings: settings,
		})
		metrics.IncTrigger(string(res))
		if res.Activated() {
			metrics.IncAlarmEvent("activated")
		}
	}

	// mirrored after the trigger, the alarm never waits on the foreground
	s.mirror(ctx, n)
}

// ApplySettings takes a settings push from the foreground
func (s *Service) ApplySettings(update models.SettingsUpdate) {
	// a flush in progress would requeue what is cleared here
	s.handleMu.Lock()
	defer s.handleMu.Unlock()

	s.mu.Lock()
	wasMonitoring := s.monitoring
	s.settings = update.Settings.Normalize()
	s.monitored = update.Monitored
	s.monitoring = update.Monitoring && update.Monitored != ""
	stopped := wasMonitoring && !s.monitoring
	if stopped {
		s.pending = nil
		s.cancelTimerLocked()
		metrics.SetPending(0)
	}
	s.mu.Unlock()

	s.logger.Info("settings updated",
		"monitored", update.Monitored,
		"monitoring", update.Monitoring,
		"sensitivity", update.Settings.TriggerSensitivity,
		"debug", update.Settings.DebugMode,
	)

	if stopped {
		if s.controller.Stop() {
			metrics.IncAlarmEvent("stopped_unmonitor")
		}
		s.controller.ClearDismissalMemory()
	}
}

// Status answers the foreground's reconciliation query
func (s *Service) Status() models.ListenerStatus {
	s.mu.Lock()
	running, monitored, monitoring := s.running, s.monitored, s.monitoring
	s.mu.Unlock()

	st := s.controller.State()
	return models.ListenerStatus{
		Listening: running && monitoring,
		Monitored: monitored,
		Active:    st.Phase == models.PhaseActive,
		Message:   st.ActiveMessage,
		AlarmID:   st.AlarmID,
	}
}

// TriggerTest starts a test alarm on behalf of the foreground
func (s *Service) TriggerTest(settings models.AlarmSettings) bridge.TriggerReply {
	res := s.controller.TriggerTest(settings.Normalize())
	metrics.IncTrigger("test_" + string(res))
	return bridge.TriggerReply{Result: string(res), AlarmID: s.controller.State().AlarmID}
}

// Pending returns a copy of the notifications waiting for the foreground
func (s *Service) Pending() []models.IncomingNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.IncomingNotification(nil), s.pending...)
}

// Close cancels timers, drops bridge handlers and stops any active alarm
// so the media volume is restored.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.running = false
	s.cancelTimerLocked()
	subs := s.subs
	s.subs = nil
	unobserve := s.unobserve
	s.unobserve = nil
	s.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("failed to unsubscribe bridge handler", "err", err)
		}
	}
	s.controller.Close()
	if unobserve != nil {
		unobserve()
	}
	s.logger.Info("listener stopped")
}
