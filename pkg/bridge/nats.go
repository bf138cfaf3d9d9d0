package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/borgmon/transit-snoozer/pkg/models"
)

// DefaultPrefix is the subject prefix used when none is configured
const DefaultPrefix = "transit-snoozer"

type NATSConfig struct {
	Prefix  string
	Timeout time.Duration // request/reply timeout
	Origin  string
	Logger  *slog.Logger
}

// NATS carries the bridge over a NATS connection. Events are plain
// publishes; status, trigger and readiness probes are request/reply.
type NATS struct {
	nc     *nats.Conn
	cfg    NATSConfig
	logger *slog.Logger

	mu      sync.Mutex
	pingSub *nats.Subscription
}

var (
	_ Foreground = (*NATS)(nil)
	_ Background = (*NATS)(nil)
)

type readyPayload struct {
	Ready bool `json:"ready"`
}

type statusPayload struct {
	Status models.ListenerStatus `json:"status"`
}

func NewNATS(nc *nats.Conn, cfg NATSConfig) *NATS {
	cfg.Prefix = strings.TrimSuffix(cfg.Prefix, ".")
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &NATS{nc: nc, cfg: cfg, logger: logger}
}

// Subject returns the full subject for kind
func (b *NATS) Subject(kind Kind) string {
	return fmt.Sprintf("%s.%s", b.cfg.Prefix, kind)
}

func (b *NATS) pingSubject() string {
	return b.Subject(KindReady) + ".ping"
}

func (b *NATS) publish(kind Kind, payload any) error {
	data, err := Encode(kind, b.cfg.Origin, payload)
	if err != nil {
		return err
	}
	if err := b.nc.Publish(b.Subject(kind), data); err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	return nil
}

func (b *NATS) request(ctx context.Context, kind Kind, payload any, out any) error {
	data, err := Encode(kind, b.cfg.Origin, payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	msg, err := b.nc.RequestWithContext(ctx, b.Subject(kind), data)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
			return fmt.Errorf("%w: %v", ErrNoListener, err)
		}
		return fmt.Errorf("request %s: %w", kind, err)
	}
	_, err = Decode(msg.Data, kind, out)
	return err
}

func (b *NATS) subscribe(kind Kind, handle func(*nats.Msg)) (Subscription, error) {
	sub, err := b.nc.Subscribe(b.Subject(kind), handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", kind, err)
	}
	b.logger.Debug("bridge subscribed", "subject", sub.Subject)
	return sub, nil
}

func (b *NATS) decode(msg *nats.Msg, kind Kind, out any) bool {
	if _, err := Decode(msg.Data, kind, out); err != nil {
		b.logger.Error("failed to decode bridge message", "subject", msg.Subject, "err", err)
		return false
	}
	return true
}

func (b *NATS) respond(msg *nats.Msg, kind Kind, payload any) {
	data, err := Encode(kind, b.cfg.Origin, payload)
	if err != nil {
		b.logger.Error("failed to encode reply", "kind", kind, "err", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Warn("failed to send reply", "kind", kind, "err", err)
	}
}

// Foreground side

func (b *NATS) OnState(fn func(models.StateChange)) (Subscription, error) {
	return b.subscribe(KindState, func(msg *nats.Msg) {
		var change models.StateChange
		if b.decode(msg, KindState, &change) {
			fn(change)
		}
	})
}

func (b *NATS) OnNotification(fn func(models.IncomingNotification)) (Subscription, error) {
	return b.subscribe(KindNotification, func(msg *nats.Msg) {
		var n models.IncomingNotification
		if b.decode(msg, KindNotification, &n) {
			fn(n)
		}
	})
}

func (b *NATS) SendStop(ctx context.Context) error {
	return b.publish(KindStop, nil)
}

func (b *NATS) PushSettings(ctx context.Context, update models.SettingsUpdate) error {
	return b.publish(KindSettings, update)
}

func (b *NATS) RequestTrigger(ctx context.Context, settings models.AlarmSettings) (TriggerReply, error) {
	var reply TriggerReply
	if err := b.request(ctx, KindTrigger, settings, &reply); err != nil {
		return TriggerReply{}, err
	}
	return reply, nil
}

func (b *NATS) Status(ctx context.Context) (models.ListenerStatus, error) {
	var reply statusPayload
	if err := b.request(ctx, KindStatus, nil, &reply); err != nil {
		return models.ListenerStatus{}, err
	}
	return reply.Status, nil
}

// MarkReady announces readiness and answers readiness probes while ready
func (b *NATS) MarkReady(ctx context.Context, ready bool) error {
	b.mu.Lock()
	if ready && b.pingSub == nil {
		sub, err := b.nc.Subscribe(b.pingSubject(), func(msg *nats.Msg) {
			b.respond(msg, KindReady, readyPayload{Ready: true})
		})
		if err != nil {
			b.mu.Unlock()
			return fmt.Errorf("serve readiness: %w", err)
		}
		b.pingSub = sub
	}
	if !ready && b.pingSub != nil {
		if err := b.pingSub.Unsubscribe(); err != nil {
			b.logger.Warn("failed to stop readiness responder", "err", err)
		}
		b.pingSub = nil
	}
	b.mu.Unlock()

	return b.publish(KindReady, readyPayload{Ready: ready})
}

// Background side

func (b *NATS) PublishState(ctx context.Context, change models.StateChange) error {
	return b.publish(KindState, change)
}

func (b *NATS) PublishNotification(ctx context.Context, n models.IncomingNotification) error {
	if !b.ForegroundReady(ctx) {
		return ErrNotReady
	}
	return b.publish(KindNotification, n)
}

// ForegroundReady probes for a ready foreground
func (b *NATS) ForegroundReady(ctx context.Context) bool {
	data, err := Encode(KindReady, b.cfg.Origin, nil)
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	msg, err := b.nc.RequestWithContext(ctx, b.pingSubject(), data)
	if err != nil {
		return false
	}
	var reply readyPayload
	if _, err := Decode(msg.Data, KindReady, &reply); err != nil {
		return false
	}
	return reply.Ready
}

func (b *NATS) OnReady(fn func()) (Subscription, error) {
	return b.subscribe(KindReady, func(msg *nats.Msg) {
		var p readyPayload
		if b.decode(msg, KindReady, &p) && p.Ready {
			fn()
		}
	})
}

func (b *NATS) OnStop(fn func()) (Subscription, error) {
	return b.subscribe(KindStop, func(msg *nats.Msg) {
		if b.decode(msg, KindStop, nil) {
			fn()
		}
	})
}

func (b *NATS) OnSettings(fn func(models.SettingsUpdate)) (Subscription, error) {
	return b.subscribe(KindSettings, func(msg *nats.Msg) {
		var update models.SettingsUpdate
		if b.decode(msg, KindSettings, &update) {
			fn(update)
		}
	})
}

func (b *NATS) OnTrigger(fn func(models.AlarmSettings) TriggerReply) (Subscription, error) {
	return b.subscribe(KindTrigger, func(msg *nats.Msg) {
		var settings models.AlarmSettings
		if b.decode(msg, KindTrigger, &settings) {
			b.respond(msg, KindTrigger, fn(settings))
		}
	})
}

func (b *NATS) ServeStatus(fn func() models.ListenerStatus) (Subscription, error) {
	return b.subscribe(KindStatus, func(msg *nats.Msg) {
		if b.decode(msg, KindStatus, nil) {
			b.respond(msg, KindStatus, statusPayload{Status: fn()})
		}
	})
}
