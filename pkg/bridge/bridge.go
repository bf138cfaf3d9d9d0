// Package bridge carries alarm state, notifications and commands between the
// background listener and the foreground surfaces.
package bridge

import (
	"context"
	"errors"

	"github.com/borgmon/transit-snoozer/pkg/models"
)

var (
	// ErrNotReady is returned when a notification is published while no
	// foreground has confirmed it can receive it
	ErrNotReady = errors.New("foreground not ready")
	// ErrNoListener is returned when no background listener answers
	ErrNoListener = errors.New("background listener not reachable")
)

// Subscription is a registered handler
type Subscription interface {
	Unsubscribe() error
}

// TriggerReply answers a foreground test-alarm request
type TriggerReply struct {
	Result  string `json:"result"`
	AlarmID string `json:"alarm_id,omitempty"`
}

// Foreground is the bridge seen from the UI process
type Foreground interface {
	OnState(fn func(models.StateChange)) (Subscription, error)
	OnNotification(fn func(models.IncomingNotification)) (Subscription, error)
	SendStop(ctx context.Context) error
	PushSettings(ctx context.Context, update models.SettingsUpdate) error
	RequestTrigger(ctx context.Context, settings models.AlarmSettings) (TriggerReply, error)
	Status(ctx context.Context) (models.ListenerStatus, error)
	// MarkReady tells the background whether notifications can be delivered
	MarkReady(ctx context.Context, ready bool) error
}

// Background is the bridge seen from the listener daemon
type Background interface {
	PublishState(ctx context.Context, change models.StateChange) error
	PublishNotification(ctx context.Context, n models.IncomingNotification) error
	ForegroundReady(ctx context.Context) bool
	OnReady(fn func()) (Subscription, error)
	OnStop(fn func()) (Subscription, error)
	OnSettings(fn func(models.SettingsUpdate)) (Subscription, error)
	OnTrigger(fn func(models.AlarmSettings) TriggerReply) (Subscription, error)
	ServeStatus(fn func() models.ListenerStatus) (Subscription, error)
}

type subFunc func() error

func (f subFunc) Unsubscribe() error { return f() }
