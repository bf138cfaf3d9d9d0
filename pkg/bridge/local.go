package bridge

import (
	"context"
	"sync"

	"github.com/borgmon/transit-snoozer/pkg/models"
)

// Local is an in-process bridge implementing both roles. Handlers run
// synchronously on the caller's goroutine.
type Local struct {
	mu      sync.Mutex
	nextID  int
	state   map[int]func(models.StateChange)
	notes   map[int]func(models.IncomingNotification)
	stops   map[int]func()
	setting map[int]func(models.SettingsUpdate)
	readies map[int]func()
	trigger func(models.AlarmSettings) TriggerReply
	status  func() models.ListenerStatus
	ready   bool
}

var (
	_ Foreground = (*Local)(nil)
	_ Background = (*Local)(nil)
)

// NewLocal creates an empty hub
func NewLocal() *Local {
	return &Local{
		state:   make(map[int]func(models.StateChange)),
		notes:   make(map[int]func(models.IncomingNotification)),
		stops:   make(map[int]func()),
		setting: make(map[int]func(models.SettingsUpdate)),
		readies: make(map[int]func()),
	}
}

func register[T any](l *Local, m map[int]T, fn T) Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	m[id] = fn
	return subFunc(func() error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(m, id)
		return nil
	})
}

func snapshot[T any](l *Local, m map[int]T) []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, 0, len(m))
	for _, fn := range m {
		out = append(out, fn)
	}
	return out
}

// Foreground side

func (l *Local) OnState(fn func(models.StateChange)) (Subscription, error) {
	return register(l, l.state, fn), nil
}

func (l *Local) OnNotification(fn func(models.IncomingNotification)) (Subscription, error) {
	return register(l, l.notes, fn), nil
}

func (l *Local) SendStop(ctx context.Context) error {
	for _, fn := range snapshot(l, l.stops) {
		fn()
	}
	return nil
}

func (l *Local) PushSettings(ctx context.Context, update models.SettingsUpdate) error {
	for _, fn := range snapshot(l, l.setting) {
		fn(update)
	}
	return nil
}

func (l *Local) RequestTrigger(ctx context.Context, settings models.AlarmSettings) (TriggerReply, error) {
	l.mu.Lock()
	fn := l.trigger
	l.mu.Unlock()
	if fn == nil {
		return TriggerReply{}, ErrNoListener
	}
	return fn(settings), nil
}

func (l *Local) Status(ctx context.Context) (models.ListenerStatus, error) {
	l.mu.Lock()
	fn := l.status
	l.mu.Unlock()
	if fn == nil {
		return models.ListenerStatus{}, ErrNoListener
	}
	return fn(), nil
}

func (l *Local) MarkReady(ctx context.Context, ready bool) error {
	l.mu.Lock()
	changed := ready && !l.ready
	l.ready = ready
	l.mu.Unlock()

	if changed {
		for _, fn := range snapshot(l, l.readies) {
			fn()
		}
	}
	return nil
}

// Background side

func (l *Local) PublishState(ctx context.Context, change models.StateChange) error {
	for _, fn := range snapshot(l, l.state) {
		fn(change)
	}
	return nil
}

func (l *Local) PublishNotification(ctx context.Context, n models.IncomingNotification) error {
	if !l.ForegroundReady(ctx) {
		return ErrNotReady
	}
	for _, fn := range snapshot(l, l.notes) {
		fn(n)
	}
	return nil
}

func (l *Local) ForegroundReady(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

func (l *Local) OnReady(fn func()) (Subscription, error) {
	return register(l, l.readies, fn), nil
}

func (l *Local) OnStop(fn func()) (Subscription, error) {
	return register(l, l.stops, fn), nil
}

func (l *Local) OnSettings(fn func(models.SettingsUpdate)) (Subscription, error) {
	return register(l, l.setting, fn), nil
}

func (l *Local) OnTrigger(fn func(models.AlarmSettings) TriggerReply) (Subscription, error) {
	l.mu.Lock()
	l.trigger = fn
	l.mu.Unlock()
	return subFunc(func() error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.trigger = nil
		return nil
	}), nil
}

func (l *Local) ServeStatus(fn func() models.ListenerStatus) (Subscription, error) {
	l.mu.Lock()
	l.status = fn
	l.mu.Unlock()
	return subFunc(func() error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.status = nil
		return nil
	}), nil
}
