package actuator

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

// AlarmNotifier shows the persistent "alarm active" notification
type AlarmNotifier interface {
	Show(message string) error
	Dismiss() error
	// OnStopAction registers the callback for the notification's stop action
	OnStopAction(fn func())
}

// NopNotifier shows nothing
type NopNotifier struct{}

func (NopNotifier) Show(string) error   { return nil }
func (NopNotifier) Dismiss() error      { return nil }
func (NopNotifier) OnStopAction(func()) {}

const (
	notificationsDest  = "org.freedesktop.Notifications"
	notificationsPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsIface = "org.freedesktop.Notifications"

	appName        = "Transit Snoozer"
	alarmTitle     = "Wake up! Your stop is near"
	stopActionKey  = "stop"
	stopActionText = "Stop Alarm"

	urgencyCritical byte = 2
)

// DBusNotifier posts a critical, never expiring notification with a
// "Stop Alarm" action on the freedesktop notification service.
type DBusNotifier struct {
	conn   *dbus.Conn
	obj    dbus.BusObject
	logger *slog.Logger

	mu     sync.Mutex
	id     uint32
	onStop func()

	signals chan *dbus.Signal
	done    chan struct{}
}

// NewDBusNotifier subscribes to action signals on conn
func NewDBusNotifier(conn *dbus.Conn, logger *slog.Logger) (*DBusNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	err := conn.AddMatchSignal(
		dbus.WithMatchInterface(notificationsIface),
		dbus.WithMatchMember("ActionInvoked"),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe to notification actions: %w", err)
	}

	n := &DBusNotifier{
		conn:    conn,
		obj:     conn.Object(notificationsDest, notificationsPath),
		logger:  logger,
		signals: make(chan *dbus.Signal, 8),
		done:    make(chan struct{}),
	}
	conn.Signal(n.signals)
	go n.watch()
	return n, nil
}

// notifyArgs builds the Notify call arguments
func notifyArgs(message string, replaces uint32) []interface{} {
	hints := map[string]dbus.Variant{
		"urgency":  dbus.MakeVariant(urgencyCritical),
		"resident": dbus.MakeVariant(true),
		"category": dbus.MakeVariant("alarm"),
	}
	return []interface{}{
		appName,
		replaces,
		"alarm-symbolic",
		alarmTitle,
		message,
		[]string{stopActionKey, stopActionText},
		hints,
		int32(0), // never expire
	}
}

func (n *DBusNotifier) Show(message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var id uint32
	call := n.obj.Call(notificationsIface+".Notify", 0, notifyArgs(message, n.id)...)
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("show alarm notification: %w", err)
	}
	n.id = id
	return nil
}

func (n *DBusNotifier) Dismiss() error {
	n.mu.Lock()
	id := n.id
	n.id = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	if err := n.obj.Call(notificationsIface+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("close alarm notification: %w", err)
	}
	return nil
}

func (n *DBusNotifier) OnStopAction(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onStop = fn
}

// Close stops watching for action signals
func (n *DBusNotifier) Close() {
	n.conn.RemoveSignal(n.signals)
	close(n.done)
}

func (n *DBusNotifier) watch() {
	for {
		select {
		case <-n.done:
			return
		case sig, ok := <-n.signals:
			if !ok {
				return
			}
			n.handleSignal(sig)
		}
	}
}

func (n *DBusNotifier) handleSignal(sig *dbus.Signal) {
	if sig == nil || sig.Name != notificationsIface+".ActionInvoked" || len(sig.Body) < 2 {
		return
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return
	}
	action, _ := sig.Body[1].(string)

	n.mu.Lock()
	mine := id != 0 && id == n.id
	fn := n.onStop
	n.mu.Unlock()

	if !mine || action != stopActionKey || fn == nil {
		return
	}
	n.logger.Info("stop action invoked from notification", "notification_id", id)
	fn()
}
