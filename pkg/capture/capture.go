// Package capture reads notifications posted on the host
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/borgmon/transit-snoozer/pkg/models"
)

// ErrNoBus is returned when no session bus is reachable
var ErrNoBus = errors.New("session bus unavailable")

// Handler receives captured notifications. Calls are serialized.
type Handler func(models.IncomingNotification)

// Source delivers notifications until ctx is done
type Source interface {
	Run(ctx context.Context, h Handler) error
}

const notifyMember = "org.freedesktop.Notifications.Notify"

// DBus eavesdrops on Notify calls sent to the freedesktop notification
// service. The connection is turned into a monitor and cannot be used for
// anything else afterwards.
type DBus struct {
	Logger *slog.Logger
	Now    func() time.Time

	// Connect opens the monitoring connection, dbus.ConnectSessionBus when nil
	Connect func() (*dbus.Conn, error)
}

func (d *DBus) Run(ctx context.Context, h Handler) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	connect := d.Connect
	if connect == nil {
		connect = func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() }
	}

	conn, err := connect()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoBus, err)
	}
	defer conn.Close()

	rule := "type='method_call',interface='org.freedesktop.Notifications',member='Notify'"
	call := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.Monitoring.BecomeMonitor", 0, []string{rule}, uint32(0))
	if call.Err != nil {
		return fmt.Errorf("become bus monitor: %w", call.Err)
	}
	logger.Info("capturing notifications", "rule", rule)

	msgs := make(chan *dbus.Message, 32)
	conn.Eavesdrop(msgs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("notification monitor closed")
			}
			n, ok := FromMessage(msg)
			if !ok {
				continue
			}
			n.ReceivedAt = now()
			logger.Debug("notification captured", "source", n.SourceApp, "title", n.Title)
			h(n)
		}
	}
}

// FromMessage decodes a Notify method call
func FromMessage(msg *dbus.Message) (models.IncomingNotification, bool) {
	if msg == nil || msg.Type != dbus.TypeMethodCall {
		return models.IncomingNotification{}, false
	}
	iface, _ := msg.Headers[dbus.FieldInterface].Value().(string)
	member, _ := msg.Headers[dbus.FieldMember].Value().(string)
	if iface+"."+member != notifyMember {
		return models.IncomingNotification{}, false
	}
	return decodeNotify(msg.Body)
}

// decodeNotify reads app_name, replaces_id, app_icon, summary, body,
// actions, hints, expire_timeout
func decodeNotify(body []interface{}) (models.IncomingNotification, bool) {
	if len(body) < 5 {
		return models.IncomingNotification{}, false
	}
	appName, ok := body[0].(string)
	if !ok {
		return models.IncomingNotification{}, false
	}
	summary, _ := body[3].(string)
	text, _ := body[4].(string)

	n := models.IncomingNotification{
		SourceApp: appName,
		AppName:   appName,
		Title:     strings.TrimSpace(summary),
		Body:      text,
	}

	if len(body) > 6 {
		if hints, ok := body[6].(map[string]dbus.Variant); ok {
			if entry, ok := hints["desktop-entry"].Value().(string); ok && entry != "" {
				n.SourceApp = entry
			}
		}
	}
	if n.SourceApp == "" {
		return models.IncomingNotification{}, false
	}
	return n, true
}

// Chan replays notifications from a channel until it is closed
type Chan <-chan models.IncomingNotification

func (c Chan) Run(ctx context.Context, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-c:
			if !ok {
				return nil
			}
			h(n)
		}
	}
}
