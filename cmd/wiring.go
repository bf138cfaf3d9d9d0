package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/nats-io/nats.go"

	"github.com/borgmon/transit-snoozer/pkg/actuator"
	"github.com/borgmon/transit-snoozer/pkg/alarm"
	"github.com/borgmon/transit-snoozer/pkg/audio"
	"github.com/borgmon/transit-snoozer/pkg/bridge"
	"github.com/borgmon/transit-snoozer/pkg/capture"
	"github.com/borgmon/transit-snoozer/pkg/config"
	"github.com/borgmon/transit-snoozer/pkg/listener"
	"github.com/borgmon/transit-snoozer/pkg/models"
)

var errNoNATS = errors.New("no bridge.nats_url configured, the listener runs in-process")

// connectNATS dials the bridge server. Initial connects are retried in the
// background, so a missing server shows up as failing requests.
func connectNATS(name string) (*nats.Conn, error) {
	return nats.Connect(
		cfg.Bridge.NATSURL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Debug("nats connection closed")
		}),
	)
}

func natsBridge(nc *nats.Conn, origin string) *bridge.NATS {
	return bridge.NewNATS(nc, bridge.NATSConfig{
		Prefix:  cfg.Bridge.SubjectPrefix,
		Timeout: cfg.Bridge.RequestTimeout.Duration,
		Origin:  origin,
		Logger:  logger.With("component", "bridge"),
	})
}

// newDevice builds the alarm actuator. The returned cleanup releases the
// notification bus connection.
func newDevice(component string) (*actuator.Device, func()) {
	log := logger.With("component", component)

	engine := audio.NewEngine(audio.DefaultFormat)
	library := audio.NewLibrary(audio.DefaultFormat, cfg.Alarm.CustomSounds)

	var vibrator actuator.Vibrator = actuator.NoVibration{}
	if cfg.Alarm.Vibration == config.VibrationBell {
		vibrator = actuator.NewPatternVibrator(actuator.NewTerminalBell(nil))
	}

	cleanup := func() {}
	var notifier actuator.AlarmNotifier = actuator.NopNotifier{}
	if conn, err := dbus.ConnectSessionBus(); err != nil {
		log.Warn("no session bus, alarm notification disabled", "err", err)
	} else if n, err := actuator.NewDBusNotifier(conn, log); err != nil {
		log.Warn("notification service unavailable", "err", err)
		conn.Close()
	} else {
		notifier = n
		cleanup = func() {
			n.Close()
			conn.Close()
		}
	}

	delay, on, off := cfg.Alarm.Pattern()
	return actuator.NewDevice(actuator.Config{
		Sound:    actuator.EngineOutput{Engine: engine, Library: library, Logger: log},
		Volume:   actuator.NewStreamVolume(engine, cfg.Alarm.MediaVolumeMax, cfg.Alarm.MediaVolumeLevel),
		Vibrator: vibrator,
		Pattern:  actuator.Pattern{Delay: delay, On: on, Off: off},
		Notifier: notifier,
		Logger:   log,
	}), cleanup
}

// newListener assembles the capture daemon on b. The returned cleanup
// closes the service and its actuator.
func newListener(b bridge.Background) (*listener.Service, capture.Source, func()) {
	device, closeDevice := newDevice("listener")
	controller := alarm.NewController(device, alarm.Config{
		Cooldown: cfg.Alarm.Cooldown.Duration,
		Origin:   models.OriginBackground,
		Logger:   logger.With("component", "alarm"),
	})
	device.OnStopAction(func() { controller.Stop() })

	source := &capture.DBus{Logger: logger.With("component", "capture")}
	svc := listener.New(controller, b, source, listener.Config{
		AllowList:     cfg.Listener.AllowListIDs(),
		PendingLimit:  cfg.Listener.PendingLimit,
		RetryDelay:    cfg.Listener.RetryDelay.Duration,
		RetryAttempts: cfg.Listener.RetryAttempts,
		Settings:      cfg.Alarm.DefaultSettings,
		Logger:        logger.With("component", "listener"),
	})
	return svc, source, func() {
		svc.Close()
		closeDevice()
	}
}

// foregroundBridge returns the bridge a foreground surface talks through.
// Without a NATS URL an in-process listener is started on a Local bridge
// and stays up until ctx is done.
func foregroundBridge(ctx context.Context, name string) (bridge.Foreground, func(), error) {
	if cfg.Bridge.NATSURL != "" {
		nc, err := connectNATS(name)
		if err != nil {
			return nil, nil, fmt.Errorf("connect nats: %w", err)
		}
		return natsBridge(nc, models.OriginForeground), nc.Close, nil
	}

	local := bridge.NewLocal()
	svc, source, closeListener := newListener(local)
	if err := svc.Start(ctx); err != nil {
		closeListener()
		return nil, nil, fmt.Errorf("start listener: %w", err)
	}
	go func() {
		err := source.Run(ctx, func(n models.IncomingNotification) { svc.HandleNotification(ctx, n) })
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("notification capture stopped", "err", err)
		}
	}()
	return local, closeListener, nil
}

// listenerMonitoring returns the app a running listener is already
// watching. Surfaces resume monitoring only through it, never from a
// stored selection.
func listenerMonitoring(ctx context.Context, b bridge.Foreground) string {
	st, err := b.Status(ctx)
	if err != nil || !st.Listening {
		return ""
	}
	return st.Monitored
}

// oneShotBridge is used by the commands that talk to a running listener
func oneShotBridge() (*bridge.NATS, func(), error) {
	if cfg.Bridge.NATSURL == "" {
		return nil, nil, errNoNATS
	}
	nc, err := nats.Connect(cfg.Bridge.NATSURL, nats.Name("transit-snoozer-cli"), nats.Timeout(cfg.Bridge.RequestTimeout.Duration))
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	return natsBridge(nc, models.OriginForeground), nc.Close, nil
}
