package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2/app"

	"github.com/borgmon/transit-snoozer/pkg/foreground"
	"github.com/borgmon/transit-snoozer/pkg/store"
	"github.com/borgmon/transit-snoozer/pkg/ui"
)

const appID = "io.github.borgmon.transit-snoozer"

func runTray(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, closeBridge, err := foregroundBridge(ctx, "transit-snoozer-tray")
	if err != nil {
		return err
	}
	defer closeBridge()

	a := app.NewWithID(appID)
	st := store.NewSettingsStore(a, cfg.Alarm.DefaultSettings)

	device, closeDevice := newDevice("tray")
	defer closeDevice()

	coord := foreground.New(device, b, foreground.Config{
		Cooldown:  cfg.Alarm.Cooldown.Duration,
		Settings:  st.Settings(),
		Monitored: listenerMonitoring(ctx, b),
		Logger:    logger.With("component", "foreground"),
	})
	device.OnStopAction(func() { coord.StopAlarm(context.Background()) })
	if err := coord.Start(ctx); err != nil {
		return err
	}
	defer coord.Close()

	quit := make(chan struct{})
	defer close(quit)
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			a.Quit()
		case <-quit:
		}
	}()

	ui.NewTray(a, coord, st, ui.Options{
		Apps:         cfg.Listener.AllowList,
		CustomSounds: cfg.Alarm.CustomSounds,
		UI:           cfg.UI,
	}).Run(ctx)
	return nil
}
