// Package ui is the Fyne tray application
package ui

import (
	"context"
	"log"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"golang.design/x/hotkey"

	"github.com/borgmon/transit-snoozer/pkg/config"
	"github.com/borgmon/transit-snoozer/pkg/foreground"
	"github.com/borgmon/transit-snoozer/pkg/models"
	"github.com/borgmon/transit-snoozer/pkg/platform"
	"github.com/borgmon/transit-snoozer/pkg/store"
)

type Options struct {
	Apps         []models.TransitApp // selectable apps, the allow-list
	CustomSounds map[string]string
	UI           config.UIConfig
}

// Tray owns the tray menu, the settings window and the alarm window
type Tray struct {
	app          fyne.App
	coord        *foreground.Coordinator
	store        *store.SettingsStore
	apps         []models.TransitApp
	customSounds map[string]string
	ui           config.UIConfig

	settingsWindow *SettingsWindow
	alarmWindow    *AlarmWindow
	stopHotkey     *hotkey.Hotkey
	unsubscribe    []func()
}

func NewTray(app fyne.App, coord *foreground.Coordinator, st *store.SettingsStore, opts Options) *Tray {
	apps := opts.Apps
	if len(apps) == 0 {
		apps = models.DefaultTransitApps
	}
	return &Tray{
		app:          app,
		coord:        coord,
		store:        st,
		apps:         apps,
		customSounds: opts.CustomSounds,
		ui:           opts.UI,
	}
}

// Run pushes the saved settings, builds the tray and blocks in the Fyne
// event loop until Quit. Monitoring is never resumed here.
func (t *Tray) Run(ctx context.Context) {
	t.coord.ApplySettings(ctx, t.store.Settings())

	t.unsubscribe = append(t.unsubscribe,
		t.store.OnChange(t.coord.QueueSettings),
		t.coord.OnAlarmStateChanged(func(sc models.StateChange) {
			fyne.Do(func() { t.onAlarmState(sc) })
		}),
	)

	t.registerHotkey()
	t.refreshMenu()

	t.app.Lifecycle().SetOnStarted(func() {
		platform.HideFromDock()
		if t.coord.IsAlarmActive() {
			t.showAlarm(t.coord.GetCurrentAlarmMessage())
		}
		if t.coord.MonitoredSource() == "" || !t.store.BackgroundAcknowledged() {
			t.showSettings()
		}
	})
	t.app.Run()
}

func (t *Tray) lookupApp(identifier string) (models.TransitApp, bool) {
	for _, app := range t.apps {
		if app.Identifier == identifier {
			return app, true
		}
	}
	return models.LookupTransitApp(identifier)
}

func (t *Tray) registerHotkey() {
	mods, key, err := t.ui.Hotkey()
	if err != nil || key == "" {
		return
	}
	go func() {
		hk, err := registerStopHotkey(mods, key, func() {
			if t.coord.IsAlarmActive() {
				t.coord.StopAlarm(context.Background())
			}
		})
		if err != nil {
			log.Printf("Failed to register stop hotkey %s: %v", t.ui.StopHotkey, err)
			return
		}
		t.stopHotkey = hk
	}()
}

func (t *Tray) onAlarmState(sc models.StateChange) {
	if sc.Active {
		t.showAlarm(sc.Message)
	} else if t.alarmWindow != nil {
		t.alarmWindow.Close()
		t.alarmWindow = nil
	}
	t.refreshMenu()
}

func (t *Tray) showAlarm(message string) {
	if t.alarmWindow != nil {
		t.alarmWindow.SetMessage(message)
		t.alarmWindow.Show()
		return
	}
	t.alarmWindow = NewAlarmWindow(t.app, message, func() {
		go t.coord.StopAlarm(context.Background())
	})
	t.alarmWindow.Show()
}

func (t *Tray) showSettings() {
	if t.settingsWindow == nil {
		t.settingsWindow = newSettingsWindow(t)
	}
	t.settingsWindow.Show()
}

func (t *Tray) testAlarm() {
	res := t.coord.TriggerTestAlarm(context.Background())
	if res.Activated() {
		return
	}
	reason := strings.ReplaceAll(string(res), "_", " ")
	log.Printf("Test alarm not started: %s", reason)
	fyne.Do(func() {
		if t.settingsWindow != nil {
			showTestResult(t.settingsWindow.window, reason)
		}
	})
}

func (t *Tray) refreshMenu() {
	desk, ok := t.app.(desktop.App)
	if !ok {
		return
	}

	status := "Not monitoring"
	if monitored := t.coord.MonitoredSource(); monitored != "" {
		name := monitored
		if app, ok := t.lookupApp(monitored); ok {
			name = app.DisplayName
		}
		status = "Monitoring " + name
	}
	statusItem := fyne.NewMenuItem(status, nil)
	statusItem.Disabled = true

	items := []*fyne.MenuItem{statusItem}
	if t.coord.IsAlarmActive() {
		alarmItem := fyne.NewMenuItem(truncateString(t.coord.GetCurrentAlarmMessage(), 40), nil)
		alarmItem.Disabled = true
		items = append(items, alarmItem,
			fyne.NewMenuItem("Stop Alarm", func() {
				go t.coord.StopAlarm(context.Background())
			}),
		)
	}

	items = append(items,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Settings", t.showSettings),
		fyne.NewMenuItem("Test Alarm", func() { go t.testAlarm() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", t.quit),
	)

	desk.SetSystemTrayMenu(fyne.NewMenu("Transit Snoozer", items...))
	desk.SetSystemTrayIcon(theme.VolumeUpIcon())
}

func (t *Tray) quit() {
	for _, unsubscribe := range t.unsubscribe {
		unsubscribe()
	}
	if t.stopHotkey != nil {
		t.stopHotkey.Unregister()
	}
	t.coord.Close()
	t.app.Quit()
}

// truncateString truncates a string to maxLen characters, adding "..." if needed
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
