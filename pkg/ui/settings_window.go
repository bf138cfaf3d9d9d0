package ui

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/borgmon/transit-snoozer/pkg/models"
	"github.com/borgmon/transit-snoozer/pkg/platform"
)

const maxSensitivity = 5

var builtinSounds = []struct {
	label string
	sound models.SoundSelection
}{
	{"Alarm", models.SoundDefault},
	{"Notification bell", models.SoundNotification},
	{"Phone ring", models.SoundPhone},
}

// SettingsWindow is the main window: app selection, alarm tuning and the
// last notification seen.
type SettingsWindow struct {
	window fyne.Window
	tray   *Tray

	appSelect     *widget.Select
	monitorButton *widget.Button
	statusLabel   *widget.Label
	lastLabel     *widget.Label
	volumeLabel   *widget.Label
	soundLabels   []string
	soundsByLabel map[string]models.SoundSelection
}

func newSettingsWindow(t *Tray) *SettingsWindow {
	sw := &SettingsWindow{tray: t}
	sw.window = t.app.NewWindow("Transit Snoozer")
	sw.window.Resize(fyne.NewSize(520, 520))
	sw.buildUI()

	t.coord.OnNotificationReceived(func(n models.IncomingNotification) {
		fyne.Do(func() { sw.setLast(n) })
	})
	sw.window.SetCloseIntercept(sw.requestClose)
	return sw
}

func (sw *SettingsWindow) buildUI() {
	t := sw.tray
	settings := t.store.Settings()

	// App selection
	var names []string
	for _, app := range t.apps {
		names = append(names, app.DisplayName)
	}
	sw.monitorButton = widget.NewButton("Start Monitoring", sw.toggleMonitoring)
	sw.statusLabel = widget.NewLabel("")
	sw.statusLabel.Importance = widget.MediumImportance
	sw.appSelect = widget.NewSelect(names, func(string) { sw.refreshMonitor() })
	selected := t.coord.MonitoredSource()
	if selected == "" {
		// last choice, preselected only
		selected = t.store.Monitored()
	}
	if app, ok := t.lookupApp(selected); ok {
		sw.appSelect.SetSelected(app.DisplayName)
	}

	// Sensitivity
	var sensitivity []string
	for i := 1; i <= maxSensitivity; i++ {
		sensitivity = append(sensitivity, stopsLabel(i))
	}
	sensitivitySelect := widget.NewSelect(sensitivity, func(value string) {
		var n int
		fmt.Sscanf(value, "%d", &n)
		t.store.Update(func(s *models.AlarmSettings) { s.TriggerSensitivity = n })
	})
	sensitivitySelect.SetSelected(stopsLabel(min(settings.TriggerSensitivity, maxSensitivity)))

	// Volume
	sw.volumeLabel = widget.NewLabel(volumeLabel(settings.VolumePercent))
	volume := widget.NewSlider(models.MinVolumePercent, models.MaxVolumePercent)
	volume.Step = 5
	volume.SetValue(float64(settings.VolumePercent))
	volume.OnChanged = func(v float64) { sw.volumeLabel.SetText(volumeLabel(int(v))) }
	volume.OnChangeEnded = func(v float64) {
		t.store.Update(func(s *models.AlarmSettings) { s.VolumePercent = int(v) })
	}

	// Sound
	sw.soundsByLabel = make(map[string]models.SoundSelection)
	for _, b := range builtinSounds {
		sw.soundLabels = append(sw.soundLabels, b.label)
		sw.soundsByLabel[b.label] = b.sound
	}
	var custom []string
	for id := range t.customSounds {
		custom = append(custom, id)
	}
	sort.Strings(custom)
	for _, id := range custom {
		label := "Custom: " + id
		sw.soundLabels = append(sw.soundLabels, label)
		sw.soundsByLabel[label] = models.CustomSound(id)
	}
	soundSelect := widget.NewSelect(sw.soundLabels, func(label string) {
		sound := sw.soundsByLabel[label]
		t.store.Update(func(s *models.AlarmSettings) { s.Sound = sound })
	})
	for label, sound := range sw.soundsByLabel {
		if sound == settings.Sound {
			soundSelect.SetSelected(label)
		}
	}

	debugCheck := widget.NewCheck("Fire on every notification of the monitored app", func(on bool) {
		t.store.Update(func(s *models.AlarmSettings) { s.DebugMode = on })
	})
	debugCheck.SetChecked(settings.DebugMode)

	autostartCheck := widget.NewCheck("Start the listener at login", func(on bool) {
		if err := platform.SetListenerAutostart(on); err != nil {
			log.Printf("Failed to update listener autostart: %v", err)
		}
	})
	autostartCheck.SetChecked(platform.ListenerAutostartEnabled())

	testButton := widget.NewButton("Test Alarm", func() {
		go t.testAlarm()
	})
	testButton.Importance = widget.HighImportance

	sw.lastLabel = widget.NewLabel("No notifications yet")
	sw.lastLabel.Wrapping = fyne.TextWrapWord
	if n, ok := t.coord.LastNotification(); ok {
		sw.setLast(n)
	}

	form := container.New(layout.NewFormLayout(),
		widget.NewLabel("Transit app:"), container.NewBorder(nil, nil, nil, sw.monitorButton, sw.appSelect),
		widget.NewLabel("Wake me:"), sensitivitySelect,
		sw.volumeLabel, volume,
		widget.NewLabel("Sound:"), soundSelect,
		widget.NewLabel("Debug:"), debugCheck,
		widget.NewLabel("Listener:"), autostartCheck,
	)

	content := container.NewVBox(
		widget.NewLabel("Alarm Settings"),
		widget.NewSeparator(),
		form,
		sw.statusLabel,
		widget.NewSeparator(),
		widget.NewLabel("Last notification:"),
		sw.lastLabel,
		layout.NewSpacer(),
		container.NewCenter(testButton),
	)

	sw.window.SetContent(container.NewPadded(container.NewVScroll(content)))
	sw.refreshMonitor()
}

func (sw *SettingsWindow) selectedApp() (models.TransitApp, bool) {
	for _, app := range sw.tray.apps {
		if app.DisplayName == sw.appSelect.Selected {
			return app, true
		}
	}
	return models.TransitApp{}, false
}

func (sw *SettingsWindow) toggleMonitoring() {
	t := sw.tray
	ctx := context.Background()

	if t.coord.MonitoredSource() != "" {
		t.coord.StopMonitoring(ctx)
		t.store.SetMonitored("")
		log.Println("Stopped monitoring")
	} else if app, ok := sw.selectedApp(); ok {
		t.coord.SetMonitoring(ctx, app.Identifier)
		t.store.SetMonitored(app.Identifier)
		log.Printf("Monitoring %s", app.DisplayName)
	}
	sw.refreshMonitor()
	t.refreshMenu()
}

func (sw *SettingsWindow) refreshMonitor() {
	monitored := sw.tray.coord.MonitoredSource()
	if monitored != "" {
		sw.monitorButton.SetText("Stop Monitoring")
		sw.monitorButton.Enable()
		name := monitored
		if app, ok := sw.tray.lookupApp(monitored); ok {
			name = app.DisplayName
		}
		sw.statusLabel.SetText(fmt.Sprintf("Watching %s notifications", name))
		return
	}

	sw.monitorButton.SetText("Start Monitoring")
	if _, ok := sw.selectedApp(); ok {
		sw.monitorButton.Enable()
	} else {
		sw.monitorButton.Disable()
	}
	sw.statusLabel.SetText("Not monitoring")
}

func (sw *SettingsWindow) setLast(n models.IncomingNotification) {
	text := n.DisplayName() + ": " + n.Title
	if body := strings.TrimSpace(n.FullBody()); body != "" {
		text += "\n" + body
	}
	sw.lastLabel.SetText(text)
}

// Show brings the window up and tells the listener it can mirror again
func (sw *SettingsWindow) Show() {
	sw.window.Show()
	sw.window.RequestFocus()
	go sw.tray.coord.SetVisible(context.Background(), true)
}

func (sw *SettingsWindow) hide() {
	sw.window.Hide()
	go sw.tray.coord.SetVisible(context.Background(), false)
}

func (sw *SettingsWindow) requestClose() {
	if sw.tray.store.BackgroundAcknowledged() {
		sw.hide()
		return
	}
	showBackgroundNotice(sw.window, func() {
		sw.tray.store.AcknowledgeBackground()
		sw.hide()
	})
}

func stopsLabel(n int) string {
	if n == 1 {
		return "1 stop before"
	}
	return fmt.Sprintf("%d stops before", n)
}

func volumeLabel(pct int) string {
	return fmt.Sprintf("Volume: %d%%", pct)
}
