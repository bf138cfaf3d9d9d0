// Package tui is the terminal watcher for the alarm
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/borgmon/transit-snoozer/pkg/alarm"
	"github.com/borgmon/transit-snoozer/pkg/classifier"
	"github.com/borgmon/transit-snoozer/pkg/models"
)

// Controls is the part of the foreground coordinator the watcher drives
type Controls interface {
	State() models.AlarmState
	LastNotification() (models.IncomingNotification, bool)
	MonitoredSource() string
	Authoritative() bool
	TriggerTestAlarm(ctx context.Context) alarm.TriggerResult
	StopAlarm(ctx context.Context)
}

// Messages

// StateMsg carries an alarm state change into the program
type StateMsg models.StateChange

// NotificationMsg carries a received notification into the program
type NotificationMsg models.IncomingNotification

type triggerResultMsg struct {
	result alarm.TriggerResult
}

type stoppedMsg struct{}

// Watch is the Bubble Tea model of the watcher
type Watch struct {
	controls Controls
	events   <-chan tea.Msg
	state    models.AlarmState
	last     *models.IncomingNotification
	info     string
	width    int
	height   int
}

// NewWatch creates the model. events feeds StateMsg and NotificationMsg
// values from the coordinator's observers; it may be nil.
func NewWatch(controls Controls, events <-chan tea.Msg) Watch {
	w := Watch{
		controls: controls,
		events:   events,
		state:    controls.State(),
	}
	if n, ok := controls.LastNotification(); ok {
		w.last = &n
	}
	return w
}

// Init starts waiting for coordinator events
func (w Watch) Init() tea.Cmd {
	return w.waitForEvent()
}

func (w Watch) waitForEvent() tea.Cmd {
	if w.events == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-w.events
		if !ok {
			return nil
		}
		return msg
	}
}

// Update handles messages
func (w Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return w.handleKey(msg)

	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height
		return w, nil

	case StateMsg:
		w.state = w.controls.State()
		if msg.Active {
			w.info = ""
		}
		return w, w.waitForEvent()

	case NotificationMsg:
		n := models.IncomingNotification(msg)
		w.last = &n
		return w, w.waitForEvent()

	case triggerResultMsg:
		w.state = w.controls.State()
		if !msg.result.Activated() {
			w.info = fmt.Sprintf("Test alarm not started: %s", strings.ReplaceAll(string(msg.result), "_", " "))
		}
		return w, nil

	case stoppedMsg:
		w.state = w.controls.State()
		w.info = "Alarm stopped"
		return w, nil
	}

	return w, nil
}

func (w Watch) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return w, tea.Quit

	case "s":
		controls := w.controls
		return w, func() tea.Msg {
			controls.StopAlarm(context.Background())
			return stoppedMsg{}
		}

	case "t":
		controls := w.controls
		return w, func() tea.Msg {
			return triggerResultMsg{result: controls.TriggerTestAlarm(context.Background())}
		}
	}

	return w, nil
}

// View renders the watcher
func (w Watch) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Transit Snoozer"))
	b.WriteString("\n")
	mode := "mirroring the background listener"
	if w.controls.Authoritative() {
		mode = "standalone, no listener reachable"
	}
	b.WriteString(subheaderStyle.Render(mode))
	b.WriteString("\n\n")

	monitored := w.controls.MonitoredSource()
	if monitored == "" {
		monitored = "nothing"
	} else if app, ok := models.LookupTransitApp(monitored); ok {
		monitored = app.DisplayName
	}
	b.WriteString(labelStyle.Render("Monitoring"))
	b.WriteString(monitored)
	b.WriteString("\n")

	phase := string(w.state.Phase)
	if phase == "" {
		phase = string(models.PhaseIdle)
	}
	b.WriteString(labelStyle.Render("Alarm"))
	b.WriteString(phaseStyle(phase).Render(strings.ToUpper(phase)))
	b.WriteString("\n")

	if w.last != nil {
		b.WriteString(labelStyle.Render("Last"))
		b.WriteString(truncate(w.last.DisplayName()+": "+w.last.Title, 60))
		b.WriteString("\n")
		if summary := stopSummary(classifier.ParseDetails(*w.last)); summary != "" {
			b.WriteString(labelStyle.Render("Next stop"))
			b.WriteString(summary)
			b.WriteString("\n")
		}
	}

	if w.state.Phase == models.PhaseActive {
		b.WriteString("\n")
		b.WriteString(messageStyle.Render(w.state.ActiveMessage))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if w.info != "" {
		b.WriteString(infoStyle.Render(w.info))
		b.WriteString("\n")
	}
	b.WriteString(statusBarStyle.Render("s stop  t test alarm  q quit"))

	return b.String()
}

// stopSummary renders parsed trip details, "" when nothing was recognized
func stopSummary(d classifier.Details) string {
	var extra []string
	if d.StopsRemaining >= 0 {
		if d.StopsRemaining == 1 {
			extra = append(extra, "1 stop left")
		} else {
			extra = append(extra, fmt.Sprintf("%d stops left", d.StopsRemaining))
		}
	}
	if d.Line != "" {
		extra = append(extra, "line "+d.Line)
	}
	if d.NextStop == "" && len(extra) == 0 {
		return ""
	}

	name := d.NextStop
	if name == "" {
		name = "?"
	}
	if len(extra) > 0 {
		name += " (" + strings.Join(extra, ", ") + ")"
	}
	return name
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
