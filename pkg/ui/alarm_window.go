package ui

import (
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/borgmon/transit-snoozer/pkg/platform"
	"github.com/borgmon/transit-snoozer/pkg/ui/components"
)

const stopHoldTime = 2 * time.Second

// AlarmWindow is the full screen alarm with a hold-to-stop button
type AlarmWindow struct {
	window  fyne.Window
	message *canvas.Text
	onStop  func()
	done    chan struct{}
}

// NewAlarmWindow builds the window. Must be called on the main Fyne thread.
func NewAlarmWindow(app fyne.App, message string, onStop func()) *AlarmWindow {
	aw := &AlarmWindow{
		onStop: onStop,
		done:   make(chan struct{}),
	}

	aw.window = app.NewWindow("Wake up, your stop is near")
	aw.window.SetFullScreen(true)
	aw.buildUI(message)

	// closing the window is not a stop, the alarm keeps sounding
	aw.window.SetCloseIntercept(func() {
		log.Println("Alarm window close blocked - hold the Stop button")
	})

	aw.keepInFront()
	return aw
}

func (aw *AlarmWindow) buildUI(message string) {
	icon := widget.NewIcon(theme.WarningIcon())

	heading := canvas.NewText("Wake up!", theme.Color(theme.ColorNameError))
	heading.TextSize = 48
	heading.TextStyle = fyne.TextStyle{Bold: true}
	heading.Alignment = fyne.TextAlignCenter

	aw.message = canvas.NewText(message, theme.Color(theme.ColorNameForeground))
	aw.message.TextSize = 28
	aw.message.Alignment = fyne.TextAlignCenter

	stop := components.NewHoldButton("Hold to stop", stopHoldTime, func() {
		if aw.onStop != nil {
			aw.onStop()
		}
	})

	content := container.NewVBox(
		container.NewCenter(icon),
		container.NewPadded(heading),
		container.NewPadded(aw.message),
		widget.NewSeparator(),
		container.NewCenter(stop),
	)
	aw.window.SetContent(container.NewPadded(container.NewCenter(content)))
}

// SetMessage replaces the alarm text
func (aw *AlarmWindow) SetMessage(message string) {
	aw.message.Text = message
	aw.message.Refresh()
}

func (aw *AlarmWindow) Show() {
	aw.window.Show()
	aw.window.RequestFocus()
}

// Close tears the window down once the alarm is stopped
func (aw *AlarmWindow) Close() {
	select {
	case <-aw.done:
		return
	default:
		close(aw.done)
	}
	aw.window.Close()
}

// keepInFront raises the window whenever the app loses focus
func (aw *AlarmWindow) keepInFront() {
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-aw.done:
				return
			case <-ticker.C:
				if platform.IsAppActive() {
					continue
				}
				log.Println("Alarm window not active - bringing to front")
				platform.BringToFront()
				fyne.Do(func() {
					select {
					case <-aw.done:
					default:
						aw.window.Show()
					}
				})
			}
		}
	}()
}
