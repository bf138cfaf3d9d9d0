package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

const backgroundNotice = "The listener keeps watching your transit app after this window closes, " +
	"and the alarm will still sound when your stop is near.\n\n" +
	"Use Stop Monitoring, or quit from the tray, to turn it off."

// showBackgroundNotice explains background operation the first time the
// settings window is closed. onAck runs once the user confirms.
func showBackgroundNotice(parent fyne.Window, onAck func()) {
	text := widget.NewLabel(backgroundNotice)
	text.Wrapping = fyne.TextWrapWord

	d := dialog.NewCustomConfirm("Still listening", "Got it", "Keep open", text, func(ok bool) {
		if ok {
			onAck()
		}
	}, parent)
	d.Resize(fyne.NewSize(420, 220))
	d.Show()
}

// showTestResult tells the user why a test alarm did not start
func showTestResult(parent fyne.Window, reason string) {
	dialog.ShowInformation("Test alarm", "The test alarm did not start: "+reason, parent)
}
