package components

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const holdTick = 50 * time.Millisecond

// HoldButton fires OnHeld once it has been pressed for Hold without being
// released. Releasing early resets the progress bar.
type HoldButton struct {
	widget.BaseWidget
	Text   string
	Hold   time.Duration
	OnHeld func()

	mu       sync.Mutex
	holding  bool
	hovered  bool
	progress float64
	ticker   *time.Ticker
}

// NewHoldButton creates a HoldButton. A zero hold fires on press.
func NewHoldButton(text string, hold time.Duration, onHeld func()) *HoldButton {
	b := &HoldButton{
		Text:   text,
		Hold:   hold,
		OnHeld: onHeld,
	}
	b.ExtendBaseWidget(b)
	return b
}

// CreateRenderer implements fyne.Widget
func (b *HoldButton) CreateRenderer() fyne.WidgetRenderer {
	text := canvas.NewText(b.Text, theme.Color(theme.ColorNameForeground))
	text.Alignment = fyne.TextAlignCenter
	text.TextSize = theme.TextSize() * 1.5

	return &holdButtonRenderer{
		button:      b,
		text:        text,
		bg:          canvas.NewRectangle(theme.Color(theme.ColorNameButton)),
		progressBar: canvas.NewRectangle(theme.Color(theme.ColorNameError)),
	}
}

// Progress returns how far the current hold has come, from 0 to 1
func (b *HoldButton) Progress() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress
}

func (b *HoldButton) setProgress(p float64) {
	b.mu.Lock()
	b.progress = p
	b.mu.Unlock()
	fyne.Do(b.Refresh)
}

// Tapped implements fyne.Tappable
func (b *HoldButton) Tapped(*fyne.PointEvent) {}

// MouseIn implements desktop.Hoverable
func (b *HoldButton) MouseIn(*desktop.MouseEvent) {
	b.hovered = true
	b.Refresh()
}

// MouseMoved implements desktop.Hoverable
func (b *HoldButton) MouseMoved(*desktop.MouseEvent) {}

// MouseOut implements desktop.Hoverable
func (b *HoldButton) MouseOut() {
	b.hovered = false
	b.release()
	b.Refresh()
}

// MouseDown implements desktop.Mouseable
func (b *HoldButton) MouseDown(*desktop.MouseEvent) {
	b.press()
}

// MouseUp implements desktop.Mouseable
func (b *HoldButton) MouseUp(*desktop.MouseEvent) {
	b.release()
}

func (b *HoldButton) press() {
	b.mu.Lock()
	if b.holding {
		b.mu.Unlock()
		return
	}
	b.holding = true
	b.progress = 0

	if b.Hold <= 0 {
		b.holding = false
		b.mu.Unlock()
		b.fire()
		return
	}

	ticker := time.NewTicker(holdTick)
	b.ticker = ticker
	step := float64(holdTick) / float64(b.Hold)
	b.mu.Unlock()

	go func() {
		for range ticker.C {
			b.mu.Lock()
			if !b.holding || b.ticker != ticker {
				b.mu.Unlock()
				return
			}
			b.progress += step
			done := b.progress >= 1
			if done {
				b.holding = false
				b.progress = 0
				b.ticker = nil
				ticker.Stop()
			}
			b.mu.Unlock()

			fyne.Do(b.Refresh)
			if done {
				b.fire()
				return
			}
		}
	}()
}

func (b *HoldButton) release() {
	b.mu.Lock()
	if !b.holding {
		b.mu.Unlock()
		return
	}
	b.holding = false
	if b.ticker != nil {
		b.ticker.Stop()
		b.ticker = nil
	}
	b.mu.Unlock()
	b.setProgress(0)
}

func (b *HoldButton) fire() {
	if b.OnHeld != nil {
		b.OnHeld()
	}
}

type holdButtonRenderer struct {
	button      *HoldButton
	text        *canvas.Text
	bg          *canvas.Rectangle
	progressBar *canvas.Rectangle
}

func (r *holdButtonRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.text.Resize(size)
	r.layoutProgress(size)
}

func (r *holdButtonRenderer) layoutProgress(size fyne.Size) {
	width := size.Width * float32(r.button.Progress())
	r.progressBar.Resize(fyne.NewSize(width, size.Height))
	r.progressBar.Move(fyne.NewPos(0, 0))
}

func (r *holdButtonRenderer) MinSize() fyne.Size {
	textSize := r.text.MinSize()
	w := max(textSize.Width+theme.Padding()*4, 320)
	h := max(textSize.Height+theme.Padding()*2, 96)
	return fyne.NewSize(w, h)
}

func (r *holdButtonRenderer) Refresh() {
	r.text.Text = r.button.Text
	r.text.Color = theme.Color(theme.ColorNameForeground)

	if r.button.hovered {
		r.bg.FillColor = theme.Color(theme.ColorNameHover)
	} else {
		r.bg.FillColor = theme.Color(theme.ColorNameButton)
	}
	r.layoutProgress(r.bg.Size())

	r.bg.Refresh()
	r.progressBar.Refresh()
	r.text.Refresh()
}

func (r *holdButtonRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.bg, r.progressBar, r.text}
}

func (r *holdButtonRenderer) Destroy() {}

func (r *holdButtonRenderer) BackgroundColor() color.Color {
	return theme.Color(theme.ColorNameButton)
}
