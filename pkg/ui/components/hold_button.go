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

// HoldButton fires OnConfirm once the user has held it down for Hold.
// Releasing or leaving the button early resets the progress.
type HoldButton struct {
	widget.BaseWidget
	Text      string
	Hold      time.Duration
	OnConfirm func()

	mu       sync.Mutex
	hovered  bool
	progress float64
	stop     chan struct{}
}

// NewHoldButton creates a HoldButton. A zero hold confirms on press.
func NewHoldButton(text string, hold time.Duration, onConfirm func()) *HoldButton {
	b := &HoldButton{
		Text:      text,
		Hold:      hold,
		OnConfirm: onConfirm,
	}
	b.ExtendBaseWidget(b)
	return b
}

// CreateRenderer implements fyne.Widget
func (b *HoldButton) CreateRenderer() fyne.WidgetRenderer {
	text := canvas.NewText(b.Text, theme.Color(theme.ColorNameForeground))
	text.Alignment = fyne.TextAlignCenter

	return &holdButtonRenderer{
		button:      b,
		text:        text,
		bg:          canvas.NewRectangle(theme.Color(theme.ColorNameButton)),
		progressBar: canvas.NewRectangle(theme.Color(theme.ColorNamePrimary)),
	}
}

// Progress returns the hold progress between 0 and 1
func (b *HoldButton) Progress() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress
}

func (b *HoldButton) Tapped(*fyne.PointEvent)          {}
func (b *HoldButton) TappedSecondary(*fyne.PointEvent) {}

func (b *HoldButton) MouseIn(*desktop.MouseEvent) {
	b.mu.Lock()
	b.hovered = true
	b.mu.Unlock()
	b.Refresh()
}

func (b *HoldButton) MouseMoved(*desktop.MouseEvent) {}

func (b *HoldButton) MouseOut() {
	b.mu.Lock()
	b.hovered = false
	b.mu.Unlock()
	b.Release()
}

func (b *HoldButton) MouseDown(*desktop.MouseEvent) {
	b.Press()
}

func (b *HoldButton) MouseUp(*desktop.MouseEvent) {
	b.Release()
}

// Press starts the hold
func (b *HoldButton) Press() {
	b.mu.Lock()
	if b.stop != nil {
		b.mu.Unlock()
		return
	}
	if b.Hold <= 0 {
		b.mu.Unlock()
		b.confirm()
		return
	}
	stop := make(chan struct{})
	b.stop = stop
	b.progress = 0
	b.mu.Unlock()

	go b.run(stop, b.Hold)
}

// Release cancels a hold in progress
func (b *HoldButton) Release() {
	b.mu.Lock()
	if b.stop != nil {
		close(b.stop)
		b.stop = nil
	}
	b.progress = 0
	b.mu.Unlock()
	fyne.Do(b.Refresh)
}

func (b *HoldButton) run(stop chan struct{}, hold time.Duration) {
	ticker := time.NewTicker(holdTick)
	defer ticker.Stop()
	started := time.Now()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			progress := holdProgress(now.Sub(started), hold)

			b.mu.Lock()
			if b.stop != stop {
				b.mu.Unlock()
				return
			}
			b.progress = progress
			done := progress >= 1
			if done {
				b.stop = nil
				b.progress = 0
			}
			b.mu.Unlock()

			fyne.Do(b.Refresh)
			if done {
				b.confirm()
				return
			}
		}
	}
}

func (b *HoldButton) confirm() {
	if b.OnConfirm != nil {
		b.OnConfirm()
	}
}

func holdProgress(held, hold time.Duration) float64 {
	if hold <= 0 {
		return 1
	}
	p := float64(held) / float64(hold)
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
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
	// Fills from left to right
	r.progressBar.Resize(fyne.NewSize(size.Width*float32(r.button.Progress()), size.Height))
	r.progressBar.Move(fyne.NewPos(0, 0))
}

func (r *holdButtonRenderer) MinSize() fyne.Size {
	textSize := r.text.MinSize()
	minWidth := textSize.Width + theme.Padding()*4
	minHeight := textSize.Height + theme.Padding()*2

	if minWidth < 160 {
		minWidth = 160
	}
	if minHeight < 48 {
		minHeight = 48
	}
	return fyne.NewSize(minWidth, minHeight)
}

func (r *holdButtonRenderer) Refresh() {
	r.text.Text = r.button.Text
	r.text.Color = theme.Color(theme.ColorNameForeground)

	r.button.mu.Lock()
	hovered := r.button.hovered
	r.button.mu.Unlock()
	if hovered {
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
