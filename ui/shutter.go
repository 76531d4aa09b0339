package ui

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

var (
	borderEnabled  = color.White
	borderDisabled = color.NRGBA{R: 96, G: 96, B: 96, A: 255}
	borderTapped   = color.NRGBA{R: 255, A: 255}
)

// ShutterButton is a square touchscreen button, so it has no hover logic.
// It stays marked as tapped until it is enabled again.
type ShutterButton struct {
	widget.BaseWidget

	Icon       fyne.Resource
	MinDim     float32
	PaddingDim float32

	OnTapped func() `json:"-"`

	stateMtx sync.Mutex
	enabled  bool
	tapped   bool
	border   *canvas.Rectangle
}

func NewShutterButton(minDim, padding float32, icon fyne.Resource, tapped func()) *ShutterButton {
	b := &ShutterButton{
		Icon:       icon,
		MinDim:     minDim,
		PaddingDim: padding,
		OnTapped:   tapped,
		border:     canvas.NewRectangle(borderDisabled),
	}
	b.ExtendBaseWidget(b)
	return b
}

func (b *ShutterButton) CreateRenderer() fyne.WidgetRenderer {
	b.ExtendBaseWidget(b)
	icon := canvas.NewImageFromResource(b.Icon)
	icon.FillMode = canvas.ImageFillContain
	return &shutterRenderer{
		icon:       icon,
		background: canvas.NewRectangle(color.Black),
		border:     b.border,
		button:     b,
	}
}

func (b *ShutterButton) MinSize() fyne.Size {
	return fyne.NewSize(b.MinDim, b.MinDim)
}

// SetEnabled arms or disarms the button. Enabling clears the tapped mark.
func (b *ShutterButton) SetEnabled(enabled bool) {
	b.stateMtx.Lock()
	b.enabled = enabled
	if enabled {
		b.tapped = false
	}
	b.stateMtx.Unlock()
	b.paint()
}

func (b *ShutterButton) Enabled() bool {
	b.stateMtx.Lock()
	defer b.stateMtx.Unlock()
	return b.enabled
}

func (b *ShutterButton) Tapped(*fyne.PointEvent) {
	b.stateMtx.Lock()
	if !b.enabled || b.OnTapped == nil {
		b.stateMtx.Unlock()
		return
	}
	b.tapped = true
	b.stateMtx.Unlock()
	b.paint()
	b.OnTapped()
}

func (b *ShutterButton) paint() {
	b.stateMtx.Lock()
	switch {
	case b.tapped:
		b.border.FillColor = borderTapped
	case b.enabled:
		b.border.FillColor = borderEnabled
	default:
		b.border.FillColor = borderDisabled
	}
	b.stateMtx.Unlock()
	canvas.Refresh(b.border)
}

type shutterRenderer struct {
	icon       *canvas.Image
	background *canvas.Rectangle
	border     *canvas.Rectangle
	button     *ShutterButton
}

func (r *shutterRenderer) Layout(size fyne.Size) {
	padding := r.button.PaddingDim
	border := float32(2)

	pos := float32(0)
	dim := size.Width
	if size.Height > dim {
		dim = size.Height
	}
	r.border.Move(fyne.NewPos(pos, pos))
	r.border.Resize(fyne.NewSize(dim, dim))

	pos += border
	dim -= 2 * border
	r.background.Move(fyne.NewPos(pos, pos))
	r.background.Resize(fyne.NewSize(dim, dim))

	pos += padding
	dim -= 2 * padding
	r.icon.Move(fyne.NewPos(pos, pos))
	r.icon.Resize(fyne.NewSize(dim, dim))
}

func (r *shutterRenderer) MinSize() fyne.Size {
	return r.button.MinSize()
}

func (r *shutterRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.border, r.background, r.icon}
}

func (r *shutterRenderer) Refresh() {
	r.icon.Refresh()
	r.background.Refresh()
	r.border.Refresh()
	r.Layout(r.button.Size())
}

func (r *shutterRenderer) Destroy() {}
