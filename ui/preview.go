package ui

import (
	"image"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"photobooth/capture"
)

// Preview shows the live feed of the bound camera, rotated upright.
type Preview struct {
	widget.BaseWidget
	minSize   fyne.Size
	maxWidth  int
	maxHeight int
	img       *canvas.Image
	logger    *slog.Logger

	mtx         sync.Mutex
	handle      capture.Handle
	orientation int
	picture     capture.Size
	generation  uint64
}

type previewRenderer struct {
	preview *Preview
}

func (r *previewRenderer) MinSize() fyne.Size {
	return r.preview.MinSize()
}

func (r *previewRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.preview.img}
}

func (r *previewRenderer) Refresh() {
	r.preview.img.Refresh()
}

func (r *previewRenderer) Layout(size fyne.Size) {
	r.preview.img.Resize(size)
}

func (r *previewRenderer) Destroy() {}

// NewPreview creates a preview scaling frames down to at most maxWidth x
// maxHeight pixels after rotation. Zero limits keep the frame size.
func NewPreview(minSize fyne.Size, maxWidth, maxHeight int, logger *slog.Logger) *Preview {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Preview{
		minSize:   minSize,
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		img:       &canvas.Image{FillMode: canvas.ImageFillContain},
		logger:    logger,
	}
	p.ExtendBaseWidget(p)
	return p
}

func (p *Preview) CreateRenderer() fyne.WidgetRenderer {
	return &previewRenderer{preview: p}
}

func (p *Preview) MinSize() fyne.Size {
	return p.minSize
}

// SetCamera starts rendering h. A nil handle stops the previous camera's
// preview and blanks the surface.
func (p *Preview) SetCamera(h capture.Handle, pictureWidth, pictureHeight, orientation int) {
	p.mtx.Lock()
	previous := p.handle
	p.generation++
	gen := p.generation
	p.handle = h
	p.orientation = orientation
	p.picture = capture.Size{Width: pictureWidth, Height: pictureHeight}
	p.mtx.Unlock()

	if previous != nil {
		previous.StopPreview()
	}
	if h == nil {
		p.show(nil)
		return
	}
	err := h.StartPreview(func(frame image.Image) {
		p.update(gen, frame)
	})
	if err != nil {
		p.logger.Error("preview start failed", "err", err)
	}
}

// Image is the frame currently shown.
func (p *Preview) Image() image.Image {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.img.Image
}

func (p *Preview) update(gen uint64, frame image.Image) {
	p.mtx.Lock()
	if gen != p.generation {
		p.mtx.Unlock()
		return
	}
	orientation := p.orientation
	p.mtx.Unlock()
	p.show(orientFrame(frame, orientation, p.maxWidth, p.maxHeight))
}

func (p *Preview) show(img image.Image) {
	p.mtx.Lock()
	p.img.Image = img
	p.mtx.Unlock()
	p.img.Refresh()
}

// orientFrame rotates src clockwise by degrees and scales it to fit within
// maxW x maxH.
func orientFrame(src image.Image, degrees, maxW, maxH int) image.Image {
	b := src.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w == 0 || h == 0 {
		return src
	}
	degrees = ((degrees%360)+360)%360/90*90
	rw, rh := w, h
	if degrees == 90 || degrees == 270 {
		rw, rh = h, w
	}
	s := 1.0
	if maxW > 0 && rw > float64(maxW) {
		s = float64(maxW) / rw
	}
	if maxH > 0 && rh*s > float64(maxH) {
		s = float64(maxH) / rh
	}
	if degrees == 0 && s == 1 {
		return src
	}

	mx, my := float64(b.Min.X), float64(b.Min.Y)
	var m f64.Aff3
	switch degrees {
	case 0:
		m = f64.Aff3{s, 0, -s * mx, 0, s, -s * my}
	case 90:
		m = f64.Aff3{0, -s, s * (h + my), s, 0, -s * mx}
	case 180:
		m = f64.Aff3{-s, 0, s * (w + mx), 0, -s, s * (h + my)}
	case 270:
		m = f64.Aff3{0, s, -s * my, -s, 0, s * (w + mx)}
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(rw*s+0.5), int(rh*s+0.5)))
	draw.ApproxBiLinear.Transform(dst, m, src, b, draw.Src, nil)
	return dst
}
