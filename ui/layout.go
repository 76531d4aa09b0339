package ui

import (
	"fyne.io/fyne/v2"
)

// boothLayout keeps the control column at its minimal width on the right and
// gives the rest of the width to the preview.
type boothLayout struct{}

func NewBoothLayout() fyne.Layout {
	return &boothLayout{}
}

func (l *boothLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	var w, h float32
	for _, o := range objects {
		chMinSize := o.MinSize()
		w += chMinSize.Width
		if chMinSize.Height > h {
			h = chMinSize.Height
		}
	}
	return fyne.NewSize(w, h)
}

// Layout expects the preview first and the control column second.
func (l *boothLayout) Layout(objects []fyne.CanvasObject, containerSize fyne.Size) {
	if len(objects) != 2 {
		return
	}
	preview, column := objects[0], objects[1]

	columnWidth := column.MinSize().Width
	previewWidth := containerSize.Width - columnWidth
	if previewWidth < 0 {
		previewWidth = 0
	}

	preview.Resize(fyne.NewSize(previewWidth, containerSize.Height))
	preview.Move(fyne.NewPos(0, 0))

	column.Resize(fyne.NewSize(columnWidth, containerSize.Height))
	column.Move(fyne.NewPos(previewWidth, 0))
}
