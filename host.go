package photobooth

import (
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"photobooth/capture"
)

// screen is the capture controller's host. Its callbacks run on the looper
// goroutine.
type screen struct {
	window     fyne.Window
	store      *Store
	controller *capture.Controller
	logger     *slog.Logger
	rearm      func()

	finishing atomic.Bool
}

func (s *screen) Finishing() bool {
	return s.finishing.Load()
}

func (s *screen) OnPictureTaken(data []byte, rotation int, reflection bool) {
	meta := PictureMeta{
		Taken:      time.Now(),
		Mode:       s.controller.Mode(),
		Rotation:   rotation,
		Reflection: reflection,
	}
	if cam, ok := s.controller.Camera(); ok {
		meta.Camera = cam.ID
	}
	path, err := s.store.Save(nowAsString(), data, meta)
	if err != nil {
		s.logger.Error("picture saving error", "err", err)
		dialog.ShowInformation("Picture lost", "The picture could not be saved.", s.window)
	} else {
		s.logger.Info("picture saved", "path", path)
		dialog.ShowInformation("Picture saved", filepath.Base(path), s.window)
	}
	s.rearm()
}

func (s *screen) OnErrorCameraNone() {
	dialog.ShowInformation("No camera", "No camera is connected to the booth.", s.window)
}

func (s *screen) OnErrorCameraInUse() {
	dialog.ShowInformation("Camera busy", "The camera is used by another program.", s.window)
	s.rearm()
}

func (s *screen) OnErrorCameraCrashed() {
	dialog.ShowInformation("Camera error", "The camera stopped working. Retrying.", s.window)
	s.rearm()
}
