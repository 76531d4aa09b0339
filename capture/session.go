package capture

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// PreviewSurface renders the live feed of a camera. A nil handle detaches
// the surface and stops rendering.
type PreviewSurface interface {
	SetCamera(h Handle, pictureWidth, pictureHeight, orientation int)
}

// Session owns one open camera handle for the span of a foreground episode.
type Session struct {
	id         uuid.UUID
	descriptor CameraDescriptor
	handle     Handle
	poster     Poster
	logger     *slog.Logger

	surface PreviewSurface
	closed  bool
}

type SessionOption func(*Session)

// WithPoster makes hardware completions run through p instead of on the
// calling goroutine.
func WithPoster(p Poster) SessionOption {
	return func(s *Session) { s.poster = p }
}

func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// OpenSession opens the camera described by d. Every failure is reported as
// ErrCameraInUse.
func OpenSession(platform Platform, d CameraDescriptor, opts ...SessionOption) (*Session, error) {
	s := &Session{
		id:         uuid.New(),
		descriptor: d,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id.String(), "camera", d.ID)

	h, err := platform.Open(d.ID)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w: %w", d.ID, ErrCameraInUse, err)
	}
	if h == nil {
		return nil, fmt.Errorf("open camera %d: %w: no handle", d.ID, ErrCameraInUse)
	}
	s.handle = h
	s.logger.Debug("camera opened", "facing", d.Facing, "mount", d.Orientation)
	return s, nil
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) Descriptor() CameraDescriptor {
	return s.descriptor
}

func (s *Session) Handle() Handle {
	if s == nil || s.closed {
		return nil
	}
	return s.handle
}

func (s *Session) Capabilities() Capabilities {
	return s.handle.Capabilities()
}

// Configure commits p in one call.
func (s *Session) Configure(p Parameters) error {
	if err := s.handle.SetParameters(p); err != nil {
		return fmt.Errorf("configure camera %d: %w: %w", s.descriptor.ID, ErrCameraCrashed, err)
	}
	s.logger.Debug("camera configured",
		"white_balance", p.WhiteBalance,
		"antibanding", p.Antibanding,
		"focus", p.FocusMode,
		"quality", p.JPEGQuality,
		"picture", p.PictureSize)
	return nil
}

// BindPreview rotates the preview and lends the handle to surface.
func (s *Session) BindPreview(surface PreviewSurface, pictureWidth, pictureHeight, orientation int) error {
	if err := s.handle.SetDisplayOrientation(orientation); err != nil {
		return fmt.Errorf("orient camera %d: %w: %w", s.descriptor.ID, ErrCameraCrashed, err)
	}
	if surface != nil {
		surface.SetCamera(s.handle, pictureWidth, pictureHeight, orientation)
		s.surface = surface
	}
	return nil
}

// AutoFocus starts a focus cycle. A nil cb makes the request fire and forget.
func (s *Session) AutoFocus(cb func(success bool)) error {
	var done func(bool)
	if cb != nil {
		done = func(success bool) {
			s.post(func() { cb(success) })
		}
	}
	if err := s.handle.AutoFocus(done); err != nil {
		return fmt.Errorf("autofocus camera %d: %w: %w", s.descriptor.ID, ErrCameraCrashed, err)
	}
	return nil
}

// Capture takes one JPEG frame. cb receives the bytes or an error wrapping
// ErrCameraCrashed.
func (s *Session) Capture(cb func(data []byte, err error)) error {
	err := s.handle.TakePicture(func(data []byte, err error) {
		if err != nil {
			err = fmt.Errorf("picture from camera %d: %w: %w", s.descriptor.ID, ErrCameraCrashed, err)
		}
		s.post(func() { cb(data, err) })
	})
	if err != nil {
		return fmt.Errorf("take picture with camera %d: %w: %w", s.descriptor.ID, ErrCameraCrashed, err)
	}
	return nil
}

// Close revokes the preview borrow and releases the handle. It is safe to
// call on a nil or already closed session.
func (s *Session) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	if s.surface != nil {
		s.surface.SetCamera(nil, 0, 0, 0)
		s.surface = nil
	}
	if err := s.handle.Release(); err != nil {
		s.logger.Warn("camera release failed", "err", err)
		return fmt.Errorf("release camera %d: %w", s.descriptor.ID, err)
	}
	s.logger.Debug("camera released")
	return nil
}

func (s *Session) post(fn func()) {
	if s.poster == nil {
		fn()
		return
	}
	if !s.poster.Post(fn) {
		s.logger.Debug("completion dropped, looper stopped")
	}
}
