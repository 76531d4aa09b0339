package capture

import "errors"

var (
	ErrCameraNone    = errors.New("no camera available")
	ErrCameraInUse   = errors.New("camera in use")
	ErrCameraCrashed = errors.New("camera crashed")
)

// KindOf maps err to one of ErrCameraNone, ErrCameraInUse or
// ErrCameraCrashed. Unclassified errors count as a crash.
func KindOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCameraNone):
		return ErrCameraNone
	case errors.Is(err, ErrCameraInUse):
		return ErrCameraInUse
	}
	return ErrCameraCrashed
}
