package capture

import (
	"errors"
	"image"
)

var errHardware = errors.New("hardware fault")

type fakePlatform struct {
	cameras []CameraDescriptor
	handles map[int]*fakeHandle
	openErr error
	opened  []int
}

func newFakePlatform(cameras ...CameraDescriptor) *fakePlatform {
	p := &fakePlatform{handles: map[int]*fakeHandle{}}
	for id, d := range cameras {
		d.ID = id
		p.cameras = append(p.cameras, d)
		p.handles[id] = newFakeHandle()
	}
	return p
}

func (p *fakePlatform) NumberOfCameras() int { return len(p.cameras) }

func (p *fakePlatform) CameraInfo(id int) CameraDescriptor { return p.cameras[id] }

func (p *fakePlatform) Open(id int) (Handle, error) {
	p.opened = append(p.opened, id)
	if p.openErr != nil {
		return nil, p.openErr
	}
	h := p.handles[id]
	h.opens++
	h.open = true
	return h, nil
}

type fakeHandle struct {
	caps     Capabilities
	setErr   error
	orientEr error
	focusErr error
	shotErr  error

	params      []Parameters
	orientation int
	open        bool
	opens       int
	released    int

	focusCalls []func(bool)
	shotCalls  []func([]byte, error)

	log *[]string
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		caps: Capabilities{
			WhiteBalance: []string{"incandescent", WhiteBalanceAuto},
			Antibanding:  []string{"off", AntibandingAuto},
			FocusModes:   []string{FocusModeAuto, FocusModeMacro},
			PreviewSizes: []Size{{1280, 720}, {640, 480}},
			PictureSizes: []Size{{1920, 1080}, {1024, 768}, {640, 480}},
		},
	}
}

func (h *fakeHandle) record(s string) {
	if h.log != nil {
		*h.log = append(*h.log, s)
	}
}

func (h *fakeHandle) Capabilities() Capabilities { return h.caps }

func (h *fakeHandle) SetParameters(p Parameters) error {
	h.record("configure")
	if h.setErr != nil {
		return h.setErr
	}
	h.params = append(h.params, p)
	return nil
}

func (h *fakeHandle) SetDisplayOrientation(degrees int) error {
	h.record("orient")
	if h.orientEr != nil {
		return h.orientEr
	}
	h.orientation = degrees
	return nil
}

func (h *fakeHandle) StartPreview(func(image.Image)) error { return nil }

func (h *fakeHandle) StopPreview() {}

func (h *fakeHandle) AutoFocus(cb func(bool)) error {
	h.record("focus")
	if h.focusErr != nil {
		return h.focusErr
	}
	h.focusCalls = append(h.focusCalls, cb)
	return nil
}

func (h *fakeHandle) TakePicture(cb func([]byte, error)) error {
	h.record("shutter")
	if h.shotErr != nil {
		return h.shotErr
	}
	h.shotCalls = append(h.shotCalls, cb)
	return nil
}

func (h *fakeHandle) Release() error {
	h.record("release")
	h.released++
	h.open = false
	return nil
}

// completeFocus answers the latest focus request that asked for an answer.
func (h *fakeHandle) completeFocus(success bool) bool {
	for i := len(h.focusCalls) - 1; i >= 0; i-- {
		if cb := h.focusCalls[i]; cb != nil {
			h.focusCalls[i] = nil
			cb(success)
			return true
		}
	}
	return false
}

func (h *fakeHandle) completeShot(data []byte, err error) bool {
	if len(h.shotCalls) == 0 {
		return false
	}
	cb := h.shotCalls[0]
	h.shotCalls = h.shotCalls[1:]
	cb(data, err)
	return true
}

type surfaceCall struct {
	handle        Handle
	width, height int
	orientation   int
}

type fakeSurface struct {
	calls []surfaceCall
	log   *[]string
}

func (s *fakeSurface) SetCamera(h Handle, w, hgt, orientation int) {
	if s.log != nil {
		if h == nil {
			*s.log = append(*s.log, "unbind")
		} else {
			*s.log = append(*s.log, "bind")
		}
	}
	s.calls = append(s.calls, surfaceCall{h, w, hgt, orientation})
}

func (s *fakeSurface) bound() Handle {
	if len(s.calls) == 0 {
		return nil
	}
	return s.calls[len(s.calls)-1].handle
}

type fakeCountdown struct {
	started int
	stopped int
	done    func()
}

func (c *fakeCountdown) Start(done func()) {
	c.started++
	c.done = done
}

func (c *fakeCountdown) Stop() {
	c.stopped++
}

// finish fires the completion even after Stop, the way a late animation
// event would.
func (c *fakeCountdown) finish() {
	if c.done != nil {
		c.done()
	}
}

type fakeButton struct {
	enabled bool
	history []bool
}

func (b *fakeButton) SetEnabled(enabled bool) {
	b.enabled = enabled
	b.history = append(b.history, enabled)
}

type picture struct {
	data       []byte
	rotation   int
	reflection bool
}

type fakeHost struct {
	pictures  []picture
	none      int
	inUse     int
	crashed   int
	finishing bool
}

func (h *fakeHost) OnPictureTaken(data []byte, rotation int, reflection bool) {
	h.pictures = append(h.pictures, picture{data, rotation, reflection})
}

func (h *fakeHost) OnErrorCameraNone()    { h.none++ }
func (h *fakeHost) OnErrorCameraInUse()   { h.inUse++ }
func (h *fakeHost) OnErrorCameraCrashed() { h.crashed++ }
func (h *fakeHost) Finishing() bool       { return h.finishing }

func (h *fakeHost) callbacks() int {
	return len(h.pictures) + h.none + h.inUse + h.crashed
}

type fixedPrefs Mode

func (p fixedPrefs) Mode() Mode { return Mode(p) }

// queuePoster holds posted work until drain runs it, standing in for the UI
// goroutine.
type queuePoster struct {
	queue []func()
}

func (q *queuePoster) Post(fn func()) bool {
	q.queue = append(q.queue, fn)
	return true
}

func (q *queuePoster) drain() int {
	n := 0
	for len(q.queue) > 0 {
		fn := q.queue[0]
		q.queue = q.queue[1:]
		fn()
		n++
	}
	return n
}
