package v4l2cam

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/blackjack/webcam"
	"golang.org/x/sys/unix"

	"photobooth/capture"
)

var (
	ErrReleased  = errors.New("camera released")
	ErrNoFrame   = errors.New("no frame from camera")
	ErrStreaming = errors.New("picture size cannot change while streaming")
)

var focusInterval = 50 * time.Millisecond

type pictureRequest struct {
	cb func([]byte, error)
	// frames dequeued up to this count may predate the request
	after uint64
}

// Camera is an open V4L2 device streaming MJPEG. Previews are decoded from
// the stream and pictures are stream frames handed over as they are.
type Camera struct {
	dev          device
	config       Device
	format       webcam.PixelFormat
	controls     map[webcam.ControlID]webcam.Control
	caps         capture.Capabilities
	previewEvery time.Duration
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	stateMtx     sync.Mutex
	oneShotFocus bool
	size         capture.Size
	formatSet    bool
	orientation  int
	sink         func(image.Image)
	pictures     []pictureRequest
	frames       uint64
	lastPreview  time.Time
	streaming    bool
	streamErr    error
	stopLoop     context.CancelFunc
	loopDone     chan struct{}
	released     bool
}

func newCamera(dev device, config Device, framerate uint, logger *slog.Logger) (*Camera, error) {
	format, err := config.pixelFormat()
	if err != nil {
		return nil, err
	}
	if _, ok := dev.GetSupportedFormats()[format]; !ok {
		return nil, fmt.Errorf("%s does not stream %s", config.Path, config.Format)
	}
	if config.Buffers == 0 {
		config.Buffers = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if framerate == 0 {
		framerate = 15
	}

	c := &Camera{
		dev:          dev,
		config:       config,
		format:       format,
		controls:     dev.GetControls(),
		previewEvery: time.Second / time.Duration(framerate),
		logger:       logger.With("device", config.Path),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	// button and bitmask controls are not enumerated, so probe the status
	_, statusErr := dev.GetControl(cidAutoFocusStatus)
	c.oneShotFocus = statusErr == nil
	c.caps = c.probeCapabilities(dev.GetSupportedFrameSizes(format))
	return c, nil
}

func (c *Camera) probeCapabilities(ranges []webcam.FrameSize) capture.Capabilities {
	var caps capture.Capabilities
	if _, ok := c.controls[cidAutoWhiteBalance]; ok {
		caps.WhiteBalance = []string{capture.WhiteBalanceAuto}
	}
	if ctrl, ok := c.controls[cidPowerLineFrequency]; ok {
		caps.Antibanding = menuTokens(antibandingModes, ctrl)
	}
	if _, ok := c.controls[cidFocusAuto]; ok || c.oneShotFocus {
		caps.FocusModes = append(caps.FocusModes, capture.FocusModeAuto)
	}
	if ctrl, ok := c.controls[cidAutoFocusRange]; ok {
		for _, mode := range menuTokens(focusRanges, ctrl) {
			if mode != capture.FocusModeAuto || len(caps.FocusModes) == 0 {
				caps.FocusModes = append(caps.FocusModes, mode)
			}
		}
	}
	sizes := frameSizes(ranges)
	sort.Slice(sizes, func(i, j int) bool { return sizes[i].Area() < sizes[j].Area() })
	// preview and picture share one stream
	caps.PreviewSizes = sizes
	caps.PictureSizes = sizes
	return caps
}

func menuTokens(menu []string, ctrl webcam.Control) []string {
	var tokens []string
	for v := ctrl.Min; v <= ctrl.Max && int(v) < len(menu); v++ {
		if v >= 0 {
			tokens = append(tokens, menu[v])
		}
	}
	return tokens
}

func menuValue(menu []string, token string) (int32, bool) {
	for i, t := range menu {
		if t == token {
			return int32(i), true
		}
	}
	return 0, false
}

func (c *Camera) Capabilities() capture.Capabilities {
	return c.caps
}

// Size is the negotiated frame size.
func (c *Camera) Size() capture.Size {
	c.stateMtx.Lock()
	defer c.stateMtx.Unlock()
	return c.size
}

// SetParameters sets the stream format, then writes each requested control.
func (c *Camera) SetParameters(p capture.Parameters) error {
	c.stateMtx.Lock()
	defer c.stateMtx.Unlock()
	if c.released {
		return ErrReleased
	}

	want := p.PictureSize
	if want.IsZero() && len(c.caps.PictureSizes) > 0 {
		want = c.caps.PictureSizes[len(c.caps.PictureSizes)-1]
	}
	if !want.IsZero() && want != c.size {
		if c.streaming {
			return ErrStreaming
		}
		if err := c.setFormatLocked(want); err != nil {
			return err
		}
	}

	if p.WhiteBalance == capture.WhiteBalanceAuto {
		if err := c.setControl(cidAutoWhiteBalance, 1); err != nil {
			return err
		}
	}
	if v, ok := menuValue(antibandingModes, p.Antibanding); ok && p.Antibanding != "" {
		if err := c.setControl(cidPowerLineFrequency, v); err != nil {
			return err
		}
	}
	if err := c.setFocusModeLocked(p.FocusMode); err != nil {
		return err
	}
	if ctrl, ok := c.controls[cidJPEGQuality]; ok && p.JPEGQuality > 0 {
		q := min(max(int32(p.JPEGQuality), ctrl.Min), ctrl.Max)
		if err := c.setControl(cidJPEGQuality, q); err != nil {
			return err
		}
	}
	return nil
}

func (c *Camera) setFormatLocked(want capture.Size) error {
	_, w, h, err := c.dev.SetImageFormat(c.format, uint32(want.Width), uint32(want.Height))
	if err != nil {
		return fmt.Errorf("set image format %s: %w", want, err)
	}
	c.size = capture.Size{Width: int(w), Height: int(h)}
	c.formatSet = true
	if c.size != want {
		c.logger.Info("driver adjusted frame size", "requested", want, "got", c.size)
	}
	return nil
}

func (c *Camera) setFocusModeLocked(mode string) error {
	if mode == "" {
		return nil
	}
	if _, ok := c.controls[cidFocusAuto]; ok {
		// one-shot focus needs continuous focus off
		continuous := int32(1)
		if c.oneShotFocus {
			continuous = 0
		}
		if err := c.setControl(cidFocusAuto, continuous); err != nil {
			return err
		}
	}
	if _, ok := c.controls[cidAutoFocusRange]; !ok {
		return nil
	}
	v, ok := menuValue(focusRanges, mode)
	if !ok {
		return nil
	}
	return c.setControl(cidAutoFocusRange, v)
}

func (c *Camera) setControl(id webcam.ControlID, v int32) error {
	if err := c.dev.SetControl(id, v); err != nil {
		return fmt.Errorf("set control %#x to %d: %w", uint32(id), v, err)
	}
	return nil
}

// SetDisplayOrientation records the preview rotation. V4L2 has no display
// rotation, the preview surface applies it.
func (c *Camera) SetDisplayOrientation(degrees int) error {
	c.stateMtx.Lock()
	defer c.stateMtx.Unlock()
	if c.released {
		return ErrReleased
	}
	c.orientation = degrees
	return nil
}

func (c *Camera) DisplayOrientation() int {
	c.stateMtx.Lock()
	defer c.stateMtx.Unlock()
	return c.orientation
}

// StartPreview feeds decoded frames to sink at the preview framerate.
func (c *Camera) StartPreview(sink func(image.Image)) error {
	c.stateMtx.Lock()
	defer c.stateMtx.Unlock()
	if err := c.ensureStreamingLocked(); err != nil {
		return err
	}
	c.sink = sink
	return nil
}

func (c *Camera) StopPreview() {
	c.stateMtx.Lock()
	defer c.stateMtx.Unlock()
	c.sink = nil
}

// AutoFocus runs one focus cycle. Cameras without one-shot focus report
// failure right away.
func (c *Camera) AutoFocus(cb func(success bool)) error {
	c.stateMtx.Lock()
	if c.released {
		c.stateMtx.Unlock()
		return ErrReleased
	}
	oneShot := c.oneShotFocus
	c.stateMtx.Unlock()

	finish := func(success bool) {
		if cb != nil {
			cb(success)
		}
	}
	if !oneShot {
		go finish(false)
		return nil
	}
	if err := c.dev.SetControl(cidAutoFocusStart, 1); err != nil {
		if errors.Is(err, unix.EINVAL) {
			c.stateMtx.Lock()
			c.oneShotFocus = false
			c.stateMtx.Unlock()
			go finish(false)
			return nil
		}
		return fmt.Errorf("start autofocus: %w", err)
	}
	go c.pollFocus(finish)
	return nil
}

func (c *Camera) pollFocus(finish func(bool)) {
	ticker := time.NewTicker(focusInterval)
	defer ticker.Stop()
	deadline := time.After(c.config.Timeout)
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-deadline:
			c.logger.Debug("autofocus timed out")
			finish(false)
			return
		case <-ticker.C:
			status, err := c.dev.GetControl(cidAutoFocusStatus)
			if err != nil {
				c.logger.Debug("autofocus status", "err", err)
				finish(false)
				return
			}
			if status&focusStatusBusy != 0 {
				continue
			}
			finish(status&focusStatusReached != 0 && status&focusStatusFailed == 0)
			return
		}
	}
}

// TakePicture hands the first frame captured after the call to cb. Pictures
// are delivered on their own goroutine so a slow receiver cannot stall the
// stream.
func (c *Camera) TakePicture(cb func(data []byte, err error)) error {
	if cb == nil {
		return errors.New("take picture: nil callback")
	}
	c.stateMtx.Lock()
	defer c.stateMtx.Unlock()
	if err := c.ensureStreamingLocked(); err != nil {
		return err
	}
	c.pictures = append(c.pictures, pictureRequest{cb: cb, after: c.frames + uint64(c.config.Buffers)})
	return nil
}

// Release stops streaming and closes the device. Pending pictures fail with
// ErrReleased.
func (c *Camera) Release() error {
	c.stateMtx.Lock()
	if c.released {
		c.stateMtx.Unlock()
		return nil
	}
	c.released = true
	c.sink = nil
	pending := c.pictures
	c.pictures = nil
	stop, done := c.stopLoop, c.loopDone
	c.streaming = false
	c.stateMtx.Unlock()

	c.cancel()
	if stop != nil {
		stop()
		<-done
	}
	for _, p := range pending {
		go p.cb(nil, ErrReleased)
	}
	// Close also stops streaming
	if err := c.dev.Close(); err != nil {
		return fmt.Errorf("close %s: %w", c.config.Path, err)
	}
	return nil
}

func (c *Camera) ensureStreamingLocked() error {
	if c.released {
		return ErrReleased
	}
	if c.streamErr != nil {
		return c.streamErr
	}
	if c.streaming {
		return nil
	}
	if !c.formatSet && len(c.caps.PictureSizes) > 0 {
		if err := c.setFormatLocked(c.caps.PictureSizes[len(c.caps.PictureSizes)-1]); err != nil {
			return err
		}
	}
	if err := c.dev.SetBufferCount(c.config.Buffers); err != nil {
		return fmt.Errorf("set buffer count: %w", err)
	}
	if err := c.dev.StartStreaming(); err != nil {
		return fmt.Errorf("start streaming: %w", err)
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.stopLoop, c.loopDone = cancel, make(chan struct{})
	c.streaming = true
	go c.streamLoop(ctx, c.loopDone)
	return nil
}

func (c *Camera) streamLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	var waited time.Duration
	for ctx.Err() == nil {
		err := c.dev.WaitForFrame(1)
		var timeout *webcam.Timeout
		if errors.As(err, &timeout) {
			waited += time.Second
			if waited >= c.config.Timeout {
				c.failPictures(fmt.Errorf("%w within %s", ErrNoFrame, c.config.Timeout))
				waited = 0
			}
			continue
		}
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			c.streamBroken(fmt.Errorf("wait for frame: %w", err))
			return
		}
		waited = 0

		data, index, err := c.dev.GetFrame()
		if errors.Is(err, unix.EAGAIN) {
			continue
		}
		if err != nil {
			c.streamBroken(fmt.Errorf("get frame: %w", err))
			return
		}
		picture, sink := c.frameTaken(len(data) > 0)
		var frame []byte
		if picture != nil || sink != nil {
			// the buffer is mmapped and reused once released
			frame = bytes.Clone(data)
		}
		if err := c.dev.ReleaseFrame(index); err != nil {
			if picture != nil {
				go picture(nil, err)
			}
			c.streamBroken(fmt.Errorf("release frame: %w", err))
			return
		}
		if picture != nil {
			go picture(frame, nil)
		}
		if sink != nil {
			img, err := jpeg.Decode(bytes.NewReader(frame))
			if err != nil {
				c.logger.Debug("preview frame dropped", "err", err)
				continue
			}
			sink(img)
		}
	}
}

// frameTaken counts a dequeued frame and reports who wants it.
func (c *Camera) frameTaken(usable bool) (picture func([]byte, error), sink func(image.Image)) {
	c.stateMtx.Lock()
	defer c.stateMtx.Unlock()
	if !usable {
		return nil, nil
	}
	c.frames++
	if len(c.pictures) > 0 && c.frames > c.pictures[0].after {
		picture = c.pictures[0].cb
		c.pictures = c.pictures[1:]
	}
	if c.sink != nil {
		if now := time.Now(); now.Sub(c.lastPreview) >= c.previewEvery {
			c.lastPreview = now
			sink = c.sink
		}
	}
	return picture, sink
}

func (c *Camera) failPictures(err error) {
	c.stateMtx.Lock()
	pending := c.pictures
	c.pictures = nil
	c.stateMtx.Unlock()
	for _, p := range pending {
		go p.cb(nil, err)
	}
}

func (c *Camera) streamBroken(err error) {
	c.logger.Error("camera stream stopped", "err", err)
	c.stateMtx.Lock()
	c.streamErr = err
	c.stateMtx.Unlock()
	c.failPictures(err)
}
