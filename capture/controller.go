package capture

import (
	"errors"
	"log/slog"
)

// Host receives the outcome of the capture screen. Each call ends the
// current foreground episode.
type Host interface {
	OnPictureTaken(data []byte, rotation int, reflection bool)
	OnErrorCameraNone()
	OnErrorCameraInUse()
	OnErrorCameraCrashed()
}

// Finisher is implemented by hosts that can be torn down while a capture is
// in flight.
type Finisher interface {
	Finishing() bool
}

type Preferences interface {
	Mode() Mode
}

// CountdownAnimation plays the self-serve countdown. done fires once when
// the animation ends and never after Stop.
type CountdownAnimation interface {
	Start(done func())
	Stop()
}

type TriggerButton interface {
	SetEnabled(enabled bool)
}

const DefaultImageEdge = 1024

type Options struct {
	Platform    Platform
	Preferences Preferences
	Surface     PreviewSurface
	Trigger     TriggerButton
	Countdown   CountdownAnimation
	// Poster carries hardware and animation completions back to the
	// controller goroutine. Nil runs them where they arrive.
	Poster Poster
	// ScreenRotation reports the current screen rotation in degrees.
	ScreenRotation func() int
	// ImageEdge is the target long edge of a picture in pixels.
	ImageEdge int
	Logger    *slog.Logger
}

// Controller drives the capture screen across foreground episodes. All of
// its methods must be called from the same goroutine.
type Controller struct {
	platform       Platform
	probe          *Probe
	prefs          Preferences
	surface        PreviewSurface
	trigger        TriggerButton
	countdown      CountdownAnimation
	poster         Poster
	screenRotation func() int
	imageEdge      int
	logger         *slog.Logger

	host Host

	modeKnown bool
	mode      Mode
	selected  bool
	camera    CameraDescriptor

	episode     uint64
	session     *Session
	sequencer   *Sequencer
	orientation int
}

func NewController(opts Options) *Controller {
	c := &Controller{
		platform:       opts.Platform,
		probe:          NewProbe(opts.Platform),
		prefs:          opts.Preferences,
		surface:        opts.Surface,
		trigger:        opts.Trigger,
		countdown:      opts.Countdown,
		poster:         opts.Poster,
		screenRotation: opts.ScreenRotation,
		imageEdge:      opts.ImageEdge,
		logger:         opts.Logger,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.screenRotation == nil {
		c.screenRotation = func() int { return 0 }
	}
	if c.imageEdge <= 0 {
		c.imageEdge = DefaultImageEdge
	}
	return c
}

// Attach lends the controller a host. The controller never outlives the
// borrow: Detach drops it and pending results are discarded.
func (c *Controller) Attach(host Host) {
	c.host = host
}

func (c *Controller) Detach() {
	c.host = nil
}

func (c *Controller) liveHost() Host {
	if c.host == nil {
		return nil
	}
	if f, ok := c.host.(Finisher); ok && f.Finishing() {
		return nil
	}
	return c.host
}

// EnterForeground starts an episode: it selects the camera on first use,
// then opens, configures and binds it and enables the trigger.
func (c *Controller) EnterForeground() {
	c.episode++
	if c.session != nil {
		c.logger.Warn("foreground entered twice, closing previous session")
		c.closeSession()
	}

	if !c.modeKnown {
		c.mode = ModeSelfServe
		if c.prefs != nil {
			c.mode = c.prefs.Mode()
		}
		c.modeKnown = true
	}
	if !c.selected {
		d, ok := c.probe.Select(c.mode.PreferredFacing())
		if !ok {
			c.report(ErrCameraNone)
			return
		}
		c.camera, c.selected = d, true
		c.logger.Info("camera selected",
			"mode", c.mode, "camera", d.ID, "facing", d.Facing, "mount", d.Orientation)
	}

	if err := c.openEpisode(); err != nil {
		c.report(err)
	}
}

func (c *Controller) openEpisode() (err error) {
	s, err := OpenSession(c.platform, c.camera, WithPoster(c.poster), WithLogger(c.logger))
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	params := NegotiateParameters(c.probe.Capabilities(s.Handle()), c.imageEdge)
	if err = s.Configure(params); err != nil {
		return err
	}
	orientation := c.probe.DisplayOrientation(c.screenRotation(), c.camera)
	err = s.BindPreview(c.surface, params.PictureSize.Width, params.PictureSize.Height, orientation)
	if err != nil {
		return err
	}

	c.session = s
	c.orientation = orientation
	c.sequencer = NewSequencer(c.mode.Variant(), &episodeActions{c: c, episode: c.episode}, c.logger)
	c.setTrigger(true)
	return nil
}

// ExitForeground ends the episode. Completions still in flight are dropped.
func (c *Controller) ExitForeground() {
	c.episode++
	c.setTrigger(false)
	if c.countdown != nil {
		c.countdown.Stop()
	}
	c.closeSession()
}

func (c *Controller) closeSession() {
	c.sequencer = nil
	if err := c.session.Close(); err != nil {
		c.logger.Warn("closing camera session", "err", err)
	}
	c.session = nil
}

// Press routes a trigger press. It reports whether a sequence started.
func (c *Controller) Press() bool {
	if c.session == nil || c.sequencer == nil {
		return false
	}
	return c.sequencer.Press()
}

func (c *Controller) Mode() Mode {
	return c.mode
}

// Camera returns the selected camera, if any.
func (c *Controller) Camera() (CameraDescriptor, bool) {
	return c.camera, c.selected
}

// State is the trigger state of the current episode, or empty without one.
func (c *Controller) State() string {
	if c.sequencer == nil {
		return ""
	}
	return c.sequencer.State()
}

func (c *Controller) Variant() Variant {
	return c.mode.Variant()
}

func (c *Controller) Orientation() int {
	return c.orientation
}

func (c *Controller) setTrigger(enabled bool) {
	if c.trigger != nil {
		c.trigger.SetEnabled(enabled)
	}
}

func (c *Controller) post(fn func()) {
	if c.poster == nil {
		fn()
		return
	}
	if !c.poster.Post(fn) {
		c.logger.Debug("completion dropped, looper stopped")
	}
}

func (c *Controller) pictureTaken(data []byte) {
	c.sequencer.Deliver()
	reflection := c.camera.Reflected()
	c.logger.Info("picture taken",
		"bytes", len(data), "rotation", c.orientation, "reflection", reflection)
	if host := c.liveHost(); host != nil {
		host.OnPictureTaken(data, c.orientation, reflection)
	}
}

func (c *Controller) report(err error) {
	kind := KindOf(err)
	c.logger.Error("camera failure", "kind", kind, "err", err)
	host := c.liveHost()
	if host == nil {
		return
	}
	switch {
	case errors.Is(kind, ErrCameraNone):
		host.OnErrorCameraNone()
	case errors.Is(kind, ErrCameraInUse):
		host.OnErrorCameraInUse()
	default:
		host.OnErrorCameraCrashed()
	}
}

// episodeActions binds a sequencer to the episode it was created in. Once
// that episode ends every completion becomes a no-op.
type episodeActions struct {
	c       *Controller
	episode uint64
}

func (a *episodeActions) current() bool {
	return a.c.episode == a.episode && a.c.session != nil
}

func (a *episodeActions) Armed() {
	a.c.setTrigger(false)
}

func (a *episodeActions) AutoFocus(cb func(success bool)) error {
	var done func(bool)
	if cb != nil {
		done = func(success bool) {
			if a.current() {
				cb(success)
			}
		}
	}
	return a.c.session.AutoFocus(done)
}

func (a *episodeActions) StartCountdown(done func()) {
	fire := func() {
		if a.current() {
			done()
		}
	}
	if a.c.countdown == nil {
		a.c.post(fire)
		return
	}
	a.c.countdown.Start(func() { a.c.post(fire) })
}

func (a *episodeActions) Shutter() error {
	return a.c.session.Capture(func(data []byte, err error) {
		if !a.current() {
			return
		}
		if err != nil {
			a.c.sequencer.Fail(err)
			return
		}
		a.c.pictureTaken(data)
	})
}

func (a *episodeActions) Crashed(err error) {
	if a.current() {
		a.c.report(err)
	}
}
