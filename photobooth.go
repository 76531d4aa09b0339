// Package photobooth runs a full-screen capture station: a live preview, a
// shutter button and, in self-serve mode, a countdown before each shot.
package photobooth

import (
	"context"
	"log/slog"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"

	"photobooth/capture"
	"photobooth/config"
	"photobooth/ui"
	"photobooth/v4l2cam"
)

const (
	appID       = "photobooth"
	reviewDelay = 3 * time.Second

	buttonSize        = float32(100)
	buttonPaddingSize = float32(10)
	countdownTextSize = float32(160)
)

// App owns the booth. Fields below the looper are only touched from the
// looper goroutine.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *Store
	platform *v4l2cam.Platform
	looper   *capture.Looper

	controller *capture.Controller
	screen     *screen
	foreground bool
	generation uint64
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store, err := NewStore(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	platform := v4l2cam.NewPlatform(platformDevices(cfg.Cameras),
		v4l2cam.WithPreviewFramerate(cfg.Preview.Framerate),
		v4l2cam.WithLogger(logger),
	)
	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		platform: platform,
		looper:   capture.NewLooper(0),
	}, nil
}

func platformDevices(cameras []config.CameraConfig) []v4l2cam.Device {
	devices := make([]v4l2cam.Device, 0, len(cameras))
	for _, cam := range cameras {
		devices = append(devices, v4l2cam.Device{
			Path:        cam.Device,
			Facing:      cam.Facing,
			Orientation: cam.Orientation,
			Format:      cam.Format,
			Buffers:     cam.Buffers,
			Timeout:     cam.Timeout,
		})
	}
	return devices
}

// Run shows the booth window and blocks until it is closed or ctx is done.
func (a *App) Run(ctx context.Context) error {
	fyneApp := app.NewWithID(appID)
	w := fyneApp.NewWindow("Photobooth")

	preview := ui.NewPreview(fyne.NewSize(100, 100), int(a.cfg.Preview.Width), int(a.cfg.Preview.Height), a.logger)
	countdown := ui.NewCountdown(int(a.cfg.Countdown), countdownTextSize)
	shutter := ui.NewShutterButton(buttonSize, buttonPaddingSize, theme.MediaRecordIcon(), func() {
		a.looper.Post(a.press)
	})
	exit := ui.NewShutterButton(buttonSize, buttonPaddingSize, theme.CancelIcon(), fyneApp.Quit)
	exit.SetEnabled(true)

	buttons := container.New(layout.NewVBoxLayout(), layout.NewSpacer(), shutter, layout.NewSpacer(), exit, layout.NewSpacer())
	w.SetContent(container.New(ui.NewBoothLayout(), container.NewMax(preview, countdown), buttons))

	a.screen = &screen{
		window: w,
		store:  a.store,
		logger: a.logger,
		rearm:  a.scheduleRestart,
	}
	a.controller = capture.NewController(capture.Options{
		Platform:       a.platform,
		Preferences:    a.cfg.Preferences(),
		Surface:        preview,
		Trigger:        shutter,
		Countdown:      countdown,
		Poster:         a.looper,
		ScreenRotation: func() int { return a.cfg.ScreenRotation },
		ImageEdge:      a.cfg.ImageEdge,
		Logger:         a.logger,
	})
	a.screen.controller = a.controller
	a.controller.Attach(a.screen)

	looperCtx, stopLooper := context.WithCancel(context.Background())
	looperDone := make(chan struct{})
	go func() {
		a.looper.Run(looperCtx)
		close(looperDone)
	}()

	lc := fyneApp.Lifecycle()
	lc.SetOnStarted(func() { a.looper.Post(a.enterForeground) })
	lc.SetOnEnteredForeground(func() { a.looper.Post(a.enterForeground) })
	lc.SetOnExitedForeground(func() { a.looper.Post(a.exitForeground) })

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			a.logger.Info("stopping", "reason", context.Cause(ctx))
			fyneApp.Quit()
		case <-stopped:
		}
	}()

	w.SetFullScreen(true)
	w.ShowAndRun()
	close(stopped)

	a.shutdown()
	stopLooper()
	<-looperDone
	return nil
}

// shutdown releases the camera before the looper stops.
func (a *App) shutdown() {
	a.screen.finishing.Store(true)
	done := make(chan struct{})
	posted := a.looper.Post(func() {
		a.exitForeground()
		a.controller.Detach()
		close(done)
	})
	if !posted {
		return
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		a.logger.Warn("camera release timed out")
	}
}

func (a *App) enterForeground() {
	if a.foreground {
		return
	}
	a.foreground = true
	a.generation++
	a.controller.EnterForeground()
}

func (a *App) exitForeground() {
	if !a.foreground {
		return
	}
	a.foreground = false
	a.generation++
	a.controller.ExitForeground()
}

func (a *App) press() {
	if !a.controller.Press() {
		a.logger.Debug("press ignored", "state", a.controller.State())
	}
}

// scheduleRestart starts a fresh episode once the review delay has passed,
// unless the booth left the foreground or restarted in between.
func (a *App) scheduleRestart() {
	gen := a.generation
	time.AfterFunc(reviewDelay, func() {
		a.looper.Post(func() {
			if !a.foreground || a.generation != gen {
				return
			}
			a.generation++
			a.controller.ExitForeground()
			a.controller.EnterForeground()
		})
	})
}
