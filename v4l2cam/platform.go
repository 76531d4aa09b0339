// Package v4l2cam serves booth cameras from Video4Linux2 devices.
package v4l2cam

import (
	"fmt"
	"log/slog"

	"photobooth/capture"
)

// Platform lists the configured devices. V4L2 reports neither facing nor
// mount angle, so the device list carries them and camera ids are list
// positions.
type Platform struct {
	devices   []Device
	framerate uint
	logger    *slog.Logger
	open      func(path string) (device, error)
}

type Option func(*Platform)

// WithPreviewFramerate caps how often preview frames are decoded.
func WithPreviewFramerate(fps uint) Option {
	return func(p *Platform) { p.framerate = fps }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Platform) { p.logger = l }
}

func NewPlatform(devices []Device, opts ...Option) *Platform {
	p := &Platform{
		devices:   devices,
		framerate: 15,
		logger:    slog.Default(),
		open:      openWebcam,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Platform) NumberOfCameras() int {
	return len(p.devices)
}

func (p *Platform) CameraInfo(id int) capture.CameraDescriptor {
	d := p.devices[id]
	return capture.CameraDescriptor{ID: id, Facing: d.Facing, Orientation: d.Orientation}
}

func (p *Platform) Open(id int) (capture.Handle, error) {
	if id < 0 || id >= len(p.devices) {
		return nil, fmt.Errorf("no camera %d", id)
	}
	d := p.devices[id]
	dev, err := p.open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Path, err)
	}
	cam, err := newCamera(dev, d, p.framerate, p.logger)
	if err != nil {
		if cerr := dev.Close(); cerr != nil {
			p.logger.Warn("closing rejected device", "device", d.Path, "err", cerr)
		}
		return nil, err
	}
	p.logger.Info("camera opened", "device", d.Path, "sizes", len(cam.caps.PictureSizes),
		"one_shot_focus", cam.oneShotFocus)
	return cam, nil
}
