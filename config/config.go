package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"photobooth/capture"
)

const (
	DefaultImageEdge = capture.DefaultImageEdge
	DefaultCountdown = 3
	DefaultBuffers   = 4
	DefaultTimeout   = 5 * time.Second
	DefaultFormat    = "mjpeg"
)

// CameraConfig describes one V4L2 device. V4L2 does not report which way a
// camera faces or how it is mounted, so both come from here.
type CameraConfig struct {
	Device      string         `yaml:"device"`      // /dev/video0
	Facing      capture.Facing `yaml:"facing"`      // front, back
	Orientation int            `yaml:"orientation"` // sensor mount angle, clockwise
	Format      string         `yaml:"format"`      // mjpeg, jpeg
	Buffers     uint32         `yaml:"buffers"`
	Timeout     time.Duration  `yaml:"timeout"` // frame wait timeout
}

type PreviewConfig struct {
	Width     uint `yaml:"width"`
	Height    uint `yaml:"height"`
	Framerate uint `yaml:"framerate"`
}

type Config struct {
	Mode           capture.Mode   `yaml:"mode"`
	ScreenRotation int            `yaml:"screen_rotation"`
	ImageEdge      int            `yaml:"image_edge"`
	Countdown      uint           `yaml:"countdown"` // seconds
	Preview        PreviewConfig  `yaml:"preview"`
	OutputDir      string         `yaml:"output_dir"`
	LogDir         string         `yaml:"log_dir"`
	Cameras        []CameraConfig `yaml:"cameras"`
}

// Default is the configuration of a single USB camera booth.
func Default() *Config {
	return &Config{
		Mode:           capture.ModeSelfServe,
		ScreenRotation: 0,
		ImageEdge:      DefaultImageEdge,
		Countdown:      DefaultCountdown,
		Preview: PreviewConfig{
			Width:     640,
			Height:    480,
			Framerate: 15,
		},
		OutputDir: "photos",
		LogDir:    "logs",
		Cameras: []CameraConfig{
			{
				Device:  "/dev/video0",
				Facing:  capture.FacingFront,
				Format:  DefaultFormat,
				Buffers: DefaultBuffers,
				Timeout: DefaultTimeout,
			},
		},
	}
}

// Load reads a YAML file over the defaults. Environment variables in the
// file are expanded first. An empty path yields Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) fillDefaults() {
	if c.ImageEdge == 0 {
		c.ImageEdge = DefaultImageEdge
	}
	if c.Preview.Framerate == 0 {
		c.Preview.Framerate = 15
	}
	for i := range c.Cameras {
		cam := &c.Cameras[i]
		if cam.Format == "" {
			cam.Format = DefaultFormat
		}
		if cam.Buffers == 0 {
			cam.Buffers = DefaultBuffers
		}
		if cam.Timeout == 0 {
			cam.Timeout = DefaultTimeout
		}
	}
}

// Validate reports every problem found rather than the first one.
func (c *Config) Validate() []error {
	var errs []error
	if c.ScreenRotation%90 != 0 {
		errs = append(errs, fmt.Errorf("screen_rotation %d is not a multiple of 90", c.ScreenRotation))
	}
	if c.ImageEdge <= 0 {
		errs = append(errs, fmt.Errorf("image_edge %d must be positive", c.ImageEdge))
	}
	if c.Preview.Width == 0 || c.Preview.Height == 0 {
		errs = append(errs, errors.New("preview width and height must be set"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir must be set"))
	}
	seen := map[string]int{}
	for i, cam := range c.Cameras {
		if cam.Device == "" {
			errs = append(errs, fmt.Errorf("camera %d: device must be set", i))
		} else if j, dup := seen[cam.Device]; dup {
			errs = append(errs, fmt.Errorf("camera %d: device %s already used by camera %d", i, cam.Device, j))
		} else {
			seen[cam.Device] = i
		}
		if cam.Orientation%90 != 0 {
			errs = append(errs, fmt.Errorf("camera %d: orientation %d is not a multiple of 90", i, cam.Orientation))
		}
		if cam.Format != "mjpeg" && cam.Format != "jpeg" {
			errs = append(errs, fmt.Errorf("camera %d: unsupported format %q", i, cam.Format))
		}
		if cam.Buffers == 0 {
			errs = append(errs, fmt.Errorf("camera %d: buffers must be positive", i))
		}
	}
	return errs
}

// Preferences exposes the configured mode to the capture controller.
func (c *Config) Preferences() Preferences {
	return Preferences{mode: c.Mode}
}

type Preferences struct {
	mode capture.Mode
}

func (p Preferences) Mode() capture.Mode {
	return p.mode
}

// CountdownDuration is the self-serve countdown length.
func (c *Config) CountdownDuration() time.Duration {
	return time.Duration(c.Countdown) * time.Second
}
