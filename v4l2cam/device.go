package v4l2cam

import (
	"fmt"
	"strings"
	"time"

	"github.com/blackjack/webcam"

	"photobooth/capture"
)

// device is the part of *webcam.Webcam a camera drives.
type device interface {
	GetSupportedFormats() map[webcam.PixelFormat]string
	GetSupportedFrameSizes(f webcam.PixelFormat) []webcam.FrameSize
	SetImageFormat(f webcam.PixelFormat, width, height uint32) (webcam.PixelFormat, uint32, uint32, error)
	SetBufferCount(count uint32) error
	StartStreaming() error
	WaitForFrame(timeout uint32) error
	GetFrame() ([]byte, uint32, error)
	ReleaseFrame(index uint32) error
	GetControls() map[webcam.ControlID]webcam.Control
	GetControl(id webcam.ControlID) (int32, error)
	SetControl(id webcam.ControlID, value int32) error
	Close() error
}

func openWebcam(path string) (device, error) {
	cam, err := webcam.Open(path)
	if err != nil {
		return nil, err
	}
	return cam, nil
}

// V4L2 control ids, see linux/v4l2-controls.h
const (
	cidAutoWhiteBalance   webcam.ControlID = 0x0098090c
	cidPowerLineFrequency webcam.ControlID = 0x00980918
	cidFocusAuto          webcam.ControlID = 0x009a090c
	cidAutoFocusStart     webcam.ControlID = 0x009a091c
	cidAutoFocusStatus    webcam.ControlID = 0x009a091e
	cidAutoFocusRange     webcam.ControlID = 0x009a091f
	cidJPEGQuality        webcam.ControlID = 0x009d0903
)

// V4L2_CID_AUTO_FOCUS_STATUS bits
const (
	focusStatusBusy    = 1 << 0
	focusStatusReached = 1 << 1
	focusStatusFailed  = 1 << 2
)

const (
	pixFmtMJPEG webcam.PixelFormat = 0x47504A4D // MJPG
	pixFmtJPEG  webcam.PixelFormat = 0x4745504A // JPEG
)

// power line frequency menu, indexed by control value
var antibandingModes = []string{"off", "50hz", "60hz", capture.AntibandingAuto}

// auto focus range menu, indexed by control value
var focusRanges = []string{capture.FocusModeAuto, "normal", capture.FocusModeMacro, "infinity"}

// Device is one camera of the booth.
type Device struct {
	Path        string
	Facing      capture.Facing
	Orientation int
	Format      string
	Buffers     uint32
	Timeout     time.Duration
}

func (d Device) pixelFormat() (webcam.PixelFormat, error) {
	switch strings.ToLower(d.Format) {
	case "", "mjpeg", "mjpg":
		return pixFmtMJPEG, nil
	case "jpeg":
		return pixFmtJPEG, nil
	}
	return 0, fmt.Errorf("unsupported pixel format %q", d.Format)
}

// commonSizes fill in stepwise and continuous frame size ranges.
var commonSizes = []capture.Size{
	{Width: 320, Height: 240},
	{Width: 640, Height: 360},
	{Width: 640, Height: 480},
	{Width: 800, Height: 600},
	{Width: 1024, Height: 576},
	{Width: 1024, Height: 768},
	{Width: 1280, Height: 720},
	{Width: 1280, Height: 960},
	{Width: 1600, Height: 1200},
	{Width: 1920, Height: 1080},
	{Width: 2592, Height: 1944},
	{Width: 3264, Height: 2448},
	{Width: 3840, Height: 2160},
}

func frameSizes(ranges []webcam.FrameSize) []capture.Size {
	var sizes []capture.Size
	seen := map[capture.Size]bool{}
	add := func(s capture.Size) {
		if !s.IsZero() && !seen[s] {
			seen[s] = true
			sizes = append(sizes, s)
		}
	}
	for _, r := range ranges {
		discrete := r.StepWidth == 0 && r.StepHeight == 0
		fixed := r.MinWidth == r.MaxWidth && r.MinHeight == r.MaxHeight
		if discrete || fixed {
			add(capture.Size{Width: int(r.MaxWidth), Height: int(r.MaxHeight)})
			continue
		}
		for _, s := range commonSizes {
			if inRange(uint32(s.Width), r.MinWidth, r.MaxWidth, r.StepWidth) &&
				inRange(uint32(s.Height), r.MinHeight, r.MaxHeight, r.StepHeight) {
				add(s)
			}
		}
		add(capture.Size{Width: int(r.MaxWidth), Height: int(r.MaxHeight)})
	}
	return sizes
}

func inRange(v, lo, hi, step uint32) bool {
	if v < lo || v > hi {
		return false
	}
	return step <= 1 || (v-lo)%step == 0
}
