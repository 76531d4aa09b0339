package capture

import (
	"fmt"
	"image"
	"strings"
)

// Mode is the operating mode of the booth. It decides which camera is
// preferred and whether the trigger runs a countdown.
type Mode int

const (
	ModeSelfServe Mode = iota
	ModeHostOperated
)

func (m Mode) String() string {
	switch m {
	case ModeSelfServe:
		return "self-serve"
	case ModeHostOperated:
		return "host-operated"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts the text form produced by String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "self-serve", "self_serve", "selfserve":
		return ModeSelfServe, nil
	case "host-operated", "host_operated", "hostoperated":
		return ModeHostOperated, nil
	}
	return ModeSelfServe, fmt.Errorf("unknown booth mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// PreferredFacing is the camera facing the mode looks for first.
func (m Mode) PreferredFacing() Facing {
	if m == ModeSelfServe {
		return FacingFront
	}
	return FacingBack
}

// Variant is the trigger path used in this mode.
func (m Mode) Variant() Variant {
	if m == ModeSelfServe {
		return VariantCountdown
	}
	return VariantImmediateFocus
}

type Facing int

const (
	FacingBack Facing = iota
	FacingFront
)

func (f Facing) String() string {
	if f == FacingFront {
		return "front"
	}
	return "back"
}

func ParseFacing(s string) (Facing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "front":
		return FacingFront, nil
	case "back", "":
		return FacingBack, nil
	}
	return FacingBack, fmt.Errorf("unknown camera facing %q", s)
}

func (f Facing) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Facing) UnmarshalText(text []byte) error {
	parsed, err := ParseFacing(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// CameraDescriptor identifies one physical camera. Orientation is the
// clockwise angle the sensor is mounted at relative to the screen's natural
// orientation.
type CameraDescriptor struct {
	ID          int
	Facing      Facing
	Orientation int
}

// Reflected reports whether images from this camera mirror the scene.
func (d CameraDescriptor) Reflected() bool {
	return d.Facing == FacingFront
}

type Size struct {
	Width, Height int
}

func (s Size) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

func (s Size) LongEdge() int {
	if s.Height > s.Width {
		return s.Height
	}
	return s.Width
}

func (s Size) Area() int {
	return s.Width * s.Height
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Capabilities lists what an open camera supports. Any list may be empty.
type Capabilities struct {
	WhiteBalance []string
	Antibanding  []string
	FocusModes   []string
	PreviewSizes []Size
	PictureSizes []Size
}

// Capability tokens understood by the negotiation step.
const (
	WhiteBalanceAuto = "auto"
	AntibandingAuto  = "auto"
	FocusModeAuto    = "auto"
	FocusModeMacro   = "macro"

	JPEGQuality = 100
)

// Parameters is one atomic parameter commit. Empty strings and a zero
// PictureSize leave the device default in place.
type Parameters struct {
	WhiteBalance string
	Antibanding  string
	FocusMode    string
	JPEGQuality  int
	PictureSize  Size
}

// CaptureResult is what the host receives for one trigger sequence.
type CaptureResult struct {
	Data       []byte
	Rotation   int
	Reflection bool
}

// Platform is the device camera inventory.
type Platform interface {
	NumberOfCameras() int
	CameraInfo(id int) CameraDescriptor
	Open(id int) (Handle, error)
}

// Handle is an open camera. Completion callbacks may run on any goroutine.
type Handle interface {
	Capabilities() Capabilities
	SetParameters(Parameters) error
	SetDisplayOrientation(degrees int) error
	StartPreview(sink func(image.Image)) error
	StopPreview()
	AutoFocus(cb func(success bool)) error
	TakePicture(cb func(data []byte, err error)) error
	Release() error
}
