package capture

import "fmt"

// Probe answers read-only questions about the camera inventory.
type Probe struct {
	platform Platform
}

func NewProbe(platform Platform) *Probe {
	return &Probe{platform: platform}
}

func (p *Probe) Count() int {
	return p.platform.NumberOfCameras()
}

// Describe returns the descriptor of camera id. An id outside [0, Count())
// is a programming error.
func (p *Probe) Describe(id int) CameraDescriptor {
	if n := p.Count(); id < 0 || id >= n {
		panic(fmt.Sprintf("capture: camera id %d out of range [0,%d)", id, n))
	}
	d := p.platform.CameraInfo(id)
	d.ID = id
	return d
}

func (p *Probe) Capabilities(h Handle) Capabilities {
	return h.Capabilities()
}

// Select picks the first camera facing preferred, falling back to camera 0.
// It reports false when there are no cameras.
func (p *Probe) Select(preferred Facing) (CameraDescriptor, bool) {
	n := p.Count()
	if n <= 0 {
		return CameraDescriptor{}, false
	}
	for id := 0; id < n; id++ {
		if d := p.Describe(id); d.Facing == preferred {
			return d, true
		}
	}
	return p.Describe(0), true
}

func (p *Probe) DisplayOrientation(screenRotation int, d CameraDescriptor) int {
	return DisplayOrientation(screenRotation, d)
}

// DisplayOrientation is the clockwise rotation that makes the preview of d
// upright while the screen is rotated by screenRotation degrees.
func DisplayOrientation(screenRotation int, d CameraDescriptor) int {
	screen := normalizeAngle(screenRotation)
	mount := normalizeAngle(d.Orientation)
	if d.Facing == FacingFront {
		// front cameras are mirrored, so the compensation runs the other way
		return (360 - (mount+screen)%360) % 360
	}
	return (mount - screen + 360) % 360
}

func normalizeAngle(degrees int) int {
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	return degrees / 90 * 90
}
