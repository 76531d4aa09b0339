package capture

import "slices"

// NegotiateParameters builds the parameter commit for caps. Each option is
// applied only if the camera offers it; a missing one is left to the device
// default and never fails the commit.
func NegotiateParameters(caps Capabilities, edge int) Parameters {
	p := Parameters{JPEGQuality: JPEGQuality}
	if slices.Contains(caps.WhiteBalance, WhiteBalanceAuto) {
		p.WhiteBalance = WhiteBalanceAuto
	}
	if slices.Contains(caps.Antibanding, AntibandingAuto) {
		p.Antibanding = AntibandingAuto
	}
	if slices.Contains(caps.FocusModes, FocusModeMacro) {
		p.FocusMode = FocusModeMacro
	}
	p.PictureSize = OptimalPictureSize(caps.PreviewSizes, caps.PictureSizes, edge)
	return p
}
