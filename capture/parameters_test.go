package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNegotiateParameters(t *testing.T) {
	t.Run("everything offered", func(t *testing.T) {
		p := NegotiateParameters(newFakeHandle().caps, 1024)
		assert.Equal(t, Parameters{
			WhiteBalance: WhiteBalanceAuto,
			Antibanding:  AntibandingAuto,
			FocusMode:    FocusModeMacro,
			JPEGQuality:  100,
			PictureSize:  Size{1024, 768},
		}, p)
	})

	t.Run("nothing offered", func(t *testing.T) {
		p := NegotiateParameters(Capabilities{}, 1024)
		assert.Equal(t, Parameters{JPEGQuality: 100}, p)
		assert.True(t, p.PictureSize.IsZero())
	})

	t.Run("empty focus modes leave focus omitted", func(t *testing.T) {
		caps := newFakeHandle().caps
		caps.FocusModes = nil
		p := NegotiateParameters(caps, 1024)
		assert.Empty(t, p.FocusMode)
		assert.Equal(t, WhiteBalanceAuto, p.WhiteBalance)
	})

	t.Run("values only from capability sets", func(t *testing.T) {
		caps := Capabilities{
			WhiteBalance: []string{"daylight"},
			Antibanding:  []string{"50hz"},
			FocusModes:   []string{FocusModeAuto, "infinity"},
		}
		p := NegotiateParameters(caps, 1024)
		assert.Empty(t, p.WhiteBalance)
		assert.Empty(t, p.Antibanding)
		assert.Empty(t, p.FocusMode)
	})
}
