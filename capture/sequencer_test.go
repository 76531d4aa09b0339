package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedActions struct {
	calls    []string
	focusCb  func(bool)
	countCb  func()
	focusErr error
	shotErr  error
	crashes  []error
}

func (a *recordedActions) Armed() { a.calls = append(a.calls, "armed") }

func (a *recordedActions) AutoFocus(cb func(bool)) error {
	if cb == nil {
		a.calls = append(a.calls, "focus-nowait")
	} else {
		a.calls = append(a.calls, "focus")
	}
	a.focusCb = cb
	return a.focusErr
}

func (a *recordedActions) StartCountdown(done func()) {
	a.calls = append(a.calls, "countdown")
	a.countCb = done
}

func (a *recordedActions) Shutter() error {
	a.calls = append(a.calls, "shutter")
	return a.shotErr
}

func (a *recordedActions) Crashed(err error) {
	a.calls = append(a.calls, "crashed")
	a.crashes = append(a.crashes, err)
}

func TestSequencerImmediateFocus(t *testing.T) {
	a := &recordedActions{}
	s := NewSequencer(VariantImmediateFocus, a, nil)
	assert.Equal(t, StateIdle, s.State())

	require.True(t, s.Press())
	assert.Equal(t, StateFocusing, s.State())
	assert.Equal(t, []string{"armed", "focus"}, a.calls)
	assert.False(t, s.Press(), "second press must be ignored")

	a.focusCb(false)
	assert.Equal(t, StateShutter, s.State())
	assert.Equal(t, []string{"armed", "focus", "shutter"}, a.calls)

	require.True(t, s.Deliver())
	assert.Equal(t, StateDone, s.State())
	assert.False(t, s.Press())
	assert.False(t, s.Deliver())
	assert.Empty(t, a.crashes)
}

func TestSequencerCountdown(t *testing.T) {
	a := &recordedActions{}
	s := NewSequencer(VariantCountdown, a, nil)

	require.True(t, s.Press())
	assert.Equal(t, []string{"armed", "focus-nowait", "countdown"}, a.calls)
	assert.Equal(t, StateFocusing, s.State())

	a.countCb()
	assert.Equal(t, StateShutter, s.State())
	assert.Equal(t, "shutter", a.calls[len(a.calls)-1])

	// a repeated completion is out of order and dropped
	a.countCb()
	assert.Equal(t, StateShutter, s.State())
	assert.Len(t, a.calls, 4)
}

func TestSequencerFailures(t *testing.T) {
	t.Run("autofocus error", func(t *testing.T) {
		a := &recordedActions{focusErr: errHardware}
		s := NewSequencer(VariantImmediateFocus, a, nil)
		require.True(t, s.Press())
		assert.Equal(t, StateDone, s.State())
		require.Len(t, a.crashes, 1)
		assert.ErrorIs(t, a.crashes[0], errHardware)
		assert.NotContains(t, a.calls, "shutter")
	})

	t.Run("countdown autofocus error skips countdown", func(t *testing.T) {
		a := &recordedActions{focusErr: errHardware}
		s := NewSequencer(VariantCountdown, a, nil)
		require.True(t, s.Press())
		assert.Equal(t, StateDone, s.State())
		assert.NotContains(t, a.calls, "countdown")
		assert.Len(t, a.crashes, 1)
	})

	t.Run("shutter error", func(t *testing.T) {
		a := &recordedActions{shotErr: errHardware}
		s := NewSequencer(VariantImmediateFocus, a, nil)
		require.True(t, s.Press())
		a.focusCb(true)
		assert.Equal(t, StateDone, s.State())
		require.Len(t, a.crashes, 1)
		assert.Equal(t, ErrCameraCrashed, KindOf(a.crashes[0]))
	})

	t.Run("asynchronous failure", func(t *testing.T) {
		a := &recordedActions{}
		s := NewSequencer(VariantImmediateFocus, a, nil)
		require.True(t, s.Press())
		a.focusCb(true)
		require.True(t, s.Fail(errHardware))
		assert.Equal(t, StateDone, s.State())
		assert.False(t, s.Deliver())
		assert.False(t, s.Fail(errHardware))
		assert.Len(t, a.crashes, 1)
	})

	t.Run("fail in idle is ignored", func(t *testing.T) {
		a := &recordedActions{}
		s := NewSequencer(VariantCountdown, a, nil)
		assert.False(t, s.Fail(errHardware))
		assert.Equal(t, StateIdle, s.State())
		assert.Empty(t, a.crashes)
	})
}
