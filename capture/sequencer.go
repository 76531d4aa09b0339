package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/looplab/fsm"
)

// Variant selects how a trigger press reaches the shutter.
type Variant int

const (
	// VariantImmediateFocus runs autofocus and fires the shutter when focus
	// completes, whatever its outcome.
	VariantImmediateFocus Variant = iota
	// VariantCountdown runs autofocus and a countdown side by side and fires
	// the shutter when the countdown ends.
	VariantCountdown
)

func (v Variant) String() string {
	if v == VariantCountdown {
		return "countdown"
	}
	return "immediate-focus"
}

// Sequencer states.
const (
	StateIdle     = "idle"
	StateArmed    = "armed"
	StateFocusing = "focusing"
	StateShutter  = "shutter"
	StateDone     = "done"
)

const (
	eventPress   = "press"
	eventFocus   = "focus"
	eventShoot   = "shoot"
	eventDeliver = "deliver"
	eventFail    = "fail"
)

// SequenceActions are the side effects a trigger sequence drives.
type SequenceActions interface {
	// Armed runs once when a press is accepted.
	Armed()
	// AutoFocus starts focusing. A nil cb means nobody waits for it.
	AutoFocus(cb func(success bool)) error
	StartCountdown(done func())
	Shutter() error
	Crashed(err error)
}

// Sequencer runs one trigger sequence from press to shutter. Events that do
// not fit the current state are dropped.
type Sequencer struct {
	variant Variant
	actions SequenceActions
	machine *fsm.FSM
	logger  *slog.Logger
}

func NewSequencer(variant Variant, actions SequenceActions, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sequencer{
		variant: variant,
		actions: actions,
		logger:  logger.With("variant", variant.String()),
	}
	s.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventPress, Src: []string{StateIdle}, Dst: StateArmed},
			{Name: eventFocus, Src: []string{StateArmed}, Dst: StateFocusing},
			{Name: eventShoot, Src: []string{StateFocusing}, Dst: StateShutter},
			{Name: eventDeliver, Src: []string{StateShutter}, Dst: StateDone},
			{Name: eventFail, Src: []string{StateArmed, StateFocusing, StateShutter}, Dst: StateDone},
		},
		fsm.Callbacks{
			"enter_state":            s.enterState,
			"enter_" + StateArmed:    s.enterArmed,
			"enter_" + StateFocusing: s.enterFocusing,
			"enter_" + StateShutter:  s.enterShutter,
			"after_" + eventFail:     s.afterFail,
		},
	)
	return s
}

func (s *Sequencer) Variant() Variant {
	return s.variant
}

func (s *Sequencer) State() string {
	return s.machine.Current()
}

// Press starts a sequence. It reports false when a sequence already ran.
func (s *Sequencer) Press() bool {
	return s.fire(eventPress)
}

// Deliver marks the captured frame as handed over.
func (s *Sequencer) Deliver() bool {
	return s.fire(eventDeliver)
}

// Fail ends the sequence with a hardware error.
func (s *Sequencer) Fail(err error) bool {
	return s.fire(eventFail, err)
}

func (s *Sequencer) fire(event string, args ...interface{}) bool {
	// callbacks complete later than the call that scheduled them, so the
	// per-event context must not be inherited
	err := s.machine.Event(context.Background(), event, args...)
	if err == nil {
		return true
	}
	var invalid fsm.InvalidEventError
	if errors.As(err, &invalid) {
		s.logger.Debug("trigger event ignored", "event", event, "state", s.State())
		return false
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return false
	}
	s.logger.Warn("trigger event failed", "event", event, "err", err)
	return false
}

func (s *Sequencer) enterState(_ context.Context, e *fsm.Event) {
	s.logger.Debug("trigger state", "event", e.Event, "from", e.Src, "to", e.Dst)
}

func (s *Sequencer) enterArmed(_ context.Context, _ *fsm.Event) {
	s.actions.Armed()
	s.fire(eventFocus)
}

func (s *Sequencer) enterFocusing(_ context.Context, _ *fsm.Event) {
	switch s.variant {
	case VariantImmediateFocus:
		err := s.actions.AutoFocus(func(success bool) {
			s.logger.Debug("focus finished", "success", success)
			s.fire(eventShoot)
		})
		if err != nil {
			s.fire(eventFail, err)
		}
	case VariantCountdown:
		if err := s.actions.AutoFocus(nil); err != nil {
			s.fire(eventFail, err)
			return
		}
		s.actions.StartCountdown(func() {
			s.fire(eventShoot)
		})
	}
}

func (s *Sequencer) enterShutter(_ context.Context, _ *fsm.Event) {
	if err := s.actions.Shutter(); err != nil {
		s.fire(eventFail, err)
	}
}

func (s *Sequencer) afterFail(_ context.Context, e *fsm.Event) {
	err := ErrCameraCrashed
	if len(e.Args) > 0 {
		if argErr, ok := e.Args[0].(error); ok && argErr != nil {
			err = argErr
		}
	}
	s.actions.Crashed(fmt.Errorf("trigger sequence: %w", err))
}
