package session

import (
	"errors"
	"fmt"
)

// Code categorizes session errors.
type Code string

const (
	// CodeInvalidState indicates an operation that the current state
	// does not allow (e.g. Keep without a captured preview).
	CodeInvalidState Code = "INVALID_STATE"

	// CodeFramesIncomplete indicates a start attempt with unfilled
	// frame slots.
	CodeFramesIncomplete Code = "FRAMES_INCOMPLETE"

	// CodeSlotOutOfRange indicates a slot index outside the strip.
	CodeSlotOutOfRange Code = "SLOT_OUT_OF_RANGE"

	// CodeSessionComplete indicates an operation after all slots were kept.
	CodeSessionComplete Code = "SESSION_COMPLETE"
)

// Error is a structured session error with a code for diagnostics.
type Error struct {
	Code    Code
	Message string
	Slot    int // affected slot, -1 when not slot-specific
}

func (e *Error) Error() string {
	if e.Slot >= 0 {
		return fmt.Sprintf("%s: %s (slot=%d)", e.Code, e.Message, e.Slot)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidState reports whether err is a session error with
// CodeInvalidState, unwrapping as needed.
func IsInvalidState(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == CodeInvalidState
}

func newError(code Code, slot int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Slot: slot}
}
