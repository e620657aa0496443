package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent error conditions of a control session.
// They are wrapped with context and can be checked with errors.Is.
var (
	// ErrConnection is returned when the endpoint is unreachable or refuses
	// the WebSocket handshake.
	ErrConnection = errors.New("basepilot: connection failed")

	// ErrSend is returned when a frame cannot be written to an established
	// connection.
	ErrSend = errors.New("basepilot: send failed")

	// ErrReceive is returned when reading a frame fails or times out.
	ErrReceive = errors.New("basepilot: receive failed")

	// ErrReceiveTimeout is wrapped alongside ErrReceive when no frame arrived
	// before the receive deadline.
	ErrReceiveTimeout = errors.New("basepilot: receive timed out")

	// ErrDecode is returned for malformed or truncated frames.
	ErrDecode = errors.New("basepilot: decode failed")

	// ErrEncode is returned when a command cannot be encoded.
	ErrEncode = errors.New("basepilot: encode failed")

	// ErrOutOfOrderTelemetry marks a snapshot older than the last accepted one.
	ErrOutOfOrderTelemetry = errors.New("basepilot: out-of-order telemetry")

	// ErrSessionClosed is returned when using a session after Close.
	ErrSessionClosed = errors.New("basepilot: session closed")

	// ErrControlNotAcquired is returned when the robot does not hand API
	// control to this session.
	ErrControlNotAcquired = errors.New("basepilot: control not acquired")

	// ErrInvalidTransition is returned for a state change the control loop
	// does not allow.
	ErrInvalidTransition = errors.New("basepilot: invalid state transition")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("basepilot: invalid configuration")

	// ErrAlreadyRunning is returned when a loop is started twice.
	ErrAlreadyRunning = errors.New("basepilot: already running")
)

// OutOfOrderError reports a snapshot whose timestamp precedes the last
// accepted snapshot of the session. It matches ErrOutOfOrderTelemetry.
type OutOfOrderError struct {
	Last     time.Time
	Received time.Time
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("%s: received %s before last accepted %s",
		ErrOutOfOrderTelemetry, e.Received.Format(time.RFC3339Nano), e.Last.Format(time.RFC3339Nano))
}

// Is reports whether target is ErrOutOfOrderTelemetry.
func (e *OutOfOrderError) Is(target error) bool {
	return target == ErrOutOfOrderTelemetry
}

// IsFatal reports whether err terminates a running control loop.
// Out-of-order telemetry is the only non-fatal condition.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrOutOfOrderTelemetry)
}
