package ports

import (
	"context"

	"github.com/bft-labs/basepilot/internal/domain"
)

// Dialer opens transport sessions to a robot endpoint.
type Dialer interface {
	// Connect establishes a session with endpoint (a ws:// or wss:// URL).
	// Failures match domain.ErrConnection.
	Connect(ctx context.Context, endpoint string) (Session, error)
}

// Session is one established connection to the robot.
// A session is owned by a single control loop and is not shared.
type Session interface {
	// Send writes one frame. Failures match domain.ErrSend; a closed
	// session returns an error matching both ErrSend and ErrSessionClosed.
	Send(ctx context.Context, frame domain.Frame) error

	// Receive blocks until a frame arrives. A ctx deadline bounds the wait;
	// without one the session's receive timeout does. Failures match
	// domain.ErrReceive, and an expired wait also matches
	// domain.ErrReceiveTimeout.
	Receive(ctx context.Context) (domain.Frame, error)

	// Close tears the connection down. It is idempotent.
	Close() error

	// State returns the current connection state.
	State() domain.SessionState

	// Endpoint returns the address the session is connected to.
	Endpoint() string
}
