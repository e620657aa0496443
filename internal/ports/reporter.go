package ports

import (
	"context"

	"github.com/bft-labs/basepilot/internal/domain"
)

// Reporter consumes accepted odometry snapshots, e.g. by printing them.
type Reporter interface {
	Report(snapshot domain.OdometrySnapshot)
}

// Pacer blocks until the next control tick is due.
// It returns the context error when ctx is done first.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Setpoint supplies the target velocity for the next motion command.
// Implementations must be safe for concurrent use.
type Setpoint interface {
	Target() domain.Velocity
}
