// Package console prints odometry snapshots for a human operator.
package console

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bft-labs/basepilot/internal/domain"
	"github.com/bft-labs/basepilot/internal/ports"
)

// Reporter writes one line per snapshot. It implements ports.Reporter.
type Reporter struct {
	mu  sync.Mutex
	out io.Writer
}

var _ ports.Reporter = (*Reporter)(nil)

// NewReporter creates a reporter writing to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// Report prints snapshot. Write errors are ignored.
func (r *Reporter) Report(snapshot domain.OdometrySnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.out, FormatSnapshot(snapshot)+"\n")
}

// FormatSnapshot renders snapshot on a single line.
func FormatSnapshot(s domain.OdometrySnapshot) string {
	line := fmt.Sprintf("%s seq=%d x=%.3f y=%.3f yaw=%.3f vx=%.3f vy=%.3f wz=%.3f control=%s",
		s.Timestamp.Format(time.RFC3339Nano), s.Sequence,
		s.X, s.Y, s.Heading, s.LinearX, s.LinearY, s.AngularZ, s.Control)
	if s.EmergencyStop {
		line += " STOP"
	}
	return line
}
