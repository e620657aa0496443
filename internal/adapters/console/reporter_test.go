package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bft-labs/basepilot/internal/domain"
)

func TestFormatSnapshot(t *testing.T) {
	s := domain.OdometrySnapshot{
		Sequence:  4,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 500_000_000, time.UTC),
		X:         0.25,
		Heading:   1.5,
		AngularZ:  0.5,
		Control:   domain.ControlCanMove,
	}

	assert.Equal(t,
		"2026-03-01T12:00:00.5Z seq=4 x=0.250 y=0.000 yaw=1.500 vx=0.000 vy=0.000 wz=0.500 control=CanMove",
		FormatSnapshot(s))

	s.EmergencyStop = true
	assert.True(t, strings.HasSuffix(FormatSnapshot(s), " STOP"))
}

func TestReporter_OneLinePerSnapshot(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.Report(domain.OdometrySnapshot{Sequence: 1})
	r.Report(domain.OdometrySnapshot{Sequence: 2})

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "seq=1")
	assert.Contains(t, lines[1], "seq=2")
}
