package telemetry

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/basepilot/internal/domain"
	"github.com/bft-labs/basepilot/internal/protocol"
)

func statusFrame(t *testing.T, tsMicros, ack uint64) domain.Frame {
	t.Helper()
	frame, err := protocol.EncodeUplink(domain.StatusMessage{
		Envelope: domain.Envelope{SessionID: 5, ProtocolMajorVersion: 1, TimestampMicros: tsMicros, AckSequence: ack},
		Status: domain.BaseStatus{
			SessionHolder:         5,
			APIControlInitialized: true,
			Odometry:              &domain.EstimatedOdometry{SpeedZ: 0.5, PosX: 1, PosY: 2, PosYaw: 0.25},
		},
	})
	require.NoError(t, err)
	return frame
}

func TestDecoder_BuildsSnapshot(t *testing.T) {
	d := NewDecoder()

	res, err := d.Decode(statusFrame(t, 1_000_000, 3))
	require.NoError(t, err)
	require.NotNil(t, res.Snapshot)

	snap := *res.Snapshot
	assert.Equal(t, uint64(3), snap.Sequence)
	assert.Equal(t, uint32(5), snap.SessionID)
	assert.Equal(t, time.UnixMicro(1_000_000).UTC(), snap.Timestamp)
	assert.Equal(t, 1.0, snap.X)
	assert.Equal(t, 2.0, snap.Y)
	assert.Equal(t, 0.25, snap.Heading)
	assert.Equal(t, 0.5, snap.AngularZ)
	assert.Equal(t, domain.ControlCanMove, snap.Control)
	assert.False(t, snap.EmergencyStop)
	assert.Equal(t, snap.Timestamp, d.last)
}

func TestDecoder_OutOfOrderIsReportedNotAccepted(t *testing.T) {
	d := NewDecoder()

	_, err := d.Decode(statusFrame(t, 2_000_000, 1))
	require.NoError(t, err)

	res, err := d.Decode(statusFrame(t, 1_000_000, 2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOutOfOrderTelemetry))
	assert.False(t, domain.IsFatal(err))
	require.NotNil(t, res.Snapshot)

	var ooo *domain.OutOfOrderError
	require.True(t, errors.As(err, &ooo))
	assert.Equal(t, time.UnixMicro(2_000_000).UTC(), ooo.Last)
	assert.Equal(t, time.UnixMicro(1_000_000).UTC(), ooo.Received)

	assert.Equal(t, time.UnixMicro(2_000_000).UTC(), d.last)

	// The stream recovers once timestamps move forward again.
	_, err = d.Decode(statusFrame(t, 3_000_000, 3))
	require.NoError(t, err)
	assert.Equal(t, time.UnixMicro(3_000_000).UTC(), d.last)
}

func TestDecoder_EqualTimestampsAreAccepted(t *testing.T) {
	d := NewDecoder()

	_, err := d.Decode(statusFrame(t, 5, 1))
	require.NoError(t, err)
	res, err := d.Decode(statusFrame(t, 5, 2))
	require.NoError(t, err)
	require.NotNil(t, res.Snapshot)
	assert.Equal(t, uint64(2), res.Snapshot.Sequence)
}

func TestDecoder_StampsUnstampedFramesWithClock(t *testing.T) {
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	d := NewDecoderWithClock(func() time.Time { return clock })

	res, err := d.Decode(statusFrame(t, 0, 1))
	require.NoError(t, err)
	require.NotNil(t, res.Snapshot)
	assert.Equal(t, clock, res.Snapshot.Timestamp)
}

func TestDecoder_NonStatusMessagesHaveNoSnapshot(t *testing.T) {
	d := NewDecoder()

	logFrame, err := protocol.EncodeUplink(domain.LogMessage{Text: "battery 80%"})
	require.NoError(t, err)

	res, err := d.Decode(logFrame)
	require.NoError(t, err)
	assert.Nil(t, res.Snapshot)
	assert.IsType(t, domain.LogMessage{}, res.Message)

	noOdo, err := protocol.EncodeUplink(domain.StatusMessage{Status: domain.BaseStatus{APIControlInitialized: true}})
	require.NoError(t, err)

	res, err = d.Decode(noOdo)
	require.NoError(t, err)
	assert.Nil(t, res.Snapshot)
	assert.False(t, d.hasLast)
}

func TestDecoder_MalformedFrameIsFatal(t *testing.T) {
	d := NewDecoder()

	_, err := d.Decode(domain.Frame{0xFF})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDecode)
	assert.True(t, domain.IsFatal(err))
}

func TestDecoder_RejectsTimestampBeyondTimeRange(t *testing.T) {
	d := NewDecoder()

	for _, ts := range []uint64{math.MaxInt64 + 1, math.MaxUint64} {
		_, err := d.Decode(statusFrame(t, ts, 1))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDecode)
	}
	assert.False(t, d.hasLast)

	// The largest representable value still decodes.
	res, err := d.Decode(statusFrame(t, math.MaxInt64, 2))
	require.NoError(t, err)
	require.NotNil(t, res.Snapshot)
}
