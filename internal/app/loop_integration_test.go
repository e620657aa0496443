package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/basepilot/internal/adapters/ws"
	"github.com/bft-labs/basepilot/internal/domain"
	"github.com/bft-labs/basepilot/internal/protocol"
	"github.com/bft-labs/basepilot/internal/sim"
	"github.com/bft-labs/basepilot/pkg/log"
)

func TestLoop_AgainstSimulator(t *testing.T) {
	srv := httptest.NewServer(sim.NewServer(sim.NewBase(nil), log.NewNoopLogger()))
	defer srv.Close()
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http") + sim.DefaultPath

	cfg := DefaultLoopConfig()
	cfg.Duration = 200 * time.Millisecond
	cfg.TickInterval = 20 * time.Millisecond

	var reports []domain.OdometrySnapshot
	emitter := &mockEmitter{}
	loop, err := NewLoop(cfg, LoopDeps{
		Dialer:      ws.NewDialer(ws.Config{ReceiveTimeout: time.Second}, log.NewNoopLogger()),
		Setpoint:    NewSetpoint(domain.Velocity{AngularZ: 0.5}),
		Reporter:    ReporterFunc(func(s domain.OdometrySnapshot) { reports = append(reports, s) }),
		StateEvents: emitter,
	})
	require.NoError(t, err)

	summary, err := loop.Run(context.Background(), endpoint)
	require.NoError(t, err)

	assert.Equal(t, StateClosed, loop.State())
	assert.Equal(t, []State{StateIdle, StateConnecting, StateRunning, StateDeinitializing, StateClosed},
		emitter.States())
	assert.Equal(t, 10, summary.MotionsSent)
	// report frequency + initialize + motions + deinitialize
	assert.Equal(t, 13, summary.CommandsSent)
	assert.True(t, summary.Deinitialized)
	assert.Zero(t, summary.OutOfOrder)
	assert.Zero(t, summary.Warnings)
	assert.NotZero(t, summary.SessionID)

	require.Len(t, reports, 13)
	last := reports[len(reports)-1]
	assert.Equal(t, domain.ControlUninitialized, last.Control)
	assert.Greater(t, last.Heading, 0.0)
	for i := 1; i < len(reports); i++ {
		assert.False(t, reports[i].Timestamp.Before(reports[i-1].Timestamp))
	}
}

func TestLoop_AgainstSimulator_ControlHeldElsewhere(t *testing.T) {
	base := sim.NewBase(nil)
	base.Apply(99, domain.InitializeCommand{Seq: 1, Enable: true})

	srv := httptest.NewServer(sim.NewServer(base, log.NewNoopLogger()))
	defer srv.Close()
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http") + sim.DefaultPath

	cfg := DefaultLoopConfig()
	cfg.AcquireTimeout = 100 * time.Millisecond

	loop, err := NewLoop(cfg, LoopDeps{
		Dialer: ws.NewDialer(ws.Config{ReceiveTimeout: time.Second}, log.NewNoopLogger()),
	})
	require.NoError(t, err)

	summary, err := loop.Run(context.Background(), endpoint)
	require.ErrorIs(t, err, domain.ErrControlNotAcquired)
	assert.Equal(t, StateErrored, loop.State())
	assert.Zero(t, summary.MotionsSent)
}

// clingingRobot serves a base that acknowledges every command but never
// gives up API control once granted.
func clingingRobot(t *testing.T) string {
	t.Helper()
	const session = 5
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		clock := uint64(time.Now().UnixMicro())
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			cmd, err := protocol.DecodeCommand(data)
			if err != nil {
				return
			}
			clock += 1000
			frame, err := protocol.EncodeUplink(domain.StatusMessage{
				Envelope: domain.Envelope{
					SessionID:            session,
					ProtocolMajorVersion: protocol.AcceptedMajorVersion,
					TimestampMicros:      clock,
					AckSequence:          cmd.Sequence(),
				},
				Status: domain.BaseStatus{
					SessionHolder:         session,
					APIControlInitialized: true,
					Odometry:              &domain.EstimatedOdometry{},
				},
			})
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestLoop_DeinitWaitOutlastsReceiveTimeout(t *testing.T) {
	cfg := DefaultLoopConfig()
	cfg.Duration = 60 * time.Millisecond
	cfg.TickInterval = 20 * time.Millisecond
	cfg.DeinitTimeout = 400 * time.Millisecond

	events := &recordingEvents{}
	loop, err := NewLoop(cfg, LoopDeps{
		Dialer: ws.NewDialer(ws.Config{ReceiveTimeout: 50 * time.Millisecond}, log.NewNoopLogger()),
		Events: events,
	})
	require.NoError(t, err)

	start := time.Now()
	summary, err := loop.Run(context.Background(), clingingRobot(t))
	require.NoError(t, err)

	assert.Equal(t, StateClosed, loop.State())
	assert.Equal(t, "Closed", summary.FinalState)
	assert.True(t, summary.Deinitialized)
	assert.Equal(t, 1, summary.Warnings)
	assert.Equal(t, []string{WarnDeinitUnconfirmed}, events.warnings)
	assert.GreaterOrEqual(t, time.Since(start), 350*time.Millisecond)
}
