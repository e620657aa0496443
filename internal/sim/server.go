// Package sim is a simulated robot base speaking the uplink/downlink
// protocol over WebSocket. It answers every command with one status report.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bft-labs/basepilot/internal/domain"
	"github.com/bft-labs/basepilot/internal/ports"
	"github.com/bft-labs/basepilot/internal/protocol"
)

// DefaultPath is the WebSocket path the simulator serves.
const DefaultPath = "/api"

// Base is the simulated robot base shared by all connections.
type Base struct {
	mu sync.Mutex

	now         func() time.Time
	initialized bool
	holder      uint32
	parked      string

	velocity domain.Velocity
	x, y     float64
	yaw      float64
	updated  time.Time
}

// NewBase returns a base at the origin using now as its clock.
func NewBase(now func() time.Time) *Base {
	if now == nil {
		now = time.Now
	}
	return &Base{now: now, updated: now()}
}

// Park engages (non-empty reason) or releases a parking stop. A parked base
// refuses motion.
func (b *Base) Park(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.integrate()
	b.parked = reason
	if reason != "" {
		b.velocity = domain.Velocity{}
	}
}

// integrate advances the pose to now. Callers hold b.mu.
func (b *Base) integrate() {
	now := b.now()
	dt := now.Sub(b.updated).Seconds()
	b.updated = now
	if dt <= 0 {
		return
	}
	vx, vy, wz := float64(b.velocity.LinearX), float64(b.velocity.LinearY), float64(b.velocity.AngularZ)
	sin, cos := math.Sincos(b.yaw)
	b.x += (vx*cos - vy*sin) * dt
	b.y += (vx*sin + vy*cos) * dt
	b.yaw = math.Remainder(b.yaw+wz*dt, 2*math.Pi)
}

// Apply executes cmd on behalf of session and returns the resulting status.
func (b *Base) Apply(session uint32, cmd domain.Command) domain.StatusMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.integrate()

	switch c := cmd.(type) {
	case domain.InitializeCommand:
		switch {
		case c.Enable && (!b.initialized || b.holder == session):
			b.initialized = true
			b.holder = session
		case !c.Enable && b.holder == session:
			b.initialized = false
			b.holder = 0
			b.velocity = domain.Velocity{}
		}
	case domain.MotionCommand:
		if b.initialized && b.holder == session && b.parked == "" {
			b.velocity = c.Velocity
		}
	}
	return b.status(session, cmd.Sequence())
}

// Release drops control held by session, stopping the base.
func (b *Base) Release(session uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.holder != session {
		return
	}
	b.integrate()
	b.initialized = false
	b.holder = 0
	b.velocity = domain.Velocity{}
}

func (b *Base) status(session uint32, ack uint64) domain.StatusMessage {
	m := domain.StatusMessage{
		Envelope: domain.Envelope{
			SessionID:            session,
			ProtocolMajorVersion: protocol.AcceptedMajorVersion,
			TimestampMicros:      uint64(b.updated.UnixMicro()),
			AckSequence:          ack,
		},
		Status: domain.BaseStatus{
			SessionHolder:         b.holder,
			APIControlInitialized: b.initialized,
			Odometry: &domain.EstimatedOdometry{
				SpeedX: b.velocity.LinearX,
				SpeedY: b.velocity.LinearY,
				SpeedZ: b.velocity.AngularZ,
				PosX:   float32(b.x),
				PosY:   float32(b.y),
				PosYaw: float32(b.yaw),
			},
		},
	}
	if b.parked != "" {
		m.Status.ParkingStop = &domain.ParkingStop{Reason: b.parked}
	}
	return m
}

// Server accepts WebSocket connections and serves them against a Base.
type Server struct {
	base     *Base
	logger   ports.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	nextSession uint32
}

// NewServer creates a server for base.
func NewServer(base *Base, logger ports.Logger) *Server {
	return &Server{
		base:     base,
		logger:   logger,
		upgrader: websocket.Upgrader{},
	}
}

func (s *Server) newSession() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSession++
	return s.nextSession
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", ports.Err(err))
		return
	}
	defer conn.Close()

	session := s.newSession()
	s.logger.Info("session opened",
		ports.Uint32("session_id", session),
		ports.String("remote", r.RemoteAddr),
	)
	defer func() {
		s.base.Release(session)
		s.logger.Info("session closed", ports.Uint32("session_id", session))
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("read failed", ports.Uint32("session_id", session), ports.Err(err))
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		reply, err := s.handle(session, domain.Frame(data))
		if err != nil {
			s.logger.Error("encode reply", ports.Err(err))
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, reply); err != nil {
			s.logger.Debug("write failed", ports.Uint32("session_id", session), ports.Err(err))
			return
		}
	}
}

func (s *Server) handle(session uint32, frame domain.Frame) (domain.Frame, error) {
	cmd, err := protocol.DecodeCommand(frame)
	if err != nil {
		s.logger.Warn("invalid command", ports.Uint32("session_id", session), ports.Err(err))
		return protocol.EncodeUplink(domain.LogMessage{
			Envelope: domain.Envelope{SessionID: session, ProtocolMajorVersion: protocol.AcceptedMajorVersion},
			Text:     "invalid command: " + err.Error(),
		})
	}

	s.logger.Debug("command",
		ports.Uint32("session_id", session),
		ports.Uint64("seq", cmd.Sequence()),
		ports.String("type", fmt.Sprintf("%T", cmd)),
	)
	return protocol.EncodeUplink(s.base.Apply(session, cmd))
}

// ListenAndServe serves the simulator on addr at DefaultPath until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(DefaultPath, s)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("simulator listening", ports.String("endpoint", "ws://"+addr+DefaultPath))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
