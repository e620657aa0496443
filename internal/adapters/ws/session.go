// Package ws implements the transport session over gorilla/websocket.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bft-labs/basepilot/internal/domain"
	"github.com/bft-labs/basepilot/internal/ports"
)

// Default transport timeouts.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultWriteTimeout   = 2 * time.Second
	DefaultReceiveTimeout = 2 * time.Second
	DefaultCloseTimeout   = time.Second
	DefaultReadLimit      = 1 << 20
)

// Config configures dialing and per-operation deadlines.
type Config struct {
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	ReceiveTimeout time.Duration
	CloseTimeout   time.Duration
	ReadLimit      int64
	Header         http.Header
}

// DefaultConfig returns a Config with the default timeouts.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: DefaultConnectTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		ReceiveTimeout: DefaultReceiveTimeout,
		CloseTimeout:   DefaultCloseTimeout,
		ReadLimit:      DefaultReadLimit,
	}
}

func (c *Config) setDefaults() {
	d := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ReceiveTimeout <= 0 {
		c.ReceiveTimeout = d.ReceiveTimeout
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = d.CloseTimeout
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = d.ReadLimit
	}
}

// Dialer opens WebSocket sessions. It implements ports.Dialer.
type Dialer struct {
	cfg    Config
	dialer *websocket.Dialer
	logger ports.Logger
}

var _ ports.Dialer = (*Dialer)(nil)

// NewDialer creates a dialer. Zero timeouts in cfg fall back to defaults.
func NewDialer(cfg Config, logger ports.Logger) *Dialer {
	cfg.setDefaults()
	return &Dialer{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.ConnectTimeout,
		},
		logger: logger,
	}
}

// Connect dials endpoint and completes the WebSocket handshake.
func (d *Dialer) Connect(ctx context.Context, endpoint string) (ports.Session, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: parse endpoint %q: %w", domain.ErrConnection, endpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: endpoint %q: scheme must be ws or wss", domain.ErrConnection, endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: endpoint %q: missing host", domain.ErrConnection, endpoint)
	}

	dialCtx, cancel := context.WithTimeout(ctx, d.cfg.ConnectTimeout)
	defer cancel()

	conn, resp, err := d.dialer.DialContext(dialCtx, endpoint, d.cfg.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: dial %s: handshake status %d: %w", domain.ErrConnection, endpoint, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%w: dial %s: %w", domain.ErrConnection, endpoint, err)
	}
	conn.SetReadLimit(d.cfg.ReadLimit)

	d.logger.Debug("websocket connected", ports.String("endpoint", endpoint))

	return &Session{
		endpoint: endpoint,
		conn:     conn,
		cfg:      d.cfg,
		logger:   d.logger,
		state:    domain.SessionConnected,
	}, nil
}

// Session is one WebSocket connection to the robot. It implements
// ports.Session. Send and Receive are meant to be called from the owning
// control loop only; Close and State may be called from any goroutine.
type Session struct {
	endpoint string
	conn     *websocket.Conn
	cfg      Config
	logger   ports.Logger

	mu     sync.Mutex
	state  domain.SessionState
	broken error
}

var _ ports.Session = (*Session)(nil)

// Endpoint returns the address the session is connected to.
func (s *Session) Endpoint() string {
	return s.endpoint
}

// State returns the current connection state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// usable returns nil when the connection can carry another frame.
func (s *Session) usable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.SessionConnected {
		return domain.ErrSessionClosed
	}
	return s.broken
}

func (s *Session) markBroken(err error) {
	s.mu.Lock()
	if s.broken == nil {
		s.broken = err
	}
	s.mu.Unlock()
}

// Send writes frame as one binary message.
func (s *Session) Send(ctx context.Context, frame domain.Frame) error {
	if err := s.usable(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSend, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSend, err)
	}

	if err := s.conn.SetWriteDeadline(s.deadline(ctx, s.cfg.WriteTimeout)); err != nil {
		s.markBroken(err)
		return fmt.Errorf("%w: set write deadline: %w", domain.ErrSend, err)
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		s.markBroken(err)
		return fmt.Errorf("%w: write %d bytes: %w", domain.ErrSend, len(frame), err)
	}
	return nil
}

// Receive blocks until a data message arrives. A ctx deadline bounds the
// wait; without one the receive timeout does. Timeouts match both
// domain.ErrReceive and domain.ErrReceiveTimeout.
func (s *Session) Receive(ctx context.Context) (domain.Frame, error) {
	if err := s.usable(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrReceive, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrReceive, err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.cfg.ReceiveTimeout)
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		s.markBroken(err)
		return nil, fmt.Errorf("%w: set read deadline: %w", domain.ErrReceive, err)
	}

	kind, data, err := s.conn.ReadMessage()
	if err != nil {
		// gorilla/websocket connections are unusable after a read error.
		s.markBroken(err)
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %w: no frame by %s: %w",
				domain.ErrReceive, domain.ErrReceiveTimeout, deadline.Format(time.RFC3339Nano), err)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrReceive, err)
	}
	if kind == websocket.TextMessage {
		s.logger.Debug("received text message", ports.Int("bytes", len(data)))
	}
	return domain.Frame(data), nil
}

// Close sends a close frame (best effort) and closes the socket.
// Calls after the first return nil.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == domain.SessionClosing || s.state == domain.SessionClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = domain.SessionClosing
	broken := s.broken
	s.mu.Unlock()

	if broken == nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.CloseTimeout)); err != nil {
			s.logger.Debug("close frame not delivered", ports.Err(err))
		}
	}
	err := s.conn.Close()

	s.mu.Lock()
	s.state = domain.SessionClosed
	s.mu.Unlock()

	s.logger.Debug("websocket closed", ports.String("endpoint", s.endpoint))
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (s *Session) deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}
