// Package basepilot drives a robot base over its WebSocket control API.
//
// Example usage:
//
//	cfg := basepilot.DefaultConfig()
//	cfg.Endpoint = "ws://192.168.1.10:8439/api"
//	summary, err := basepilot.Run(ctx, cfg, basepilot.WithReporter(myReporter))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(summary.MotionsSent)
//
// For interactive use, create a Pilot with New, change its target through
// Setpoint while Run is in progress, and call Stop to end the run.
package basepilot

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/bft-labs/basepilot/internal/adapters/fs"
	"github.com/bft-labs/basepilot/internal/adapters/ws"
	"github.com/bft-labs/basepilot/internal/app"
	"github.com/bft-labs/basepilot/internal/domain"
)

// Re-exported domain types.
type (
	Velocity        = domain.Velocity
	Snapshot        = domain.OdometrySnapshot
	RunSummary      = domain.RunSummary
	ReportFrequency = domain.ReportFrequency
	State           = app.State
	Setpoint        = app.Setpoint
)

// Loop states.
const (
	StateIdle           = app.StateIdle
	StateConnecting     = app.StateConnecting
	StateRunning        = app.StateRunning
	StateDeinitializing = app.StateDeinitializing
	StateClosed         = app.StateClosed
	StateErrored        = app.StateErrored
)

// Errors returned by Run. Use errors.Is to match them.
var (
	ErrConnection         = domain.ErrConnection
	ErrSend               = domain.ErrSend
	ErrReceive            = domain.ErrReceive
	ErrReceiveTimeout     = domain.ErrReceiveTimeout
	ErrDecode             = domain.ErrDecode
	ErrControlNotAcquired = domain.ErrControlNotAcquired
	ErrInvalidConfig      = domain.ErrInvalidConfig
	ErrAlreadyRunning     = domain.ErrAlreadyRunning
)

// Config holds the settings of one control run.
type Config struct {
	// Endpoint is the robot's ws:// or wss:// URL.
	Endpoint string

	// Target is the initial target velocity.
	Target Velocity

	// Duration is how long to drive. Zero runs until Stop or ctx is done.
	Duration     time.Duration
	TickInterval time.Duration

	AcquireControl  bool
	AcquireTimeout  time.Duration
	DeinitTimeout   time.Duration
	ReportFrequency ReportFrequency

	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	// ReceiveTimeout bounds the wait for the status acknowledging each
	// command.
	ReceiveTimeout time.Duration

	// StateDir, when set, receives last_run.json after every run.
	StateDir string
}

// DefaultConfig returns the demo scenario: rotate at 0.5 rad/s for 10s
// with a 500ms tick. Endpoint must still be set.
func DefaultConfig() Config {
	loop := app.DefaultLoopConfig()
	transport := ws.DefaultConfig()
	return Config{
		Target:          Velocity{AngularZ: 0.5},
		Duration:        loop.Duration,
		TickInterval:    loop.TickInterval,
		AcquireControl:  loop.AcquireControl,
		AcquireTimeout:  loop.AcquireTimeout,
		DeinitTimeout:   loop.DeinitTimeout,
		ReportFrequency: loop.ReportFrequency,
		ConnectTimeout:  transport.ConnectTimeout,
		WriteTimeout:    transport.WriteTimeout,
		ReceiveTimeout:  transport.ReceiveTimeout,
	}
}

func (c Config) loopConfig() app.LoopConfig {
	return app.LoopConfig{
		Duration:        c.Duration,
		TickInterval:    c.TickInterval,
		DeinitTimeout:   c.DeinitTimeout,
		AckTimeout:      c.ReceiveTimeout,
		AcquireControl:  c.AcquireControl,
		AcquireTimeout:  c.AcquireTimeout,
		ReportFrequency: c.ReportFrequency,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("%w: endpoint must be a ws:// or wss:// URL, got %q", ErrInvalidConfig, c.Endpoint)
	}
	if !c.Target.Finite() {
		return fmt.Errorf("%w: target velocity must be finite", ErrInvalidConfig)
	}
	return c.loopConfig().Validate()
}

// Pilot runs one control session. Use New to create it.
type Pilot struct {
	config   Config
	loop     *app.Loop
	setpoint *app.Setpoint
}

// New creates a Pilot in StateIdle.
func New(cfg Config, opts ...Option) (*Pilot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	setpoint := app.NewSetpoint(cfg.Target)
	dialer := o.dialer
	if dialer == nil {
		dialer = ws.NewDialer(ws.Config{
			ConnectTimeout: cfg.ConnectTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			ReceiveTimeout: cfg.ReceiveTimeout,
		}, o.logger)
	}
	runs := o.runs
	if runs == nil && cfg.StateDir != "" {
		runs = fs.NewRunFileRepository(cfg.StateDir)
	}

	handlers := app.Emitters(o.handlers)
	loop, err := app.NewLoop(cfg.loopConfig(), app.LoopDeps{
		Dialer:      dialer,
		Setpoint:    setpoint,
		Reporter:    o.reporter,
		Pacer:       o.pacer,
		Runs:        runs,
		Logger:      o.logger,
		StateEvents: handlers,
		Events:      handlers,
	})
	if err != nil {
		return nil, err
	}
	return &Pilot{config: cfg, loop: loop, setpoint: setpoint}, nil
}

// Run drives the base until the configured duration elapses, Stop is
// called or ctx is done. It can be called once.
func (p *Pilot) Run(ctx context.Context) (RunSummary, error) {
	return p.loop.Run(ctx, p.config.Endpoint)
}

// Stop asks a running Pilot to release control and close.
func (p *Pilot) Stop() {
	p.loop.Stop()
}

// State returns the current loop state.
func (p *Pilot) State() State {
	return p.loop.State()
}

// Setpoint returns the target velocity holder. It is safe to update while
// Run is in progress.
func (p *Pilot) Setpoint() *Setpoint {
	return p.setpoint
}

// LastRun returns the summary saved in stateDir by the previous run, or an
// empty summary when there is none.
func LastRun(ctx context.Context, stateDir string) (RunSummary, error) {
	if stateDir == "" {
		return RunSummary{}, fmt.Errorf("%w: state directory is required", ErrInvalidConfig)
	}
	return fs.NewRunFileRepository(stateDir).Load(ctx)
}

// Run creates a Pilot from cfg and runs it once.
func Run(ctx context.Context, cfg Config, opts ...Option) (RunSummary, error) {
	p, err := New(cfg, opts...)
	if err != nil {
		return RunSummary{}, err
	}
	return p.Run(ctx)
}
