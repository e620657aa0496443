package basepilot

import (
	"github.com/bft-labs/basepilot/internal/app"
	"github.com/bft-labs/basepilot/internal/ports"
	"github.com/bft-labs/basepilot/pkg/log"
)

// Interfaces accepted by the options.
type (
	Logger        = log.Logger
	Reporter      = ports.Reporter
	Pacer         = ports.Pacer
	Dialer        = ports.Dialer
	Session       = ports.Session
	RunRepository = ports.RunRepository

	// StateHandler receives loop state transitions.
	StateHandler = app.EventEmitter
	// EventHandler receives per-exchange events: commands, snapshots,
	// out-of-order telemetry and warnings.
	EventHandler = app.LoopEventEmitter
)

// ReporterFunc adapts a function to Reporter.
type ReporterFunc = app.ReporterFunc

// Option configures optional behavior of a Pilot.
type Option func(*options)

type options struct {
	logger   ports.Logger
	reporter ports.Reporter
	pacer    ports.Pacer
	dialer   ports.Dialer
	runs     ports.RunRepository
	handlers []any
}

func defaultOptions() options {
	return options{logger: log.NewNoopLogger()}
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithReporter receives every accepted odometry snapshot.
// Reporters are called synchronously from the control loop.
func WithReporter(r Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithPacer replaces the tick pacer. The default waits one tick interval
// between motion commands.
func WithPacer(p Pacer) Option {
	return func(o *options) {
		o.pacer = p
	}
}

// WithDialer replaces the WebSocket transport.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithRunRepository persists run summaries somewhere other than
// Config.StateDir.
func WithRunRepository(r RunRepository) Option {
	return func(o *options) {
		o.runs = r
	}
}

// WithStateHandler registers a handler for loop state transitions.
func WithStateHandler(h StateHandler) Option {
	return func(o *options) {
		o.handlers = append(o.handlers, h)
	}
}

// WithEventHandler registers a handler for per-exchange events.
// A value implementing StateHandler as well receives both kinds.
func WithEventHandler(h EventHandler) Option {
	return func(o *options) {
		o.handlers = append(o.handlers, h)
	}
}
