package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/basepilot/internal/domain"
	"github.com/bft-labs/basepilot/internal/ports"
	"github.com/bft-labs/basepilot/internal/protocol"
	"github.com/bft-labs/basepilot/internal/telemetry"
	"github.com/bft-labs/basepilot/pkg/log"
)

// Default loop timings.
const (
	DefaultDuration       = 10 * time.Second
	DefaultTickInterval   = 500 * time.Millisecond
	DefaultDeinitTimeout  = 2 * time.Second
	DefaultAcquireTimeout = 5 * time.Second
	DefaultAckTimeout     = 2 * time.Second
)

// LoopConfig contains configuration for the control loop.
type LoopConfig struct {
	// Duration is how long to drive the base. Zero runs until cancelled.
	Duration     time.Duration
	TickInterval time.Duration

	// DeinitTimeout bounds the wait for the robot to confirm release of
	// API control.
	DeinitTimeout time.Duration

	// AckTimeout bounds the wait for the status acknowledging a command.
	// Zero means DefaultAckTimeout.
	AckTimeout time.Duration

	// AcquireControl enables the initialize handshake before Running.
	AcquireControl  bool
	AcquireTimeout  time.Duration
	ReportFrequency domain.ReportFrequency
}

// DefaultLoopConfig returns the demo scenario configuration.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		Duration:        DefaultDuration,
		TickInterval:    DefaultTickInterval,
		DeinitTimeout:   DefaultDeinitTimeout,
		AckTimeout:      DefaultAckTimeout,
		AcquireControl:  true,
		AcquireTimeout:  DefaultAcquireTimeout,
		ReportFrequency: domain.ReportFrequency50Hz,
	}
}

// Validate checks that the configuration is usable.
func (c LoopConfig) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive", domain.ErrInvalidConfig)
	}
	if c.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", domain.ErrInvalidConfig)
	}
	if c.DeinitTimeout <= 0 {
		return fmt.Errorf("%w: deinit timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.AckTimeout < 0 {
		return fmt.Errorf("%w: ack timeout must not be negative", domain.ErrInvalidConfig)
	}
	if c.AcquireControl && c.AcquireTimeout <= 0 {
		return fmt.Errorf("%w: acquire timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.ReportFrequency < domain.ReportFrequencyDefault || c.ReportFrequency > domain.ReportFrequency100Hz {
		return fmt.Errorf("%w: unknown report frequency %d", domain.ErrInvalidConfig, c.ReportFrequency)
	}
	return nil
}

// Ticks returns the number of control ticks to run. bounded is false when
// the loop runs until cancelled.
func (c LoopConfig) Ticks() (n int, bounded bool) {
	if c.Duration == 0 {
		return 0, false
	}
	return int(c.Duration / c.TickInterval), true
}

// LoopDeps are the collaborators of a Loop. Only Dialer is required.
type LoopDeps struct {
	Dialer   ports.Dialer
	Setpoint ports.Setpoint
	Reporter ports.Reporter
	Pacer    ports.Pacer
	Runs     ports.RunRepository
	Logger   ports.Logger

	// StateEvents receives lifecycle transitions.
	StateEvents EventEmitter
	// Events receives per-exchange events.
	Events LoopEventEmitter
}

// ReporterFunc adapts a function to ports.Reporter.
type ReporterFunc func(domain.OdometrySnapshot)

// Report calls f(snapshot).
func (f ReporterFunc) Report(snapshot domain.OdometrySnapshot) { f(snapshot) }

// Loop drives one control session: connect, optionally acquire control,
// send a motion command per tick, then release control and close.
type Loop struct {
	config    LoopConfig
	dialer    ports.Dialer
	setpoint  ports.Setpoint
	reporter  ports.Reporter
	pacer     ports.Pacer
	runs      ports.RunRepository
	logger    ports.Logger
	events    LoopEventEmitter
	lifecycle *Lifecycle

	now      func() time.Time
	newRunID func() string
}

// NewLoop creates a loop. Missing optional dependencies get defaults: a
// zero setpoint, a discarding reporter, a rate pacer at the tick interval
// and a no-op logger.
func NewLoop(config LoopConfig, deps LoopDeps) (*Loop, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if deps.Dialer == nil {
		return nil, fmt.Errorf("%w: dialer is required", domain.ErrInvalidConfig)
	}
	if config.AckTimeout == 0 {
		config.AckTimeout = DefaultAckTimeout
	}
	if deps.Setpoint == nil {
		deps.Setpoint = NewSetpoint(domain.Velocity{})
	}
	if deps.Reporter == nil {
		deps.Reporter = ReporterFunc(func(domain.OdometrySnapshot) {})
	}
	if deps.Pacer == nil {
		deps.Pacer = NewRatePacer(config.TickInterval)
	}
	if deps.Logger == nil {
		deps.Logger = log.NewNoopLogger()
	}

	return &Loop{
		config:    config,
		dialer:    deps.Dialer,
		setpoint:  deps.Setpoint,
		reporter:  deps.Reporter,
		pacer:     deps.Pacer,
		runs:      deps.Runs,
		logger:    deps.Logger,
		events:    deps.Events,
		lifecycle: NewLifecycle(deps.Logger, deps.StateEvents),
		now:       time.Now,
		newRunID:  uuid.NewString,
	}, nil
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return l.lifecycle.State()
}

// Stop requests a graceful stop. A running loop finishes its in-flight
// exchange, releases control and closes the session.
func (l *Loop) Stop() {
	l.lifecycle.Cancel()
}

// run is the per-session state owned by Run.
type run struct {
	conn    ports.Session
	seq     domain.Sequencer
	decoder *telemetry.Decoder
	summary domain.RunSummary

	deinitSent    bool
	control       domain.ControlState
	parked        bool
	versionWarned bool
}

// Run executes the control session against endpoint. A Loop runs once;
// later calls fail with domain.ErrAlreadyRunning.
//
// The returned summary is filled on every exit path. The error is nil when
// the loop reached StateClosed.
func (l *Loop) Run(ctx context.Context, endpoint string) (domain.RunSummary, error) {
	if err := l.lifecycle.TransitionTo(StateConnecting, "connect "+endpoint); err != nil {
		return domain.RunSummary{}, fmt.Errorf("%w: %w", domain.ErrAlreadyRunning, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	l.lifecycle.SetCancel(cancel)

	r := &run{
		decoder: telemetry.NewDecoderWithClock(l.now),
		summary: domain.RunSummary{
			RunID:     l.newRunID(),
			Endpoint:  endpoint,
			StartedAt: l.now().UTC(),
		},
	}

	err := l.run(ctx, r, endpoint)

	r.summary.EndedAt = l.now().UTC()
	r.summary.FinalState = l.lifecycle.State().String()
	if err != nil {
		r.summary.Error = err.Error()
	}
	l.save(r.summary)

	return r.summary, err
}

func (l *Loop) run(ctx context.Context, r *run, endpoint string) error {
	conn, err := l.dialer.Connect(ctx, endpoint)
	if err != nil {
		l.logger.Error("connect failed", ports.String("endpoint", endpoint), ports.Err(err))
		_ = l.lifecycle.TransitionTo(StateErrored, err.Error())
		return err
	}
	r.conn = conn

	err = l.drive(ctx, r)

	if cerr := conn.Close(); cerr != nil {
		l.logger.Warn("close session", ports.Err(cerr))
	}
	if err != nil {
		return err
	}
	return l.lifecycle.TransitionTo(StateClosed, "session closed")
}

// drive runs everything between connect and close.
func (l *Loop) drive(ctx context.Context, r *run) error {
	if l.config.AcquireControl {
		if err := l.acquire(ctx, r); err != nil {
			return l.abort(ctx, r, err)
		}
	}
	if err := l.lifecycle.TransitionTo(StateRunning, "connected"); err != nil {
		return err
	}

	reason, err := l.tick(ctx, r)
	if err != nil {
		return l.abort(ctx, r, err)
	}

	if err := l.lifecycle.TransitionTo(StateDeinitializing, reason); err != nil {
		return err
	}
	if err := l.deinitialize(ctx, r); err != nil {
		return l.abort(ctx, r, err)
	}
	return nil
}

// acquire requests the report frequency and API control, then waits until
// a status shows this session may move the base.
func (l *Loop) acquire(ctx context.Context, r *run) error {
	actx, cancel := context.WithTimeout(ctx, l.config.AcquireTimeout)
	defer cancel()

	wrap := func(err error) error {
		if expired(actx, err) {
			return fmt.Errorf("%w: %w", domain.ErrControlNotAcquired, err)
		}
		return err
	}

	if l.config.ReportFrequency != domain.ReportFrequencyDefault {
		cmd := domain.ReportFrequencyCommand{Seq: r.seq.Next(), Frequency: l.config.ReportFrequency}
		if err := l.exchange(actx, r, cmd); err != nil {
			return wrap(err)
		}
	}

	req := domain.InitializeCommand{Seq: r.seq.Next(), Enable: true}
	if err := l.send(actx, r, req); err != nil {
		return wrap(err)
	}
	err := l.await(actx, r, req.Seq, func(m domain.StatusMessage) bool {
		return m.Status.ControlStateFor(m.SessionID) == domain.ControlCanMove
	})
	if err != nil {
		return wrap(err)
	}

	l.logger.Info("control acquired", ports.Uint32("session_id", r.summary.SessionID))
	return nil
}

// tick sends one motion command per pacer tick. Cancellation is only
// observed between exchanges; the exchange itself runs to completion.
func (l *Loop) tick(ctx context.Context, r *run) (string, error) {
	n, bounded := l.config.Ticks()
	pairCtx := context.WithoutCancel(ctx)

	for i := 0; !bounded || i < n; i++ {
		if ctx.Err() != nil {
			return stopReason(ctx), nil
		}
		if err := l.pacer.Wait(ctx); err != nil {
			return stopReason(ctx), nil
		}

		cmd := domain.MotionCommand{Seq: r.seq.Next(), Velocity: l.setpoint.Target()}
		if err := l.exchange(pairCtx, r, cmd); err != nil {
			return "", err
		}
	}
	return "duration elapsed", nil
}

func stopReason(ctx context.Context) string {
	if cause := context.Cause(ctx); cause != nil {
		return "stop requested: " + cause.Error()
	}
	return "stop requested"
}

// deinitialize releases API control and waits for the robot to confirm.
// An unconfirmed release is a warning, not an error.
func (l *Loop) deinitialize(ctx context.Context, r *run) error {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.config.DeinitTimeout)
	defer cancel()

	if err := l.sendDeinit(dctx, r); err != nil {
		return err
	}

	err := l.await(dctx, r, r.summary.LastSequence, func(m domain.StatusMessage) bool {
		return !m.Status.APIControlInitialized
	})
	if err != nil {
		if expired(dctx, err) {
			l.warn(r, WarnDeinitUnconfirmed,
				fmt.Sprintf("release of API control not confirmed within %s", l.config.DeinitTimeout))
			return nil
		}
		return err
	}

	l.logger.Info("control released", ports.Uint32("session_id", r.summary.SessionID))
	return nil
}

// sendDeinit sends the deinitialize command. It is attempted at most once
// per run.
func (l *Loop) sendDeinit(ctx context.Context, r *run) error {
	if r.deinitSent {
		return nil
	}
	r.deinitSent = true
	if err := l.send(ctx, r, domain.InitializeCommand{Seq: r.seq.Next(), Enable: false}); err != nil {
		return err
	}
	r.summary.Deinitialized = true
	return nil
}

// abort moves the loop to StateErrored. When the transport is still usable
// a best-effort deinitialize is sent before the caller closes the session.
func (l *Loop) abort(ctx context.Context, r *run, err error) error {
	l.logger.Error("control loop failed",
		ports.String("state", l.lifecycle.State().String()),
		ports.Err(err),
	)
	_ = l.lifecycle.TransitionTo(StateErrored, err.Error())

	if transportHealthy(err) {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.config.DeinitTimeout)
		defer cancel()
		if derr := l.sendDeinit(dctx, r); derr != nil {
			l.logger.Warn("best-effort deinitialize failed", ports.Err(derr))
		}
	}
	return err
}

// expired reports whether a wait bounded by ctx ran out of time. The
// session's read deadline may fire just before ctx's own timer.
func expired(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, domain.ErrReceiveTimeout)
}

func transportHealthy(err error) bool {
	return !errors.Is(err, domain.ErrSend) &&
		!errors.Is(err, domain.ErrReceive) &&
		!errors.Is(err, domain.ErrConnection)
}

// exchange sends cmd and waits up to AckTimeout for the status that
// acknowledges it.
func (l *Loop) exchange(ctx context.Context, r *run, cmd domain.Command) error {
	if err := l.send(ctx, r, cmd); err != nil {
		return err
	}

	actx, cancel := context.WithTimeout(ctx, l.config.AckTimeout)
	defer cancel()

	err := l.await(actx, r, cmd.Sequence(), nil)
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrReceive) {
		return fmt.Errorf("%w: %w: command %d not acknowledged within %s",
			domain.ErrReceive, domain.ErrReceiveTimeout, cmd.Sequence(), l.config.AckTimeout)
	}
	return err
}

func (l *Loop) send(ctx context.Context, r *run, cmd domain.Command) error {
	frame, err := protocol.Encode(cmd)
	if err != nil {
		return err
	}
	if err := r.conn.Send(ctx, frame); err != nil {
		return err
	}

	r.summary.CommandsSent++
	r.summary.LastSequence = cmd.Sequence()
	if _, ok := cmd.(domain.MotionCommand); ok {
		r.summary.MotionsSent++
	}

	l.logger.Debug("command sent",
		ports.Uint64("seq", cmd.Sequence()),
		ports.String("command", CommandName(cmd)),
		ports.Int("bytes", frame.Len()),
	)
	if l.events != nil {
		l.events.OnCommandSent(cmd)
	}
	return nil
}

// await receives frames until a status acknowledging seq satisfies done
// (nil accepts any) or ctx expires. Only that status is reported; frames
// before it are inspected and counted as superseded.
func (l *Loop) await(ctx context.Context, r *run, seq uint64, done func(domain.StatusMessage) bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := r.conn.Receive(ctx)
		if err != nil {
			return err
		}
		res, accepted, err := l.handle(r, frame)
		if err != nil {
			return err
		}
		status, ok := res.Message.(domain.StatusMessage)
		if ok && acknowledges(status, seq) && (done == nil || done(status)) {
			if accepted {
				l.report(r, res.Snapshot)
			}
			return nil
		}
		r.summary.Superseded++
	}
}

// acknowledges reports whether status answers the command with sequence
// seq. A robot that does not echo sequence numbers sends AckSequence 0.
func acknowledges(status domain.StatusMessage, seq uint64) bool {
	return status.AckSequence == 0 || status.AckSequence >= seq
}

// handle decodes an uplink frame. Out-of-order telemetry is counted and
// logged but does not fail the exchange; accepted is false for it.
func (l *Loop) handle(r *run, frame domain.Frame) (res telemetry.Result, accepted bool, err error) {
	res, err = r.decoder.Decode(frame)
	accepted = err == nil

	var ooo *domain.OutOfOrderError
	switch {
	case err == nil:
	case errors.As(err, &ooo):
		r.summary.OutOfOrder++
		l.logger.Warn("out-of-order telemetry",
			ports.Time("last", ooo.Last),
			ports.Time("received", ooo.Received),
		)
		if l.events != nil {
			l.events.OnOutOfOrder(ooo)
		}
	default:
		return res, false, err
	}

	l.inspect(r, res.Message)
	return res, accepted, nil
}

func (l *Loop) report(r *run, snapshot *domain.OdometrySnapshot) {
	if snapshot == nil {
		return
	}
	snap := *snapshot
	r.summary.Snapshots++
	r.summary.LastSnapshot = &snap
	l.reporter.Report(snap)
	if l.events != nil {
		l.events.OnSnapshot(snap)
	}
}

// inspect logs and counts the non-fatal conditions a message reports.
func (l *Loop) inspect(r *run, msg domain.Message) {
	h := msg.Header()
	switch {
	case h.SessionID == 0:
	case r.summary.SessionID == 0:
		r.summary.SessionID = h.SessionID
		l.logger.Info("session assigned", ports.Uint32("session_id", h.SessionID))
	case h.SessionID != r.summary.SessionID:
		l.warn(r, WarnSessionChanged,
			fmt.Sprintf("session id changed from %d to %d", r.summary.SessionID, h.SessionID))
		r.summary.SessionID = h.SessionID
	}

	if v := h.ProtocolMajorVersion; v != 0 && v != protocol.AcceptedMajorVersion && !r.versionWarned {
		r.versionWarned = true
		l.warn(r, WarnProtocolVersion,
			fmt.Sprintf("robot speaks protocol major version %d, expected %d", v, protocol.AcceptedMajorVersion))
	}

	switch m := msg.(type) {
	case domain.StatusMessage:
		if m.Log != "" {
			l.logger.Info("robot log", ports.String("text", m.Log))
		}
		l.inspectStatus(r, m)
	case domain.LogMessage:
		l.logger.Info("robot log", ports.String("text", m.Text))
	case domain.UnknownMessage:
		l.logger.Debug("unknown uplink message", ports.Any("fields", m.Fields))
	}
}

func (l *Loop) inspectStatus(r *run, m domain.StatusMessage) {
	parked := m.Status.ParkingStop != nil
	if parked && !r.parked {
		l.warn(r, WarnParkingStop, "base reports parking stop: "+m.Status.ParkingStop.Reason)
	}
	r.parked = parked

	control := m.Status.ControlStateFor(m.SessionID)
	if control == r.control {
		return
	}
	l.logger.Debug("control state changed",
		ports.String("from", r.control.String()),
		ports.String("to", control.String()),
	)
	r.control = control
	if control == domain.ControlNotHeld && !parked {
		l.warn(r, WarnControlNotHeld,
			fmt.Sprintf("API control held by session %d", m.Status.SessionHolder))
	}
}

func (l *Loop) warn(r *run, kind, detail string) {
	r.summary.Warnings++
	l.logger.Warn(detail, ports.String("kind", kind))
	if l.events != nil {
		l.events.OnWarning(kind, detail)
	}
}

func (l *Loop) save(summary domain.RunSummary) {
	if l.runs == nil {
		return
	}
	if err := l.runs.Save(context.Background(), summary); err != nil {
		l.logger.Error("failed to save run summary", ports.Err(err))
	}
}

// CommandName returns a short name for the command variant.
func CommandName(cmd domain.Command) string {
	switch c := cmd.(type) {
	case domain.MotionCommand:
		return "motion"
	case domain.InitializeCommand:
		if c.Enable {
			return "initialize"
		}
		return "deinitialize"
	case domain.ReportFrequencyCommand:
		return "report_frequency"
	default:
		return fmt.Sprintf("%T", cmd)
	}
}
