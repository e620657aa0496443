// Package metrics exposes control loop activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/basepilot/internal/app"
	"github.com/bft-labs/basepilot/internal/domain"
	"github.com/bft-labs/basepilot/internal/ports"
)

const namespace = "basepilot"

// Metrics records loop events. It implements app.EventEmitter and
// app.LoopEventEmitter.
type Metrics struct {
	registry *prometheus.Registry

	state       prometheus.Gauge
	transitions *prometheus.CounterVec
	commands    *prometheus.CounterVec
	snapshots   prometheus.Counter
	outOfOrder  prometheus.Counter
	warnings    *prometheus.CounterVec
	position    *prometheus.GaugeVec
	velocity    *prometheus.GaugeVec
	lastReport  prometheus.Gauge
}

var (
	_ app.EventEmitter     = (*Metrics)(nil)
	_ app.LoopEventEmitter = (*Metrics)(nil)
)

// New creates the collectors and registers them on a private registry
// together with the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "state",
			Help:      "Current control loop state (0 Idle, 1 Connecting, 2 Running, 3 Deinitializing, 4 Closed, 5 Errored).",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "transitions_total",
			Help:      "Control loop state transitions.",
		}, []string{"to"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "commands_sent_total",
			Help:      "Commands sent to the robot.",
		}, []string{"command"}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "snapshots_total",
			Help:      "Accepted odometry snapshots.",
		}),
		outOfOrder: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "out_of_order_total",
			Help:      "Snapshots rejected for arriving out of order.",
		}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "warnings_total",
			Help:      "Non-fatal conditions reported by the robot.",
		}, []string{"kind"}),
		position: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "odometry",
			Name:      "position",
			Help:      "Estimated position (m) and heading (rad).",
		}, []string{"axis"}),
		velocity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "odometry",
			Name:      "velocity",
			Help:      "Estimated linear (m/s) and angular (rad/s) velocity.",
		}, []string{"axis"}),
		lastReport: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "last_snapshot_timestamp_seconds",
			Help:      "Source timestamp of the last accepted snapshot.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.state, m.transitions, m.commands, m.snapshots, m.outOfOrder,
		m.warnings, m.position, m.velocity, m.lastReport,
	)
	return m
}

// OnStateChange records a lifecycle transition.
func (m *Metrics) OnStateChange(previous, current app.State, reason string) {
	m.state.Set(float64(current))
	m.transitions.WithLabelValues(current.String()).Inc()
}

// OnCommandSent counts a sent command.
func (m *Metrics) OnCommandSent(cmd domain.Command) {
	m.commands.WithLabelValues(app.CommandName(cmd)).Inc()
}

// OnSnapshot records the snapshot's pose and velocity.
func (m *Metrics) OnSnapshot(s domain.OdometrySnapshot) {
	m.snapshots.Inc()
	m.position.WithLabelValues("x").Set(s.X)
	m.position.WithLabelValues("y").Set(s.Y)
	m.position.WithLabelValues("yaw").Set(s.Heading)
	m.velocity.WithLabelValues("x").Set(s.LinearX)
	m.velocity.WithLabelValues("y").Set(s.LinearY)
	m.velocity.WithLabelValues("yaw").Set(s.AngularZ)
	m.lastReport.Set(float64(s.Timestamp.UnixMicro()) / 1e6)
}

// OnOutOfOrder counts a rejected snapshot.
func (m *Metrics) OnOutOfOrder(*domain.OutOfOrderError) {
	m.outOfOrder.Inc()
}

// OnWarning counts a warning by kind.
func (m *Metrics) OnWarning(kind, detail string) {
	m.warnings.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger ports.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", ports.String("addr", addr))
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
