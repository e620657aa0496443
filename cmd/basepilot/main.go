package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/basepilot"
	"github.com/bft-labs/basepilot/internal/adapters/console"
	"github.com/bft-labs/basepilot/internal/adapters/metrics"
	"github.com/bft-labs/basepilot/internal/cliconfig"
	"github.com/bft-labs/basepilot/internal/sim"
	"github.com/bft-labs/basepilot/internal/teleop"
	"github.com/bft-labs/basepilot/internal/watch"
	"github.com/bft-labs/basepilot/pkg/log"
)

const helpBanner = `
 _                          _ _       _
| |__   __ _ ___  ___ _ __ (_) | ___ | |_
| '_ \ / _' / __|/ _ \ '_ \| | |/ _ \| __|
| |_) | (_| \__ \  __/ |_) | | | (_) | |_
|_.__/ \__,_|___/\___| .__/|_|_|\___/ \__|
                     |_|
`

const helpDescription = `
Drive a robot base over its WebSocket control API.

Highlights:
  - Acquires API control, streams motion commands at a fixed tick and releases control on exit.
  - Prints every odometry report and rejects telemetry that goes back in time.
  - Keyboard teleoperation (W/S, A/D, Q/E) and a built-in simulator for dry runs.
  - Configure via file ($HOME/.basepilot/config.toml), BASEPILOT_* env, or flags.
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  basepilot simulate --listen 127.0.0.1:8439
  basepilot run ws://127.0.0.1:8439/api --duration 10s --angular-z 0.5
  basepilot teleop ws://192.168.1.10:8439/api --metrics-addr :9102
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries state shared by the subcommands.
type cli struct {
	cfg       cliconfig.Config
	cfgPath   string
	noAcquire bool
	log       zerolog.Logger
	sink      *cliconfig.LogSink
}

func main() {
	c := &cli{
		cfg: cliconfig.DefaultConfig(),
		log: cliconfig.Logger(),
	}

	root := &cobra.Command{
		Use:          "basepilot",
		Short:        "Drive a robot base over its WebSocket control API",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.basepilot/config.toml)")
	flags.DurationVar(&c.cfg.Duration, "duration", c.cfg.Duration, "how long to drive (0 runs until interrupted)")
	flags.DurationVar(&c.cfg.TickInterval, "tick", c.cfg.TickInterval, "interval between motion commands")
	flags.Float64Var(&c.cfg.LinearX, "linear-x", c.cfg.LinearX, "target forward velocity in m/s")
	flags.Float64Var(&c.cfg.LinearY, "linear-y", c.cfg.LinearY, "target leftward velocity in m/s")
	flags.Float64Var(&c.cfg.AngularZ, "angular-z", c.cfg.AngularZ, "target yaw rate in rad/s")
	flags.DurationVar(&c.cfg.ConnectTimeout, "connect-timeout", c.cfg.ConnectTimeout, "WebSocket handshake timeout")
	flags.DurationVar(&c.cfg.WriteTimeout, "write-timeout", c.cfg.WriteTimeout, "per-command send timeout")
	flags.DurationVar(&c.cfg.ReceiveTimeout, "receive-timeout", c.cfg.ReceiveTimeout, "how long to wait for the status acknowledging each command")
	flags.DurationVar(&c.cfg.DeinitTimeout, "deinit-timeout", c.cfg.DeinitTimeout, "how long to wait for the robot to confirm release of control")
	flags.DurationVar(&c.cfg.AcquireTimeout, "acquire-timeout", c.cfg.AcquireTimeout, "how long to wait for API control to be granted")
	flags.BoolVar(&c.noAcquire, "no-acquire", false, "skip the control handshake (robot already initialized)")
	flags.StringVar(&c.cfg.ReportFrequency, "report-frequency", c.cfg.ReportFrequency, "status report rate: default, 1hz, 10hz, 50hz or 100hz")
	flags.StringVar(&c.cfg.StateDir, "state-dir", c.cfg.StateDir, "directory for last_run.json (disabled when empty)")
	flags.StringVar(&c.cfg.MetricsAddr, "metrics-addr", c.cfg.MetricsAddr, "serve Prometheus metrics on this address (disabled when empty)")
	flags.BoolVar(&c.cfg.Watch, "watch", c.cfg.Watch, "reload the [target] table of the config file while running")
	flags.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&c.cfg.LogFile, "log-file", c.cfg.LogFile, "also write JSON logs to this rotated file")

	root.AddCommand(c.runCommand(), c.teleopCommand(), c.simulateCommand())

	if err := root.Execute(); err != nil {
		c.log.Error().Err(err).Msg("basepilot")
		os.Exit(1)
	}
}

func (c *cli) runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run [ws-url]",
		Short: "Drive the base at the target velocity for --duration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd, args, os.Stderr, nil); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			c.logPreviousRun(ctx)

			opts := c.observe(ctx)
			opts = append(opts, basepilot.WithReporter(console.NewReporter(os.Stdout)))
			p, err := c.newPilot(c.cfg.Target(), opts...)
			if err != nil {
				return err
			}

			stopWatch := c.watch(ctx, p.Setpoint())
			defer stopWatch()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case <-sigCh:
					c.log.Info().Msg("received signal, stopping...")
					p.Stop()
				case <-ctx.Done():
				}
			}()

			summary, err := p.Run(ctx)
			c.logSummary(summary)
			return err
		},
	}
}

func (c *cli) teleopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "teleop [ws-url]",
		Short: "Drive the base from the keyboard (W/S, A/D, Q/E; ESC or C to quit)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The terminal belongs to the UI; logs go to --log-file only.
			if err := c.load(cmd, args, io.Discard, cliconfig.ApplyTeleopDefaults); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			events := &teleop.Events{}
			opts := c.observe(ctx)
			opts = append(opts, basepilot.WithEventHandler(events))
			p, err := c.newPilot(basepilot.Velocity{}, opts...)
			if err != nil {
				return err
			}

			model := teleop.NewModel(p.Setpoint(), p.Stop, teleop.Options{})
			prog := tea.NewProgram(model, tea.WithAltScreen())
			events.Attach(prog)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case <-sigCh:
					p.Stop()
				case <-ctx.Done():
				}
			}()

			resultCh := make(chan teleop.DoneMsg, 1)
			go func() {
				summary, err := p.Run(ctx)
				done := teleop.DoneMsg{Summary: summary, Err: err}
				resultCh <- done
				prog.Send(done)
			}()

			_, uiErr := prog.Run()
			c.log = c.sink.Logger(os.Stderr)
			// A second quit press leaves the UI before the loop returns.
			p.Stop()
			cancel()
			result := <-resultCh
			c.logSummary(result.Summary)
			if uiErr != nil {
				return errors.Join(fmt.Errorf("teleop ui: %w", uiErr), result.Err)
			}
			return result.Err
		},
	}
}

func (c *cli) simulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Serve a simulated robot base for dry runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd, nil, os.Stderr, nil); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := sim.NewServer(sim.NewBase(nil), log.NewZerologAdapterWithLogger(c.log))
			return srv.ListenAndServe(ctx, c.cfg.Listen)
		},
	}
	cmd.Flags().StringVar(&c.cfg.Listen, "listen", c.cfg.Listen, "address to serve the simulator on")
	return cmd
}

// load resolves configuration with precedence flags > env > file > preset >
// defaults, takes the endpoint from args and replaces the logger. preset
// may be nil.
func (c *cli) load(cmd *cobra.Command, args []string, console io.Writer, preset func(*cliconfig.Config, map[string]bool)) error {
	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	c.cfgPath = cfgFile

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
	if preset != nil {
		preset(&c.cfg, changed)
	}

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	}

	// These override file config but are overridden by flags.
	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return err
	}

	if changed["no-acquire"] {
		c.cfg.AcquireControl = !c.noAcquire
	}
	if len(args) > 0 {
		c.cfg.Endpoint = args[0]
	}

	if err := c.cfg.Validate(); err != nil {
		return err
	}
	if cmd.Name() != "simulate" {
		if err := c.cfg.RequireEndpoint(); err != nil {
			return err
		}
	}

	c.sink = cliconfig.NewLogSink(c.cfg)
	c.log = c.sink.Logger(console)
	cobra.OnFinalize(func() { _ = c.sink.Close() })

	c.log.Info().Interface("config", c.cfg).Msg("configuration")
	return nil
}

func (c *cli) adapter() *log.ZerologAdapter {
	return log.NewZerologAdapterWithLogger(c.log)
}

func (c *cli) newPilot(target basepilot.Velocity, opts ...basepilot.Option) (*basepilot.Pilot, error) {
	cfg := basepilot.Config{
		Endpoint:        c.cfg.Endpoint,
		Target:          target,
		Duration:        c.cfg.Duration,
		TickInterval:    c.cfg.TickInterval,
		AcquireControl:  c.cfg.AcquireControl,
		AcquireTimeout:  c.cfg.AcquireTimeout,
		DeinitTimeout:   c.cfg.DeinitTimeout,
		ReportFrequency: c.cfg.Frequency(),
		ConnectTimeout:  c.cfg.ConnectTimeout,
		WriteTimeout:    c.cfg.WriteTimeout,
		ReceiveTimeout:  c.cfg.ReceiveTimeout,
		StateDir:        c.cfg.StateDir,
	}
	opts = append(opts, basepilot.WithLogger(c.adapter()))
	p, err := basepilot.New(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pilot: %w", err)
	}
	return p, nil
}

// observe starts the metrics endpoint when configured and returns the
// options that feed it.
func (c *cli) observe(ctx context.Context) []basepilot.Option {
	if c.cfg.MetricsAddr == "" {
		return nil
	}
	m := metrics.New()
	go func() {
		if err := m.Serve(ctx, c.cfg.MetricsAddr, c.adapter()); err != nil {
			c.log.Error().Err(err).Msg("metrics server")
		}
	}()
	return []basepilot.Option{basepilot.WithEventHandler(m)}
}

// watch reloads the target velocity from the config file when --watch is
// set. The returned function stops watching.
func (c *cli) watch(ctx context.Context, target watch.Target) func() {
	if !c.cfg.Watch {
		return func() {}
	}
	if !cliconfig.FileExists(c.cfgPath) {
		c.log.Warn().Str("path", c.cfgPath).Msg("--watch set but config file does not exist")
		return func() {}
	}
	w := watch.New(c.cfgPath, target, c.adapter(), 0)
	if err := w.Start(ctx); err != nil {
		c.log.Warn().Err(err).Msg("config watcher disabled")
		return func() {}
	}
	return w.Stop
}

// logPreviousRun logs the summary left in --state-dir by the last run.
func (c *cli) logPreviousRun(ctx context.Context) {
	if c.cfg.StateDir == "" {
		return
	}
	prev, err := basepilot.LastRun(ctx, c.cfg.StateDir)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to load previous run")
		return
	}
	if prev.IsEmpty() {
		return
	}
	c.log.Info().
		Str("run_id", prev.RunID).
		Str("final_state", prev.FinalState).
		Time("ended_at", prev.EndedAt).
		Int("motions", prev.MotionsSent).
		Str("error", prev.Error).
		Msg("previous run")
}

func (c *cli) logSummary(s basepilot.RunSummary) {
	if s.IsEmpty() {
		return
	}
	c.log.Info().
		Str("run_id", s.RunID).
		Str("final_state", s.FinalState).
		Dur("elapsed", s.Duration()).
		Int("commands", s.CommandsSent).
		Int("motions", s.MotionsSent).
		Int("snapshots", s.Snapshots).
		Int("out_of_order", s.OutOfOrder).
		Int("superseded", s.Superseded).
		Int("warnings", s.Warnings).
		Bool("deinitialized", s.Deinitialized).
		Msg("run finished")
}
