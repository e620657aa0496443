package cliconfig

import (
	"os"
	"time"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "BASEPILOT_"

// ApplyEnvConfig applies BASEPILOT_* environment variables to cfg.
// Env values override the config file but not explicitly set flags.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("endpoint", env("ENDPOINT"), &cfg.Endpoint)
	s.setString("report-frequency", env("REPORT_FREQUENCY"), &cfg.ReportFrequency)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("metrics-addr", env("METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-file", env("LOG_FILE"), &cfg.LogFile)
	s.setString("listen", env("LISTEN"), &cfg.Listen)

	durations := []struct {
		flag string
		name string
		dst  *time.Duration
	}{
		{"duration", "DURATION", &cfg.Duration},
		{"tick", "TICK", &cfg.TickInterval},
		{"connect-timeout", "CONNECT_TIMEOUT", &cfg.ConnectTimeout},
		{"write-timeout", "WRITE_TIMEOUT", &cfg.WriteTimeout},
		{"receive-timeout", "RECEIVE_TIMEOUT", &cfg.ReceiveTimeout},
		{"deinit-timeout", "DEINIT_TIMEOUT", &cfg.DeinitTimeout},
		{"acquire-timeout", "ACQUIRE_TIMEOUT", &cfg.AcquireTimeout},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, env(d.name), d.dst); err != nil {
			return err
		}
	}

	if err := s.setFloatFromString("linear-x", env("LINEAR_X"), &cfg.LinearX); err != nil {
		return err
	}
	if err := s.setFloatFromString("linear-y", env("LINEAR_Y"), &cfg.LinearY); err != nil {
		return err
	}
	if err := s.setFloatFromString("angular-z", env("ANGULAR_Z"), &cfg.AngularZ); err != nil {
		return err
	}

	s.setBoolFromString("no-acquire", env("ACQUIRE_CONTROL"), &cfg.AcquireControl)
	s.setBoolFromString("watch", env("WATCH"), &cfg.Watch)

	return nil
}
