package cliconfig

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/basepilot/internal/domain"
)

// DefaultListenAddr is where the simulator listens by default.
const DefaultListenAddr = "127.0.0.1:8439"

// TeleopTickInterval is the teleop default tick. A key tap only reaches
// the base with the next motion command.
const TeleopTickInterval = 50 * time.Millisecond

// Config holds CLI configuration for basepilot.
type Config struct {
	Endpoint string

	Duration     time.Duration
	TickInterval time.Duration

	LinearX  float64
	LinearY  float64
	AngularZ float64

	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	ReceiveTimeout time.Duration
	DeinitTimeout  time.Duration
	AcquireTimeout time.Duration

	AcquireControl  bool
	ReportFrequency string

	StateDir    string
	MetricsAddr string
	Watch       bool

	LogLevel string
	LogFile  string

	Listen string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Duration:        10 * time.Second,
		TickInterval:    500 * time.Millisecond,
		AngularZ:        0.5,
		ConnectTimeout:  5 * time.Second,
		WriteTimeout:    2 * time.Second,
		ReceiveTimeout:  2 * time.Second,
		DeinitTimeout:   2 * time.Second,
		AcquireTimeout:  5 * time.Second,
		AcquireControl:  true,
		ReportFrequency: domain.ReportFrequency50Hz.String(),
		LogLevel:        zerolog.InfoLevel.String(),
		Listen:          DefaultListenAddr,
	}
}

// Validate checks the configuration for errors. The endpoint is checked
// only when set; commands that need one call RequireEndpoint.
func (c *Config) Validate() error {
	if c.Endpoint != "" {
		if err := validateEndpoint(c.Endpoint); err != nil {
			return err
		}
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive", domain.ErrInvalidConfig)
	}
	if c.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", domain.ErrInvalidConfig)
	}

	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"connect-timeout", c.ConnectTimeout},
		{"write-timeout", c.WriteTimeout},
		{"receive-timeout", c.ReceiveTimeout},
		{"deinit-timeout", c.DeinitTimeout},
		{"acquire-timeout", c.AcquireTimeout},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidConfig, t.name)
		}
	}

	if !c.Target().Finite() {
		return fmt.Errorf("%w: target velocity must be finite", domain.ErrInvalidConfig)
	}
	if _, err := domain.ParseReportFrequency(c.ReportFrequency); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level: %w", domain.ErrInvalidConfig, err)
	}
	return nil
}

// ApplyTeleopDefaults sets keyboard driving defaults for every value no
// flag has set: no duration limit and TeleopTickInterval. Apply it before
// file and environment config, which still override it.
func ApplyTeleopDefaults(cfg *Config, changed map[string]bool) {
	if !changed["duration"] {
		cfg.Duration = 0
	}
	if !changed["tick"] {
		cfg.TickInterval = TeleopTickInterval
	}
}

// RequireEndpoint fails when no endpoint has been configured.
func (c *Config) RequireEndpoint() error {
	if c.Endpoint == "" {
		return fmt.Errorf("%w: robot endpoint is required (argument, BASEPILOT_ENDPOINT or config file)", domain.ErrInvalidConfig)
	}
	return validateEndpoint(c.Endpoint)
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: endpoint: %w", domain.ErrInvalidConfig, err)
	}
	if (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("%w: endpoint %q must be a ws:// or wss:// URL", domain.ErrInvalidConfig, endpoint)
	}
	return nil
}

// Target returns the configured target velocity.
func (c *Config) Target() domain.Velocity {
	return domain.Velocity{
		LinearX:  float32(c.LinearX),
		LinearY:  float32(c.LinearY),
		AngularZ: float32(c.AngularZ),
	}
}

// Frequency returns the parsed report frequency, or the default when
// invalid. Call Validate first.
func (c *Config) Frequency() domain.ReportFrequency {
	f, err := domain.ParseReportFrequency(c.ReportFrequency)
	if err != nil {
		return domain.ReportFrequencyDefault
	}
	return f
}

// Level returns the parsed log level, or info when invalid.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value from a pointer if not nil and flag not changed.
// Zero and negative values are valid velocities, hence the pointer.
func (s *configSetter) setFloat(flag string, value *float64, dst *float64) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
