package cliconfig

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/basepilot/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Duration != 10*time.Second {
		t.Errorf("Duration = %v, want 10s", cfg.Duration)
	}
	if cfg.TickInterval != 500*time.Millisecond {
		t.Errorf("TickInterval = %v, want 500ms", cfg.TickInterval)
	}
	if cfg.AngularZ != 0.5 {
		t.Errorf("AngularZ = %v, want 0.5", cfg.AngularZ)
	}
	if !cfg.AcquireControl {
		t.Error("AcquireControl = false, want true")
	}
	if cfg.Frequency() != domain.ReportFrequency50Hz {
		t.Errorf("Frequency() = %v, want 50hz", cfg.Frequency())
	}
	if cfg.Listen != DefaultListenAddr {
		t.Errorf("Listen = %v, want %v", cfg.Listen, DefaultListenAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"ws endpoint", func(c *Config) { c.Endpoint = "ws://127.0.0.1:8439/api" }, false},
		{"wss endpoint", func(c *Config) { c.Endpoint = "wss://robot.local/api" }, false},
		{"http endpoint", func(c *Config) { c.Endpoint = "http://robot.local/api" }, true},
		{"endpoint without host", func(c *Config) { c.Endpoint = "ws://" }, true},
		{"zero tick", func(c *Config) { c.TickInterval = 0 }, true},
		{"negative duration", func(c *Config) { c.Duration = -time.Second }, true},
		{"zero duration", func(c *Config) { c.Duration = 0 }, false},
		{"zero receive timeout", func(c *Config) { c.ReceiveTimeout = 0 }, true},
		{"zero deinit timeout", func(c *Config) { c.DeinitTimeout = 0 }, true},
		{"infinite velocity", func(c *Config) { c.LinearX = math.Inf(1) }, true},
		{"negative velocity", func(c *Config) { c.AngularZ = -0.5 }, false},
		{"bad report frequency", func(c *Config) { c.ReportFrequency = "7hz" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestApplyTeleopDefaults(t *testing.T) {
	tests := []struct {
		name         string
		changed      map[string]bool
		file         FileConfig
		wantDuration time.Duration
		wantTick     time.Duration
	}{
		{
			name:         "nothing set",
			wantDuration: 0,
			wantTick:     TeleopTickInterval,
		},
		{
			name:         "tick flag kept",
			changed:      map[string]bool{"tick": true},
			wantDuration: 0,
			wantTick:     500 * time.Millisecond,
		},
		{
			name:         "duration flag kept",
			changed:      map[string]bool{"duration": true},
			wantDuration: 10 * time.Second,
			wantTick:     TeleopTickInterval,
		},
		{
			name:         "file overrides teleop defaults",
			file:         FileConfig{TickInterval: "100ms", Duration: "1m"},
			wantDuration: time.Minute,
			wantTick:     100 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := tt.changed
			if changed == nil {
				changed = map[string]bool{}
			}
			cfg := DefaultConfig()
			ApplyTeleopDefaults(&cfg, changed)
			if err := ApplyFileConfig(&cfg, tt.file, changed); err != nil {
				t.Fatalf("ApplyFileConfig() error = %v", err)
			}

			if cfg.Duration != tt.wantDuration {
				t.Errorf("Duration = %v, want %v", cfg.Duration, tt.wantDuration)
			}
			if cfg.TickInterval != tt.wantTick {
				t.Errorf("TickInterval = %v, want %v", cfg.TickInterval, tt.wantTick)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestConfig_RequireEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.RequireEndpoint(); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("RequireEndpoint() = %v, want ErrInvalidConfig", err)
	}

	cfg.Endpoint = "ws://127.0.0.1:8439/api"
	if err := cfg.RequireEndpoint(); err != nil {
		t.Errorf("RequireEndpoint() = %v, want nil", err)
	}
}

func TestConfig_Target(t *testing.T) {
	cfg := Config{LinearX: 0.1, LinearY: -0.1, AngularZ: 0.5}
	want := domain.Velocity{LinearX: 0.1, LinearY: -0.1, AngularZ: 0.5}
	if got := cfg.Target(); got != want {
		t.Errorf("Target() = %+v, want %+v", got, want)
	}
}

func TestBuildLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "warn"

	var console bytes.Buffer
	logger, closer := BuildLogger(cfg, &console)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	out := console.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn line missing: %q", out)
	}
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Errorf("level = %v, want warn", logger.GetLevel())
	}
}

func TestBuildLogger_File(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "basepilot.log")

	var console bytes.Buffer
	logger, closer := BuildLogger(cfg, &console)
	logger.Info().Str("endpoint", "ws://robot").Msg("connected")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	if !FileExists(cfg.LogFile) {
		t.Fatalf("log file %s not created", cfg.LogFile)
	}
	if !strings.Contains(console.String(), "connected") {
		t.Errorf("console missing line: %q", console.String())
	}
}
