package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/basepilot/internal/domain"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Endpoint        string       `toml:"endpoint"`
	Duration        string       `toml:"duration"`
	TickInterval    string       `toml:"tick"`
	ConnectTimeout  string       `toml:"connect_timeout"`
	WriteTimeout    string       `toml:"write_timeout"`
	ReceiveTimeout  string       `toml:"receive_timeout"`
	DeinitTimeout   string       `toml:"deinit_timeout"`
	AcquireTimeout  string       `toml:"acquire_timeout"`
	AcquireControl  *bool        `toml:"acquire_control"`
	ReportFrequency string       `toml:"report_frequency"`
	StateDir        string       `toml:"state_dir"`
	MetricsAddr     string       `toml:"metrics_addr"`
	Watch           *bool        `toml:"watch"`
	LogLevel        string       `toml:"log_level"`
	LogFile         string       `toml:"log_file"`
	Listen          string       `toml:"listen"`
	Target          TargetConfig `toml:"target"`
}

// TargetConfig is the [target] table: the commanded velocity.
type TargetConfig struct {
	LinearX  *float64 `toml:"linear_x"`
	LinearY  *float64 `toml:"linear_y"`
	AngularZ *float64 `toml:"angular_z"`
}

// Velocity overlays the set components onto base.
func (t TargetConfig) Velocity(base domain.Velocity) domain.Velocity {
	if t.LinearX != nil {
		base.LinearX = float32(*t.LinearX)
	}
	if t.LinearY != nil {
		base.LinearY = float32(*t.LinearY)
	}
	if t.AngularZ != nil {
		base.AngularZ = float32(*t.AngularZ)
	}
	return base
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.basepilot/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".basepilot", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("endpoint", fc.Endpoint, &cfg.Endpoint)
	s.setString("report-frequency", fc.ReportFrequency, &cfg.ReportFrequency)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)
	s.setString("listen", fc.Listen, &cfg.Listen)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"duration", fc.Duration, &cfg.Duration},
		{"tick", fc.TickInterval, &cfg.TickInterval},
		{"connect-timeout", fc.ConnectTimeout, &cfg.ConnectTimeout},
		{"write-timeout", fc.WriteTimeout, &cfg.WriteTimeout},
		{"receive-timeout", fc.ReceiveTimeout, &cfg.ReceiveTimeout},
		{"deinit-timeout", fc.DeinitTimeout, &cfg.DeinitTimeout},
		{"acquire-timeout", fc.AcquireTimeout, &cfg.AcquireTimeout},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setFloat("linear-x", fc.Target.LinearX, &cfg.LinearX)
	s.setFloat("linear-y", fc.Target.LinearY, &cfg.LinearY)
	s.setFloat("angular-z", fc.Target.AngularZ, &cfg.AngularZ)

	s.setBool("no-acquire", fc.AcquireControl, &cfg.AcquireControl)
	s.setBool("watch", fc.Watch, &cfg.Watch)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
