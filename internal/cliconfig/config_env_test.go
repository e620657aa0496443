package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"BASEPILOT_ENDPOINT":         "ws://env/api",
				"BASEPILOT_DURATION":         "20s",
				"BASEPILOT_TICK":             "250ms",
				"BASEPILOT_ANGULAR_Z":        "-0.25",
				"BASEPILOT_ACQUIRE_CONTROL":  "false",
				"BASEPILOT_REPORT_FREQUENCY": "1hz",
				"BASEPILOT_WATCH":            "1",
			},
			changed: map[string]bool{},
			initial: Config{AcquireControl: true},
			expected: Config{
				Endpoint:        "ws://env/api",
				Duration:        20 * time.Second,
				TickInterval:    250 * time.Millisecond,
				AngularZ:        -0.25,
				AcquireControl:  false,
				ReportFrequency: "1hz",
				Watch:           true,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"BASEPILOT_DURATION":  "20s",
				"BASEPILOT_LINEAR_X":  "0.3",
				"BASEPILOT_LOG_LEVEL": "debug",
			},
			changed: map[string]bool{"duration": true, "linear-x": true},
			initial: Config{Duration: time.Second, LinearX: 0.1},
			expected: Config{
				Duration: time.Second,
				LinearX:  0.1,
				LogLevel: "debug",
			},
		},
		{
			name: "zero velocity overrides file value",
			envVars: map[string]string{
				"BASEPILOT_ANGULAR_Z": "0",
			},
			changed:  map[string]bool{},
			initial:  Config{AngularZ: 0.5},
			expected: Config{AngularZ: 0},
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"BASEPILOT_RECEIVE_TIMEOUT": "not-a-duration",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for invalid float",
			envVars: map[string]string{
				"BASEPILOT_LINEAR_Y": "fast",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "handles all field types correctly",
			envVars: map[string]string{
				"BASEPILOT_ENDPOINT":         "wss://robot/api",
				"BASEPILOT_DURATION":         "1m",
				"BASEPILOT_TICK":             "1s",
				"BASEPILOT_CONNECT_TIMEOUT":  "1s",
				"BASEPILOT_WRITE_TIMEOUT":    "2s",
				"BASEPILOT_RECEIVE_TIMEOUT":  "3s",
				"BASEPILOT_DEINIT_TIMEOUT":   "4s",
				"BASEPILOT_ACQUIRE_TIMEOUT":  "5s",
				"BASEPILOT_ACQUIRE_CONTROL":  "true",
				"BASEPILOT_REPORT_FREQUENCY": "100hz",
				"BASEPILOT_STATE_DIR":        "/state",
				"BASEPILOT_METRICS_ADDR":     ":9100",
				"BASEPILOT_WATCH":            "true",
				"BASEPILOT_LOG_LEVEL":        "warn",
				"BASEPILOT_LOG_FILE":         "/tmp/basepilot.log",
				"BASEPILOT_LISTEN":           ":8439",
				"BASEPILOT_LINEAR_X":         "0.1",
				"BASEPILOT_LINEAR_Y":         "0.2",
				"BASEPILOT_ANGULAR_Z":        "0.3",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Endpoint:        "wss://robot/api",
				Duration:        time.Minute,
				TickInterval:    time.Second,
				ConnectTimeout:  time.Second,
				WriteTimeout:    2 * time.Second,
				ReceiveTimeout:  3 * time.Second,
				DeinitTimeout:   4 * time.Second,
				AcquireTimeout:  5 * time.Second,
				AcquireControl:  true,
				ReportFrequency: "100hz",
				StateDir:        "/state",
				MetricsAddr:     ":9100",
				Watch:           true,
				LogLevel:        "warn",
				LogFile:         "/tmp/basepilot.log",
				Listen:          ":8439",
				LinearX:         0.1,
				LinearY:         0.2,
				AngularZ:        0.3,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("config = %+v\nwant %+v", cfg, tt.expected)
			}
		})
	}
}

// Flags beat env, env beats file.
func TestPrecedence_FlagEnvFile(t *testing.T) {
	t.Setenv("BASEPILOT_TICK", "250ms")
	t.Setenv("BASEPILOT_DURATION", "20s")

	cfg := DefaultConfig()
	cfg.Duration = 3 * time.Second // set by --duration
	changed := map[string]bool{"duration": true}

	fc := FileConfig{Duration: "1m", TickInterval: "1s", DeinitTimeout: "7s"}
	if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
		t.Fatal(err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatal(err)
	}

	if cfg.Duration != 3*time.Second {
		t.Errorf("Duration = %v, want flag value 3s", cfg.Duration)
	}
	if cfg.TickInterval != 250*time.Millisecond {
		t.Errorf("TickInterval = %v, want env value 250ms", cfg.TickInterval)
	}
	if cfg.DeinitTimeout != 7*time.Second {
		t.Errorf("DeinitTimeout = %v, want file value 7s", cfg.DeinitTimeout)
	}
}
