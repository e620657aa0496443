package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestZerologAdapterFields(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZerologAdapterWithLogger(zerolog.New(&buf))

	adapter.Info("exchange",
		String("command", "motion"),
		Int("tick", 3),
		Uint32("session", 7),
		Uint64("seq", 12),
		Float64("yaw", 0.5),
		Bool("parked", false),
		Duration("rtt", 15*time.Millisecond),
		Err(errors.New("boom")),
		Any("target", map[string]float64{"wz": 0.5}),
	)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	want := map[string]any{
		"level":   "info",
		"message": "exchange",
		"command": "motion",
		"tick":    float64(3),
		"session": float64(7),
		"seq":     float64(12),
		"yaw":     0.5,
		"parked":  false,
		"error":   "boom",
	}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("%s = %v, want %v", k, line[k], v)
		}
	}
	if _, ok := line["rtt"]; !ok {
		t.Error("rtt field missing")
	}
	if _, ok := line["target"]; !ok {
		t.Error("target field missing")
	}
}

func TestZerologAdapterLevels(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	adapter.Debug("debug line")
	adapter.Info("info line")
	adapter.Warn("warn line")
	adapter.Error("error line")

	out := buf.String()
	for _, hidden := range []string{"debug line", "info line"} {
		if strings.Contains(out, hidden) {
			t.Errorf("%q written below level", hidden)
		}
	}
	for _, shown := range []string{"warn line", "error line"} {
		if !strings.Contains(out, shown) {
			t.Errorf("%q missing", shown)
		}
	}
}

func TestTeeLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "basepilot.log")
	file := NewFileWriter(DefaultFileConfig(path))

	var console bytes.Buffer
	logger := NewTeeLogger(&console, file, zerolog.InfoLevel)
	logger.Info().Str("endpoint", "ws://robot/api").Msg("connected")
	if err := file.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	if !strings.Contains(console.String(), "connected") {
		t.Errorf("console = %q", console.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &line); err != nil {
		t.Fatalf("file line is not JSON: %q", data)
	}
	if line["endpoint"] != "ws://robot/api" {
		t.Errorf("endpoint = %v", line["endpoint"])
	}
}

func TestNoopLogger(t *testing.T) {
	var l Logger = NewNoopLogger()
	l.Debug("x")
	l.Info("x", String("k", "v"))
	l.Warn("x")
	l.Error("x", Err(errors.New("e")))
}
