package cliconfig

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/bft-labs/basepilot/pkg/log"
)

// Logger returns the console logger used before configuration is loaded.
func Logger() zerolog.Logger {
	return log.NewConsoleLogger(os.Stderr, zerolog.InfoLevel)
}

// LogSink owns the optional rotating log file so that loggers for
// different consoles can share it.
type LogSink struct {
	level zerolog.Level
	file  io.WriteCloser
}

// NewLogSink opens the log file of cfg, if any. Files are opened lazily by
// lumberjack on first write.
func NewLogSink(cfg Config) *LogSink {
	s := &LogSink{level: cfg.Level()}
	if cfg.LogFile != "" {
		s.file = log.NewFileWriter(log.DefaultFileConfig(cfg.LogFile))
	}
	return s
}

// Logger returns a logger writing human-readable lines to console and, with
// a log file configured, JSON lines to the file.
func (s *LogSink) Logger(console io.Writer) zerolog.Logger {
	if s.file == nil {
		return log.NewConsoleLogger(console, s.level)
	}
	return log.NewTeeLogger(console, s.file, s.level)
}

// Close releases the log file.
func (s *LogSink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// BuildLogger returns the process logger for cfg and the closer of its
// log file.
func BuildLogger(cfg Config, console io.Writer) (zerolog.Logger, io.Closer) {
	sink := NewLogSink(cfg)
	return sink.Logger(console), sink
}
