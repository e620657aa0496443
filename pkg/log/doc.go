// Package log provides the logging abstraction used by basepilot components.
//
// Components depend on the Logger interface only. A zerolog adapter writes
// console output (optionally teed into a rotating file), and a no-op logger
// keeps tests quiet.
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	logger.Info("connected", log.String("endpoint", url))
//
// Any logging library can be plugged in by implementing Logger:
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
package log
