// Package logging provides a minimal logging interface and adapters for viewflow.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that engines, collaborators and view-models use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ZapAdapter wrapping a zap logger; NewZapLogger builds one from a LoggerConfig
//   - ScreenLogger with screen/engine context and rotating file output
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	e := engine.New(sc, func(o *engine.Options) { o.Logger = logger })
//
// Arguments after the message are slog-style key/value pairs.
package logging
