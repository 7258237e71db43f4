package logging

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter exposes a zap logger through the Logger interface. Arguments
// are treated as loosely typed key/value pairs, matching slog.
type ZapAdapter struct {
	s *zap.SugaredLogger
}

// NewZapAdapter wraps l. A nil logger yields zap.NewNop().
func NewZapAdapter(l *zap.Logger) *ZapAdapter {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapAdapter{s: l.Sugar()}
}

// NewZapLogger builds a zap backed Logger from the same configuration
// NewLogger accepts, including file rotation.
func NewZapLogger(cfg *LoggerConfig) *ZapAdapter {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.Format == "text" {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(cfg.Writer()), zapLevel(cfg.Level))

	var opts []zap.Option
	if cfg.AddSource {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	l := zap.New(core, opts...)
	if cfg.Component != "" {
		l = l.With(zap.String("component", cfg.Component))
	}
	for k, v := range cfg.CustomAttrs {
		l = l.With(zap.Any(k, v))
	}
	return NewZapAdapter(l)
}

func zapLevel(l LogLevel) zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debug logs a debug message.
func (z *ZapAdapter) Debug(msg string, args ...any) { z.s.Debugw(msg, args...) }

// Info logs an informational message.
func (z *ZapAdapter) Info(msg string, args ...any) { z.s.Infow(msg, args...) }

// Warn logs a warning message.
func (z *ZapAdapter) Warn(msg string, args ...any) { z.s.Warnw(msg, args...) }

// Error logs an error message.
func (z *ZapAdapter) Error(msg string, args ...any) { z.s.Errorw(msg, args...) }

// WithComponent sets the logical component.
func (z *ZapAdapter) WithComponent(c string) *ZapAdapter {
	return &ZapAdapter{s: z.s.With("component", c)}
}

// WithScreen attaches screen and engine identifiers.
func (z *ZapAdapter) WithScreen(screen, engineID string) *ZapAdapter {
	return &ZapAdapter{s: z.s.With("screen", screen, "engine_id", engineID)}
}

// LogCall records execution details for a collaborator call.
func (z *ZapAdapter) LogCall(call string, dur time.Duration, err error) {
	if err != nil {
		z.s.Warnw("Collaborator call failed", "call", call, "duration", dur, "success", false, "error", err.Error())
		return
	}
	z.s.Debugw("Collaborator call completed", "call", call, "duration", dur, "success", true)
}

// ErrorWithStack logs an error with zap's stack trace field.
func (z *ZapAdapter) ErrorWithStack(err error, msg string, args ...any) {
	args = append(args, "error", err.Error(), "error_type", fmt.Sprintf("%T", err), zap.StackSkip("stack_trace", 1))
	z.s.Errorw(msg, args...)
}

// Sync flushes buffered entries.
func (z *ZapAdapter) Sync() error { return z.s.Sync() }
