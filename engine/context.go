package engine

import (
	"context"

	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/logging"
)

// Context is handed to every handler. It is only valid on the main context
// and must not be retained by collaborator goroutines.
type Context struct {
	*loggerAdapter
	e     *Engine
	input string
}

func (e *Engine) newContext(input string) *Context {
	return &Context{loggerAdapter: newLoggerAdapter(e.logger), e: e, input: input}
}

// Context returns the engine context. It is cancelled on Dispose.
func (c *Context) Context() context.Context { return c.e.ctx }

// Engine returns the owning engine.
func (c *Context) Engine() *Engine { return c.e }

// Input returns the name of the input that triggered the handler.
func (c *Context) Input() string { return c.input }

// Session returns the Session Context.
func (c *Context) Session() core.SessionContext { return c.e.sc }

// User returns the current user or nil when logged out.
func (c *Context) User() *core.User { return c.e.sc.CurrentUser.Current() }

// LoggedIn reports whether a user is present.
func (c *Context) LoggedIn() bool { return c.e.sc.CurrentUser.IsLoggedIn() }

// Enabled evaluates a feature flag for the current user.
func (c *Context) Enabled(flag string) bool {
	return c.e.sc.Config.Enabled(flag, c.User())
}

// Flag returns a configuration value as string.
func (c *Context) Flag(key string) string { return c.e.sc.Config.String(key) }

// Track records an analytics event. Events are sent in handler order, so they
// interleave with emissions exactly as the handler performs them.
func (c *Context) Track(event string, properties map[string]any) {
	c.e.sc.Analytics.Track(event, properties)
}

// Errors returns the engine-wide error output.
func (c *Context) Errors() *Output[string] { return c.e.errOut }

// Cancel cancels the in-flight call started with key. Its progress output is
// settled to false and its result discarded. It reports whether a call was
// cancelled.
func (c *Context) Cancel(key string) bool {
	tok, ok := c.e.calls[key]
	if !ok {
		return false
	}
	delete(c.e.calls, key)
	tok.cancel()
	if tok.settle != nil {
		tok.settle()
	}
	return true
}

// loggerAdapter wraps a logging.Logger and exposes convenience methods
// (LogDebug/LogInfo/LogWarn/LogError). A nil logger becomes a NoOpLogger.
type loggerAdapter struct {
	logger logging.Logger
}

func newLoggerAdapter(l logging.Logger) *loggerAdapter {
	if l == nil {
		l = logging.NoOpLogger{}
	}
	return &loggerAdapter{logger: l}
}

// Logger returns the underlying logger.
func (l *loggerAdapter) Logger() logging.Logger {
	return l.logger
}

// LogDebug logs a debug message.
func (l *loggerAdapter) LogDebug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

// LogInfo logs an info message.
func (l *loggerAdapter) LogInfo(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// LogWarn logs a warning message.
func (l *loggerAdapter) LogWarn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// LogError logs an error message.
func (l *loggerAdapter) LogError(msg string, args ...any) {
	l.logger.Error(msg, args...)
}
