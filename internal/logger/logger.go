// Package logger provides a thin wrapper around zerolog.Logger used
// throughout the gateway client: a role-scoped structured logger for the
// two principal kinds this core runs as ("user" and "instance"), plus
// context-aware helpers for components that thread a context.Context
// through their calls.
package logger

import (
	"context"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog.Logger so the full zerolog API stays available
// while this package adds its own constructors.
type Logger struct {
	zerolog.Logger
}

// New constructs a *Logger for the given role ("user" or "instance") at
// the given level. Output is JSON on stdout.
func New(role string, level zerolog.Level) *Logger {
	zerolog.SetGlobalLevel(level)
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return runtime.FuncForPC(pc).Name()
	}
	zerolog.CallerFieldName = "func"

	l := zerolog.New(os.Stdout).With().
		Str("role", role).
		Timestamp().
		Caller().
		Logger()

	return &Logger{l}
}

// Nop returns a *Logger that discards all output, for tests.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// WithSession returns a child logger annotated with a session id, so every
// log line for a SocketSession's lifetime can be correlated.
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{l.With().Str("session_id", sessionID).Logger()}
}

// WithContext attaches the receiver to ctx for later retrieval via
// FromContext.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.Logger.WithContext(ctx)
}

// FromContext extracts the logger attached to ctx. If none was
// attached it falls back to zerolog.DefaultContextLogger, or to a
// disabled logger when that is nil (never returns nil).
func FromContext(ctx context.Context) *Logger {
	return &Logger{*log.Ctx(ctx)}
}
