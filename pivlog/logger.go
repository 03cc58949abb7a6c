// Package pivlog is the leveled-logger interface used throughout pivert,
// modeled on the teacher's example/shared.LogI: a small interface any
// concrete backend implements, with a Nop default for call sites that
// don't have a logger configured.
package pivlog

import (
	"fmt"
	"log/slog"
	"os"
)

// Logger hides the concrete backend from everything that only needs to
// emit leveled, occasionally formatted messages.
type Logger interface {
	VerboseMsg(message string)
	VerboseMsgf(format string, args ...interface{})
	InfoMsg(message string)
	InfoMsgf(format string, args ...interface{})
	DebugMsg(message string)
	DebugMsgf(format string, args ...interface{})
	IsDebugEnabled() bool
	ErrorMsg(err error, message string)
	ErrorMsgf(err error, format string, args ...interface{})
}

// NopLogger discards every message. It is the zero value callers get
// from Nop(nil).
type NopLogger struct{}

var _ Logger = (*NopLogger)(nil)

func (NopLogger) VerboseMsg(string)                      {}
func (NopLogger) VerboseMsgf(string, ...interface{})     {}
func (NopLogger) InfoMsg(string)                         {}
func (NopLogger) InfoMsgf(string, ...interface{})        {}
func (NopLogger) DebugMsg(string)                        {}
func (NopLogger) DebugMsgf(string, ...interface{})       {}
func (NopLogger) IsDebugEnabled() bool                   { return false }
func (NopLogger) ErrorMsg(error, string)                 {}
func (NopLogger) ErrorMsgf(error, string, ...interface{}) {}

// Nop returns l unchanged if non-nil, else a NopLogger.
func Nop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}

// Level selects the minimum severity SlogLogger emits.
type Level int

const (
	LevelError Level = iota
	LevelInfo
	LevelVerbose
	LevelDebug
)

// SlogLogger is the default Logger backend, writing through log/slog.
type SlogLogger struct {
	level Level
	log   *slog.Logger
}

var _ Logger = (*SlogLogger)(nil)

// New returns a SlogLogger writing to os.Stderr at the given level.
func New(level Level) *SlogLogger {
	return &SlogLogger{
		level: level,
		log:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

func (l *SlogLogger) enabled(level Level) bool {
	return l.level >= level
}

func (l *SlogLogger) VerboseMsg(message string) {
	if l.enabled(LevelVerbose) {
		l.log.Debug(message)
	}
}

func (l *SlogLogger) VerboseMsgf(format string, args ...interface{}) {
	l.VerboseMsg(fmt.Sprintf(format, args...))
}

func (l *SlogLogger) InfoMsg(message string) {
	if l.enabled(LevelInfo) {
		l.log.Info(message)
	}
}

func (l *SlogLogger) InfoMsgf(format string, args ...interface{}) {
	l.InfoMsg(fmt.Sprintf(format, args...))
}

func (l *SlogLogger) DebugMsg(message string) {
	if l.enabled(LevelDebug) {
		l.log.Debug(message)
	}
}

func (l *SlogLogger) DebugMsgf(format string, args ...interface{}) {
	l.DebugMsg(fmt.Sprintf(format, args...))
}

func (l *SlogLogger) IsDebugEnabled() bool {
	return l.enabled(LevelDebug)
}

func (l *SlogLogger) ErrorMsg(err error, message string) {
	l.log.Error(message, "err", err)
}

func (l *SlogLogger) ErrorMsgf(err error, format string, args ...interface{}) {
	l.ErrorMsg(err, fmt.Sprintf(format, args...))
}
