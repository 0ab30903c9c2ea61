// Package logx implements the framework's logger: a construction-time
// list of write policies that every log(level, caller, fmt, args) call
// fans out to. Writers are pure sinks: no allocation,
// no buffering of their own; they lean on whatever sink they wrap
// (stdout, zerolog, /dev/null) to do that.
package logx

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level orders severity: DEBUG < INFO < WARNING < ERROR < CRITICAL.
type Level int

const (
	Debug Level = iota
	Info
	Warning
	Error
	Critical
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Policy is a single write sink. A null policy (NullPolicy) satisfies
// the contract by doing nothing, which is legal; Logger never assumes
// a policy actually writes anywhere.
type Policy interface {
	Write(level Level, caller string, msg string)
}

// Logger fans every log call out to a fixed, construction-time list of
// policies. There is no way to add or remove a policy after
// construction: composition happens once, at startup, mirroring the
// source's compile-time policy list.
type Logger struct {
	minLevel Level
	policies []Policy
}

// New composes a Logger from the given policies, filtering out any
// level below minLevel before it reaches a policy.
func New(minLevel Level, policies ...Policy) *Logger {
	return &Logger{minLevel: minLevel, policies: policies}
}

// Log fans a formatted message out to every composed policy, provided
// level meets the logger's minimum.
func (l *Logger) Log(level Level, caller string, format string, args ...any) {
	if level < l.minLevel {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	for _, p := range l.policies {
		p.Write(level, caller, msg)
	}
}

func (l *Logger) Debugf(caller, format string, args ...any)    { l.Log(Debug, caller, format, args...) }
func (l *Logger) Infof(caller, format string, args ...any)     { l.Log(Info, caller, format, args...) }
func (l *Logger) Warningf(caller, format string, args ...any)  { l.Log(Warning, caller, format, args...) }
func (l *Logger) Errorf(caller, format string, args ...any)    { l.Log(Error, caller, format, args...) }
func (l *Logger) Criticalf(caller, format string, args ...any) { l.Log(Critical, caller, format, args...) }

// NullPolicy discards every write. Useful for tests and for services
// that opt out of a particular sink without special-casing the caller.
type NullPolicy struct{}

func (NullPolicy) Write(Level, string, string) {}

// MultiPolicy fans a single Write call out to every wrapped policy, in
// order. Composing MultiPolicy with other policies lets a single slot
// in a Logger's list act as several.
type MultiPolicy []Policy

func (m MultiPolicy) Write(level Level, caller, msg string) {
	for _, p := range m {
		p.Write(level, caller, msg)
	}
}

// ConsolePolicy writes "{caller:<20} {level:<12} {message}",
// newline-terminated, to an *os.File destination: the framework's
// default console format.
type ConsolePolicy struct {
	Out *os.File
}

// NewConsolePolicy writes to stdout.
func NewConsolePolicy() ConsolePolicy {
	return ConsolePolicy{Out: os.Stdout}
}

func (c ConsolePolicy) Write(level Level, caller, msg string) {
	fmt.Fprintf(c.Out, "%-20s %-12s %s\n", caller, level.String(), msg)
}

// ZerologPolicy adapts a zerolog.Logger into a Policy, mapping logx's
// five levels onto zerolog's nearest equivalents (zerolog has no
// CRITICAL, so Critical is written as an Error event with a
// critical=true field, avoiding zerolog's process-exiting Fatal).
type ZerologPolicy struct {
	logger zerolog.Logger
}

// NewZerologPolicy wraps an existing zerolog.Logger, configured the way
// the rest of the framework's ambient logging is (JSON to stdout,
// timestamp, caller), per server.go's NewLogger pattern.
func NewZerologPolicy(logger zerolog.Logger) ZerologPolicy {
	return ZerologPolicy{logger: logger}
}

// DefaultZerologLogger builds a zerolog.Logger the way the rest of the
// codebase's ambient logging does: JSON to stdout with timestamp and
// caller, level configurable, pretty console output when pretty is
// true.
func DefaultZerologLogger(level zerolog.Level, pretty bool) zerolog.Logger {
	var w interface {
		Write([]byte) (int, error)
	} = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	zerolog.SetGlobalLevel(level)
	return zerolog.New(w).With().Timestamp().Caller().Str("component", "etfw").Logger()
}

func (z ZerologPolicy) Write(level Level, caller, msg string) {
	var event *zerolog.Event
	switch level {
	case Debug:
		event = z.logger.Debug()
	case Info:
		event = z.logger.Info()
	case Warning:
		event = z.logger.Warn()
	case Error:
		event = z.logger.Error()
	case Critical:
		event = z.logger.Error().Bool("critical", true)
	default:
		event = z.logger.Info()
	}
	event.Str("caller", caller).Msg(msg)
}
