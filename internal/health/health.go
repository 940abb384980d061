// Package health builds errors that carry slog-style attributes, and logs them with those attributes intact.
//
//	err := health.Wrap("write document", err, "document", id)
//	return health.LogErr(logger, err)
//
// HumanErr additionally carries a message meant for end users; the CLI prints that instead of the log-oriented text.
package health

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Err is an error with a message, optional attributes, and an optional wrapped cause.
type Err struct {
	Message string
	Attrs   []slog.Attr
	wrapped error
}

// Error formats e as `message[k=v ...] via cause`.
func (e *Err) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Attrs) > 0 {
		b.WriteByte('[')
		writeAttrs(&b, e.Attrs)
		b.WriteByte(']')
	}
	if e.wrapped != nil {
		b.WriteString(" via ")
		b.WriteString(e.wrapped.Error())
	}
	return b.String()
}

func (e *Err) Unwrap() error {
	return e.wrapped
}

// NewErr returns an error with msg and attributes. args take the same form as slog's Info args: alternating keys and values, or slog.Attrs.
func NewErr(msg string, args ...any) error {
	return &Err{Message: msg, Attrs: toAttrs(args)}
}

// Wrap returns an error with msg and attributes that wraps cause. A nil cause is replaced with an error saying so rather than panicking.
func Wrap(msg string, cause error, args ...any) error {
	if cause == nil {
		cause = errors.New("health.Wrap called with a nil error")
	}
	return &Err{Message: msg, Attrs: toAttrs(args), wrapped: cause}
}

// LogErr logs err at error level and returns it unchanged, so that logging and returning fit on one line. An *Err (or *HumanErr) is logged under its own message
// with its attributes, a "via" attribute for its cause, then args. Other errors are logged as err.Error() with args. A nil logger or nil err logs nothing.
func LogErr(logger *slog.Logger, err error, args ...any) error {
	if logger == nil || err == nil {
		return err
	}

	var e *Err
	switch v := err.(type) {
	case *HumanErr:
		e = &v.Err
	case *Err:
		e = v
	default:
		logger.Error(err.Error(), args...)
		return err
	}

	all := make([]any, 0, len(e.Attrs)+len(args)+1)
	for _, a := range e.Attrs {
		all = append(all, a)
	}
	if e.wrapped != nil {
		all = append(all, slog.String("via", e.wrapped.Error()))
	}
	all = append(all, args...)
	logger.Error(e.Message, all...)
	return err
}

// LogNewErr is LogErr(logger, NewErr(msg, args...)).
func LogNewErr(logger *slog.Logger, msg string, args ...any) error {
	return LogErr(logger, NewErr(msg, args...))
}

// LogWrappedErr is LogErr(logger, Wrap(msg, cause, args...)).
func LogWrappedErr(logger *slog.Logger, msg string, cause error, args ...any) error {
	return LogErr(logger, Wrap(msg, cause, args...))
}

func toAttrs(args []any) []slog.Attr {
	if len(args) == 0 {
		return nil
	}
	// slog.Group applies the same key/value pairing rules as Logger.Info, including !BADKEY.
	return slog.Group("", args...).Value.Group()
}

// writeAttrs writes attrs as space-separated key=value pairs, quoting values that need it.
func writeAttrs(b *strings.Builder, attrs []slog.Attr) {
	for i, a := range attrs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(a.Key)
		b.WriteByte('=')
		v := a.Value.Resolve().String()
		if v == "" || strings.ContainsAny(v, " \t\n\"=") {
			v = strconv.Quote(v)
		}
		b.WriteString(v)
	}
}
