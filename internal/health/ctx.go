package health

import "log/slog"

// Ctx carries the logger a component reports through. The zero Ctx logs nothing.
type Ctx struct {
	Logger *slog.Logger
}

// NewCtx returns a Ctx that logs to logger.
func NewCtx(logger *slog.Logger) Ctx {
	return Ctx{Logger: logger}
}

// With returns a Ctx whose logger adds args to every record.
func (c Ctx) With(args ...any) Ctx {
	if c.Logger == nil {
		return c
	}
	return Ctx{Logger: c.Logger.With(args...)}
}

func (c Ctx) LogErr(err error, args ...any) error {
	return LogErr(c.Logger, err, args...)
}

func (c Ctx) LogNewErr(msg string, args ...any) error {
	return LogNewErr(c.Logger, msg, args...)
}

func (c Ctx) LogWrappedErr(msg string, cause error, args ...any) error {
	return LogWrappedErr(c.Logger, msg, cause, args...)
}

// Log logs msg at info level.
func (c Ctx) Log(msg string, args ...any) {
	if c.Logger != nil {
		c.Logger.Info(msg, args...)
	}
}

// Debug logs msg at debug level.
func (c Ctx) Debug(msg string, args ...any) {
	if c.Logger != nil {
		c.Logger.Debug(msg, args...)
	}
}
