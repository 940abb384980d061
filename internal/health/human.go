package health

import "errors"

// HumanErr is an Err that also has a message suitable for end users.
type HumanErr struct {
	HumanMessage string
	Err
}

// NewHumanErr returns an error whose Error() is humanMsg, while LogErr logs msg and args.
func NewHumanErr(humanMsg string, msg string, args ...any) error {
	return &HumanErr{HumanMessage: humanMsg, Err: Err{Message: msg, Attrs: toAttrs(args)}}
}

// WrapHuman is NewHumanErr with a wrapped cause.
func WrapHuman(humanMsg string, msg string, cause error, args ...any) error {
	h := NewHumanErr(humanMsg, msg, args...).(*HumanErr)
	h.wrapped = cause
	return h
}

// Error returns the human message.
func (e *HumanErr) Error() string {
	return e.HumanMessage
}

// Unwrap returns the wrapped cause, so errors.Is sees through a HumanErr.
func (e *HumanErr) Unwrap() error {
	return e.wrapped
}

// HumanMessage returns the human message of the first HumanErr in err's chain, or err.Error() if there is none.
func HumanMessage(err error) string {
	if err == nil {
		return ""
	}
	var h *HumanErr
	if errors.As(err, &h) && h.HumanMessage != "" {
		return h.HumanMessage
	}
	return err.Error()
}
