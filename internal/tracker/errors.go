package tracker

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes, matchable with errors.Is. Every rejected mutation wraps
// exactly one of these.
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrDependencyUnmet = errors.New("dependency unmet")
	ErrAuthentication  = errors.New("authentication error")
	ErrInternal        = errors.New("internal error")
)

// Error wraps a rejection with its class and a caller-facing message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

func unmetf(format string, args ...any) error {
	return &Error{Kind: ErrDependencyUnmet, Msg: fmt.Sprintf(format, args...)}
}

func internalf(format string, args ...any) error {
	return &Error{Kind: ErrInternal, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) error {
	msg := "dependency cycle"
	if len(path) > 0 {
		msg = "dependency cycle: " + strings.Join(path, " -> ")
	}
	return &Error{Kind: ErrValidation, Msg: msg}
}
