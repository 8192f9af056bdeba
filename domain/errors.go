package domain

import (
	"errors"
	"fmt"
)

// Error is a domain precondition violation. It carries a descriptive message
// and nothing else - no codes, no wrapped causes. Aggregates raise these for
// rejected commands; command handlers reuse the type for secondary-lookup
// misses ("Session not found"). Storage failures never use it.
type Error struct {
	msg string
}

// Error returns the descriptive message.
func (e *Error) Error() string {
	return e.msg
}

// NewError creates a domain error with the given message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// Errorf creates a domain error with a formatted message.
func Errorf(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// IsDomainError reports whether err is (or wraps) a domain precondition
// violation, letting callers separate business rejections from
// infrastructure failures.
func IsDomainError(err error) bool {
	var domainErr *Error
	return errors.As(err, &domainErr)
}
