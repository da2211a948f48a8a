package fault

import (
	"errors"
	"fmt"
)

// Class categorizes an error by who has to act on it.
type Class int

const (
	// ClassUser marks invalid input or missing resources. Not recoverable;
	// the caller must change the request.
	ClassUser Class = iota
	// ClassSystem marks remote API failures, guardrail rejections, and
	// partial multi-source failures. Often recoverable via retry or a
	// degraded operation.
	ClassSystem
	// ClassInternal marks violated structural invariants (empty comparison
	// matrix, corrupt merge output). Always a bug; never downgraded.
	ClassInternal
)

// String returns the human-readable class name.
func (c Class) String() string {
	switch c {
	case ClassUser:
		return "user"
	case ClassSystem:
		return "system"
	case ClassInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a classified, user-presentable error. Every terminal error in
// the engine is one of these (possibly wrapping a lower-level cause).
type Error struct {
	// Class is the error category.
	Class Class

	// Message is the human-readable description.
	Message string

	// Remediation lists short, actionable steps, where any exist.
	Remediation []string

	// Recoverable indicates a retry or degraded operation may succeed.
	// Only meaningful for ClassSystem.
	Recoverable bool

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// User creates a ClassUser error with optional remediation steps.
func User(msg string, remediation ...string) *Error {
	return &Error{Class: ClassUser, Message: msg, Remediation: remediation}
}

// System wraps err as a ClassSystem error.
func System(err error, msg string) *Error {
	return &Error{Class: ClassSystem, Message: msg, Recoverable: true, Err: err}
}

// Terminal wraps err as a non-recoverable ClassSystem error.
func Terminal(err error, msg string) *Error {
	return &Error{Class: ClassSystem, Message: msg, Err: err}
}

// Internal creates a ClassInternal error. Use for invariant violations only.
func Internal(msg string) *Error {
	return &Error{Class: ClassInternal, Message: msg}
}

// ClassOf extracts the class of err, defaulting to ClassSystem for
// unclassified errors.
func ClassOf(err error) Class {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ClassSystem
}

// IsRecoverable reports whether err is a recoverable system error.
func IsRecoverable(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class == ClassSystem && fe.Recoverable
	}
	return false
}
