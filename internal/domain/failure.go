package domain

import (
	"errors"
	"strings"
)

// Kind classifies a Failure into one of the categories surfaced at the API boundary.
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindInternal
)

// String returns a stable lower-case label for the kind.
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// FieldError is a single field scoped message.
type FieldError struct {
	Field   string
	Message string
}

// Failure is the error value returned for expected business outcomes. It carries
// one or more field scoped messages in the order they were produced.
type Failure struct {
	Kind   Kind
	Errors []FieldError
	Err    error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	if len(f.Errors) == 0 {
		if f.Err != nil {
			return f.Kind.String() + ": " + f.Err.Error()
		}
		return f.Kind.String()
	}
	parts := make([]string, 0, len(f.Errors))
	for _, fe := range f.Errors {
		if fe.Field == "" {
			parts = append(parts, fe.Message)
			continue
		}
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes the underlying cause, if any.
func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// Is matches a message-less failure of the same kind, so callers can keep
// per-kind sentinels and compare with errors.Is.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok || f == nil || t == nil {
		return false
	}
	return len(t.Errors) == 0 && t.Err == nil && t.Kind == f.Kind
}

// Message returns the first message carried by the failure.
func (f *Failure) Message() string {
	if f == nil || len(f.Errors) == 0 {
		return ""
	}
	return f.Errors[0].Message
}

func newFailure(kind Kind, field, message string) *Failure {
	return &Failure{Kind: kind, Errors: []FieldError{{Field: field, Message: message}}}
}

// BadRequest builds a failure for malformed or invariant violating input.
func BadRequest(field, message string) *Failure {
	return newFailure(KindBadRequest, field, message)
}

// NotFound builds a failure for a missing room or user.
func NotFound(field, message string) *Failure {
	return newFailure(KindNotFound, field, message)
}

// Forbidden builds a failure for an actor lacking privileges.
func Forbidden(field, message string) *Failure {
	return newFailure(KindForbidden, field, message)
}

// Unauthorized builds a failure for a missing or unknown caller credential.
func Unauthorized(field, message string) *Failure {
	return newFailure(KindUnauthorized, field, message)
}

// Internal wraps an unexpected error.
func Internal(err error) *Failure {
	return &Failure{Kind: KindInternal, Errors: []FieldError{{Message: "An unexpected error occurred."}}, Err: err}
}

// ValidationFailure wraps validator output as a BadRequest failure.
func ValidationFailure(errs []FieldError) *Failure {
	out := make([]FieldError, len(errs))
	copy(out, errs)
	return &Failure{Kind: KindBadRequest, Errors: out}
}

// KindOf reports the kind of err. Errors that are not failures are internal.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindInternal
}

// AsFailure converts any error into a failure, wrapping unknown errors as internal.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return Internal(err)
}
