// Package outcome holds the failure taxonomy shared by the calendar services.
//
// Every service operation returns mo.Result[T]. When the result is an error,
// the error is a *Failure and its Kind tells the transport how to answer.
package outcome

import (
	"errors"
	"fmt"

	"github.com/cyp0633/calshare/server/storage"
	"github.com/samber/mo"
)

// Kind classifies a failed operation.
type Kind string

const (
	NotFound  Kind = "not_found"
	Forbidden Kind = "forbidden"
	Conflict  Kind = "conflict"
	Invalid   Kind = "invalid"
	Upstream  Kind = "upstream"
)

// Failure is the error side of every service result.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// New builds a failure without a cause.
func New(kind Kind, msg string) *Failure {
	return &Failure{Kind: kind, Message: msg}
}

func NotFoundf(format string, args ...any) *Failure {
	return New(NotFound, fmt.Sprintf(format, args...))
}

func Forbiddenf(format string, args ...any) *Failure {
	return New(Forbidden, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) *Failure {
	return New(Conflict, fmt.Sprintf(format, args...))
}

func Invalidf(format string, args ...any) *Failure {
	return New(Invalid, fmt.Sprintf(format, args...))
}

// FromStore maps a store error onto the taxonomy. storage.ErrNotFound becomes
// NotFound with msg; everything else is an Upstream failure wrapping err.
func FromStore(err error, msg string) *Failure {
	if errors.Is(err, storage.ErrNotFound) {
		return &Failure{Kind: NotFound, Message: msg, Err: err}
	}
	return &Failure{Kind: Upstream, Message: "storage failure", Err: err}
}

// KindOf extracts the kind of err. Errors that are not failures count as Upstream.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return Upstream
}

// As returns err as a *Failure, wrapping foreign errors as Upstream.
func As(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: Upstream, Message: "unexpected failure", Err: err}
}

// Fail wraps f into an error result.
func Fail[T any](f *Failure) mo.Result[T] {
	return mo.Err[T](f)
}
