package auth

import (
	"context"
	"fmt"
)

// Principal is the verified caller handed to the calendar services
type Principal struct {
	ID    string
	Email string
}

// Credentials represents authentication credentials
type Credentials struct {
	Username string
	Password string
}

// ErrorType represents the type of authentication error
type ErrorType string

const (
	ErrInvalidCredentials ErrorType = "invalid_credentials"
	ErrUnauthorized       ErrorType = "unauthorized"
	ErrDuplicateUser      ErrorType = "duplicate_user"
)

// Error represents an authentication-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Authenticator turns credentials into a principal. Authorization on
// calendars happens later, inside the services.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*Principal, error)
}
