package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies the errors surfaced by the auth flow.
type Kind string

const (
	InvalidEmailDomain Kind = "invalid_email_domain"
	PasswordTooShort   Kind = "password_too_short"
	PasswordMismatch   Kind = "password_mismatch"
	ProfileIncomplete  Kind = "profile_incomplete"
	InvalidCredentials Kind = "invalid_credentials"
	EmailNotVerified   Kind = "email_not_verified"
	NotAuthenticated   Kind = "not_authenticated"
	Unknown            Kind = "unknown"
)

// Messages shown to the user for the provider-originated kinds.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgEmailNotVerified   = "Please verify your email before signing in."
	MsgNotAuthenticated   = "You must be signed in to do that"
)

// Error is the typed result of a failed auth operation.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Local reports whether the error was raised before contacting the provider.
func (e *Error) Local() bool {
	switch e.Kind {
	case InvalidEmailDomain, PasswordTooShort, PasswordMismatch, ProfileIncomplete:
		return true
	}
	return false
}

// KindOf returns the Kind carried by err, or Unknown.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Unknown
}

func newError(k Kind, msg string) *Error { return &Error{Kind: k, Message: msg} }

var (
	// ErrNotAuthenticated is returned by operations that need an identity.
	ErrNotAuthenticated = newError(NotAuthenticated, MsgNotAuthenticated)
	// ErrProfileIncomplete blocks a profile submission with a blank required field.
	ErrProfileIncomplete = newError(ProfileIncomplete, "Please fill in all required fields")
)

// Coded is implemented by provider errors that carry a machine-readable code.
type Coded interface {
	error
	ErrorCode() string
}

// Provider error codes understood by Translate.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailNotConfirmed  = "email_not_confirmed"
	CodeNotAuthenticated   = "not_authenticated"
)

// Translate maps a provider error onto the auth taxonomy. Structured codes
// win; message substrings are only consulted when no known code is present.
// Errors that already are *Error pass through unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var coded Coded
	if errors.As(err, &coded) {
		switch coded.ErrorCode() {
		case CodeInvalidCredentials:
			return &Error{Kind: InvalidCredentials, Message: MsgInvalidCredentials, Cause: err}
		case CodeEmailNotConfirmed:
			return &Error{Kind: EmailNotVerified, Message: MsgEmailNotVerified, Cause: err}
		case CodeNotAuthenticated:
			return &Error{Kind: NotAuthenticated, Message: MsgNotAuthenticated, Cause: err}
		}
	}
	return translateMessage(err)
}

// translateMessage is the compatibility shim for providers that only report
// human-readable messages.
func translateMessage(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Invalid login credentials"):
		return &Error{Kind: InvalidCredentials, Message: MsgInvalidCredentials, Cause: err}
	case strings.Contains(msg, "Email not confirmed"):
		return &Error{Kind: EmailNotVerified, Message: MsgEmailNotVerified, Cause: err}
	}
	return &Error{Kind: Unknown, Message: msg, Cause: err}
}

func errPasswordTooShort(min int) *Error {
	return newError(PasswordTooShort, fmt.Sprintf("Password must be at least %d characters", min))
}
