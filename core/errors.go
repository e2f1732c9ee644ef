package core

import "errors"

// Code classifies an error for the boundary layer
type Code string

const (
	CodeInvalidCredentials    Code = "invalid_credentials"
	CodeInvalidToken          Code = "invalid_token"
	CodeTokenRevoked          Code = "token_revoked"
	CodeAuthorizationMismatch Code = "authorization_mismatch"
	CodeRateLimited           Code = "rate_limited"
	CodeNotFound              Code = "not_found"
	CodeInvalidInput          Code = "invalid_input"
	CodeConflict              Code = "conflict"
	CodeUnauthenticated       Code = "unauthenticated"
	CodeUnavailable           Code = "unavailable"
	CodeInternal              Code = "internal"
)

const (
	ReasonLimitExceeded  = "limit_exceeded"
	ReasonAlreadyPending = "already_pending"
)

// Error is a classified, caller-facing failure
type Error struct {
	Code    Code
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on code, and on reason when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Reason != "" && t.Reason != e.Reason {
		return false
	}
	return t.Code == e.Code
}

// Wrap classifies err under code.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first classified error in the chain.
func CodeOf(err error) Code {
	var typed *Error
	if !errors.As(err, &typed) {
		return CodeInternal
	}
	return typed.Code
}

// ReasonOf returns the reason of the first classified error in the chain.
func ReasonOf(err error) string {
	var typed *Error
	if !errors.As(err, &typed) {
		return ""
	}
	return typed.Reason
}

var (
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "Incorrect email or password"}
	ErrWrongPassword      = &Error{Code: CodeInvalidCredentials, Message: "Wrong password"}

	ErrInvalidToken = &Error{Code: CodeInvalidToken, Message: "Could not validate credentials"}
	ErrTokenRevoked = &Error{Code: CodeTokenRevoked, Message: "Token is invalidated"}

	ErrAuthorizationMismatch = &Error{Code: CodeAuthorizationMismatch, Message: "You cant access this user."}

	ErrRateLimited    = &Error{Code: CodeRateLimited, Message: "Request limited"}
	ErrLimitExceeded  = &Error{Code: CodeRateLimited, Reason: ReasonLimitExceeded, Message: "You cannot request this action, try one month later"}
	ErrAlreadyPending = &Error{Code: CodeRateLimited, Reason: ReasonAlreadyPending, Message: "You should check your inbox, your email is still valid."}

	ErrUserNotFound  = &Error{Code: CodeNotFound, Message: "User not found"}
	ErrResetNotFound = &Error{Code: CodeNotFound, Message: "The password reset request has expired"}

	ErrInvalidInput     = &Error{Code: CodeInvalidInput, Message: "Invalid request"}
	ErrInvalidDevice    = &Error{Code: CodeInvalidInput, Message: "Device is wrong"}
	ErrInvalidPassword  = &Error{Code: CodeInvalidInput, Message: "The password must be 4-50 characters with a digit, a lowercase and an uppercase letter"}
	ErrPasswordReused   = &Error{Code: CodeInvalidInput, Message: "The new password must differ from the old password"}
	ErrEmptyUpdate      = &Error{Code: CodeInvalidInput, Message: "You must fill at least one field"}
	ErrFieldTooLong     = &Error{Code: CodeInvalidInput, Message: "Field exceeds the maximum length"}
	ErrEmailTaken       = &Error{Code: CodeConflict, Message: "The user with this email already exists in the system."}
	ErrAlreadyActivated = &Error{Code: CodeConflict, Message: "The User had been already activated."}

	ErrUnauthenticated = &Error{Code: CodeUnauthenticated, Message: "Not authenticated"}

	ErrStoreUnavailable = &Error{Code: CodeUnavailable, Message: "store operation failed"}
)
