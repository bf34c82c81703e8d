// Package common defines shared constants and sentinel errors used across
// the server layers of BetClever. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Workflow errors.
	ErrorLocked     = errors.New("locked")
	ErrorIncomplete = errors.New("incomplete")

	// ErrorRootAdmin is returned when an operation would demote or delete
	// the root admin account. It unwraps to ErrorForbidden.
	ErrorRootAdmin = &wrapped{msg: "root admin account is protected", base: ErrorForbidden}

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrResetTokenInvalid   = errors.New("password reset token invalid or expired")
)

type wrapped struct {
	msg  string
	base error
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.base }
