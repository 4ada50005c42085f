package auth

import "errors"

var (
	ErrInvalidInput           = errors.New("auth: invalid input")
	ErrInvalidCredentials     = errors.New("auth: invalid credentials")
	ErrAccountLocked          = errors.New("auth: account locked")
	ErrTokenExpired           = errors.New("auth: token expired")
	ErrTokenInvalid           = errors.New("auth: token invalid")
	ErrTokenRevoked           = errors.New("auth: token revoked")
	ErrTokenKindMismatch      = errors.New("auth: token kind mismatch")
	ErrInsufficientPermission = errors.New("auth: insufficient permission")
	ErrUnknownRole            = errors.New("auth: unknown role")
	ErrNotFound               = errors.New("auth: not found")
	ErrAlreadyExists          = errors.New("auth: already exists")
	ErrStoreUnavailable       = errors.New("auth: store unavailable")
)
