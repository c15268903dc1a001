package auth

import "errors"

// Error taxonomy shared by every component. Callers match with errors.Is;
// components wrap with fmt.Errorf("...: %w", err).
var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAlreadyExists         = errors.New("already exists")
	ErrUnknownClient         = errors.New("unknown client")
	ErrInvalidRedirect       = errors.New("invalid redirect url")
	ErrProviderNotConfigured = errors.New("provider not configured")
	ErrStateInvalid          = errors.New("federation state invalid")
	ErrAuthFailed            = errors.New("authentication failed")
	ErrSessionExpired        = errors.New("session expired")
	ErrUnauthenticated       = errors.New("unauthenticated")

	ErrNotFound        = errors.New("not found")
	ErrUnknownProvider = errors.New("unknown provider")
)
