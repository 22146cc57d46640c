package model

import "errors"

// Error taxonomy shared across the auth and upload pipelines. Callers
// classify with errors.Is; everything else a driver returns is treated
// as an upload failure.
var (
	// ErrAuthConfig means the OAuth client settings are absent. Fatal
	// for all YouTube operations until the environment is fixed.
	ErrAuthConfig = errors.New("oauth client not configured")

	// ErrAuthExchange means the authorization server rejected the code
	// exchange or token refresh. User-retriable.
	ErrAuthExchange = errors.New("authorization exchange failed")

	// ErrLoginTimeout means the logged-in signal element never showed
	// up within the platform's wait bound.
	ErrLoginTimeout = errors.New("login not completed in time")

	// ErrUnsupportedPlatform is an input error, never retried.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrAuthRequired means the credential is absent or was rejected
	// by the remote platform. Drives exactly one re-auth retry in the
	// publisher, then becomes terminal.
	ErrAuthRequired = errors.New("authentication required")

	// ErrUpload is the terminal per-platform upload failure.
	ErrUpload = errors.New("upload failed")
)
