package auth

import "errors"

// Sentinel errors returned by credential and token verification. Handlers map
// these onto HTTP status codes; everything else is treated as an internal
// failure.
var (
	// ErrInvalidCredentials covers a bad email/password pair. Deliberately
	// indistinguishable from a missing account.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidSignature means the token was not signed with our key.
	ErrInvalidSignature = errors.New("token signature is invalid")
	// ErrMalformed means the token could not be parsed at all.
	ErrMalformed = errors.New("token is malformed")
	// ErrInvalidJWT means the token parsed but its claims are unusable.
	ErrInvalidJWT = errors.New("token claims are invalid")

	// ErrSessionNotFound means the token is genuine but no live session
	// backs it, typically after sign-out or server restart.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionInactive means the session exceeded the inactivity budget.
	ErrSessionInactive = errors.New("session is inactive")

	// ErrUserNotFound is returned for missing and for disabled accounts.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserNotVerified means the account exists but the email address
	// was never confirmed.
	ErrUserNotVerified = errors.New("user is not verified")

	// ErrMFANotVerified gates privileged operations until the current
	// session passes a TOTP challenge.
	ErrMFANotVerified = errors.New("mfa challenge not passed")
	// ErrInvalidMFA covers every MFA verification failure. Deliberately
	// generic so a caller cannot probe whether MFA is configured.
	ErrInvalidMFA = errors.New("invalid mfa code")
	// ErrMFANotEnabled is returned when a challenge is attempted against
	// an account with no registered authenticator.
	ErrMFANotEnabled = errors.New("mfa is not enabled")

	// ErrInvalidVerificationCode covers expired, consumed and unknown
	// account verification codes.
	ErrInvalidVerificationCode = errors.New("invalid verification code")
)
