package auth

import (
	"context"
	"time"
)

// Repository abstracts the persistent store behind the authority. Lookup
// methods return (nil, nil) when the row does not exist; the authority maps
// absence onto its own sentinel errors.
type Repository interface {
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id uint) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) error

	CreateSession(ctx context.Context, rec *SessionRecord) error
	SessionByTokenID(ctx context.Context, tokenID string) (*SessionRecord, error)
	DeleteSession(ctx context.Context, tokenID string) error
	DeleteSessionsForUser(ctx context.Context, userID uint) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	CreateVerificationCode(ctx context.Context, code *VerificationCode) error
	// ConsumeVerificationCode atomically fetches and deletes a code. It
	// returns (nil, nil) when the code is unknown or already consumed.
	ConsumeVerificationCode(ctx context.Context, code, purpose string) (*VerificationCode, error)

	CreateRecoveryCodes(ctx context.Context, codes []RecoveryCode) error
	RecoveryCodesForUser(ctx context.Context, userID uint) ([]RecoveryCode, error)
	MarkRecoveryCodeUsed(ctx context.Context, id uint) error
}
