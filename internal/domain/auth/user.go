package auth

import "time"

// Well-known account IDs created by the initial migration.
const (
	SuperUserID uint = 1
	GuestUserID uint = 2
)

// User is the account aggregate. PasswordHash is a bcrypt digest; MFASecret
// holds a staged or confirmed TOTP secret depending on MFAEnabled.
type User struct {
	ID           uint
	Email        string
	PasswordHash string
	FullName     string

	Verified bool
	Enabled  bool

	MFASecret  string
	MFAEnabled bool

	// Presentation preferences the web client renders with.
	AvatarURL string
	Theme     string
	Font      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SuperUser reports whether this account bypasses all access control.
func (u *User) SuperUser() bool {
	return u.ID == SuperUserID
}

// Guest reports whether this is the shared anonymous account.
func (u *User) Guest() bool {
	return u.ID == GuestUserID
}

// SessionRecord is the persisted trace of an issued access token, keyed by
// the token's unique ID. Several records may exist per user when a token was
// refreshed near its expiry.
type SessionRecord struct {
	TokenID   string
	UserID    uint
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// VerificationCode is a one-time code mailed to a user to confirm an email
// address or recover an account.
type VerificationCode struct {
	Code      string
	UserID    uint
	Purpose   string
	ExpiresAt time.Time
}

// Verification code purposes.
const (
	PurposeVerifyEmail     = "verify_email"
	PurposeRecoverPassword = "recover_password"
)

// RecoveryCode is a single-use fallback for a lost authenticator. The code
// itself is stored hashed.
type RecoveryCode struct {
	ID       uint
	UserID   uint
	CodeHash string
	Used     bool
}
