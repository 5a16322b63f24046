package storage

import (
	"time"

	"gorm.io/datatypes"
)

// User is the persisted account row.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	FullName     string
	Verified     bool `gorm:"not null;default:false"`
	Enabled      bool `gorm:"not null;default:true"`
	MFASecret    string
	MFAEnabled   bool `gorm:"not null;default:false"`
	AvatarURL    string
	Theme        string
	Font         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is the persisted trace of an issued access token, keyed by the
// token's unique ID.
type Session struct {
	TokenID   string `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	IssuedAt  time.Time
	ExpiresAt time.Time `gorm:"index"`
}

// VerificationCode is a one-time emailed code. Rows are deleted on
// consumption.
type VerificationCode struct {
	Code      string `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	Purpose   string `gorm:"not null"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RecoveryCode is a hashed single-use MFA fallback code.
type RecoveryCode struct {
	ID       uint   `gorm:"primaryKey"`
	UserID   uint   `gorm:"index;not null"`
	CodeHash string `gorm:"not null"`
	Used     bool   `gorm:"not null;default:false"`
}

// Notification is a persisted message for one user. Metadata holds the
// kind-specific JSON payload as-is.
type Notification struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	Kind      string `gorm:"not null"`
	Message   string
	Metadata  datatypes.JSON
	Read      bool `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// FriendRequest links two users with a lifecycle status.
type FriendRequest struct {
	ID         uint   `gorm:"primaryKey"`
	FromUserID uint   `gorm:"index;not null"`
	ToUserID   uint   `gorm:"index;not null"`
	Status     string `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
