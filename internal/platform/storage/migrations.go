package storage

import (
	"gorm.io/gorm"

	"boss-server-go/internal/domain/auth"
)

// initialMigration creates the full schema and seeds the two well-known
// accounts. The administrator gets the configured first-run password so a
// fresh deployment has exactly one sign-in-able account; the guest keeps an
// empty hash, which no password ever matches.
type initialMigration struct {
	adminPassword string
}

func (initialMigration) Version() string     { return "202406_initial" }
func (initialMigration) Description() string { return "create core tables and well-known accounts" }

func (m initialMigration) Up(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Session{},
		&VerificationCode{},
		&RecoveryCode{},
		&Notification{},
		&FriendRequest{},
	); err != nil {
		return err
	}

	adminHash, err := auth.HashPassword(m.adminPassword)
	if err != nil {
		return err
	}

	seed := []User{
		{
			ID:           auth.SuperUserID,
			Email:        "admin@localhost",
			PasswordHash: adminHash,
			FullName:     "Admin",
			Verified:     true,
			Enabled:      true,
		},
		{
			ID:       auth.GuestUserID,
			Email:    "guest@localhost",
			FullName: "Guest",
			Verified: true,
			Enabled:  true,
		},
	}
	for _, user := range seed {
		if err := db.Where("id = ?", user.ID).FirstOrCreate(&user).Error; err != nil {
			return err
		}
	}
	return nil
}

func (initialMigration) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(
		&FriendRequest{},
		&Notification{},
		&RecoveryCode{},
		&VerificationCode{},
		&Session{},
		&User{},
	)
}
