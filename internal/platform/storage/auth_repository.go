package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"boss-server-go/internal/domain/auth"
	"boss-server-go/internal/platform/errors"
)

// authRepository backs the session authority with gorm.
type authRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) auth.Repository {
	return &authRepository{db: db}
}

func (r *authRepository) UserByEmail(ctx context.Context, email string) (*auth.User, error) {
	var model User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "user.by_email", "failed to find user", err)
	}
	return r.fromUserModel(&model), nil
}

func (r *authRepository) UserByID(ctx context.Context, id uint) (*auth.User, error) {
	var model User
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "user.by_id", "failed to find user", err)
	}
	return r.fromUserModel(&model), nil
}

func (r *authRepository) CreateUser(ctx context.Context, user *auth.User) error {
	model := r.toUserModel(user)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "user.create", "failed to create user", err)
	}
	user.ID = model.ID
	user.CreatedAt = model.CreatedAt
	return nil
}

func (r *authRepository) UpdateUser(ctx context.Context, user *auth.User) error {
	if err := r.db.WithContext(ctx).Save(r.toUserModel(user)).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "user.update", "failed to update user", err)
	}
	return nil
}

func (r *authRepository) CreateSession(ctx context.Context, rec *auth.SessionRecord) error {
	model := &Session{
		TokenID:   rec.TokenID,
		UserID:    rec.UserID,
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "session.create", "failed to create session", err)
	}
	return nil
}

func (r *authRepository) SessionByTokenID(ctx context.Context, tokenID string) (*auth.SessionRecord, error) {
	var model Session
	if err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "session.by_token", "failed to find session", err)
	}
	return &auth.SessionRecord{
		TokenID:   model.TokenID,
		UserID:    model.UserID,
		IssuedAt:  model.IssuedAt,
		ExpiresAt: model.ExpiresAt,
	}, nil
}

func (r *authRepository) DeleteSession(ctx context.Context, tokenID string) error {
	if err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).Delete(&Session{}).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "session.delete", "failed to delete session", err)
	}
	return nil
}

func (r *authRepository) DeleteSessionsForUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Session{}).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "session.delete_for_user", "failed to delete sessions", err)
	}
	return nil
}

func (r *authRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&Session{})
	if res.Error != nil {
		return 0, errors.Wrap(errors.KindStorage, "session.purge", "failed to purge sessions", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *authRepository) CreateVerificationCode(ctx context.Context, code *auth.VerificationCode) error {
	model := &VerificationCode{
		Code:      code.Code,
		UserID:    code.UserID,
		Purpose:   code.Purpose,
		ExpiresAt: code.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "code.create", "failed to create verification code", err)
	}
	return nil
}

// ConsumeVerificationCode fetches and deletes the code in one transaction so
// a code can only ever be redeemed once.
func (r *authRepository) ConsumeVerificationCode(ctx context.Context, code, purpose string) (*auth.VerificationCode, error) {
	var model VerificationCode
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("code = ? AND purpose = ?", code, purpose).First(&model).Error; err != nil {
			return err
		}
		return tx.Delete(&model).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "code.consume", "failed to consume verification code", err)
	}
	return &auth.VerificationCode{
		Code:      model.Code,
		UserID:    model.UserID,
		Purpose:   model.Purpose,
		ExpiresAt: model.ExpiresAt,
	}, nil
}

// CreateRecoveryCodes replaces the user's existing codes with a new batch.
func (r *authRepository) CreateRecoveryCodes(ctx context.Context, codes []auth.RecoveryCode) error {
	if len(codes) == 0 {
		return nil
	}
	userID := codes[0].UserID
	models := make([]RecoveryCode, len(codes))
	for i, c := range codes {
		models[i] = RecoveryCode{UserID: c.UserID, CodeHash: c.CodeHash, Used: c.Used}
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&RecoveryCode{}).Error; err != nil {
			return err
		}
		return tx.Create(&models).Error
	})
	if err != nil {
		return errors.Wrap(errors.KindStorage, "recovery.create", "failed to replace recovery codes", err)
	}
	return nil
}

func (r *authRepository) RecoveryCodesForUser(ctx context.Context, userID uint) ([]auth.RecoveryCode, error) {
	var models []RecoveryCode
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&models).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "recovery.list", "failed to list recovery codes", err)
	}
	codes := make([]auth.RecoveryCode, len(models))
	for i, m := range models {
		codes[i] = auth.RecoveryCode{ID: m.ID, UserID: m.UserID, CodeHash: m.CodeHash, Used: m.Used}
	}
	return codes, nil
}

func (r *authRepository) MarkRecoveryCodeUsed(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&RecoveryCode{}).Where("id = ?", id).Update("used", true).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, "recovery.mark_used", "failed to mark recovery code", err)
	}
	return nil
}

func (r *authRepository) toUserModel(user *auth.User) *User {
	return &User{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		FullName:     user.FullName,
		Verified:     user.Verified,
		Enabled:      user.Enabled,
		MFASecret:    user.MFASecret,
		MFAEnabled:   user.MFAEnabled,
		AvatarURL:    user.AvatarURL,
		Theme:        user.Theme,
		Font:         user.Font,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func (r *authRepository) fromUserModel(model *User) *auth.User {
	return &auth.User{
		ID:           model.ID,
		Email:        model.Email,
		PasswordHash: model.PasswordHash,
		FullName:     model.FullName,
		Verified:     model.Verified,
		Enabled:      model.Enabled,
		MFASecret:    model.MFASecret,
		MFAEnabled:   model.MFAEnabled,
		AvatarURL:    model.AvatarURL,
		Theme:        model.Theme,
		Font:         model.Font,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}
