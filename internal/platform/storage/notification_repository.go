package storage

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"boss-server-go/internal/domain/notify"
	"boss-server-go/internal/platform/errors"
)

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) notify.Repository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateNotification(ctx context.Context, n *notify.Notification) error {
	model, err := r.toModel(n)
	if err != nil {
		return errors.Wrap(errors.KindStorage, "notification.create", "failed to encode metadata", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "notification.create", "failed to create notification", err)
	}
	n.ID = model.ID
	n.CreatedAt = model.CreatedAt
	return nil
}

func (r *notificationRepository) NotificationByID(ctx context.Context, id uint) (*notify.Notification, error) {
	var model Notification
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "notification.by_id", "failed to find notification", err)
	}
	return r.fromModel(&model)
}

func (r *notificationRepository) NotificationsForUser(ctx context.Context, userID uint, unreadOnly bool) ([]notify.Notification, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	var models []Notification
	if err := query.Find(&models).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "notification.list", "failed to list notifications", err)
	}
	out := make([]notify.Notification, 0, len(models))
	for i := range models {
		n, err := r.fromModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}

func (r *notificationRepository) MarkNotificationRead(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&Notification{}).Where("id = ?", id).Update("read", true).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, "notification.mark_read", "failed to update notification", err)
	}
	return nil
}

func (r *notificationRepository) DeleteNotification(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&Notification{}, id).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "notification.delete", "failed to delete notification", err)
	}
	return nil
}

func (r *notificationRepository) toModel(n *notify.Notification) (*Notification, error) {
	model := &Notification{
		ID:      n.ID,
		UserID:  n.UserID,
		Kind:    n.Kind,
		Message: n.Message,
		Read:    n.Read,
	}
	if n.Metadata != nil {
		raw, err := json.Marshal(n.Metadata)
		if err != nil {
			return nil, err
		}
		model.Metadata = datatypes.JSON(raw)
	}
	return model, nil
}

func (r *notificationRepository) fromModel(model *Notification) (*notify.Notification, error) {
	n := &notify.Notification{
		ID:        model.ID,
		UserID:    model.UserID,
		Kind:      model.Kind,
		Message:   model.Message,
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
	}
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &n.Metadata); err != nil {
			return nil, errors.Wrap(errors.KindStorage, "notification.decode", "failed to decode metadata", err)
		}
	}
	return n, nil
}
