package storage

import (
	"context"

	"gorm.io/gorm"

	"boss-server-go/internal/domain/friend"
	"boss-server-go/internal/platform/errors"
)

type friendRepository struct {
	db *gorm.DB
}

func NewFriendRepository(db *gorm.DB) friend.Repository {
	return &friendRepository{db: db}
}

func (r *friendRepository) CreateFriendRequest(ctx context.Context, req *friend.Request) error {
	model := r.toModel(req)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "friend.create", "failed to create friend request", err)
	}
	req.ID = model.ID
	req.CreatedAt = model.CreatedAt
	return nil
}

func (r *friendRepository) FriendRequestByID(ctx context.Context, id uint) (*friend.Request, error) {
	var model FriendRequest
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "friend.by_id", "failed to find friend request", err)
	}
	return r.fromModel(&model), nil
}

func (r *friendRepository) FriendRequestBetween(ctx context.Context, a, b uint) (*friend.Request, error) {
	var model FriendRequest
	err := r.db.WithContext(ctx).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)", a, b, b, a).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "friend.between", "failed to find friend request", err)
	}
	return r.fromModel(&model), nil
}

func (r *friendRepository) FriendRequestsForUser(ctx context.Context, userID uint) ([]friend.Request, error) {
	var models []FriendRequest
	err := r.db.WithContext(ctx).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "friend.list", "failed to list friend requests", err)
	}
	out := make([]friend.Request, len(models))
	for i := range models {
		out[i] = *r.fromModel(&models[i])
	}
	return out, nil
}

func (r *friendRepository) UpdateFriendRequest(ctx context.Context, req *friend.Request) error {
	if err := r.db.WithContext(ctx).Save(r.toModel(req)).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "friend.update", "failed to update friend request", err)
	}
	return nil
}

func (r *friendRepository) DeleteFriendRequest(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&FriendRequest{}, id).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "friend.delete", "failed to delete friend request", err)
	}
	return nil
}

func (r *friendRepository) toModel(req *friend.Request) *FriendRequest {
	return &FriendRequest{
		ID:         req.ID,
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
		Status:     string(req.Status),
		CreatedAt:  req.CreatedAt,
		UpdatedAt:  req.UpdatedAt,
	}
}

func (r *friendRepository) fromModel(model *FriendRequest) *friend.Request {
	return &friend.Request{
		ID:         model.ID,
		FromUserID: model.FromUserID,
		ToUserID:   model.ToUserID,
		Status:     friend.Status(model.Status),
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}
