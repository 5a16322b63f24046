package friend

import (
	"context"
	"fmt"

	"boss-server-go/internal/domain/acl"
	"boss-server-go/internal/domain/auth"
	"boss-server-go/internal/domain/notify"
	platformerrors "boss-server-go/internal/platform/errors"
	"boss-server-go/internal/platform/logging"
)

const logTag = "Friend"

// Service manages the friend request lifecycle.
type Service struct {
	repo     Repository
	users    auth.Repository
	notifier *notify.Service
	logger   *logging.Logger
}

func NewService(repo Repository, users auth.Repository, notifier *notify.Service, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		logger:   logger,
	}
}

// Send creates a pending request addressed by email and notifies the
// recipient. Guests cannot send or receive requests.
func (s *Service) Send(ctx context.Context, p *auth.Principal, toEmail string) (*Request, error) {
	if p.Guest {
		return nil, acl.ErrAccessDenied
	}

	to, err := s.users.UserByEmail(ctx, toEmail)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "friend.send", "load recipient", err)
	}
	if to == nil || !to.Enabled || to.Guest() {
		return nil, auth.ErrUserNotFound
	}
	if to.ID == p.UserID {
		return nil, ErrSelfRequest
	}

	existing, err := s.repo.FriendRequestBetween(ctx, p.UserID, to.ID)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "friend.send", "check duplicates", err)
	}
	if existing != nil {
		return nil, ErrDuplicateRequest
	}

	req := &Request{
		FromUserID: p.UserID,
		ToUserID:   to.ID,
		Status:     StatusPending,
	}
	if err := s.repo.CreateFriendRequest(ctx, req); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "friend.send", "create request", err)
	}

	s.notifyAbout(ctx, to.ID, "friendRequest",
		fmt.Sprintf("%s sent you a friend request", p.FullName), req)
	s.logger.InfoTag(logTag, "user %d sent a friend request to user %d", p.UserID, to.ID)
	return req, nil
}

// Accept answers a pending request. Only the recipient may accept.
func (s *Service) Accept(ctx context.Context, p *auth.Principal, id uint) (*Request, error) {
	return s.answer(ctx, p, id, StatusAccepted, "friendRequestAccepted", "accepted your friend request")
}

// Decline answers a pending request. Only the recipient may decline.
func (s *Service) Decline(ctx context.Context, p *auth.Principal, id uint) (*Request, error) {
	return s.answer(ctx, p, id, StatusDeclined, "friendRequestDeclined", "declined your friend request")
}

func (s *Service) answer(ctx context.Context, p *auth.Principal, id uint, status Status, kind, verb string) (*Request, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := acl.CheckAccess(p, req, acl.OpWrite); err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, ErrNotPending
	}

	req.Status = status
	if err := s.repo.UpdateFriendRequest(ctx, req); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "friend.answer", "update request", err)
	}

	s.notifyAbout(ctx, req.FromUserID, kind,
		fmt.Sprintf("%s %s", p.FullName, verb), req)
	return req, nil
}

// Withdraw deletes a request. Only the sender may withdraw it.
func (s *Service) Withdraw(ctx context.Context, p *auth.Principal, id uint) error {
	req, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := acl.CheckAccess(p, req, acl.OpDelete); err != nil {
		return err
	}
	if err := s.repo.DeleteFriendRequest(ctx, id); err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "friend.withdraw", "delete request", err)
	}
	return nil
}

// List returns every request the caller is part of.
func (s *Service) List(ctx context.Context, p *auth.Principal) ([]Request, error) {
	return s.repo.FriendRequestsForUser(ctx, p.UserID)
}

func (s *Service) load(ctx context.Context, id uint) (*Request, error) {
	req, err := s.repo.FriendRequestByID(ctx, id)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "friend.load", "load request", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// notifyAbout publishes a notification carrying the request in its metadata.
// Delivery problems never fail the operation that triggered them.
func (s *Service) notifyAbout(ctx context.Context, userID uint, kind, message string, req *Request) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Publish(ctx, &notify.Notification{
		UserID:  userID,
		Kind:    kind,
		Message: message,
		Metadata: map[string]any{
			"requestId":  req.ID,
			"fromUserId": req.FromUserID,
			"status":     string(req.Status),
		},
	})
	if err != nil {
		s.logger.WarnTag(logTag, "notification to user %d failed: %v", userID, err)
	}
}
