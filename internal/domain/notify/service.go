package notify

import (
	"context"
	"errors"

	evbus "github.com/asaskevich/EventBus"

	"boss-server-go/internal/domain/acl"
	"boss-server-go/internal/domain/auth"
	platformerrors "boss-server-go/internal/platform/errors"
	"boss-server-go/internal/platform/logging"
)

// Event topics published on the bus.
const (
	TopicNotificationCreated = "notification.created"
	TopicNotificationRead    = "notification.read"
)

// ErrNotificationNotFound is returned for lookups of missing notifications.
var ErrNotificationNotFound = errors.New("notification not found")

// Service delivers notifications: persist first, then push to the live
// connection if the recipient has one. A user who is offline sees the
// notification in their inbox on the next fetch.
type Service struct {
	repo     Repository
	registry *Registry
	bus      evbus.Bus
	logger   *logging.Logger
}

func NewService(repo Repository, registry *Registry, bus evbus.Bus, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		repo:     repo,
		registry: registry,
		bus:      bus,
		logger:   logger,
	}
}

// Publish stores the notification and announces it on the bus; the push
// subscriber forwards it to the recipient's live connection. Without a bus
// the push is sent directly. Either way, a failed push never fails the
// publish.
func (s *Service) Publish(ctx context.Context, n *Notification) error {
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return platformerrors.Wrap(platformerrors.KindNotify, "publish", "persist notification", err)
	}

	if s.bus != nil {
		s.bus.Publish(TopicNotificationCreated, *n)
		return nil
	}

	s.Push(*n)
	return nil
}

// SubscribePush wires the delivery half of the created topic: every
// notification published on the bus is forwarded, best-effort, to the
// recipient's live connection.
func SubscribePush(bus evbus.Bus, registry *Registry, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}
	return bus.Subscribe(TopicNotificationCreated, func(n Notification) {
		if registry == nil {
			return
		}
		if err := registry.SendNotifications(n.UserID, []Notification{n}); err != nil && !errors.Is(err, ErrNotConnected) {
			logger.WarnTag(logTag, "push to user %d failed: %v", n.UserID, err)
		}
	})
}

// Push sends a transient event to the recipient's live connection without
// touching the inbox. Offline recipients simply miss it.
func (s *Service) Push(n Notification) {
	if s.registry == nil {
		return
	}
	if err := s.registry.SendNotifications(n.UserID, []Notification{n}); err != nil && !errors.Is(err, ErrNotConnected) {
		s.logger.WarnTag(logTag, "push to user %d failed: %v", n.UserID, err)
	}
}

// Inbox lists the user's notifications, newest first.
func (s *Service) Inbox(ctx context.Context, p *auth.Principal, unreadOnly bool) ([]Notification, error) {
	return s.repo.NotificationsForUser(ctx, p.UserID, unreadOnly)
}

// MarkRead flags a notification as read. Only the recipient (or the super
// user) may do this.
func (s *Service) MarkRead(ctx context.Context, p *auth.Principal, id uint) error {
	n, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := acl.CheckAccess(p, n, acl.OpWrite); err != nil {
		return err
	}
	if err := s.repo.MarkNotificationRead(ctx, id); err != nil {
		return platformerrors.Wrap(platformerrors.KindNotify, "mark_read", "update notification", err)
	}
	if s.bus != nil {
		s.bus.Publish(TopicNotificationRead, n.UserID, id)
	}
	return nil
}

// Delete removes a notification. Only the recipient (or the super user) may
// do this.
func (s *Service) Delete(ctx context.Context, p *auth.Principal, id uint) error {
	n, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := acl.CheckAccess(p, n, acl.OpDelete); err != nil {
		return err
	}
	if err := s.repo.DeleteNotification(ctx, id); err != nil {
		return platformerrors.Wrap(platformerrors.KindNotify, "delete", "delete notification", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, id uint) (*Notification, error) {
	n, err := s.repo.NotificationByID(ctx, id)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindNotify, "load", "load notification", err)
	}
	if n == nil {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}
