package httptransport

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"boss-server-go/internal/domain/notify"
	"boss-server-go/internal/platform/errors"
	"boss-server-go/internal/platform/logging"
)

// NotificationService exposes the notification inbox endpoints.
type NotificationService struct {
	notifier *notify.Service
	logger   *logging.Logger
}

func NewNotificationService(notifier *notify.Service, logger *logging.Logger) (*NotificationService, error) {
	if notifier == nil {
		return nil, errors.New(errors.KindTransport, "notifications.new", "notify service is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &NotificationService{notifier: notifier, logger: logger}, nil
}

func (s *NotificationService) Register(secured *gin.RouterGroup) {
	secured.GET("/notifications", s.handleList)
	secured.POST("/notifications/:id/read", s.handleMarkRead)
	secured.DELETE("/notifications/:id", s.handleDelete)

	// Internal fan-out surface for trusted callers. Notifications are
	// persisted before the push; events are push-only and lost when the
	// recipient is offline.
	private := secured.Group("/private")
	private.Use(RequireSuperUser())
	private.POST("/send/notifications", s.handleSendNotifications)
	private.POST("/send/events", s.handleSendEvents)

	s.logger.InfoTag("HTTP", "notification routes registered")
}

type sendItem struct {
	UserID   uint           `json:"userId" binding:"required"`
	Kind     string         `json:"kind" binding:"required"`
	Message  string         `json:"message" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

type sendRequest struct {
	Items []sendItem `json:"items" binding:"required,min=1,dive"`
}

func (s *NotificationService) handleSendNotifications(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	for _, item := range req.Items {
		n := notify.Notification{
			UserID:   item.UserID,
			Kind:     item.Kind,
			Message:  item.Message,
			Metadata: item.Metadata,
		}
		if err := s.notifier.Publish(c.Request.Context(), &n); err != nil {
			RespondDomainError(c, err)
			return
		}
	}
	RespondSuccess(c, http.StatusOK, gin.H{"sent": len(req.Items)}, "")
}

func (s *NotificationService) handleSendEvents(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	for _, item := range req.Items {
		s.notifier.Push(notify.Notification{
			UserID:   item.UserID,
			Kind:     item.Kind,
			Message:  item.Message,
			Metadata: item.Metadata,
		})
	}
	RespondSuccess(c, http.StatusOK, gin.H{"sent": len(req.Items)}, "")
}

func (s *NotificationService) handleList(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	items, err := s.notifier.Inbox(c.Request.Context(), CurrentPrincipal(c), unreadOnly)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"notifications": items}, "")
}

func (s *NotificationService) handleMarkRead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.notifier.MarkRead(c.Request.Context(), CurrentPrincipal(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "marked read")
}

func (s *NotificationService) handleDelete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.notifier.Delete(c.Request.Context(), CurrentPrincipal(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "deleted")
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid id", nil)
		return 0, false
	}
	return uint(id), true
}
