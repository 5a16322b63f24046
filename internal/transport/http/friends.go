package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"boss-server-go/internal/domain/friend"
	"boss-server-go/internal/platform/errors"
	"boss-server-go/internal/platform/logging"
)

// FriendService exposes the friend request endpoints.
type FriendService struct {
	friends *friend.Service
	logger  *logging.Logger
}

func NewFriendService(friends *friend.Service, logger *logging.Logger) (*FriendService, error) {
	if friends == nil {
		return nil, errors.New(errors.KindTransport, "friends.new", "friend service is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &FriendService{friends: friends, logger: logger}, nil
}

func (s *FriendService) Register(secured *gin.RouterGroup) {
	secured.GET("/friends/requests", s.handleList)
	secured.POST("/friends/requests", s.handleSend)
	secured.POST("/friends/requests/:id/accept", s.handleAccept)
	secured.POST("/friends/requests/:id/decline", s.handleDecline)
	secured.DELETE("/friends/requests/:id", s.handleWithdraw)

	s.logger.InfoTag("HTTP", "friend routes registered")
}

func (s *FriendService) handleList(c *gin.Context) {
	items, err := s.friends.List(c.Request.Context(), CurrentPrincipal(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"requests": items}, "")
}

type sendFriendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (s *FriendService) handleSend(c *gin.Context) {
	var req sendFriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	created, err := s.friends.Send(c.Request.Context(), CurrentPrincipal(c), req.Email)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusCreated, gin.H{"request": created}, "friend request sent")
}

func (s *FriendService) handleAccept(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	req, err := s.friends.Accept(c.Request.Context(), CurrentPrincipal(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"request": req}, "accepted")
}

func (s *FriendService) handleDecline(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	req, err := s.friends.Decline(c.Request.Context(), CurrentPrincipal(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"request": req}, "declined")
}

func (s *FriendService) handleWithdraw(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.friends.Withdraw(c.Request.Context(), CurrentPrincipal(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "withdrawn")
}
