package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"boss-server-go/internal/domain/acl"
	"boss-server-go/internal/domain/auth"
	"boss-server-go/internal/domain/friend"
	"boss-server-go/internal/domain/notify"
)

// APIResponse is the uniform JSON envelope for every API endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

// RespondSuccess writes a success envelope.
func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}

	resp := APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	}

	c.JSON(httpStatus, resp)
}

// RespondError writes a failure envelope.
func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	resp := APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	}

	c.JSON(httpStatus, resp)
}

// RespondDomainError maps domain sentinels onto HTTP status codes. Anything
// unrecognized is reported as an internal error without leaking details.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidSignature),
		errors.Is(err, auth.ErrMalformed),
		errors.Is(err, auth.ErrInvalidJWT),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrSessionInactive):
		RespondError(c, http.StatusUnauthorized, err.Error(), nil)

	case errors.Is(err, auth.ErrMFANotVerified),
		errors.Is(err, auth.ErrUserNotVerified),
		errors.Is(err, acl.ErrAccessDenied):
		RespondError(c, http.StatusForbidden, err.Error(), nil)

	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, friend.ErrRequestNotFound),
		errors.Is(err, notify.ErrNotificationNotFound):
		RespondError(c, http.StatusNotFound, err.Error(), nil)

	case errors.Is(err, friend.ErrDuplicateRequest):
		RespondError(c, http.StatusConflict, err.Error(), nil)

	case errors.Is(err, friend.ErrSelfRequest),
		errors.Is(err, friend.ErrNotPending),
		errors.Is(err, auth.ErrInvalidMFA),
		errors.Is(err, auth.ErrMFANotEnabled),
		errors.Is(err, auth.ErrInvalidVerificationCode):
		RespondError(c, http.StatusBadRequest, err.Error(), nil)

	default:
		RespondError(c, http.StatusInternalServerError, "internal error", nil)
	}
}
