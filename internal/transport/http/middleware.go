package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"boss-server-go/internal/domain/auth"
	"boss-server-go/internal/domain/notify"
)

const principalKey = "principal"

// RefreshedTokenHeader carries a replacement access token back to the
// client when verification refreshed the session. Clients swap tokens when
// they see it.
const RefreshedTokenHeader = "X-Access-Token"

// ActivityRecorder is the slice of the connection registry the middleware
// needs: authenticated API traffic counts as session activity.
type ActivityRecorder interface {
	RecordActivity(userID uint)
}

// AuthMiddleware verifies the bearer token on every request, refreshing it
// when it nears expiry, and stashes the caller in the request context.
func AuthMiddleware(authority *auth.Authority, activity ActivityRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			RespondError(c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}

		p, err := authority.VerifyAccessToken(c.Request.Context(), token, auth.VerifyOptions{Refresh: true})
		if err != nil {
			RespondDomainError(c, err)
			c.Abort()
			return
		}

		p.RemoteAddr = c.ClientIP()

		if p.Session.Refreshed {
			c.Header(RefreshedTokenHeader, p.Session.AccessToken)
		}
		if activity != nil {
			activity.RecordActivity(p.UserID)
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireMFA gates privileged routes: the current session must have passed a
// TOTP challenge if the account has MFA enabled.
func RequireMFA() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := CurrentPrincipal(c)
		if p == nil {
			RespondError(c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}
		if p.MFAEnabled && !p.MFAPassed {
			RespondDomainError(c, auth.ErrMFANotVerified)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSuperUser restricts a route group to the administrative account.
func RequireSuperUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := CurrentPrincipal(c)
		if p == nil || !p.SuperUser {
			RespondError(c, http.StatusForbidden, "administrator access required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentPrincipal returns the verified caller set by AuthMiddleware, or nil
// on unauthenticated routes.
func CurrentPrincipal(c *gin.Context) *auth.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*auth.Principal)
	return p
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

var _ ActivityRecorder = (*notify.Registry)(nil)
