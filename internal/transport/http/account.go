package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"boss-server-go/internal/domain/auth"
	"boss-server-go/internal/platform/errors"
	"boss-server-go/internal/platform/logging"
)

// AccountService exposes the account and session endpoints.
type AccountService struct {
	authority *auth.Authority
	logger    *logging.Logger
}

func NewAccountService(authority *auth.Authority, logger *logging.Logger) (*AccountService, error) {
	if authority == nil {
		return nil, errors.New(errors.KindTransport, "account.new", "authority is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &AccountService{authority: authority, logger: logger}, nil
}

const serverVersion = "1.0.0"

// Register mounts the account routes. Sign-in and recovery are public;
// everything touching an existing session goes on the secured group. Account
// creation is reserved to the administrator.
func (s *AccountService) Register(public, secured *gin.RouterGroup) {
	public.GET("/version", s.handleVersion)
	public.GET("/account/heartbeat", s.handleHeartbeat)
	public.POST("/account/verify", s.handleVerify)
	public.POST("/account/signin", s.handleSignIn)
	public.POST("/account/recover", s.handleRecover)
	public.POST("/account/reset", s.handleReset)

	admin := secured.Group("")
	admin.Use(RequireSuperUser())
	admin.POST("/account", s.handleCreate)

	secured.GET("/account/me", s.handleMe)
	secured.PATCH("/account/me", s.handleUpdateProfile)
	secured.POST("/account/signout", s.handleSignOut)
	secured.POST("/account/mfa", s.handleRegisterMFA)
	secured.POST("/account/mfa/verify", s.handleVerifyMFA)
	secured.POST("/account/mfa/recovery", s.handleVerifyRecoveryCode)

	// Minting fresh recovery codes is itself a privileged operation.
	elevated := secured.Group("")
	elevated.Use(RequireMFA())
	elevated.POST("/account/mfa/recovery-codes", s.handleGenerateRecoveryCodes)

	s.logger.InfoTag("HTTP", "account routes registered")
}

func (s *AccountService) handleVersion(c *gin.Context) {
	RespondSuccess(c, http.StatusOK, gin.H{"version": serverVersion}, "")
}

// handleHeartbeat reports whether the presented token still verifies,
// without minting a replacement token.
func (s *AccountService) handleHeartbeat(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		RespondSuccess(c, http.StatusOK, gin.H{"signedIn": false}, "")
		return
	}
	_, err := s.authority.VerifyAccessToken(c.Request.Context(), token, auth.VerifyOptions{})
	RespondSuccess(c, http.StatusOK, gin.H{"signedIn": err == nil}, "")
}

type createAccountRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName" binding:"required"`
}

func (s *AccountService) handleCreate(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	user, code, err := s.authority.CreateAccount(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	// Code delivery is out of band; it is returned here only until a
	// mailer is wired up.
	// TODO: drop the code from the response once email delivery lands.
	RespondSuccess(c, http.StatusCreated, gin.H{
		"userId":           user.ID,
		"verificationCode": code,
	}, "account created, verification required")
}

type verifyAccountRequest struct {
	Code string `json:"code" binding:"required"`
}

func (s *AccountService) handleVerify(c *gin.Context) {
	var req verifyAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := s.authority.VerifyAccount(c.Request.Context(), req.Code); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "account verified")
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *AccountService) handleSignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	session, err := s.authority.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	RespondSuccess(c, http.StatusOK, gin.H{
		"accessToken": session.AccessToken,
		"expiresAt":   session.Claims.ExpiresAt,
	}, "signed in")
}

func (s *AccountService) handleSignOut(c *gin.Context) {
	if err := s.authority.SignOut(c.Request.Context(), bearerToken(c)); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "signed out")
}

func (s *AccountService) handleMe(c *gin.Context) {
	p := CurrentPrincipal(c)
	RespondSuccess(c, http.StatusOK, gin.H{
		"userId":     p.UserID,
		"email":      p.Email,
		"fullName":   p.FullName,
		"superUser":  p.SuperUser,
		"guest":      p.Guest,
		"mfaEnabled": p.MFAEnabled,
		"mfaPassed":  p.MFAPassed,
		"avatarUrl":  p.AvatarURL,
		"theme":      p.Theme,
		"font":       p.Font,
	}, "")
}

type updateProfileRequest struct {
	AvatarURL string `json:"avatarUrl"`
	Theme     string `json:"theme"`
	Font      string `json:"font"`
}

func (s *AccountService) handleUpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	p := CurrentPrincipal(c)
	if err := s.authority.UpdateProfile(c.Request.Context(), p.UserID, req.AvatarURL, req.Theme, req.Font); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "profile updated")
}

type recoverRequest struct {
	Email string `json:"email" binding:"required"`
}

func (s *AccountService) handleRecover(c *gin.Context) {
	var req recoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	code, err := s.authority.RequestPasswordRecovery(c.Request.Context(), req.Email)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	_ = code // delivered out of band

	// Always report success so the endpoint cannot enumerate accounts.
	RespondSuccess(c, http.StatusOK, nil, "recovery instructions sent if the account exists")
}

type resetRequest struct {
	Code     string `json:"code" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

func (s *AccountService) handleReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := s.authority.ResetPassword(c.Request.Context(), req.Code, req.Password); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "password reset, sign in again")
}

func (s *AccountService) handleRegisterMFA(c *gin.Context) {
	p := CurrentPrincipal(c)
	secret, url, err := s.authority.RegisterMFA(c.Request.Context(), p.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{
		"secret": secret,
		"url":    url,
	}, "scan the code and verify to enable mfa")
}

type mfaCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

func (s *AccountService) handleVerifyMFA(c *gin.Context) {
	var req mfaCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	p := CurrentPrincipal(c)
	if err := s.authority.VerifyMFA(c.Request.Context(), p.UserID, req.Code); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "challenge passed")
}

func (s *AccountService) handleVerifyRecoveryCode(c *gin.Context) {
	var req mfaCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	p := CurrentPrincipal(c)
	if err := s.authority.VerifyRecoveryCode(c.Request.Context(), p.UserID, req.Code); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "challenge passed")
}

func (s *AccountService) handleGenerateRecoveryCodes(c *gin.Context) {
	p := CurrentPrincipal(c)
	codes, err := s.authority.GenerateRecoveryCodes(c.Request.Context(), p.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"codes": codes}, "store these codes safely, they are shown once")
}
