package auth

import (
	"context"
	"errors"
	"time"

	"boss-server-go/internal/domain/auth/store"
	platformerrors "boss-server-go/internal/platform/errors"
	"boss-server-go/internal/platform/logging"
)

const logTag = "Auth"

// Creating a session row can collide on the token ID unique index. The odds
// are negligible with random IDs but the retry keeps sign-in deterministic.
const maxTokenIDAttempts = 3

const recoveryCodeCount = 10

// Policy carries the session lifetime rules the authority enforces.
type Policy struct {
	SessionTTL    time.Duration
	RefreshWindow time.Duration
	MaxInactivity time.Duration
	TOTP          TOTPConfig
	// VerificationCodeTTL bounds email verification and recovery codes.
	VerificationCodeTTL time.Duration
}

// Options wires the authority's dependencies.
type Options struct {
	Repo   Repository
	States store.Store
	Codec  *TokenCodec
	Logger *logging.Logger
	Policy Policy
}

// Authority owns the session lifecycle: credential checks, token issue and
// verification, sliding expiry, MFA gating and sign-out.
type Authority struct {
	repo   Repository
	states store.Store
	codec  *TokenCodec
	logger *logging.Logger
	policy Policy

	now func() time.Time
}

func NewAuthority(opts Options) (*Authority, error) {
	if opts.Repo == nil {
		return nil, platformerrors.New(platformerrors.KindAuth, "new", "repository is required")
	}
	if opts.States == nil {
		return nil, platformerrors.New(platformerrors.KindAuth, "new", "session state store is required")
	}
	if opts.Codec == nil {
		return nil, platformerrors.New(platformerrors.KindAuth, "new", "token codec is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Policy.VerificationCodeTTL <= 0 {
		opts.Policy.VerificationCodeTTL = 15 * time.Minute
	}
	return &Authority{
		repo:   opts.Repo,
		states: opts.States,
		codec:  opts.Codec,
		logger: opts.Logger,
		policy: opts.Policy,
		now:    time.Now,
	}, nil
}

// VerifyOptions tunes a single token verification.
type VerifyOptions struct {
	// Refresh mints a replacement token when the presented one sits in the
	// trailing refresh window of its lifetime.
	Refresh bool
	// VerifyMFAChallenge additionally requires that the current session has
	// passed a TOTP challenge, for privileged operations.
	VerifyMFAChallenge bool
}

// SignIn checks credentials and opens a session. Missing accounts, wrong
// passwords and disabled accounts all fail identically so callers cannot
// enumerate users.
func (a *Authority) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := a.repo.UserByEmail(ctx, email)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindAuth, "sign_in", "load user", err)
	}
	if user == nil || !CheckPassword(user.PasswordHash, password) || !user.Enabled {
		return nil, ErrInvalidCredentials
	}
	if !user.Verified {
		return nil, ErrUserNotVerified
	}

	session, err := a.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	a.logger.InfoTag(logTag, "user %d signed in", user.ID)
	return session, nil
}

// openSession mints a token, persists the session row and resets the live
// state. The state is keyed by user ID, so any previous session for this
// user is superseded.
func (a *Authority) openSession(ctx context.Context, userID uint) (*Session, error) {
	var (
		signed string
		claims *Claims
	)
	for attempt := 0; ; attempt++ {
		var err error
		signed, claims, err = a.codec.Sign(userID, a.now())
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindAuth, "open_session", "sign token", err)
		}
		err = a.repo.CreateSession(ctx, &SessionRecord{
			TokenID:   claims.TokenID,
			UserID:    userID,
			IssuedAt:  claims.IssuedAt,
			ExpiresAt: claims.ExpiresAt,
		})
		if err == nil {
			break
		}
		if attempt+1 >= maxTokenIDAttempts {
			return nil, platformerrors.Wrap(platformerrors.KindAuth, "open_session", "persist session", err)
		}
	}

	err := a.states.Put(ctx, store.State{
		UserID:       userID,
		LastActivity: a.now(),
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindAuth, "open_session", "store session state", err)
	}

	return &Session{AccessToken: signed, Claims: claims}, nil
}

// VerifyAccessToken validates a bearer token and returns the caller it
// represents. On success the session's activity clock is reset.
func (a *Authority) VerifyAccessToken(ctx context.Context, token string, opts VerifyOptions) (*Principal, error) {
	claims, err := a.codec.Verify(token)
	if err != nil {
		return nil, err
	}
	now := a.now()
	if claims.Expired(now) {
		// The row is useless once the token is past its lifetime.
		_ = a.repo.DeleteSession(ctx, claims.TokenID)
		return nil, ErrInvalidJWT
	}

	rec, err := a.repo.SessionByTokenID(ctx, claims.TokenID)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindAuth, "verify", "load session", err)
	}
	if rec == nil {
		return nil, ErrSessionNotFound
	}

	user, err := a.repo.UserByID(ctx, claims.UserID)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindAuth, "verify", "load user", err)
	}
	if user == nil || !user.Enabled {
		return nil, ErrUserNotFound
	}
	if !user.Verified {
		return nil, ErrUserNotVerified
	}

	state, ok, err := a.states.Get(ctx, user.ID)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindAuth, "verify", "load session state", err)
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	if now.Sub(state.LastActivity) > a.policy.MaxInactivity {
		return nil, ErrSessionInactive
	}

	if opts.VerifyMFAChallenge && user.MFAEnabled && !state.PassedMFAChallenge {
		return nil, ErrMFANotVerified
	}

	state.LastActivity = now
	if err := a.states.Put(ctx, state); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindAuth, "verify", "touch session state", err)
	}

	session := &Session{AccessToken: token, Claims: claims}
	if opts.Refresh && claims.InRefreshWindow(now, a.policy.RefreshWindow) {
		refreshed, err := a.refreshSession(ctx, user.ID)
		if err != nil {
			// The presented token is still valid; a failed refresh only
			// shortens how long the caller stays signed in.
			a.logger.WarnTag(logTag, "refresh for user %d failed: %v", user.ID, err)
		} else {
			session = refreshed
			a.logger.InfoTag(logTag, "refreshed session for user %d", user.ID)
		}
	}

	return a.principal(user, state, session), nil
}

// refreshSession mints a replacement token while keeping the old session row
// alive until its own expiry, so requests already in flight with the old
// token keep working.
func (a *Authority) refreshSession(ctx context.Context, userID uint) (*Session, error) {
	signed, claims, err := a.codec.Sign(userID, a.now())
	if err != nil {
		return nil, err
	}
	err = a.repo.CreateSession(ctx, &SessionRecord{
		TokenID:   claims.TokenID,
		UserID:    userID,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: signed, Claims: claims, Refreshed: true}, nil
}

func (a *Authority) principal(user *User, state store.State, session *Session) *Principal {
	return &Principal{
		UserID:     user.ID,
		Email:      user.Email,
		FullName:   user.FullName,
		SuperUser:  user.SuperUser(),
		Guest:      user.Guest(),
		Verified:   user.Verified,
		Enabled:    user.Enabled,
		MFAEnabled: user.MFAEnabled,
		MFAPassed:  state.PassedMFAChallenge,
		AvatarURL:  user.AvatarURL,
		Theme:      user.Theme,
		Font:       user.Font,
		Session:    session,
	}
}

// UpdateProfile stores the user's presentation preferences. Empty fields are
// left untouched.
func (a *Authority) UpdateProfile(ctx context.Context, userID uint, avatarURL, theme, font string) error {
	user, err := a.repo.UserByID(ctx, userID)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "update_profile", "load user", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if avatarURL != "" {
		user.AvatarURL = avatarURL
	}
	if theme != "" {
		user.Theme = theme
	}
	if font != "" {
		user.Font = font
	}

	if err := a.repo.UpdateUser(ctx, user); err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "update_profile", "update user", err)
	}
	return nil
}

// SignOut closes the session behind a token. Unknown sessions are not an
// error; sign-out is idempotent.
func (a *Authority) SignOut(ctx context.Context, token string) error {
	claims, err := a.codec.Verify(token)
	if err != nil {
		return err
	}

	rec, err := a.repo.SessionByTokenID(ctx, claims.TokenID)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "sign_out", "load session", err)
	}
	if rec == nil {
		a.logger.WarnTag(logTag, "sign-out for unknown session %s", claims.TokenID)
		return nil
	}

	if err := a.repo.DeleteSession(ctx, claims.TokenID); err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "sign_out", "delete session", err)
	}
	if err := a.states.Remove(ctx, claims.UserID); err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "sign_out", "remove session state", err)
	}

	a.logger.InfoTag(logTag, "user %d signed out", claims.UserID)
	return nil
}

// SignOutUser force-closes every session a user holds. Used when a realtime
// connection times out and by administrative tooling.
func (a *Authority) SignOutUser(ctx context.Context, userID uint) error {
	if err := a.repo.DeleteSessionsForUser(ctx, userID); err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "sign_out_user", "delete sessions", err)
	}
	if err := a.states.Remove(ctx, userID); err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "sign_out_user", "remove session state", err)
	}
	a.logger.InfoTag(logTag, "user %d forcibly signed out", userID)
	return nil
}

// PurgeExpiredSessions removes session rows whose tokens can no longer verify.
func (a *Authority) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return a.repo.DeleteExpiredSessions(ctx, a.now())
}

// CreateAccount registers a new, unverified account and returns the email
// verification code to deliver out of band.
func (a *Authority) CreateAccount(ctx context.Context, email, password, fullName string) (*User, string, error) {
	existing, err := a.repo.UserByEmail(ctx, email)
	if err != nil {
		return nil, "", platformerrors.Wrap(platformerrors.KindAuth, "create_account", "load user", err)
	}
	if existing != nil {
		return nil, "", platformerrors.New(platformerrors.KindAuth, "create_account", "email already registered")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", platformerrors.Wrap(platformerrors.KindAuth, "create_account", "hash password", err)
	}

	user := &User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Enabled:      true,
	}
	if err := a.repo.CreateUser(ctx, user); err != nil {
		return nil, "", platformerrors.Wrap(platformerrors.KindAuth, "create_account", "create user", err)
	}

	code, err := a.issueVerificationCode(ctx, user.ID, PurposeVerifyEmail)
	if err != nil {
		return nil, "", err
	}

	a.logger.InfoTag(logTag, "account created for user %d", user.ID)
	return user, code, nil
}

func (a *Authority) issueVerificationCode(ctx context.Context, userID uint, purpose string) (string, error) {
	code, err := GenerateNumericCode(6)
	if err != nil {
		return "", platformerrors.Wrap(platformerrors.KindAuth, "issue_code", "generate code", err)
	}
	err = a.repo.CreateVerificationCode(ctx, &VerificationCode{
		Code:      code,
		UserID:    userID,
		Purpose:   purpose,
		ExpiresAt: a.now().Add(a.policy.VerificationCodeTTL),
	})
	if err != nil {
		return "", platformerrors.Wrap(platformerrors.KindAuth, "issue_code", "persist code", err)
	}
	return code, nil
}

// VerifyAccount consumes an email verification code and marks the account
// verified.
func (a *Authority) VerifyAccount(ctx context.Context, code string) error {
	vc, err := a.repo.ConsumeVerificationCode(ctx, code, PurposeVerifyEmail)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "verify_account", "consume code", err)
	}
	if vc == nil || vc.ExpiresAt.Before(a.now()) {
		return ErrInvalidVerificationCode
	}

	user, err := a.repo.UserByID(ctx, vc.UserID)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "verify_account", "load user", err)
	}
	if user == nil {
		return ErrInvalidVerificationCode
	}

	user.Verified = true
	if err := a.repo.UpdateUser(ctx, user); err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "verify_account", "update user", err)
	}
	a.logger.InfoTag(logTag, "user %d verified", user.ID)
	return nil
}

// RequestPasswordRecovery issues a recovery code for the account, if it
// exists. Missing accounts report success so the endpoint cannot be used to
// enumerate users; the empty code tells the caller to skip delivery.
func (a *Authority) RequestPasswordRecovery(ctx context.Context, email string) (string, error) {
	user, err := a.repo.UserByEmail(ctx, email)
	if err != nil {
		return "", platformerrors.Wrap(platformerrors.KindAuth, "recover", "load user", err)
	}
	if user == nil || !user.Enabled {
		return "", nil
	}
	return a.issueVerificationCode(ctx, user.ID, PurposeRecoverPassword)
}

// ResetPassword consumes a recovery code and replaces the password. All
// existing sessions are closed.
func (a *Authority) ResetPassword(ctx context.Context, code, newPassword string) error {
	vc, err := a.repo.ConsumeVerificationCode(ctx, code, PurposeRecoverPassword)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "reset_password", "consume code", err)
	}
	if vc == nil || vc.ExpiresAt.Before(a.now()) {
		return ErrInvalidVerificationCode
	}

	user, err := a.repo.UserByID(ctx, vc.UserID)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "reset_password", "load user", err)
	}
	if user == nil {
		return ErrInvalidVerificationCode
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "reset_password", "hash password", err)
	}
	user.PasswordHash = hash
	if err := a.repo.UpdateUser(ctx, user); err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "reset_password", "update user", err)
	}

	return a.SignOutUser(ctx, user.ID)
}

// RegisterMFA stages a fresh TOTP secret for the user and returns the
// provisioning URL. MFA only turns on once the user proves possession by
// passing VerifyMFA with a code from the new secret.
func (a *Authority) RegisterMFA(ctx context.Context, userID uint) (secret, url string, err error) {
	user, err := a.repo.UserByID(ctx, userID)
	if err != nil {
		return "", "", platformerrors.Wrap(platformerrors.KindAuth, "register_mfa", "load user", err)
	}
	if user == nil {
		return "", "", ErrUserNotFound
	}

	secret, url, err = GenerateTOTPKey(a.policy.TOTP, user.Email)
	if err != nil {
		return "", "", platformerrors.Wrap(platformerrors.KindAuth, "register_mfa", "generate key", err)
	}

	user.MFASecret = secret
	user.MFAEnabled = false
	if err := a.repo.UpdateUser(ctx, user); err != nil {
		return "", "", platformerrors.Wrap(platformerrors.KindAuth, "register_mfa", "update user", err)
	}
	return secret, url, nil
}

// VerifyMFA checks a TOTP code for the user's staged or confirmed secret.
// The first successful check after registration enables MFA; every success
// marks the current session as challenge-passed. Failures are reported with
// a single generic error.
func (a *Authority) VerifyMFA(ctx context.Context, userID uint, code string) error {
	user, err := a.repo.UserByID(ctx, userID)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "verify_mfa", "load user", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	// A missing secret reports the same error as a wrong code so the
	// endpoint cannot be used to probe whether a challenge exists.
	if user.MFASecret == "" {
		return ErrInvalidMFA
	}

	if !ValidateTOTP(a.policy.TOTP, user.MFASecret, code) {
		return ErrInvalidMFA
	}

	if !user.MFAEnabled {
		user.MFAEnabled = true
		if err := a.repo.UpdateUser(ctx, user); err != nil {
			return platformerrors.Wrap(platformerrors.KindAuth, "verify_mfa", "enable mfa", err)
		}
		a.logger.InfoTag(logTag, "mfa enabled for user %d", user.ID)
	}

	return a.markChallengePassed(ctx, userID)
}

func (a *Authority) markChallengePassed(ctx context.Context, userID uint) error {
	state, ok, err := a.states.Get(ctx, userID)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "verify_mfa", "load session state", err)
	}
	if !ok {
		return ErrSessionNotFound
	}
	state.PassedMFAChallenge = true
	state.LastActivity = a.now()
	if err := a.states.Put(ctx, state); err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "verify_mfa", "store session state", err)
	}
	return nil
}

// GenerateRecoveryCodes replaces the user's single-use fallback codes and
// returns the plaintext codes for one-time display. Only available once MFA
// is enabled; the codes stand in for a TOTP challenge, nothing else.
func (a *Authority) GenerateRecoveryCodes(ctx context.Context, userID uint) ([]string, error) {
	user, err := a.repo.UserByID(ctx, userID)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindAuth, "recovery_codes", "load user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.MFAEnabled {
		return nil, ErrMFANotEnabled
	}

	codes := make([]string, 0, recoveryCodeCount)
	hashed := make([]RecoveryCode, 0, recoveryCodeCount)
	for i := 0; i < recoveryCodeCount; i++ {
		code, err := GenerateRecoveryCode()
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindAuth, "recovery_codes", "generate", err)
		}
		hash, err := HashPassword(code)
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindAuth, "recovery_codes", "hash", err)
		}
		codes = append(codes, code)
		hashed = append(hashed, RecoveryCode{UserID: userID, CodeHash: hash})
	}
	if err := a.repo.CreateRecoveryCodes(ctx, hashed); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindAuth, "recovery_codes", "persist", err)
	}
	return codes, nil
}

// VerifyRecoveryCode burns a fallback code in place of a TOTP challenge.
func (a *Authority) VerifyRecoveryCode(ctx context.Context, userID uint, code string) error {
	stored, err := a.repo.RecoveryCodesForUser(ctx, userID)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindAuth, "verify_recovery", "load codes", err)
	}
	for _, rc := range stored {
		if rc.Used || !CheckPassword(rc.CodeHash, code) {
			continue
		}
		if err := a.repo.MarkRecoveryCodeUsed(ctx, rc.ID); err != nil {
			return platformerrors.Wrap(platformerrors.KindAuth, "verify_recovery", "mark used", err)
		}
		return a.markChallengePassed(ctx, userID)
	}
	return ErrInvalidMFA
}

// IsAuthError reports whether err is one of the verification sentinels, as
// opposed to an infrastructure failure.
func IsAuthError(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidCredentials, ErrInvalidSignature, ErrMalformed, ErrInvalidJWT,
		ErrSessionNotFound, ErrSessionInactive, ErrUserNotFound, ErrUserNotVerified,
		ErrMFANotVerified, ErrInvalidMFA, ErrMFANotEnabled, ErrInvalidVerificationCode,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
