package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"boss-server-go/internal/domain/auth/store"
	"boss-server-go/internal/platform/logging"
)

// fakeRepo is an in-memory Repository for authority tests.
type fakeRepo struct {
	mu       sync.Mutex
	users    map[uint]*User
	sessions map[string]*SessionRecord
	codes    map[string]*VerificationCode
	recovery []RecoveryCode
	nextID   uint
	nextRCID uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    make(map[uint]*User),
		sessions: make(map[string]*SessionRecord),
		codes:    make(map[string]*VerificationCode),
		nextID:   10,
	}
}

func (r *fakeRepo) addUser(u User) *User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == 0 {
		r.nextID++
		u.ID = r.nextID
	}
	copied := u
	r.users[u.ID] = &copied
	return &copied
}

func (r *fakeRepo) UserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) UserByID(_ context.Context, id uint) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *fakeRepo) CreateUser(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeRepo) UpdateUser(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeRepo) CreateSession(_ context.Context, rec *SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *rec
	r.sessions[rec.TokenID] = &copied
	return nil
}

func (r *fakeRepo) SessionByTokenID(_ context.Context, tokenID string) (*SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.sessions[tokenID]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (r *fakeRepo) DeleteSession(_ context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, tokenID)
	return nil
}

func (r *fakeRepo) DeleteSessionsForUser(_ context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.sessions {
		if rec.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *fakeRepo) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, rec := range r.sessions {
		if rec.ExpiresAt.Before(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) CreateVerificationCode(_ context.Context, code *VerificationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *code
	r.codes[code.Code] = &copied
	return nil
}

func (r *fakeRepo) ConsumeVerificationCode(_ context.Context, code, purpose string) (*VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vc, ok := r.codes[code]
	if !ok || vc.Purpose != purpose {
		return nil, nil
	}
	delete(r.codes, code)
	copied := *vc
	return &copied, nil
}

func (r *fakeRepo) CreateRecoveryCodes(_ context.Context, codes []RecoveryCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recovery = r.recovery[:0]
	for _, c := range codes {
		r.nextRCID++
		c.ID = r.nextRCID
		r.recovery = append(r.recovery, c)
	}
	return nil
}

func (r *fakeRepo) RecoveryCodesForUser(_ context.Context, userID uint) ([]RecoveryCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecoveryCode, 0)
	for _, c := range r.recovery {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeRepo) MarkRecoveryCodeUsed(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.recovery {
		if r.recovery[i].ID == id {
			r.recovery[i].Used = true
		}
	}
	return nil
}

func (r *fakeRepo) sessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

type testAuthority struct {
	*Authority
	repo   *fakeRepo
	states store.Store
	clock  *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestAuthority(t *testing.T) *testAuthority {
	t.Helper()

	repo := newFakeRepo()
	states := store.NewMemory(store.Config{TTL: 24 * time.Hour})
	t.Cleanup(func() {
		_ = states.Close(context.Background())
	})

	authority, err := NewAuthority(Options{
		Repo:   repo,
		States: states,
		Codec:  NewTokenCodec("test-secret", 12*time.Hour),
		Logger: logging.Discard(),
		Policy: Policy{
			SessionTTL:    12 * time.Hour,
			RefreshWindow: 15 * time.Minute,
			MaxInactivity: 15 * time.Minute,
			TOTP:          TOTPConfig{Issuer: "test", Digits: 6, Period: 30},
		},
	})
	if err != nil {
		t.Fatalf("NewAuthority failed: %v", err)
	}

	clock := &fakeClock{now: time.Now()}
	authority.now = clock.Now

	return &testAuthority{Authority: authority, repo: repo, states: states, clock: clock}
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	return hash
}

func addActiveUser(t *testing.T, a *testAuthority, email, password string) *User {
	t.Helper()
	return a.repo.addUser(User{
		Email:        email,
		PasswordHash: mustHash(t, password),
		FullName:     "Test User",
		Verified:     true,
		Enabled:      true,
	})
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	addActiveUser(t, a, "alice@example.com", "hunter2")

	session, err := a.SignIn(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if session.AccessToken == "" {
		t.Fatal("expected an access token")
	}
	if a.repo.sessionCount() != 1 {
		t.Fatalf("expected 1 session row, got %d", a.repo.sessionCount())
	}
}

func TestSignIn_BadCredentials(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	addActiveUser(t, a, "alice@example.com", "hunter2")

	a.repo.addUser(User{
		Email:        "bob@example.com",
		PasswordHash: mustHash(t, "hunter2"),
		Verified:     true,
		Enabled:      false,
	})

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"wrong password", "alice@example.com", "wrong", ErrInvalidCredentials},
		{"unknown account", "nobody@example.com", "hunter2", ErrInvalidCredentials},
		{"disabled account", "bob@example.com", "hunter2", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.SignIn(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SignIn error = %v, expected %v", err, tt.wantErr)
			}
		})
	}
}

func TestSignIn_UnverifiedUser(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	a.repo.addUser(User{
		Email:        "new@example.com",
		PasswordHash: mustHash(t, "hunter2"),
		Verified:     false,
		Enabled:      true,
	})

	_, err := a.SignIn(ctx, "new@example.com", "hunter2")
	if !errors.Is(err, ErrUserNotVerified) {
		t.Errorf("SignIn error = %v, expected ErrUserNotVerified", err)
	}
}

func TestVerifyAccessToken(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	user := addActiveUser(t, a, "alice@example.com", "hunter2")

	session, err := a.SignIn(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	p, err := a.VerifyAccessToken(ctx, session.AccessToken, VerifyOptions{})
	if err != nil {
		t.Fatalf("VerifyAccessToken failed: %v", err)
	}
	if p.UserID != user.ID {
		t.Errorf("UserID = %d, expected %d", p.UserID, user.ID)
	}
	if p.Session.Refreshed {
		t.Error("fresh token should not be refreshed")
	}
}

func TestVerifyAccessToken_GarbageToken(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)

	_, err := a.VerifyAccessToken(ctx, "garbage", VerifyOptions{})
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestVerifyAccessToken_AfterSignOut(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	addActiveUser(t, a, "alice@example.com", "hunter2")

	session, err := a.SignIn(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if err := a.SignOut(ctx, session.AccessToken); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}

	_, err = a.VerifyAccessToken(ctx, session.AccessToken, VerifyOptions{})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSignOut_Idempotent(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	addActiveUser(t, a, "alice@example.com", "hunter2")

	session, err := a.SignIn(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if err := a.SignOut(ctx, session.AccessToken); err != nil {
		t.Fatalf("first SignOut failed: %v", err)
	}
	if err := a.SignOut(ctx, session.AccessToken); err != nil {
		t.Fatalf("second SignOut should be a no-op, got %v", err)
	}
}

func TestVerifyAccessToken_Inactivity(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	addActiveUser(t, a, "alice@example.com", "hunter2")

	session, err := a.SignIn(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	a.clock.Advance(16 * time.Minute)

	_, err = a.VerifyAccessToken(ctx, session.AccessToken, VerifyOptions{})
	if !errors.Is(err, ErrSessionInactive) {
		t.Errorf("expected ErrSessionInactive, got %v", err)
	}
}

func TestVerifyAccessToken_ActivitySlidesWindow(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	addActiveUser(t, a, "alice@example.com", "hunter2")

	session, err := a.SignIn(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	// Stay just inside the inactivity budget three times in a row. The
	// cumulative idle time exceeds the budget, which is fine because each
	// verification resets the clock.
	for i := 0; i < 3; i++ {
		a.clock.Advance(14 * time.Minute)
		if _, err := a.VerifyAccessToken(ctx, session.AccessToken, VerifyOptions{}); err != nil {
			t.Fatalf("verification %d failed: %v", i, err)
		}
	}
}

func TestVerifyAccessToken_Refresh(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	addActiveUser(t, a, "alice@example.com", "hunter2")

	session, err := a.SignIn(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	// Keep the session active until the token enters its refresh window.
	for i := 0; i < 52; i++ {
		a.clock.Advance(14 * time.Minute)
		p, err := a.VerifyAccessToken(ctx, session.AccessToken, VerifyOptions{Refresh: true})
		if err != nil {
			t.Fatalf("verification failed after %d advances: %v", i+1, err)
		}
		if p.Session.Refreshed {
			if p.Session.AccessToken == session.AccessToken {
				t.Fatal("refreshed session should carry a new token")
			}
			// The old token stays honored until its own expiry.
			if _, err := a.VerifyAccessToken(ctx, session.AccessToken, VerifyOptions{}); err != nil {
				t.Fatalf("old token should remain valid after refresh: %v", err)
			}
			if a.repo.sessionCount() != 2 {
				t.Fatalf("expected both session rows to exist, got %d", a.repo.sessionCount())
			}
			return
		}
	}
	t.Fatal("token never entered the refresh window")
}

func TestVerifyAccessToken_ExpiredToken(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	user := addActiveUser(t, a, "alice@example.com", "hunter2")

	session, err := a.SignIn(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	a.clock.Advance(13 * time.Hour)
	// Keep the live state warm so only token expiry can fail verification.
	_ = a.states.Put(ctx, store.State{UserID: user.ID, LastActivity: a.clock.Now()})

	_, err = a.VerifyAccessToken(ctx, session.AccessToken, VerifyOptions{})
	if !errors.Is(err, ErrInvalidJWT) {
		t.Errorf("expected ErrInvalidJWT, got %v", err)
	}
	if a.repo.sessionCount() != 0 {
		t.Error("expired session row should be removed")
	}
}

func TestVerifyAccessToken_DisabledAndUnverified(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	user := addActiveUser(t, a, "alice@example.com", "hunter2")

	session, err := a.SignIn(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	user.Enabled = false
	_ = a.repo.UpdateUser(ctx, user)
	if _, err := a.VerifyAccessToken(ctx, session.AccessToken, VerifyOptions{}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("disabled user: expected ErrUserNotFound, got %v", err)
	}

	user.Enabled = true
	user.Verified = false
	_ = a.repo.UpdateUser(ctx, user)
	if _, err := a.VerifyAccessToken(ctx, session.AccessToken, VerifyOptions{}); !errors.Is(err, ErrUserNotVerified) {
		t.Errorf("unverified user: expected ErrUserNotVerified, got %v", err)
	}
}

func TestNewSignInDisplacesOldSession(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	addActiveUser(t, a, "alice@example.com", "hunter2")

	first, err := a.SignIn(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("first SignIn failed: %v", err)
	}
	if _, err := a.SignIn(ctx, "alice@example.com", "hunter2"); err != nil {
		t.Fatalf("second SignIn failed: %v", err)
	}

	// The first token's row still exists, so verification succeeds, but
	// the live state now belongs to the second sign-in.
	if _, err := a.VerifyAccessToken(ctx, first.AccessToken, VerifyOptions{}); err != nil {
		t.Fatalf("first token should still verify: %v", err)
	}
}

func TestMFALifecycle(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	user := addActiveUser(t, a, "alice@example.com", "hunter2")

	session, err := a.SignIn(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	// Without MFA enabled, a challenge-gated verification passes.
	if _, err := a.VerifyAccessToken(ctx, session.AccessToken, VerifyOptions{VerifyMFAChallenge: true}); err != nil {
		t.Fatalf("challenge-gated verify without MFA should pass: %v", err)
	}

	secret, url, err := a.RegisterMFA(ctx, user.ID)
	if err != nil {
		t.Fatalf("RegisterMFA failed: %v", err)
	}
	if url == "" {
		t.Fatal("expected a provisioning URL")
	}

	// Staged but unconfirmed MFA does not gate anything yet.
	if _, err := a.VerifyAccessToken(ctx, session.AccessToken, VerifyOptions{VerifyMFAChallenge: true}); err != nil {
		t.Fatalf("staged MFA should not gate yet: %v", err)
	}

	if err := a.VerifyMFA(ctx, user.ID, "000000"); !errors.Is(err, ErrInvalidMFA) {
		t.Fatalf("bad code: expected ErrInvalidMFA, got %v", err)
	}

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("generate totp code: %v", err)
	}
	if err := a.VerifyMFA(ctx, user.ID, code); err != nil {
		t.Fatalf("VerifyMFA failed: %v", err)
	}

	updated, _ := a.repo.UserByID(ctx, user.ID)
	if !updated.MFAEnabled {
		t.Fatal("first successful challenge should enable MFA")
	}

	// The current session has passed the challenge.
	p, err := a.VerifyAccessToken(ctx, session.AccessToken, VerifyOptions{VerifyMFAChallenge: true})
	if err != nil {
		t.Fatalf("post-challenge verify failed: %v", err)
	}
	if !p.MFAPassed {
		t.Error("principal should report a passed challenge")
	}

	// A fresh sign-in starts with the challenge unpassed.
	next, err := a.SignIn(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if _, err := a.VerifyAccessToken(ctx, next.AccessToken, VerifyOptions{VerifyMFAChallenge: true}); !errors.Is(err, ErrMFANotVerified) {
		t.Errorf("expected ErrMFANotVerified, got %v", err)
	}
	if _, err := a.VerifyAccessToken(ctx, next.AccessToken, VerifyOptions{}); err != nil {
		t.Errorf("ungated verify should pass: %v", err)
	}
}

func TestVerifyMFA_NotRegistered(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	user := addActiveUser(t, a, "alice@example.com", "hunter2")

	// Same error as a wrong code; the endpoint must not reveal whether a
	// challenge was ever registered.
	if err := a.VerifyMFA(ctx, user.ID, "123456"); !errors.Is(err, ErrInvalidMFA) {
		t.Errorf("expected ErrInvalidMFA, got %v", err)
	}

	if _, err := a.GenerateRecoveryCodes(ctx, user.ID); !errors.Is(err, ErrMFANotEnabled) {
		t.Errorf("expected ErrMFANotEnabled, got %v", err)
	}
}

func TestRecoveryCodes(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	user := addActiveUser(t, a, "alice@example.com", "hunter2")
	user.MFAEnabled = true
	if err := a.repo.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if _, err := a.SignIn(ctx, "alice@example.com", "hunter2"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	codes, err := a.GenerateRecoveryCodes(ctx, user.ID)
	if err != nil {
		t.Fatalf("GenerateRecoveryCodes failed: %v", err)
	}
	if len(codes) == 0 {
		t.Fatal("expected recovery codes")
	}

	if err := a.VerifyRecoveryCode(ctx, user.ID, codes[0]); err != nil {
		t.Fatalf("VerifyRecoveryCode failed: %v", err)
	}
	// Single use.
	if err := a.VerifyRecoveryCode(ctx, user.ID, codes[0]); !errors.Is(err, ErrInvalidMFA) {
		t.Errorf("reused code: expected ErrInvalidMFA, got %v", err)
	}
}

func TestAccountLifecycle(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)

	user, code, err := a.CreateAccount(ctx, "new@example.com", "secret123", "New User")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if user.Verified {
		t.Fatal("fresh account should be unverified")
	}

	if _, err := a.SignIn(ctx, "new@example.com", "secret123"); !errors.Is(err, ErrUserNotVerified) {
		t.Fatalf("sign-in before verification: expected ErrUserNotVerified, got %v", err)
	}

	if err := a.VerifyAccount(ctx, "999999"); !errors.Is(err, ErrInvalidVerificationCode) {
		t.Fatalf("bad code: expected ErrInvalidVerificationCode, got %v", err)
	}
	if err := a.VerifyAccount(ctx, code); err != nil {
		t.Fatalf("VerifyAccount failed: %v", err)
	}
	if _, err := a.SignIn(ctx, "new@example.com", "secret123"); err != nil {
		t.Fatalf("sign-in after verification failed: %v", err)
	}
}

func TestPasswordRecovery(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	addActiveUser(t, a, "alice@example.com", "oldpass")

	// Unknown accounts succeed silently.
	code, err := a.RequestPasswordRecovery(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("recovery for unknown account should not error: %v", err)
	}
	if code != "" {
		t.Fatal("unknown account should yield no code")
	}

	code, err = a.RequestPasswordRecovery(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordRecovery failed: %v", err)
	}
	if code == "" {
		t.Fatal("expected a recovery code")
	}

	if err := a.ResetPassword(ctx, code, "newpass"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if _, err := a.SignIn(ctx, "alice@example.com", "oldpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should no longer work: %v", err)
	}
	if _, err := a.SignIn(ctx, "alice@example.com", "newpass"); err != nil {
		t.Fatalf("new password should work: %v", err)
	}
}

func TestPurgeExpiredSessions(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	addActiveUser(t, a, "alice@example.com", "hunter2")

	if _, err := a.SignIn(ctx, "alice@example.com", "hunter2"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	a.clock.Advance(13 * time.Hour)
	n, err := a.PurgeExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("PurgeExpiredSessions failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d sessions, expected 1", n)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(t)
	user := addActiveUser(t, a, "alice@example.com", "hunter2")

	if err := a.UpdateProfile(ctx, user.ID, "https://cdn.example.com/a.png", "dark", ""); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	session, err := a.SignIn(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	p, err := a.VerifyAccessToken(ctx, session.AccessToken, VerifyOptions{})
	if err != nil {
		t.Fatalf("VerifyAccessToken failed: %v", err)
	}
	if p.AvatarURL != "https://cdn.example.com/a.png" || p.Theme != "dark" {
		t.Errorf("principal missing profile fields: %+v", p)
	}
	// An empty field leaves the stored value alone.
	if p.Font != "" {
		t.Errorf("font should be unset, got %q", p.Font)
	}

	if err := a.UpdateProfile(ctx, 999, "x", "", ""); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
