package storage

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"boss-server-go/internal/domain/auth"
	"boss-server-go/internal/domain/friend"
	"boss-server-go/internal/domain/notify"
)

const testAdminPassword = "first-run-pass"

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(":memory:", testAdminPassword)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return db
}

func TestOpenSeedsWellKnownAccounts(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuthRepository(db)
	ctx := context.Background()

	super, err := repo.UserByID(ctx, auth.SuperUserID)
	if err != nil {
		t.Fatalf("UserByID failed: %v", err)
	}
	if super == nil || !super.SuperUser() || !super.Verified {
		t.Fatalf("unexpected super user: %+v", super)
	}

	guest, err := repo.UserByID(ctx, auth.GuestUserID)
	if err != nil {
		t.Fatalf("UserByID failed: %v", err)
	}
	if guest == nil || !guest.Guest() {
		t.Fatalf("unexpected guest user: %+v", guest)
	}

	// The administrator can sign in with the configured first-run
	// password; the guest cannot sign in at all.
	if !auth.CheckPassword(super.PasswordHash, testAdminPassword) {
		t.Error("admin password must match the configured seed")
	}
	if auth.CheckPassword(guest.PasswordHash, "") {
		t.Error("empty password must never match")
	}
}

func TestAuthRepository_Users(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuthRepository(db)
	ctx := context.Background()

	user := &auth.User{
		Email:        "alice@example.com",
		PasswordHash: "digest",
		FullName:     "Alice",
		Verified:     true,
		Enabled:      true,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected an assigned ID")
	}

	got, err := repo.UserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("UserByEmail failed: %v", err)
	}
	if got == nil || got.ID != user.ID || got.FullName != "Alice" {
		t.Fatalf("unexpected user: %+v", got)
	}

	missing, err := repo.UserByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("UserByEmail failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for a missing user, got %+v", missing)
	}

	got.MFASecret = "secret"
	got.MFAEnabled = true
	if err := repo.UpdateUser(ctx, got); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	updated, _ := repo.UserByID(ctx, got.ID)
	if !updated.MFAEnabled || updated.MFASecret != "secret" {
		t.Fatalf("update not persisted: %+v", updated)
	}
}

func TestAuthRepository_Sessions(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuthRepository(db)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	rec := &auth.SessionRecord{
		TokenID:   "tok-1",
		UserID:    5,
		IssuedAt:  now,
		ExpiresAt: now.Add(12 * time.Hour),
	}
	if err := repo.CreateSession(ctx, rec); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// The token ID is the primary key.
	if err := repo.CreateSession(ctx, rec); err == nil {
		t.Fatal("duplicate token ID should fail")
	}

	got, err := repo.SessionByTokenID(ctx, "tok-1")
	if err != nil {
		t.Fatalf("SessionByTokenID failed: %v", err)
	}
	if got == nil || got.UserID != 5 || !got.ExpiresAt.Equal(rec.ExpiresAt) {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := repo.CreateSession(ctx, &auth.SessionRecord{
		TokenID: "tok-2", UserID: 5, IssuedAt: now.Add(-24 * time.Hour), ExpiresAt: now.Add(-12 * time.Hour),
	}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	purged, err := repo.DeleteExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged %d sessions, expected 1", purged)
	}

	if err := repo.DeleteSessionsForUser(ctx, 5); err != nil {
		t.Fatalf("DeleteSessionsForUser failed: %v", err)
	}
	if got, _ := repo.SessionByTokenID(ctx, "tok-1"); got != nil {
		t.Fatal("expected all sessions gone")
	}
}

func TestAuthRepository_VerificationCodes(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuthRepository(db)
	ctx := context.Background()

	code := &auth.VerificationCode{
		Code:      "123456",
		UserID:    5,
		Purpose:   auth.PurposeVerifyEmail,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	if err := repo.CreateVerificationCode(ctx, code); err != nil {
		t.Fatalf("CreateVerificationCode failed: %v", err)
	}

	// Wrong purpose does not consume.
	got, err := repo.ConsumeVerificationCode(ctx, "123456", auth.PurposeRecoverPassword)
	if err != nil || got != nil {
		t.Fatalf("wrong purpose: got %+v, %v", got, err)
	}

	got, err = repo.ConsumeVerificationCode(ctx, "123456", auth.PurposeVerifyEmail)
	if err != nil {
		t.Fatalf("ConsumeVerificationCode failed: %v", err)
	}
	if got == nil || got.UserID != 5 {
		t.Fatalf("unexpected code: %+v", got)
	}

	// Consumption is single use.
	got, err = repo.ConsumeVerificationCode(ctx, "123456", auth.PurposeVerifyEmail)
	if err != nil || got != nil {
		t.Fatalf("second consume: got %+v, %v", got, err)
	}
}

func TestAuthRepository_RecoveryCodes(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuthRepository(db)
	ctx := context.Background()

	first := []auth.RecoveryCode{
		{UserID: 5, CodeHash: "h1"},
		{UserID: 5, CodeHash: "h2"},
	}
	if err := repo.CreateRecoveryCodes(ctx, first); err != nil {
		t.Fatalf("CreateRecoveryCodes failed: %v", err)
	}

	codes, err := repo.RecoveryCodesForUser(ctx, 5)
	if err != nil {
		t.Fatalf("RecoveryCodesForUser failed: %v", err)
	}
	if len(codes) != 2 {
		t.Fatalf("got %d codes, expected 2", len(codes))
	}

	if err := repo.MarkRecoveryCodeUsed(ctx, codes[0].ID); err != nil {
		t.Fatalf("MarkRecoveryCodeUsed failed: %v", err)
	}
	codes, _ = repo.RecoveryCodesForUser(ctx, 5)
	used := 0
	for _, c := range codes {
		if c.Used {
			used++
		}
	}
	if used != 1 {
		t.Fatalf("got %d used codes, expected 1", used)
	}

	// A new batch replaces the old one.
	if err := repo.CreateRecoveryCodes(ctx, []auth.RecoveryCode{{UserID: 5, CodeHash: "h3"}}); err != nil {
		t.Fatalf("CreateRecoveryCodes failed: %v", err)
	}
	codes, _ = repo.RecoveryCodesForUser(ctx, 5)
	if len(codes) != 1 || codes[0].CodeHash != "h3" {
		t.Fatalf("expected replacement batch, got %+v", codes)
	}
}

func TestNotificationRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	n := &notify.Notification{
		UserID:  7,
		Kind:    "friendRequest",
		Message: "Bob wants to connect",
		Metadata: map[string]any{
			"requestId": float64(3),
			"status":    "pending",
		},
	}
	if err := repo.CreateNotification(ctx, n); err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}
	if err := repo.CreateNotification(ctx, &notify.Notification{UserID: 7, Kind: "system", Message: "welcome"}); err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}

	got, err := repo.NotificationByID(ctx, n.ID)
	if err != nil {
		t.Fatalf("NotificationByID failed: %v", err)
	}
	if got.Metadata["status"] != "pending" || got.Metadata["requestId"] != float64(3) {
		t.Fatalf("metadata did not round trip: %+v", got.Metadata)
	}

	if err := repo.MarkNotificationRead(ctx, n.ID); err != nil {
		t.Fatalf("MarkNotificationRead failed: %v", err)
	}

	unread, err := repo.NotificationsForUser(ctx, 7, true)
	if err != nil {
		t.Fatalf("NotificationsForUser failed: %v", err)
	}
	if len(unread) != 1 || unread[0].Kind != "system" {
		t.Fatalf("unexpected unread list: %+v", unread)
	}

	all, err := repo.NotificationsForUser(ctx, 7, false)
	if err != nil {
		t.Fatalf("NotificationsForUser failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d notifications, expected 2", len(all))
	}

	if err := repo.DeleteNotification(ctx, n.ID); err != nil {
		t.Fatalf("DeleteNotification failed: %v", err)
	}
	if got, _ := repo.NotificationByID(ctx, n.ID); got != nil {
		t.Fatal("expected notification gone")
	}
}

func TestFriendRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewFriendRepository(db)
	ctx := context.Background()

	req := &friend.Request{FromUserID: 10, ToUserID: 20, Status: friend.StatusPending}
	if err := repo.CreateFriendRequest(ctx, req); err != nil {
		t.Fatalf("CreateFriendRequest failed: %v", err)
	}

	// Lookup works in both directions.
	for _, pair := range [][2]uint{{10, 20}, {20, 10}} {
		got, err := repo.FriendRequestBetween(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatalf("FriendRequestBetween failed: %v", err)
		}
		if got == nil || got.ID != req.ID {
			t.Fatalf("between %v: unexpected result %+v", pair, got)
		}
	}

	req.Status = friend.StatusAccepted
	if err := repo.UpdateFriendRequest(ctx, req); err != nil {
		t.Fatalf("UpdateFriendRequest failed: %v", err)
	}
	got, _ := repo.FriendRequestByID(ctx, req.ID)
	if got.Status != friend.StatusAccepted {
		t.Fatalf("status not persisted: %+v", got)
	}

	list, err := repo.FriendRequestsForUser(ctx, 20)
	if err != nil {
		t.Fatalf("FriendRequestsForUser failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d requests, expected 1", len(list))
	}

	if err := repo.DeleteFriendRequest(ctx, req.ID); err != nil {
		t.Fatalf("DeleteFriendRequest failed: %v", err)
	}
	if got, _ := repo.FriendRequestByID(ctx, req.ID); got != nil {
		t.Fatal("expected request gone")
	}
}
