package authgate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRequestPasswordResetIssuesToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	te := newTestEngine(t, rdb, newMockAccounts())
	account := seedAccount(t, te.engine.hasher, "u1", "alice@example.com", "old-password-123")
	te.accounts.add(account)

	outcome, err := te.engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	if outcome != ResetLinkSent {
		t.Fatalf("expected ResetLinkSent, got %v", outcome)
	}

	sent := te.mail.notifications()
	if len(sent) != 1 {
		t.Fatalf("expected 1 queued notification, got %d", len(sent))
	}
	if len(sent[0].Token) != 64 {
		t.Fatalf("expected 64-char hex token, got %d chars", len(sent[0].Token))
	}
	if !strings.Contains(sent[0].ResetURL, "token=") || !strings.Contains(sent[0].ResetURL, "email=") {
		t.Fatalf("expected reset URL carrying token and email, got %q", sent[0].ResetURL)
	}

	if te.tokens.count() != 1 {
		t.Fatalf("expected 1 token row, got %d", te.tokens.count())
	}
	row, err := te.tokens.FindByEmail(ctx, "alice@example.com")
	if err != nil || row == nil {
		t.Fatalf("expected stored token row, got row=%v err=%v", row, err)
	}
	if row.TokenHash == sent[0].Token {
		t.Fatal("expected at-rest hash to differ from plaintext token")
	}

	ok, err := te.engine.ValidateResetToken(ctx, "alice@example.com", sent[0].Token)
	if err != nil || !ok {
		t.Fatalf("expected issued token to validate, ok=%v err=%v", ok, err)
	}
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	te := newTestEngine(t, rdb, newMockAccounts())

	outcome, err := te.engine.RequestPasswordReset(context.Background(), "missing@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	if outcome != ResetInvalidUser {
		t.Fatalf("expected ResetInvalidUser, got %v", outcome)
	}
	if len(te.mail.notifications()) != 0 {
		t.Fatal("expected no notification for unknown email")
	}
	if te.tokens.count() != 0 {
		t.Fatal("expected no token row for unknown email")
	}
}

func TestRequestPasswordResetMalformedEmail(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	te := newTestEngine(t, rdb, newMockAccounts())

	for _, input := range []string{"", "not-an-email", "a@", "@b.com"} {
		outcome, err := te.engine.RequestPasswordReset(context.Background(), input)
		if err != nil {
			t.Fatalf("input %q: unexpected error %v", input, err)
		}
		if outcome != ResetInvalidUser {
			t.Fatalf("input %q: expected ResetInvalidUser, got %v", input, outcome)
		}
	}
}

func TestRequestPasswordResetNormalizesEmail(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	te := newTestEngine(t, rdb, newMockAccounts())
	te.accounts.add(seedAccount(t, te.engine.hasher, "u1", "alice@example.com", "old-password-123"))

	outcome, err := te.engine.RequestPasswordReset(ctx, "  Alice@Example.COM ")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	if outcome != ResetLinkSent {
		t.Fatalf("expected ResetLinkSent for case-variant email, got %v", outcome)
	}
	if row, _ := te.tokens.FindByEmail(ctx, "alice@example.com"); row == nil {
		t.Fatal("expected token row keyed by normalized email")
	}
}

func TestRequestPasswordResetThrottled(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	te := newTestEngine(t, rdb, newMockAccounts())
	te.accounts.add(seedAccount(t, te.engine.hasher, "u1", "alice@example.com", "old-password-123"))

	if _, err := te.engine.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("first RequestPasswordReset failed: %v", err)
	}
	first := te.mail.notifications()[0].Token

	te.clock.Advance(30 * time.Second)
	outcome, err := te.engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("second RequestPasswordReset failed: %v", err)
	}
	if outcome != ResetThrottled {
		t.Fatalf("expected ResetThrottled inside window, got %v", outcome)
	}
	if len(te.mail.notifications()) != 1 {
		t.Fatal("expected throttled request to queue no notification")
	}

	// The prior token must survive a throttled request.
	ok, err := te.engine.ValidateResetToken(ctx, "alice@example.com", first)
	if err != nil || !ok {
		t.Fatalf("expected first token to stay valid, ok=%v err=%v", ok, err)
	}
}

func TestRequestPasswordResetReissueAfterWindow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	te := newTestEngine(t, rdb, newMockAccounts())
	te.accounts.add(seedAccount(t, te.engine.hasher, "u1", "alice@example.com", "old-password-123"))

	if _, err := te.engine.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("first RequestPasswordReset failed: %v", err)
	}
	first := te.mail.notifications()[0].Token

	te.clock.Advance(61 * time.Second)
	outcome, err := te.engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("second RequestPasswordReset failed: %v", err)
	}
	if outcome != ResetLinkSent {
		t.Fatalf("expected re-issue after window, got %v", outcome)
	}

	second := te.mail.notifications()[1].Token
	if first == second {
		t.Fatal("expected a fresh token on re-issue")
	}

	if ok, _ := te.engine.ValidateResetToken(ctx, "alice@example.com", first); ok {
		t.Fatal("expected first token to be invalidated by re-issue")
	}
	if ok, _ := te.engine.ValidateResetToken(ctx, "alice@example.com", second); !ok {
		t.Fatal("expected second token to validate")
	}
}

func TestRequestPasswordResetMailerFailureStillSent(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	te := newTestEngine(t, rdb, newMockAccounts())
	te.accounts.add(seedAccount(t, te.engine.hasher, "u1", "alice@example.com", "old-password-123"))
	te.mail.err = errors.New("smtp backlog full")

	outcome, err := te.engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	if outcome != ResetLinkSent {
		t.Fatalf("expected ResetLinkSent despite enqueue failure, got %v", outcome)
	}
	if te.tokens.count() != 1 {
		t.Fatal("expected token row to survive enqueue failure")
	}

	snap := te.engine.MetricsSnapshot()
	if snap.Counters[MetricMailEnqueueFailed] != 1 {
		t.Fatalf("expected MetricMailEnqueueFailed=1, got %d", snap.Counters[MetricMailEnqueueFailed])
	}
}

func TestRequestPasswordResetStoreUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	te := newTestEngine(t, rdb, newMockAccounts())
	te.accounts.findErr = errors.New("connection refused")

	_, err := te.engine.RequestPasswordReset(context.Background(), "alice@example.com")
	if !errors.Is(err, ErrResetUnavailable) {
		t.Fatalf("expected ErrResetUnavailable, got %v", err)
	}
}

func TestConfirmPasswordResetFlow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	te := newTestEngine(t, rdb, newMockAccounts())
	account := seedAccount(t, te.engine.hasher, "u1", "alice@example.com", "old-password-123")
	account.RememberToken = "prior-remember-token"
	te.accounts.add(account)

	if _, err := te.engine.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	token := te.mail.notifications()[0].Token

	outcome, err := te.engine.ConfirmPasswordReset(ctx, "alice@example.com", token, "new-password-123")
	if err != nil {
		t.Fatalf("ConfirmPasswordReset failed: %v", err)
	}
	if outcome != ResetCompleted {
		t.Fatalf("expected ResetCompleted, got %v", outcome)
	}

	updated := te.accounts.get("u1")
	ok, err := te.engine.hasher.Verify("new-password-123", updated.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("expected new password to verify, ok=%v err=%v", ok, err)
	}
	if updated.RememberToken == "" || updated.RememberToken == "prior-remember-token" {
		t.Fatalf("expected remember token rotation, got %q", updated.RememberToken)
	}
	if te.tokens.count() != 0 {
		t.Fatal("expected token row consumed on completion")
	}

	// Single use: the consumed token cannot be replayed.
	outcome, err = te.engine.ConfirmPasswordReset(ctx, "alice@example.com", token, "newer-password-123")
	if err != nil {
		t.Fatalf("replay ConfirmPasswordReset failed: %v", err)
	}
	if outcome != ResetInvalidToken {
		t.Fatalf("expected ResetInvalidToken on replay, got %v", outcome)
	}
}

func TestConfirmPasswordResetWrongToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	te := newTestEngine(t, rdb, newMockAccounts())
	account := seedAccount(t, te.engine.hasher, "u1", "alice@example.com", "old-password-123")
	te.accounts.add(account)

	if _, err := te.engine.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}

	outcome, err := te.engine.ConfirmPasswordReset(ctx, "alice@example.com", strings.Repeat("0", 64), "new-password-123")
	if err != nil {
		t.Fatalf("ConfirmPasswordReset failed: %v", err)
	}
	if outcome != ResetInvalidToken {
		t.Fatalf("expected ResetInvalidToken, got %v", outcome)
	}

	unchanged := te.accounts.get("u1")
	if unchanged.PasswordHash != account.PasswordHash {
		t.Fatal("expected password hash untouched after invalid token")
	}
	if te.tokens.count() != 1 {
		t.Fatal("expected token row to survive invalid confirmation")
	}
}

func TestConfirmPasswordResetShortPassword(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	te := newTestEngine(t, rdb, newMockAccounts())
	te.accounts.add(seedAccount(t, te.engine.hasher, "u1", "alice@example.com", "old-password-123"))

	_, err := te.engine.ConfirmPasswordReset(context.Background(), "alice@example.com", "whatever", "short")
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
}

func TestValidateResetTokenNoRow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	te := newTestEngine(t, rdb, newMockAccounts())

	ok, err := te.engine.ValidateResetToken(context.Background(), "alice@example.com", "anything")
	if err != nil {
		t.Fatalf("ValidateResetToken failed: %v", err)
	}
	if ok {
		t.Fatal("expected validation failure with no token row")
	}
}
