package authgate

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/MrEthical07/authgate/internal"
)

// RequestPasswordReset issues a password-reset token for the account matching
// email and queues the notification carrying the plaintext token.
//
// The returned [ResetOutcome] is a business result; a non-nil error always
// means an infrastructure fault. A throttled request leaves the previously
// issued token untouched and still valid. Malformed emails report
// [ResetInvalidUser], indistinguishable from an unknown account.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (ResetOutcome, error) {
	if e == nil || e.accounts == nil || e.tokens == nil {
		return ResetInvalidUser, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if err := e.validate.Var(email, "required,email"); err != nil {
		e.metricInc(MetricResetRequestInvalidUser)
		return ResetInvalidUser, nil
	}

	account, err := e.accounts.FindByEmail(ctx, email)
	if err != nil {
		return ResetInvalidUser, fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}
	if account == nil {
		e.metricInc(MetricResetRequestInvalidUser)
		return ResetInvalidUser, nil
	}

	existing, err := e.tokens.FindByEmail(ctx, email)
	if err != nil {
		return ResetInvalidUser, fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}

	// Throttle before deleting: a throttled request must leave the prior
	// token row intact and valid.
	window := e.config.PasswordReset.ThrottleWindow
	if window > 0 && existing != nil && existing.CreatedAt.Add(window).After(e.now()) {
		e.metricInc(MetricResetRequestThrottled)
		return ResetThrottled, nil
	}

	// Delete-then-insert keeps the single-live-token invariant without an
	// upsert negotiation with the store.
	if err := e.tokens.DeleteByEmail(ctx, email); err != nil {
		return ResetInvalidUser, fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}

	key, err := e.secret.ApplicationKey()
	if err != nil {
		return ResetInvalidUser, err
	}

	plaintext, err := internal.NewResetToken(key)
	if err != nil {
		return ResetInvalidUser, err
	}

	tokenHash, err := e.hasher.Hash(plaintext)
	if err != nil {
		return ResetInvalidUser, err
	}

	record := TokenRecord{
		Email:     email,
		TokenHash: tokenHash,
		CreatedAt: e.now(),
	}
	if err := e.tokens.Insert(ctx, record); err != nil {
		return ResetInvalidUser, fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}

	notification := ResetNotification{
		Email:    email,
		Token:    plaintext,
		ResetURL: buildResetURL(e.config.PasswordReset.ResetBaseURL, email, plaintext),
	}
	if err := e.mailer.Queue(notification); err != nil {
		// Fire-and-forget: enqueue failure is a delivery-layer concern, the
		// token row stays valid and the outcome is still Sent.
		e.metricInc(MetricMailEnqueueFailed)
		e.log.Warn().Err(err).Str("email", email).Msg("reset notification enqueue failed")
	}

	e.metricInc(MetricResetRequestSent)
	e.emitEvent(ctx, Event{
		EventType: eventPasswordResetRequested,
		Email:     email,
		AccountID: account.ID,
	})

	return ResetLinkSent, nil
}

// ValidateResetToken reports whether token matches the live token row for
// email. It is a standalone precondition check: no state changes, usable from
// input-validation pipelines ahead of [Engine.ConfirmPasswordReset].
func (e *Engine) ValidateResetToken(ctx context.Context, email, token string) (bool, error) {
	if e == nil || e.tokens == nil {
		return false, ErrEngineNotReady
	}
	_, ok, err := e.lookupToken(ctx, normalizeEmail(email), token)
	return ok, err
}

// ConfirmPasswordReset consumes the token: on a valid (email, token) pair it
// stores the Argon2id hash of newPassword, rotates the account's remember
// token, deletes the token row, and emits a completion event.
//
// [ResetInvalidToken] covers both a missing row and a hash mismatch; repeated
// confirmation with the same token yields it because the row is single-use.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, email, token, newPassword string) (ResetOutcome, error) {
	if e == nil || e.accounts == nil || e.tokens == nil {
		return ResetInvalidToken, ErrEngineNotReady
	}

	if len(newPassword) < e.config.PasswordReset.MinPasswordBytes {
		return ResetInvalidToken, ErrPasswordPolicy
	}

	email = normalizeEmail(email)
	record, ok, err := e.lookupToken(ctx, email, token)
	if err != nil {
		return ResetInvalidToken, err
	}
	if !ok {
		e.metricInc(MetricResetInvalidToken)
		return ResetInvalidToken, nil
	}

	account, err := e.accounts.FindByEmail(ctx, email)
	if err != nil {
		return ResetInvalidToken, fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}
	if account == nil {
		e.metricInc(MetricResetInvalidToken)
		return ResetInvalidToken, nil
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return ResetInvalidToken, err
	}
	rememberToken, err := internal.NewRememberToken()
	if err != nil {
		return ResetInvalidToken, err
	}

	if _, err := e.accounts.Update(ctx, account.ID, AccountUpdate{
		PasswordHash:  &newHash,
		RememberToken: &rememberToken,
	}); err != nil {
		return ResetInvalidToken, fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}

	// The at-rest hash is salted, so the row is deleted by the stored hash
	// captured during validation, not by the plaintext.
	if err := e.tokens.DeleteByToken(ctx, record.TokenHash); err != nil {
		return ResetInvalidToken, fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}

	e.metricInc(MetricResetCompleted)
	e.emitEvent(ctx, Event{
		EventType: eventPasswordResetCompleted,
		Email:     email,
		AccountID: account.ID,
	})

	return ResetCompleted, nil
}

// lookupToken fetches the token row for email and verifies token against the
// stored hash. The (nil, false) result deliberately collapses "no row" and
// "mismatch" into one answer.
func (e *Engine) lookupToken(ctx context.Context, email, token string) (*TokenRecord, bool, error) {
	record, err := e.tokens.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}
	if record == nil || token == "" {
		return nil, false, nil
	}

	ok, err := e.hasher.Verify(token, record.TokenHash)
	if err != nil || !ok {
		return nil, false, nil
	}
	return record, true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func buildResetURL(base, email, token string) string {
	if base == "" {
		return ""
	}
	values := url.Values{}
	values.Set("email", email)
	values.Set("token", token)
	separator := "?"
	if strings.Contains(base, "?") {
		separator = "&"
	}
	return base + separator + values.Encode()
}
