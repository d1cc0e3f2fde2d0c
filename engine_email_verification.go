package authgate

import (
	"context"
	"fmt"
)

// MarkEmailVerified stamps the account's email_verified_at timestamp. The
// operation is idempotent: an already-verified account is left untouched and
// no event is emitted for it.
//
// MarkEmailVerified may return an error when input validation, dependency calls, or security checks fail.
// MarkEmailVerified does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MarkEmailVerified(ctx context.Context, accountID string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	account, err := e.accounts.FindByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	if account == nil {
		return ErrAccountNotFound
	}
	if account.EmailVerifiedAt != nil {
		return nil
	}

	verifiedAt := e.now()
	if _, err := e.accounts.Update(ctx, account.ID, AccountUpdate{
		EmailVerifiedAt: &verifiedAt,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}

	e.metricInc(MetricEmailVerified)
	e.emitEvent(ctx, Event{
		EventType: eventEmailVerified,
		Email:     account.Email,
		AccountID: account.ID,
	})

	return nil
}
