package authgate

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/authgate/internal/limiters"
)

// Login authenticates identifier (an email) with password and, on success,
// returns a signed access token. origin identifies the caller, typically the
// client IP; it scopes the lockout so an attacker hammering one account from
// one address does not lock out the account's owner elsewhere.
//
// Failure modes are separated by error identity: [ErrInvalidCredentials] for
// a bad pair, a [LockoutError] (wrapping [ErrLoginRateLimited]) while the
// attempt window is saturated, and [ErrLoginUnavailable] when the throttle
// backend cannot be reached.
func (e *Engine) Login(ctx context.Context, identifier, password, origin string) (LoginResult, error) {
	if e == nil || e.accounts == nil || e.throttle == nil {
		return LoginResult{}, ErrEngineNotReady
	}

	identifier = normalizeEmail(identifier)
	key := limiters.ThrottleKey(identifier, origin)

	locked, err := e.throttle.TooManyAttempts(ctx, key, 0)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", ErrLoginUnavailable, err)
	}
	if locked {
		wait, err := e.throttle.AvailableIn(ctx, key)
		if err != nil {
			return LoginResult{}, fmt.Errorf("%w: %v", ErrLoginUnavailable, err)
		}
		if wait < 0 {
			wait = 0
		}
		e.metricInc(MetricLoginRateLimited)
		e.emitEvent(ctx, Event{
			EventType: eventLockout,
			Email:     identifier,
			Origin:    origin,
		})
		return LoginResult{}, &LockoutError{RetryIn: wait}
	}

	account, err := e.accounts.FindByEmail(ctx, identifier)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", ErrLoginUnavailable, err)
	}

	if account == nil {
		return LoginResult{}, e.failLogin(ctx, key, identifier, origin)
	}
	ok, err := e.hasher.Verify(password, account.PasswordHash)
	if err != nil || !ok {
		// An unparseable stored hash counts as a mismatch; it must not
		// leak a distinct error to the caller.
		return LoginResult{}, e.failLogin(ctx, key, identifier, origin)
	}

	if err := e.throttle.Clear(ctx, key); err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", ErrLoginUnavailable, err)
	}

	token, err := e.jwtManager.Issue(account.ID, account.Email)
	if err != nil {
		return LoginResult{}, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitEvent(ctx, Event{
		EventType: eventLoginSucceeded,
		Email:     account.Email,
		AccountID: account.ID,
		Origin:    origin,
	})

	return LoginResult{
		AccountID:   account.ID,
		Email:       account.Email,
		AccessToken: token,
	}, nil
}

// failLogin records a failed attempt against key and returns the caller-facing
// error. The throttle hit and the credential result share a fate: if the
// backend is down the caller sees unavailability, not a credential verdict.
func (e *Engine) failLogin(ctx context.Context, key, identifier, origin string) error {
	if _, err := e.throttle.Hit(ctx, key, 0); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginUnavailable, err)
	}
	e.metricInc(MetricLoginFailure)
	e.emitEvent(ctx, Event{
		EventType: eventLoginFailed,
		Email:     identifier,
		Origin:    origin,
	})
	return ErrInvalidCredentials
}

// LoginAvailableIn reports how long the (identifier, origin) pair must wait
// before the next attempt can succeed. Zero means attempts are allowed now.
func (e *Engine) LoginAvailableIn(ctx context.Context, identifier, origin string) (time.Duration, error) {
	if e == nil || e.throttle == nil {
		return 0, ErrEngineNotReady
	}
	key := limiters.ThrottleKey(normalizeEmail(identifier), origin)
	wait, err := e.throttle.AvailableIn(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLoginUnavailable, err)
	}
	if wait < 0 {
		wait = 0
	}
	return wait, nil
}

// ParseAccessToken verifies a token previously issued by [Engine.Login] and
// returns its subject (the account ID) and email claim.
func (e *Engine) ParseAccessToken(token string) (accountID, email string, err error) {
	if e == nil || e.jwtManager == nil {
		return "", "", ErrEngineNotReady
	}
	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		return "", "", err
	}
	return claims.Subject, claims.Email, nil
}
