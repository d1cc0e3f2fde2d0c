package authgate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is an exported constant or variable used by the recovery engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited is an exported constant or variable used by the recovery engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrLoginUnavailable is an exported constant or variable used by the recovery engine.
	ErrLoginUnavailable = errors.New("login backend unavailable")
	// ErrPasswordPolicy is an exported constant or variable used by the recovery engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrResetUnavailable is an exported constant or variable used by the recovery engine.
	ErrResetUnavailable = errors.New("password reset backend unavailable")
	// ErrMailerUnavailable is an exported constant or variable used by the recovery engine.
	ErrMailerUnavailable = errors.New("mailer unavailable")
	// ErrAccountNotFound is an exported constant or variable used by the recovery engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrVerificationUnavailable is an exported constant or variable used by the recovery engine.
	ErrVerificationUnavailable = errors.New("email verification backend unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the recovery engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// LockoutError is returned by [Engine.Login] while the throttle key is locked
// out. RetryIn is the remaining wait; it is never negative.
//
// LockoutError wraps [ErrLoginRateLimited], so
// errors.Is(err, ErrLoginRateLimited) holds.
type LockoutError struct {
	RetryIn time.Duration
}

// Error describes the error operation and its observable behavior.
//
// Error does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *LockoutError) Error() string {
	return fmt.Sprintf("login rate limited: retry in %s", e.RetryIn)
}

// Unwrap describes the unwrap operation and its observable behavior.
//
// Unwrap does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *LockoutError) Unwrap() error {
	return ErrLoginRateLimited
}
