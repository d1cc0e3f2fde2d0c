package limiters

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/kv"
)

const timerSuffix = ":timer"

// LoginThrottleConfig holds the default throttle policy. Both knobs are
// overridable per call.
type LoginThrottleConfig struct {
	MaxAttempts int
	DecayWindow time.Duration
}

// LoginThrottle counts failed authentication attempts per throttle key and
// imposes a timed lockout once the threshold is exceeded.
type LoginThrottle struct {
	store  kv.Store
	now    func() time.Time
	config LoginThrottleConfig
}

// NewLoginThrottle creates a login throttle over the given store. now is
// injected for testability; nil means time.Now.
func NewLoginThrottle(store kv.Store, now func() time.Time, cfg LoginThrottleConfig) *LoginThrottle {
	if now == nil {
		now = time.Now
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.DecayWindow <= 0 {
		cfg.DecayWindow = time.Minute
	}
	return &LoginThrottle{store: store, now: now, config: cfg}
}

// ThrottleKey builds the composite rate-limit identity: normalized
// identifier plus requester network origin.
func ThrottleKey(identifier, origin string) string {
	return strings.ToLower(identifier) + "|" + origin
}

// Config returns the default policy the throttle was built with.
func (t *LoginThrottle) Config() LoginThrottleConfig {
	return t.config
}

// TooManyAttempts reports whether the key is currently locked out.
// maxAttempts <= 0 uses the configured default.
//
// When the counter has reached the threshold but the timer key has expired,
// the lockout is over: the stale counter is cleared here, at read time,
// rather than by a background sweep.
func (t *LoginThrottle) TooManyAttempts(ctx context.Context, key string, maxAttempts int) (bool, error) {
	if maxAttempts <= 0 {
		maxAttempts = t.config.MaxAttempts
	}

	hits, _, err := t.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if hits < int64(maxAttempts) {
		return false, nil
	}

	locked, err := t.store.Has(ctx, key+timerSuffix)
	if err != nil {
		return false, err
	}
	if locked {
		return true, nil
	}

	if err := t.store.Forget(ctx, key); err != nil {
		return false, err
	}
	return false, nil
}

// Hit records one failed attempt and returns the new hit count.
// decay <= 0 uses the configured default.
//
// The first failure in a window establishes the lockout horizon: the timer
// key is created only if absent, valued at the UNIX second the window ends.
// Add and Increment are not transactional on a generic store, so a lost
// create-then-increment race can report 1 on a counter the store just
// recreated without a TTL; the value is forced back to exactly 1 with the
// window's TTL to keep count and expiry consistent.
func (t *LoginThrottle) Hit(ctx context.Context, key string, decay time.Duration) (int64, error) {
	if decay <= 0 {
		decay = t.config.DecayWindow
	}

	availableAt := t.now().Add(decay).Unix()
	if _, err := t.store.Add(ctx, key+timerSuffix, availableAt, decay); err != nil {
		return 0, err
	}

	added, err := t.store.Add(ctx, key, 0, decay)
	if err != nil {
		return 0, err
	}

	hits, err := t.store.Increment(ctx, key)
	if err != nil {
		return 0, err
	}

	if !added && hits == 1 {
		if err := t.store.Put(ctx, key, 1, decay); err != nil {
			return 0, err
		}
	}

	return hits, nil
}

// Clear unconditionally removes the hit counter and its lockout timer.
func (t *LoginThrottle) Clear(ctx context.Context, key string) error {
	if err := t.store.Forget(ctx, key); err != nil {
		return err
	}
	return t.store.Forget(ctx, key+timerSuffix)
}

// AvailableIn returns how long until the key is accessible again. The result
// may be negative when the lockout has already expired; callers treat
// anything <= 0 as "available now". A missing timer reports zero.
func (t *LoginThrottle) AvailableIn(ctx context.Context, key string) (time.Duration, error) {
	availableAt, ok, err := t.store.Get(ctx, key+timerSuffix)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return time.Duration(availableAt-t.now().Unix()) * time.Second, nil
}
