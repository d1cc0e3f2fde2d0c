// Package limiters implements the login attempt throttle on top of the kv
// contract.
//
// # Design
//
// State per throttle key is two entries sharing one decay window: the hit
// counter and the lockout timer (key + ":timer"). The timer's presence, not
// its value, signals an active lockout; its value is the UNIX second the
// lockout ends. Expiry is the store's job — reads reconcile lazily instead of
// a background sweep.
//
// # What this package must NOT do
//
//   - Import authgate or decide consequences — callers turn counts into
//     lockout errors.
//   - Assume Add and Increment compose atomically (see Hit).
package limiters
