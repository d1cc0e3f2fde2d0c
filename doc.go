// Package authgate implements the account-recovery core of a web application:
// single-use password-reset tokens with time-boxed validity and rate-limited
// issuance, counter-based login lockout, and idempotent email-verification
// marking.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator contracts ([AccountStore], [TokenStore], [Mailer],
// [EventSink], [SecretProvider]) and outcome/value types. Throttle arithmetic
// and token derivation live under internal/ and are never exported. Reference
// store implementations live in kv/ (Redis) and pgstore/ (Postgres), the SMTP
// mailer in mailer/.
//
// # What this package must NOT do
//
//   - Persist or log a plaintext reset token; only its at-rest hash is stored.
//   - Distinguish "no token row" from "hash mismatch" in any returned value.
//   - Mask infrastructure faults: store/mailer outages propagate as
//     *Unavailable errors, never as business outcomes.
//   - Block the caller on mail delivery; notification is fire-and-forget.
//
// # Performance contract
//
// Every operation is a bounded sequence of O(1) key lookups against the
// injected stores. The only primitive that must be atomic on the store side
// is the increment used by the login throttle.
package authgate
