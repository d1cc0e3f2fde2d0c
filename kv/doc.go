// Package kv defines the generic key-value-with-TTL contract consumed by the
// login throttle, together with a Redis-backed implementation.
//
// # Design
//
// The contract is deliberately narrow: integer values only, create-if-absent
// as a first-class operation, and TTL attached at write time. Expiry is
// enforced entirely by the store; callers reconcile lazily at read time
// instead of running background sweeps.
//
// # What this package must NOT do
//
//   - Import authgate or make policy decisions — it only counts and expires.
//   - Guarantee that Add and Increment compose atomically; callers own that
//     reconciliation.
package kv
