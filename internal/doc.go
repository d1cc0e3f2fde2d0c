// Package internal contains helper utilities that are intentionally private
// to authgate: reset-token derivation, remember-token generation, and
// application-key decoding.
//
// # Sub-packages
//
//   - limiters — login attempt throttle over the generic key-value contract
//
// # What this package must NOT do
//
//   - Export types that appear in the public authgate API.
//   - Be imported by any package outside the authgate module.
package internal
