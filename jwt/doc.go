// Package jwt issues and parses the HS256 access tokens returned by
// successful logins. It is deliberately minimal: one signing method, one key,
// no key rings or rotation — the engine's session story lives outside this
// module.
package jwt
