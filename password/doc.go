// Package password provides Argon2id hashing with PHC-formatted encoding and
// constant-time verification.
//
// It backs two distinct concerns in authgate: account password storage and
// the at-rest hash of reset tokens (the deliberately slow second hash,
// separate from the HMAC derivation that produces the token itself).
// Length/complexity policy is the engine's job, not the hasher's.
package password
