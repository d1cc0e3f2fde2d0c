// Package pgstore provides PostgreSQL-backed implementations of the
// authgate.AccountStore and authgate.TokenStore contracts: [Accounts] and
// [Tokens], usually sharing one pool opened with [Open].
//
// The schema follows the conventional two-table layout: an accounts table
// holding credentials and verification state, and a password_resets table
// holding at most one live token row per email. All statements are built with
// squirrel using $n placeholders and executed through database/sql, so the
// store works with any pq-compatible connection pool.
package pgstore
