package authgate

import (
	"context"
	"time"

	"github.com/MrEthical07/authgate/internal"
)

// ResetOutcome is the typed business result of a password-reset operation.
// Outcomes represent expected states, not faults: infrastructure failures are
// returned separately as *Unavailable errors.
//
//	Docs: docs/password-reset.md
type ResetOutcome int

const (
	// ResetLinkSent indicates a token was issued and queued for delivery.
	ResetLinkSent ResetOutcome = iota
	// ResetInvalidUser indicates no account matches the supplied email.
	ResetInvalidUser
	// ResetThrottled indicates a token was issued too recently; the prior
	// token remains valid.
	ResetThrottled
	// ResetCompleted indicates the password was updated and the token
	// consumed.
	ResetCompleted
	// ResetInvalidToken covers both "no token row" and "hash mismatch";
	// callers cannot distinguish the two.
	ResetInvalidToken
)

// String describes the string operation and its observable behavior.
//
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (o ResetOutcome) String() string {
	switch o {
	case ResetLinkSent:
		return "sent"
	case ResetInvalidUser:
		return "invalid_user"
	case ResetThrottled:
		return "throttled"
	case ResetCompleted:
		return "reset"
	case ResetInvalidToken:
		return "invalid_token"
	default:
		return "unknown"
	}
}

// Account is the external account record referenced (never owned) by the
// engine. It is mutated only through [AccountStore.Update].
type Account struct {
	ID              string
	Email           string
	PasswordHash    string
	RememberToken   string
	EmailVerifiedAt *time.Time
}

// AccountUpdate carries the fields an engine operation may change. Nil
// pointers leave the corresponding column untouched.
type AccountUpdate struct {
	PasswordHash    *string
	RememberToken   *string
	EmailVerifiedAt *time.Time
}

// TokenRecord is a stored password-reset token row. TokenHash is the at-rest
// Argon2id hash; the plaintext token never reaches a store.
type TokenRecord struct {
	Email     string
	TokenHash string
	CreatedAt time.Time
}

// AccountStore is the persistent record store the engine reads accounts from.
// FindByEmail and FindByID return (nil, nil) when no row matches; any non-nil
// error is an infrastructure fault.
//
//	Docs: docs/stores.md
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	Update(ctx context.Context, id string, fields AccountUpdate) (*Account, error)
}

// TokenStore persists password-reset token rows. At most one live row exists
// per email: issuance deletes before inserting rather than upserting.
// DeleteByToken matches the stored hash value, not the plaintext.
//
//	Docs: docs/stores.md
type TokenStore interface {
	FindByEmail(ctx context.Context, email string) (*TokenRecord, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*TokenRecord, error)
	Insert(ctx context.Context, record TokenRecord) error
	DeleteByEmail(ctx context.Context, email string) error
	DeleteByToken(ctx context.Context, tokenHash string) error
}

// ResetNotification is handed to the [Mailer] when a reset token is issued.
// Token is the plaintext value; it exists only here and in the inbound
// confirmation request.
type ResetNotification struct {
	Email    string
	Token    string
	ResetURL string
}

// Mailer queues a reset notification for asynchronous delivery. Queue returns
// an error only when the notification could not be accepted (queue full,
// transport down); delivery itself is never confirmed to the engine.
type Mailer interface {
	Queue(notification ResetNotification) error
}

// SecretProvider supplies the application key used for reset-token
// derivation. Keys with a "base64:" prefix are decoded before use.
type SecretProvider interface {
	ApplicationKey() ([]byte, error)
}

// StaticSecret is a SecretProvider backed by a fixed key string.
type StaticSecret string

// ApplicationKey describes the applicationkey operation and its observable behavior.
//
// ApplicationKey may return an error when input validation, dependency calls, or security checks fail.
// ApplicationKey does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s StaticSecret) ApplicationKey() ([]byte, error) {
	return internal.DecodeAppKey(string(s))
}

// LoginResult is returned by [Engine.Login] on success.
type LoginResult struct {
	AccountID   string
	Email       string
	AccessToken string
}
