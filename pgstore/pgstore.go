package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/MrEthical07/authgate"
)

const (
	accountsTable = "accounts"
	tokensTable   = "password_resets"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Open connects to PostgreSQL with the pq driver and verifies the connection.
// The returned pool is shared by [NewAccounts] and [NewTokens]; the caller
// owns it and closes it.
//
// Open may return an error when input validation, dependency calls, or security checks fail.
// Open does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

/*
====================================
ACCOUNT STORE
====================================
*/

// Accounts implements authgate.AccountStore over a PostgreSQL pool.
//
// Accounts instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Accounts struct {
	db *sql.DB
}

// NewAccounts describes the newaccounts operation and its observable behavior.
//
// NewAccounts does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewAccounts(db *sql.DB) *Accounts {
	return &Accounts{db: db}
}

// FindByEmail describes the findbyemail operation and its observable behavior.
//
// FindByEmail may return an error when input validation, dependency calls, or security checks fail.
// FindByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Accounts) FindByEmail(ctx context.Context, email string) (*authgate.Account, error) {
	return a.find(ctx, sq.Eq{"email": email})
}

// FindByID describes the findbyid operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or security checks fail.
// FindByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Accounts) FindByID(ctx context.Context, id string) (*authgate.Account, error) {
	return a.find(ctx, sq.Eq{"id": id})
}

func (a *Accounts) find(ctx context.Context, where sq.Eq) (*authgate.Account, error) {
	query, args, err := psql.
		Select("id", "email", "password_hash", "remember_token", "email_verified_at").
		From(accountsTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanAccount(a.db.QueryRowContext(ctx, query, args...))
}

// Update applies the non-nil fields of update to the account row and returns
// the refreshed record. A missing row reports (nil, nil), matching the find
// contract.
//
// Update may return an error when input validation, dependency calls, or security checks fail.
// Update does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (a *Accounts) Update(ctx context.Context, id string, update authgate.AccountUpdate) (*authgate.Account, error) {
	builder := psql.Update(accountsTable).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING id, email, password_hash, remember_token, email_verified_at")

	if update.PasswordHash != nil {
		builder = builder.Set("password_hash", *update.PasswordHash)
	}
	if update.RememberToken != nil {
		builder = builder.Set("remember_token", *update.RememberToken)
	}
	if update.EmailVerifiedAt != nil {
		builder = builder.Set("email_verified_at", update.EmailVerifiedAt.UTC())
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	return scanAccount(a.db.QueryRowContext(ctx, query, args...))
}

func scanAccount(row *sql.Row) (*authgate.Account, error) {
	var (
		account    authgate.Account
		remember   sql.NullString
		verifiedAt sql.NullTime
	)
	if err := row.Scan(&account.ID, &account.Email, &account.PasswordHash, &remember, &verifiedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	account.RememberToken = remember.String
	if verifiedAt.Valid {
		t := verifiedAt.Time
		account.EmailVerifiedAt = &t
	}
	return &account, nil
}

/*
====================================
TOKEN STORE
====================================
*/

// Tokens implements authgate.TokenStore over a PostgreSQL pool. The table
// keeps at most one live row per email; the engine deletes before inserting.
//
// Tokens instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Tokens struct {
	db *sql.DB
}

// NewTokens describes the newtokens operation and its observable behavior.
//
// NewTokens does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewTokens(db *sql.DB) *Tokens {
	return &Tokens{db: db}
}

// FindByEmail describes the findbyemail operation and its observable behavior.
//
// FindByEmail may return an error when input validation, dependency calls, or security checks fail.
// FindByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (t *Tokens) FindByEmail(ctx context.Context, email string) (*authgate.TokenRecord, error) {
	return t.find(ctx, sq.Eq{"email": email})
}

// FindByTokenHash describes the findbytokenhash operation and its observable behavior.
//
// FindByTokenHash may return an error when input validation, dependency calls, or security checks fail.
// FindByTokenHash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (t *Tokens) FindByTokenHash(ctx context.Context, tokenHash string) (*authgate.TokenRecord, error) {
	return t.find(ctx, sq.Eq{"token": tokenHash})
}

func (t *Tokens) find(ctx context.Context, where sq.Eq) (*authgate.TokenRecord, error) {
	query, args, err := psql.
		Select("email", "token", "created_at").
		From(tokensTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var record authgate.TokenRecord
	row := t.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&record.Email, &record.TokenHash, &record.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Insert describes the insert operation and its observable behavior.
//
// Insert may return an error when input validation, dependency calls, or security checks fail.
// Insert does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (t *Tokens) Insert(ctx context.Context, record authgate.TokenRecord) error {
	query, args, err := psql.
		Insert(tokensTable).
		Columns("email", "token", "created_at").
		Values(record.Email, record.TokenHash, record.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return err
	}
	_, err = t.db.ExecContext(ctx, query, args...)
	return err
}

// DeleteByEmail removes any token rows for email. Deleting a non-existent row
// is not an error.
//
// DeleteByEmail may return an error when input validation, dependency calls, or security checks fail.
// DeleteByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (t *Tokens) DeleteByEmail(ctx context.Context, email string) error {
	return t.delete(ctx, sq.Eq{"email": email})
}

// DeleteByToken removes the row holding the given at-rest hash.
//
// DeleteByToken may return an error when input validation, dependency calls, or security checks fail.
// DeleteByToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (t *Tokens) DeleteByToken(ctx context.Context, tokenHash string) error {
	return t.delete(ctx, sq.Eq{"token": tokenHash})
}

func (t *Tokens) delete(ctx context.Context, where sq.Eq) error {
	query, args, err := psql.Delete(tokensTable).Where(where).ToSql()
	if err != nil {
		return err
	}
	_, err = t.db.ExecContext(ctx, query, args...)
	return err
}
