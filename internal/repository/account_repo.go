package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/backend/internal/models"
)

const accountColumns = `id, name, email, age, password_hash, tokens, created_at, updated_at`

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Age, &a.PasswordHash, &a.Tokens, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AccountRepo) Create(ctx context.Context, a *models.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, name, email, age, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, a.ID, a.Name, a.Email, a.Age, a.PasswordHash).Scan(&a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
}

// GetByIDWithToken returns the account only while token is in its active set.
func (r *AccountRepo) GetByIDWithToken(ctx context.Context, id uuid.UUID, token string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts WHERE id = $1 AND $2 = ANY(tokens)
	`, id, token))
}

// UpdateProfile writes the profile columns and the password hash. The token
// set is never written here; it is only changed by the token methods below.
func (r *AccountRepo) UpdateProfile(ctx context.Context, a *models.Account) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE accounts SET name = $2, email = $3, age = $4, password_hash = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, a.ID, a.Name, a.Email, a.Age, a.PasswordHash).Scan(&a.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return notFound(err)
}

// AppendToken atomically adds token to the account's session set.
func (r *AccountRepo) AppendToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.execOne(ctx, `
		UPDATE accounts SET tokens = array_append(tokens, $2), updated_at = now()
		WHERE id = $1
	`, id, token)
}

// RemoveToken atomically drops token from the set. Removing an absent token
// is not an error as long as the account exists.
func (r *AccountRepo) RemoveToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.execOne(ctx, `
		UPDATE accounts SET tokens = array_remove(tokens, $2), updated_at = now()
		WHERE id = $1
	`, id, token)
}

func (r *AccountRepo) ClearTokens(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, `
		UPDATE accounts SET tokens = '{}', updated_at = now() WHERE id = $1
	`, id)
}

// SetAvatar stores data as the account avatar; nil clears it.
func (r *AccountRepo) SetAvatar(ctx context.Context, id uuid.UUID, data []byte) error {
	return r.execOne(ctx, `
		UPDATE accounts SET avatar = $2, updated_at = now() WHERE id = $1
	`, id, data)
}

func (r *AccountRepo) GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `SELECT avatar FROM accounts WHERE id = $1`, id).Scan(&data)
	if err != nil {
		return nil, notFound(err)
	}
	if data == nil {
		return nil, ErrNotFound
	}
	return data, nil
}

// GetByIDForUpdate locks the account row for update. Call within a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error) {
	return scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
}

// DeleteTx removes the account row inside tx.
func (r *AccountRepo) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepo) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
