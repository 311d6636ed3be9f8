package identity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// Repository persists credentials.
type Repository interface {
	Create(ctx context.Context, cred Credential) error
	FindByContact(ctx context.Context, contact string) (Credential, error)
	FindByAccountID(ctx context.Context, accountID string) (Credential, error)
	SetTwoFactorSecret(ctx context.Context, accountID, secret string) error
	TwoFactorSecret(ctx context.Context, accountID string) (string, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed credential repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new credential.
func (r *PostgresRepository) Create(ctx context.Context, cred Credential) error {
	_, err := r.db.Exec(ctx, `INSERT INTO credentials (account_id, contact, password_hash, two_factor_secret, created_at)
        VALUES ($1, $2, $3, $4, $5)`, cred.AccountID, cred.Contact, cred.PasswordHash, cred.TwoFactorSecret, cred.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrCredentialExists
	}
	return err
}

// FindByContact fetches a credential by contact address.
func (r *PostgresRepository) FindByContact(ctx context.Context, contact string) (Credential, error) {
	return r.scan(r.db.QueryRow(ctx, `SELECT account_id, contact, password_hash, two_factor_secret, created_at
        FROM credentials WHERE contact = $1`, contact))
}

// FindByAccountID fetches the credential owned by an account.
func (r *PostgresRepository) FindByAccountID(ctx context.Context, accountID string) (Credential, error) {
	return r.scan(r.db.QueryRow(ctx, `SELECT account_id, contact, password_hash, two_factor_secret, created_at
        FROM credentials WHERE account_id = $1`, accountID))
}

// SetTwoFactorSecret replaces the stored TOTP secret.
func (r *PostgresRepository) SetTwoFactorSecret(ctx context.Context, accountID, secret string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE credentials SET two_factor_secret = $1 WHERE account_id = $2`, secret, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// TwoFactorSecret returns the TOTP secret of an account, or "" when none is enrolled.
func (r *PostgresRepository) TwoFactorSecret(ctx context.Context, accountID string) (string, error) {
	cred, err := r.FindByAccountID(ctx, accountID)
	if err != nil {
		return "", err
	}
	return cred.TwoFactorSecret, nil
}

func (r *PostgresRepository) scan(row pgx.Row) (Credential, error) {
	var (
		cred      Credential
		createdAt time.Time
	)
	err := row.Scan(&cred.AccountID, &cred.Contact, &cred.PasswordHash, &cred.TwoFactorSecret, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Credential{}, ErrCredentialNotFound
	}
	if err != nil {
		return Credential{}, err
	}
	cred.CreatedAt = createdAt.UTC()
	return cred, nil
}
