package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fast-pay/fastpay/internal/money"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"

	accountsPKey       = "accounts_pkey"
	accountsContactKey = "accounts_contact_key"
)

// Repository persists accounts. ApplyDelta is the only balance mutation.
type Repository interface {
	Insert(ctx context.Context, acc Account) error
	Get(ctx context.Context, id string) (Account, error)
	FindByContact(ctx context.Context, contact string) (Account, error)
	ApplyDelta(ctx context.Context, id string, delta money.Amount, expectedVersion int64) (Account, error)
	SetTwoFactor(ctx context.Context, id, secretRef string) (Account, error)
	Totals(ctx context.Context) (Totals, error)
	Delete(ctx context.Context, id string, expectedVersion int64) error
}

// PostgresRepository stores accounts in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, display_name, contact, balance, seed_balance, version,
        two_factor_enabled, two_factor_secret_ref, created_at`

// Insert creates an account row. Unique violations are translated to ErrDuplicateProfile
// (contact) or ErrIdentifierTaken (primary key).
func (r *PostgresRepository) Insert(ctx context.Context, acc Account) error {
	_, err := r.db.Exec(ctx, `INSERT INTO accounts (`+accountColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		acc.ID, acc.DisplayName, acc.Contact, acc.Balance.Minor(), acc.SeedBalance.Minor(), acc.Version,
		acc.TwoFactorEnabled, acc.TwoFactorSecretRef, acc.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			switch pgErr.ConstraintName {
			case accountsPKey:
				return ErrIdentifierTaken
			case accountsContactKey:
				return ErrDuplicateProfile
			}
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Get fetches an account by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// FindByContact fetches an account by its contact address.
func (r *PostgresRepository) FindByContact(ctx context.Context, contact string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE contact = $1`, contact)
	return scanAccount(row)
}

// ApplyDelta adds delta to the balance and bumps the version in a single conditional UPDATE.
func (r *PostgresRepository) ApplyDelta(ctx context.Context, id string, delta money.Amount, expectedVersion int64) (Account, error) {
	row := r.db.QueryRow(ctx, `UPDATE accounts
        SET balance = balance + $2, version = version + 1
        WHERE id = $1 AND version = $3
        RETURNING `+accountColumns, id, delta.Minor(), expectedVersion)
	acc, err := scanAccount(row)
	if err == nil {
		return acc, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
		return Account{}, ErrNegativeBalance
	}
	if !errors.Is(err, ErrNotFound) {
		return Account{}, err
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return Account{}, fmt.Errorf("probe account: %w", err)
	}
	if !exists {
		return Account{}, ErrNotFound
	}
	return Account{}, ErrConflict
}

// SetTwoFactor flags the account as 2FA-enabled and records the secret reference.
func (r *PostgresRepository) SetTwoFactor(ctx context.Context, id, secretRef string) (Account, error) {
	row := r.db.QueryRow(ctx, `UPDATE accounts
        SET two_factor_enabled = TRUE, two_factor_secret_ref = $2
        WHERE id = $1
        RETURNING `+accountColumns, id, secretRef)
	return scanAccount(row)
}

// Totals sums balances and seed balances across all accounts.
func (r *PostgresRepository) Totals(ctx context.Context) (Totals, error) {
	var (
		count    int64
		balances int64
		seeded   int64
	)
	err := r.db.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(balance), 0), COALESCE(SUM(seed_balance), 0)
        FROM accounts`).Scan(&count, &balances, &seeded)
	if err != nil {
		return Totals{}, fmt.Errorf("sum accounts: %w", err)
	}
	return Totals{Accounts: count, Balances: money.Amount(balances), Seeded: money.Amount(seeded)}, nil
}

// Delete removes the account only while it is still at expectedVersion.
func (r *PostgresRepository) Delete(ctx context.Context, id string, expectedVersion int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1 AND version = $2`, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("probe account: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		acc       Account
		balance   int64
		seed      int64
		createdAt time.Time
	)
	err := row.Scan(&acc.ID, &acc.DisplayName, &acc.Contact, &balance, &seed, &acc.Version,
		&acc.TwoFactorEnabled, &acc.TwoFactorSecretRef, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	acc.Balance = money.Amount(balance)
	acc.SeedBalance = money.Amount(seed)
	acc.CreatedAt = createdAt.UTC()
	return acc, nil
}
