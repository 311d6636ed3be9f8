package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fast-pay/fastpay/internal/money"
)

// PostgresLedger persists transfer records in PostgreSQL.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Append inserts the record. The table has no UPDATE or DELETE path.
func (l *PostgresLedger) Append(ctx context.Context, record Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return fmt.Errorf("%w: id must be a uuid", ErrInvalidRecord)
	}
	_, err = l.db.Exec(ctx, `INSERT INTO transfers (id, sender_id, receiver_id, amount, created_at)
        VALUES ($1, $2, $3, $4, $5)`, id, record.SenderID, record.ReceiverID, record.Amount.Minor(), record.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("append transfer: %w", err)
	}
	return nil
}

// ListByAccount returns the account's transfers ordered by commit time, newest first.
func (l *PostgresLedger) ListByAccount(ctx context.Context, accountID string) ([]Record, error) {
	const query = `
        SELECT id, sender_id, receiver_id, amount, created_at
        FROM transfers
        WHERE sender_id = $1 OR receiver_id = $1
        ORDER BY created_at DESC, seq DESC`

	rows, err := l.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			id        uuid.UUID
			rec       Record
			amount    int64
			createdAt time.Time
		)
		if err := rows.Scan(&id, &rec.SenderID, &rec.ReceiverID, &amount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		rec.ID = id.String()
		rec.Amount = money.Amount(amount)
		rec.Timestamp = createdAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return records, nil
}
