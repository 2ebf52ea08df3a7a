package history

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRecorder stores attempt records in PostgreSQL.
type PostgresRecorder struct {
	db *pgxpool.Pool
}

// NewPostgresRecorder builds a recorder backed by PostgreSQL.
func NewPostgresRecorder(db *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Created inserts a new attempt row.
func (r *PostgresRecorder) Created(ctx context.Context, a Attempt) error {
	_, err := r.db.Exec(ctx, `INSERT INTO withdrawal_attempts
        (id, account_id, transaction_id, amount_usd, phone, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.AccountID, a.TransactionID, a.AmountUSD, a.Phone, a.Status, a.CreatedAt.UTC())
	return err
}

// Settled records the terminal outcome of an attempt.
func (r *PostgresRecorder) Settled(ctx context.Context, id, status, errMsg string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE withdrawal_attempts
        SET status = $2, error = NULLIF($3, ''), settled_at = $4
        WHERE id = $1`,
		id, status, errMsg, at.UTC())
	return err
}
