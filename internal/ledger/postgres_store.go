package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed ledger.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the transactions table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			tx_hash      VARCHAR(66) PRIMARY KEY,
			from_address VARCHAR(42) NOT NULL,
			to_address   VARCHAR(42) NOT NULL DEFAULT '',
			value        DOUBLE PRECISION NOT NULL,
			block_number BIGINT NOT NULL DEFAULT 0,
			is_flagged   BOOLEAN NOT NULL DEFAULT FALSE,
			flag_reason  VARCHAR(100) NOT NULL DEFAULT '',
			timestamp    TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions(from_address);
		CREATE INDEX IF NOT EXISTS idx_transactions_to ON transactions(to_address);
		CREATE INDEX IF NOT EXISTS idx_transactions_ts ON transactions(timestamp DESC);
	`)
	return err
}

func (p *PostgresStore) Append(ctx context.Context, tx *Transaction) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO transactions (tx_hash, from_address, to_address, value, block_number, is_flagged, flag_reason, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
	`,
		tx.Hash, strings.ToLower(tx.From), strings.ToLower(tx.To),
		tx.Value, tx.Block, tx.Flagged, tx.FlagReason, nullTimeOrValue(tx.Timestamp),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateHash
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (p *PostgresStore) Remove(ctx context.Context, hash string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM transactions WHERE tx_hash = $1`, hash)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// nullTimeOrValue returns a sql.NullTime: valid if t is non-zero, null otherwise.
func nullTimeOrValue(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func (p *PostgresStore) Balance(ctx context.Context, address string) (float64, error) {
	addr := strings.ToLower(address)
	var balance float64
	err := p.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN to_address = $1 THEN value ELSE 0 END), 0)
			- COALESCE(SUM(CASE WHEN from_address = $1 THEN value ELSE 0 END), 0)
		FROM transactions
		WHERE from_address = $1 OR to_address = $1
	`, addr).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("compute balance: %w", err)
	}
	return balance, nil
}

func (p *PostgresStore) History(ctx context.Context, address string, limit int) ([]*Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT tx_hash, from_address, to_address, value, block_number, is_flagged, flag_reason, timestamp
		FROM transactions
		WHERE from_address = $1 OR to_address = $1
		ORDER BY timestamp DESC LIMIT $2
	`, strings.ToLower(address), limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Transaction
	for rows.Next() {
		var tx Transaction
		var ts sql.NullTime
		if err := rows.Scan(&tx.Hash, &tx.From, &tx.To, &tx.Value, &tx.Block, &tx.Flagged, &tx.FlagReason, &ts); err != nil {
			return nil, err
		}
		if ts.Valid {
			tx.Timestamp = ts.Time
		}
		result = append(result, &tx)
	}
	return result, rows.Err()
}
