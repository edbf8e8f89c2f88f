package transfer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Compile-time checks that the Postgres stores implement their interfaces.
var (
	_ WarningStore = (*PostgresWarningStore)(nil)
	_ BlockedStore = (*PostgresBlockedStore)(nil)
)

// PostgresWarningStore implements WarningStore backed by PostgreSQL.
type PostgresWarningStore struct {
	db *sql.DB
}

// NewPostgresWarningStore creates a new PostgreSQL-backed warning store.
func NewPostgresWarningStore(db *sql.DB) *PostgresWarningStore {
	return &PostgresWarningStore{db: db}
}

// Migrate creates the user_warnings table if it doesn't exist.
func (p *PostgresWarningStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_warnings (
			id             VARCHAR(36) PRIMARY KEY,
			wallet_address VARCHAR(42) NOT NULL,
			target_address VARCHAR(42) NOT NULL,
			warning_type   VARCHAR(50) NOT NULL DEFAULT 'ignored_risk',
			risk_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
			warning_number INT NOT NULL,
			created_at     TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_warnings_wallet ON user_warnings(wallet_address);
	`)
	return err
}

func (p *PostgresWarningStore) Append(ctx context.Context, w *Warning) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO user_warnings (id, wallet_address, target_address, warning_type, risk_score, warning_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		w.ID, strings.ToLower(w.WalletAddress), strings.ToLower(w.TargetAddress),
		w.Type, w.RiskScore, w.Number, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert warning: %w", err)
	}
	return nil
}

func (p *PostgresWarningStore) Count(ctx context.Context, address string) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_warnings WHERE wallet_address = $1
	`, strings.ToLower(address)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count warnings: %w", err)
	}
	return count, nil
}

func (p *PostgresWarningStore) For(ctx context.Context, address string, limit int) ([]*Warning, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, wallet_address, target_address, warning_type, risk_score, warning_number, created_at
		FROM user_warnings WHERE wallet_address = $1
		ORDER BY created_at DESC LIMIT $2
	`, strings.ToLower(address), limit)
	if err != nil {
		return nil, fmt.Errorf("list warnings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Warning
	for rows.Next() {
		var w Warning
		var createdAt sql.NullTime
		if err := rows.Scan(&w.ID, &w.WalletAddress, &w.TargetAddress, &w.Type, &w.RiskScore, &w.Number, &createdAt); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			w.CreatedAt = createdAt.Time
		}
		result = append(result, &w)
	}
	return result, rows.Err()
}

func (p *PostgresWarningStore) Remove(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM user_warnings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete warning: %w", err)
	}
	return nil
}

// PostgresBlockedStore implements BlockedStore backed by PostgreSQL.
type PostgresBlockedStore struct {
	db *sql.DB
}

// NewPostgresBlockedStore creates a new PostgreSQL-backed blocked-transfer store.
func NewPostgresBlockedStore(db *sql.DB) *PostgresBlockedStore {
	return &PostgresBlockedStore{db: db}
}

// Migrate creates the blocked_transfers table if it doesn't exist.
func (p *PostgresBlockedStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS blocked_transfers (
			id                 VARCHAR(36) PRIMARY KEY,
			sender_address     VARCHAR(42) NOT NULL,
			receiver_address   VARCHAR(42) NOT NULL,
			amount             DOUBLE PRECISION NOT NULL,
			risk_score         DOUBLE PRECISION NOT NULL DEFAULT 0,
			block_reason       VARCHAR(100) NOT NULL,
			user_warning_count INT NOT NULL DEFAULT 0,
			blocked_at         TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_blocked_sender ON blocked_transfers(sender_address);
		CREATE INDEX IF NOT EXISTS idx_blocked_at ON blocked_transfers(blocked_at DESC);
	`)
	return err
}

func (p *PostgresBlockedStore) Append(ctx context.Context, b *BlockedTransfer) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO blocked_transfers (id, sender_address, receiver_address, amount, risk_score, block_reason, user_warning_count, blocked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		b.ID, strings.ToLower(b.Sender), strings.ToLower(b.Receiver),
		b.Amount, b.RiskScore, b.Reason, b.WarningCount, b.BlockedAt,
	)
	if err != nil {
		return fmt.Errorf("insert blocked transfer: %w", err)
	}
	return nil
}

func (p *PostgresBlockedStore) Recent(ctx context.Context, limit int) ([]*BlockedTransfer, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, sender_address, receiver_address, amount, risk_score, block_reason, user_warning_count, blocked_at
		FROM blocked_transfers ORDER BY blocked_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list blocked transfers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*BlockedTransfer
	for rows.Next() {
		var b BlockedTransfer
		var blockedAt sql.NullTime
		if err := rows.Scan(&b.ID, &b.Sender, &b.Receiver, &b.Amount, &b.RiskScore, &b.Reason, &b.WarningCount, &blockedAt); err != nil {
			return nil, err
		}
		if blockedAt.Valid {
			b.BlockedAt = blockedAt.Time
		}
		result = append(result, &b)
	}
	return result, rows.Err()
}
