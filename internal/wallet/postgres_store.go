package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed wallet store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the wallets table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS wallets (
			address               VARCHAR(42) PRIMARY KEY,
			label                 VARCHAR(255) NOT NULL DEFAULT '',
			entity_type           VARCHAR(50) NOT NULL DEFAULT 'Unknown',
			account_status        VARCHAR(20) NOT NULL DEFAULT 'active',
			risk_score            DOUBLE PRECISION NOT NULL DEFAULT 0,
			risk_category         VARCHAR(50) NOT NULL DEFAULT '',
			total_transactions    BIGINT NOT NULL DEFAULT 0,
			total_value_sent      DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_value_received  DOUBLE PRECISION NOT NULL DEFAULT 0,
			first_seen_at         TIMESTAMPTZ,
			last_activity_at      TIMESTAMPTZ,
			flagged_at            TIMESTAMPTZ,
			flagged_by            VARCHAR(255) NOT NULL DEFAULT '',
			notes                 TEXT NOT NULL DEFAULT '',
			created_at            TIMESTAMPTZ DEFAULT NOW(),
			updated_at            TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_wallets_status ON wallets(account_status);
		CREATE INDEX IF NOT EXISTS idx_wallets_risk ON wallets(risk_score DESC);
	`)
	return err
}

const walletColumns = `address, label, entity_type, account_status, risk_score, risk_category,
	total_transactions, total_value_sent, total_value_received,
	first_seen_at, last_activity_at, flagged_at, flagged_by, notes,
	created_at, updated_at`

func (p *PostgresStore) GetOrCreate(ctx context.Context, address string) (*Wallet, error) {
	addr := strings.ToLower(address)

	// Upsert the lazy-creation default, then read back whichever row won.
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO wallets (address) VALUES ($1)
		ON CONFLICT (address) DO NOTHING
	`, addr)
	if err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	return p.Get(ctx, addr)
}

func (p *PostgresStore) Get(ctx context.Context, address string) (*Wallet, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+walletColumns+`
		FROM wallets WHERE address = $1
	`, strings.ToLower(address))

	w, err := scanWallet(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

func (p *PostgresStore) Save(ctx context.Context, w *Wallet) error {
	w.UpdatedAt = time.Now()

	result, err := p.db.ExecContext(ctx, `
		UPDATE wallets SET
			label                = $2,
			entity_type          = $3,
			account_status       = $4,
			risk_score           = $5,
			risk_category        = $6,
			total_transactions   = $7,
			total_value_sent     = $8,
			total_value_received = $9,
			first_seen_at        = $10,
			last_activity_at     = $11,
			flagged_at           = $12,
			flagged_by           = $13,
			notes                = $14,
			updated_at           = $15
		WHERE address = $1
	`,
		strings.ToLower(w.Address), w.Label, w.EntityType, string(w.Status),
		w.RiskScore, w.RiskCategory,
		w.TotalTransactions, w.TotalValueSent, w.TotalValueReceived,
		nullTimeOrValue(w.FirstSeenAt), nullTimeOrValue(w.LastActivityAt),
		nullTimeOrValue(w.FlaggedAt), w.FlaggedBy, w.Notes, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, limit int) ([]*Wallet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+walletColumns+`
		FROM wallets ORDER BY risk_score DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// scannable abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanWallet(row scannable) (*Wallet, error) {
	var w Wallet
	var status string
	var firstSeen, lastActivity, flaggedAt, createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&w.Address, &w.Label, &w.EntityType, &status, &w.RiskScore, &w.RiskCategory,
		&w.TotalTransactions, &w.TotalValueSent, &w.TotalValueReceived,
		&firstSeen, &lastActivity, &flaggedAt, &w.FlaggedBy, &w.Notes,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.Status = Status(status)
	if firstSeen.Valid {
		w.FirstSeenAt = firstSeen.Time
	}
	if lastActivity.Valid {
		w.LastActivityAt = lastActivity.Time
	}
	if flaggedAt.Valid {
		w.FlaggedAt = flaggedAt.Time
	}
	if createdAt.Valid {
		w.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		w.UpdatedAt = updatedAt.Time
	}
	return &w, nil
}

// nullTimeOrValue returns a sql.NullTime: valid if t is non-zero, null otherwise.
func nullTimeOrValue(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
