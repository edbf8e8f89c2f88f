package blacklist

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

// NewPostgresStore creates a new PostgreSQL-backed blacklist store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the blacklist table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS blacklist (
			address    VARCHAR(42) PRIMARY KEY,
			reason     TEXT NOT NULL DEFAULT '',
			category   VARCHAR(40) NOT NULL DEFAULT '',
			severity   VARCHAR(20) NOT NULL DEFAULT 'high',
			added_at   TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	return err
}

func (p *PostgresStore) Add(ctx context.Context, entry *Entry) error {
	addedAt := entry.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO blacklist (address, reason, category, severity, added_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE SET
			reason = EXCLUDED.reason,
			category = EXCLUDED.category,
			severity = EXCLUDED.severity
	`, strings.ToLower(entry.Address), entry.Reason, entry.Category, entry.Severity, addedAt)
	if err != nil {
		return fmt.Errorf("insert blacklist entry: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, address string) (*Entry, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT address, reason, category, severity, added_at
		FROM blacklist WHERE address = $1
	`, strings.ToLower(address))

	var entry Entry
	var addedAt sql.NullTime
	err := row.Scan(&entry.Address, &entry.Reason, &entry.Category, &entry.Severity, &addedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blacklist entry: %w", err)
	}
	if addedAt.Valid {
		entry.AddedAt = addedAt.Time
	}
	return &entry, nil
}

func (p *PostgresStore) Remove(ctx context.Context, address string) error {
	result, err := p.db.ExecContext(ctx, `
		DELETE FROM blacklist WHERE address = $1
	`, strings.ToLower(address))
	if err != nil {
		return fmt.Errorf("delete blacklist entry: %w", err)
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

func (p *PostgresStore) List(ctx context.Context) ([]*Entry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT address, reason, category, severity, added_at
		FROM blacklist ORDER BY added_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list blacklist: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Entry
	for rows.Next() {
		var entry Entry
		var addedAt sql.NullTime
		if err := rows.Scan(&entry.Address, &entry.Reason, &entry.Category, &entry.Severity, &addedAt); err != nil {
			return nil, err
		}
		if addedAt.Valid {
			entry.AddedAt = addedAt.Time
		}
		result = append(result, &entry)
	}
	return result, rows.Err()
}
