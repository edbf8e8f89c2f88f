package alert

import (
	"context"
	"database/sql"
	"fmt"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed alert store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the alerts table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS alerts (
			id              VARCHAR(36) PRIMARY KEY,
			wallet_address  VARCHAR(42) NOT NULL,
			alert_type      VARCHAR(100) NOT NULL,
			severity        VARCHAR(20) NOT NULL,
			message         TEXT NOT NULL,
			risk_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
			detected_at     TIMESTAMPTZ DEFAULT NOW(),
			acknowledged    BOOLEAN NOT NULL DEFAULT FALSE,
			acknowledged_at TIMESTAMPTZ,
			acknowledged_by VARCHAR(255) NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_alerts_wallet ON alerts(wallet_address);
		CREATE INDEX IF NOT EXISTS idx_alerts_detected ON alerts(detected_at DESC);
	`)
	return err
}

func (p *PostgresStore) Append(ctx context.Context, a *Alert) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO alerts (id, wallet_address, alert_type, severity, message, risk_score, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.WalletAddress, a.Type, a.Severity, a.Message, a.RiskScore, a.DetectedAt)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

const alertColumns = `id, wallet_address, alert_type, severity, message, risk_score,
	detected_at, acknowledged, acknowledged_at, acknowledged_by`

func (p *PostgresStore) Recent(ctx context.Context, limit int) ([]*Alert, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+alertColumns+`
		FROM alerts ORDER BY detected_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (p *PostgresStore) Latest(ctx context.Context) (*Alert, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+`
		FROM alerts ORDER BY detected_at DESC LIMIT 1
	`)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest alert: %w", err)
	}
	return a, nil
}

func (p *PostgresStore) Acknowledge(ctx context.Context, id, by string) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE alerts SET acknowledged = TRUE, acknowledged_at = NOW(), acknowledged_by = $2
		WHERE id = $1
	`, id, by)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
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

// scannable abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row scannable) (*Alert, error) {
	var a Alert
	var detectedAt, ackAt sql.NullTime

	err := row.Scan(
		&a.ID, &a.WalletAddress, &a.Type, &a.Severity, &a.Message, &a.RiskScore,
		&detectedAt, &a.Acknowledged, &ackAt, &a.AcknowledgedBy,
	)
	if err != nil {
		return nil, err
	}
	if detectedAt.Valid {
		a.DetectedAt = detectedAt.Time
	}
	if ackAt.Valid {
		a.AcknowledgedAt = ackAt.Time
	}
	return &a, nil
}
