package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL. The detection
// breakdown is stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the risk_assessments table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS risk_assessments (
			id              VARCHAR(36) PRIMARY KEY,
			wallet_address  VARCHAR(42) NOT NULL,
			total_score     DOUBLE PRECISION NOT NULL,
			risk_level      VARCHAR(20) NOT NULL,
			breakdown       JSONB,
			detection_count INT NOT NULL DEFAULT 0,
			model_version   VARCHAR(50) NOT NULL DEFAULT '',
			assessed_at     TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_assessments_wallet ON risk_assessments(wallet_address, assessed_at DESC);
	`)
	return err
}

func (p *PostgresStore) Append(ctx context.Context, a *Assessment) error {
	breakdown, err := json.Marshal(a.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO risk_assessments (id, wallet_address, total_score, risk_level, breakdown, detection_count, model_version, assessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		a.ID, strings.ToLower(a.WalletAddress), a.TotalScore, string(a.Level),
		breakdown, a.DetectionCount, a.ModelTag, a.AssessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

const assessmentColumns = `id, wallet_address, total_score, risk_level, breakdown, detection_count, model_version, assessed_at`

func (p *PostgresStore) LatestFor(ctx context.Context, address string) (*Assessment, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+assessmentColumns+`
		FROM risk_assessments WHERE wallet_address = $1
		ORDER BY assessed_at DESC LIMIT 1
	`, strings.ToLower(address))

	a, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNoAssessment
	}
	if err != nil {
		return nil, fmt.Errorf("get latest assessment: %w", err)
	}
	return a, nil
}

func (p *PostgresStore) HistoryFor(ctx context.Context, address string, limit int) ([]*Assessment, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+assessmentColumns+`
		FROM risk_assessments WHERE wallet_address = $1
		ORDER BY assessed_at DESC LIMIT $2
	`, strings.ToLower(address), limit)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// scannable abstracts *sql.Row and *sql.Rows for shared scanning logic.
type scannable interface {
	Scan(dest ...interface{}) error
}

func scanAssessment(row scannable) (*Assessment, error) {
	var a Assessment
	var level string
	var breakdown []byte
	var assessedAt sql.NullTime

	err := row.Scan(&a.ID, &a.WalletAddress, &a.TotalScore, &level, &breakdown, &a.DetectionCount, &a.ModelTag, &assessedAt)
	if err != nil {
		return nil, err
	}

	a.Level = Level(level)
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &a.Breakdown); err != nil {
			return nil, fmt.Errorf("unmarshal breakdown: %w", err)
		}
	}
	if assessedAt.Valid {
		a.AssessedAt = assessedAt.Time
	}
	return &a, nil
}
