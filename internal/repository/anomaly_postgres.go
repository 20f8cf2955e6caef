package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/costlens/backend/internal/model"
)

// PostgresAnomalyRepository implements AnomalyRepository for PostgreSQL.
type PostgresAnomalyRepository struct {
	db *sql.DB
}

// NewPostgresAnomalyRepository creates a new PostgresAnomalyRepository.
func NewPostgresAnomalyRepository(db *sql.DB) *PostgresAnomalyRepository {
	return &PostgresAnomalyRepository{db: db}
}

// UpsertBatch inserts anomalies that are not already stored for their
// (date, scope_key) pair and returns how many were actually inserted.
// Existing rows are left untouched so acknowledged or resolved occurrences
// survive re-detection.
func (r *PostgresAnomalyRepository) UpsertBatch(ctx context.Context, anomalies []*model.Anomaly) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO anomalies (id, date, scope_key, detected_value, expected_value, deviation_pct, severity, status, message, detected_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (date, scope_key) DO NOTHING
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	stored := 0
	for _, a := range anomalies {
		res, err := stmt.ExecContext(ctx, a.ID, a.Date, a.ScopeKey, a.DetectedValue, a.ExpectedValue,
			a.DeviationPct, a.Severity, a.Status, a.Message, a.DetectedAt, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			return 0, err
		}
		if n, err := res.RowsAffected(); err == nil {
			stored += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return stored, nil
}

func (r *PostgresAnomalyRepository) List(ctx context.Context, filter model.AnomalyFilter) ([]*model.Anomaly, error) {
	query := `SELECT id, date, scope_key, detected_value, expected_value, deviation_pct, severity, status, message, detected_at, acknowledged_at, resolved_at, created_at, updated_at
		FROM anomalies WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		query += " AND status = " + arg(string(filter.Status))
	}
	if filter.Severity != "" {
		query += " AND severity = " + arg(string(filter.Severity))
	}
	query += " ORDER BY date DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var anomalies []*model.Anomaly
	for rows.Next() {
		a, err := scanAnomaly(rows)
		if err != nil {
			return nil, err
		}
		anomalies = append(anomalies, a)
	}
	return anomalies, rows.Err()
}

func (r *PostgresAnomalyRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Anomaly, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, date, scope_key, detected_value, expected_value, deviation_pct, severity, status, message, detected_at, acknowledged_at, resolved_at, created_at, updated_at
		FROM anomalies WHERE id = $1
	`, id)
	a, err := scanAnomaly(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *PostgresAnomalyRepository) UpdateStatus(ctx context.Context, anomaly *model.Anomaly) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE anomalies SET status = $2, acknowledged_at = $3, resolved_at = $4, updated_at = $5 WHERE id = $1
	`, anomaly.ID, anomaly.Status, anomaly.AcknowledgedAt, anomaly.ResolvedAt, anomaly.UpdatedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnomaly(row rowScanner) (*model.Anomaly, error) {
	var a model.Anomaly
	var ackAt, resAt sql.NullTime
	err := row.Scan(&a.ID, &a.Date, &a.ScopeKey, &a.DetectedValue, &a.ExpectedValue, &a.DeviationPct,
		&a.Severity, &a.Status, &a.Message, &a.DetectedAt, &ackAt, &resAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if ackAt.Valid {
		a.AcknowledgedAt = &ackAt.Time
	}
	if resAt.Valid {
		a.ResolvedAt = &resAt.Time
	}
	return &a, nil
}

// EnsureTable creates the anomalies table if it doesn't exist.
func (r *PostgresAnomalyRepository) EnsureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS anomalies (
			id UUID PRIMARY KEY,
			date TIMESTAMPTZ NOT NULL,
			scope_key VARCHAR(255) NOT NULL,
			detected_value DOUBLE PRECISION NOT NULL,
			expected_value DOUBLE PRECISION NOT NULL,
			deviation_pct DOUBLE PRECISION NOT NULL,
			severity VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'new',
			message TEXT NOT NULL DEFAULT '',
			detected_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			acknowledged_at TIMESTAMPTZ,
			resolved_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (date, scope_key)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create anomalies table: %w", err)
	}

	r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_anomalies_status ON anomalies (status)`)
	return nil
}
