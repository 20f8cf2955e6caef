// Package repository provides PostgreSQL repository implementations.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/costlens/backend/internal/model"
)

// PostgresCostRepository implements CostRepository for PostgreSQL.
type PostgresCostRepository struct {
	db *sql.DB
}

// NewPostgresCostRepository creates a new PostgresCostRepository.
func NewPostgresCostRepository(db *sql.DB) *PostgresCostRepository {
	return &PostgresCostRepository{db: db}
}

func (r *PostgresCostRepository) CreateBatch(ctx context.Context, records []*model.CostRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cost_records (id, provider, cloud_account_id, service_name, region, cost, currency, usage_start_date, usage_end_date, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx, rec.ID, rec.Provider, rec.CloudAccountID, rec.ServiceName,
			rec.Region, rec.Cost, rec.Currency, rec.UsageStartDate, rec.UsageEndDate, rec.Category,
			rec.CreatedAt, rec.UpdatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PostgresCostRepository) List(ctx context.Context, filter model.CostFilter) ([]*model.CostRecord, error) {
	query := `SELECT id, provider, cloud_account_id, service_name, region, cost, currency, usage_start_date, usage_end_date, category, created_at, updated_at
		FROM cost_records WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.DateRange.Start.IsZero() {
		query += " AND usage_start_date >= " + arg(filter.DateRange.Start)
	}
	if !filter.DateRange.End.IsZero() {
		query += " AND usage_start_date <= " + arg(filter.DateRange.End)
	}
	if filter.Provider != "" {
		query += " AND provider = " + arg(filter.Provider)
	}
	if filter.AccountID != "" {
		query += " AND cloud_account_id = " + arg(filter.AccountID)
	}
	if filter.Region != "" {
		query += " AND region = " + arg(filter.Region)
	}
	if filter.Service != "" {
		query += " AND service_name = " + arg(filter.Service)
	}
	query += " ORDER BY usage_start_date"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*model.CostRecord
	for rows.Next() {
		var rec model.CostRecord
		err := rows.Scan(&rec.ID, &rec.Provider, &rec.CloudAccountID, &rec.ServiceName, &rec.Region,
			&rec.Cost, &rec.Currency, &rec.UsageStartDate, &rec.UsageEndDate, &rec.Category,
			&rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (r *PostgresCostRepository) GetDateSpan(ctx context.Context) (*model.DateRange, error) {
	var span model.DateRange
	var start, end sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT MIN(usage_start_date), MAX(usage_start_date) FROM cost_records`).Scan(&start, &end)
	if err != nil {
		return nil, err
	}
	if !start.Valid {
		return nil, ErrNotFound
	}
	span.Start = start.Time
	span.End = end.Time
	return &span, nil
}

func (r *PostgresCostRepository) DistinctValues(ctx context.Context, dimension model.Dimension) ([]string, error) {
	col := "service_name"
	switch dimension {
	case model.DimensionRegion:
		col = "region"
	case model.DimensionAccount:
		col = "cloud_account_id"
	case model.DimensionProvider:
		col = "provider"
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT DISTINCT %s FROM cost_records WHERE %s <> '' ORDER BY %s`, col, col, col))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// EnsureTable creates the cost_records table if it doesn't exist.
func (r *PostgresCostRepository) EnsureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cost_records (
			id UUID PRIMARY KEY,
			provider VARCHAR(50) NOT NULL DEFAULT '',
			cloud_account_id VARCHAR(255) NOT NULL DEFAULT '',
			service_name VARCHAR(255) NOT NULL DEFAULT '',
			region VARCHAR(100) NOT NULL DEFAULT '',
			cost DOUBLE PRECISION NOT NULL,
			currency VARCHAR(3) NOT NULL DEFAULT 'USD',
			usage_start_date TIMESTAMPTZ NOT NULL,
			usage_end_date TIMESTAMPTZ NOT NULL,
			category VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create cost_records table: %w", err)
	}

	// Index for date-window scans
	r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_cost_records_usage_start ON cost_records (usage_start_date)`)
	return nil
}
