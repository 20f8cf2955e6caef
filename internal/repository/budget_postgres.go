package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/costlens/backend/internal/model"
)

// PostgresBudgetRepository implements BudgetRepository for PostgreSQL.
type PostgresBudgetRepository struct {
	db *sql.DB
}

// NewPostgresBudgetRepository creates a new PostgresBudgetRepository.
func NewPostgresBudgetRepository(db *sql.DB) *PostgresBudgetRepository {
	return &PostgresBudgetRepository{db: db}
}

func (r *PostgresBudgetRepository) Create(ctx context.Context, budget *model.Budget) error {
	scopeJSON, _ := json.Marshal(budget.Scope)
	thresholdsJSON, _ := json.Marshal(budget.Thresholds)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (id, name, amount, scope, thresholds, period, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, budget.ID, budget.Name, budget.Amount, scopeJSON, thresholdsJSON, budget.Period,
		budget.CreatedAt, budget.UpdatedAt)
	return err
}

func (r *PostgresBudgetRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Budget, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, amount, scope, thresholds, period, created_at, updated_at
		FROM budgets WHERE id = $1
	`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (r *PostgresBudgetRepository) List(ctx context.Context) ([]*model.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, amount, scope, thresholds, period, created_at, updated_at
		FROM budgets ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []*model.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r *PostgresBudgetRepository) Update(ctx context.Context, budget *model.Budget) error {
	scopeJSON, _ := json.Marshal(budget.Scope)
	thresholdsJSON, _ := json.Marshal(budget.Thresholds)
	res, err := r.db.ExecContext(ctx, `
		UPDATE budgets SET name = $2, amount = $3, scope = $4, thresholds = $5, period = $6, updated_at = $7
		WHERE id = $1
	`, budget.ID, budget.Name, budget.Amount, scopeJSON, thresholdsJSON, budget.Period, budget.UpdatedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresBudgetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM budgets WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBudget(row rowScanner) (*model.Budget, error) {
	var b model.Budget
	var scopeJSON, thresholdsJSON []byte
	err := row.Scan(&b.ID, &b.Name, &b.Amount, &scopeJSON, &thresholdsJSON, &b.Period,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	json.Unmarshal(scopeJSON, &b.Scope)
	json.Unmarshal(thresholdsJSON, &b.Thresholds)
	return &b, nil
}

// EnsureTable creates the budgets table if it doesn't exist.
func (r *PostgresBudgetRepository) EnsureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS budgets (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			scope JSONB NOT NULL DEFAULT '{}',
			thresholds JSONB NOT NULL DEFAULT '[]',
			period VARCHAR(20) NOT NULL DEFAULT 'monthly',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create budgets table: %w", err)
	}
	return nil
}
