// Package repository defines data access interfaces.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/costlens/backend/internal/model"
)

// ErrNotFound is returned when an entity does not exist.
var ErrNotFound = errors.New("not found")

// CostRepository defines cost record data access methods.
type CostRepository interface {
	CreateBatch(ctx context.Context, records []*model.CostRecord) error
	List(ctx context.Context, filter model.CostFilter) ([]*model.CostRecord, error)
	GetDateSpan(ctx context.Context) (*model.DateRange, error)
	DistinctValues(ctx context.Context, dimension model.Dimension) ([]string, error)
}

// AnomalyRepository defines anomaly data access methods. UpsertBatch inserts
// only occurrences not already present for their (date, scope_key) pair, so
// re-running detection never resets an operator-managed status.
type AnomalyRepository interface {
	UpsertBatch(ctx context.Context, anomalies []*model.Anomaly) (int, error)
	List(ctx context.Context, filter model.AnomalyFilter) ([]*model.Anomaly, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Anomaly, error)
	UpdateStatus(ctx context.Context, anomaly *model.Anomaly) error
}

// BudgetRepository defines budget data access methods.
type BudgetRepository interface {
	Create(ctx context.Context, budget *model.Budget) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Budget, error)
	List(ctx context.Context) ([]*model.Budget, error)
	Update(ctx context.Context, budget *model.Budget) error
	Delete(ctx context.Context, id uuid.UUID) error
}
