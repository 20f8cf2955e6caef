package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/costlens/backend/internal/model"
)

// MemoryCostRepository is an in-memory CostRepository used in tests and
// local development without a database.
type MemoryCostRepository struct {
	mu      sync.RWMutex
	records []*model.CostRecord
}

// NewMemoryCostRepository creates an empty in-memory cost repository.
func NewMemoryCostRepository() *MemoryCostRepository {
	return &MemoryCostRepository{}
}

func (r *MemoryCostRepository) CreateBatch(_ context.Context, records []*model.CostRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return nil
}

func (r *MemoryCostRepository) List(_ context.Context, filter model.CostFilter) ([]*model.CostRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.CostRecord
	for _, rec := range r.records {
		if filter.Matches(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UsageStartDate.Before(out[j].UsageStartDate)
	})
	return out, nil
}

func (r *MemoryCostRepository) GetDateSpan(_ context.Context) (*model.DateRange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.records) == 0 {
		return nil, ErrNotFound
	}
	span := model.DateRange{Start: r.records[0].UsageStartDate, End: r.records[0].UsageStartDate}
	for _, rec := range r.records[1:] {
		if rec.UsageStartDate.Before(span.Start) {
			span.Start = rec.UsageStartDate
		}
		if rec.UsageStartDate.After(span.End) {
			span.End = rec.UsageStartDate
		}
	}
	return &span, nil
}

func (r *MemoryCostRepository) DistinctValues(_ context.Context, dimension model.Dimension) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := make(map[string]struct{})
	for _, rec := range r.records {
		var v string
		switch dimension {
		case model.DimensionRegion:
			v = rec.Region
		case model.DimensionAccount:
			v = rec.CloudAccountID
		case model.DimensionProvider:
			v = rec.Provider
		default:
			v = rec.ServiceName
		}
		if v != "" {
			set[v] = struct{}{}
		}
	}
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

// MemoryAnomalyRepository is an in-memory AnomalyRepository.
type MemoryAnomalyRepository struct {
	mu        sync.RWMutex
	anomalies map[uuid.UUID]*model.Anomaly
	// occurrence key "YYYY-MM-DD|scope" -> id, for upsert semantics
	byOccurrence map[string]uuid.UUID
}

// NewMemoryAnomalyRepository creates an empty in-memory anomaly repository.
func NewMemoryAnomalyRepository() *MemoryAnomalyRepository {
	return &MemoryAnomalyRepository{
		anomalies:    make(map[uuid.UUID]*model.Anomaly),
		byOccurrence: make(map[string]uuid.UUID),
	}
}

func occurrenceKey(a *model.Anomaly) string {
	return a.Date.Format("2006-01-02") + "|" + a.ScopeKey
}

func (r *MemoryAnomalyRepository) UpsertBatch(_ context.Context, anomalies []*model.Anomaly) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := 0
	for _, a := range anomalies {
		key := occurrenceKey(a)
		if _, exists := r.byOccurrence[key]; exists {
			continue
		}
		cp := *a
		r.anomalies[a.ID] = &cp
		r.byOccurrence[key] = a.ID
		stored++
	}
	return stored, nil
}

func (r *MemoryAnomalyRepository) List(_ context.Context, filter model.AnomalyFilter) ([]*model.Anomaly, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Anomaly
	for _, a := range r.anomalies {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryAnomalyRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Anomaly, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.anomalies[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryAnomalyRepository) UpdateStatus(_ context.Context, anomaly *model.Anomaly) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.anomalies[anomaly.ID]; !ok {
		return ErrNotFound
	}
	cp := *anomaly
	r.anomalies[anomaly.ID] = &cp
	return nil
}

// MemoryBudgetRepository is an in-memory BudgetRepository.
type MemoryBudgetRepository struct {
	mu      sync.RWMutex
	budgets map[uuid.UUID]*model.Budget
}

// NewMemoryBudgetRepository creates an empty in-memory budget repository.
func NewMemoryBudgetRepository() *MemoryBudgetRepository {
	return &MemoryBudgetRepository{budgets: make(map[uuid.UUID]*model.Budget)}
}

func (r *MemoryBudgetRepository) Create(_ context.Context, budget *model.Budget) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *budget
	r.budgets[budget.ID] = &cp
	return nil
}

func (r *MemoryBudgetRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Budget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.budgets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *MemoryBudgetRepository) List(_ context.Context) ([]*model.Budget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Budget, 0, len(r.budgets))
	for _, b := range r.budgets {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryBudgetRepository) Update(_ context.Context, budget *model.Budget) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.budgets[budget.ID]; !ok {
		return ErrNotFound
	}
	cp := *budget
	r.budgets[budget.ID] = &cp
	return nil
}

func (r *MemoryBudgetRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.budgets[id]; !ok {
		return ErrNotFound
	}
	delete(r.budgets, id)
	return nil
}
