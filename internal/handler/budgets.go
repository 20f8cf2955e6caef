package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/costlens/backend/internal/analytics"
	"github.com/costlens/backend/internal/apierrors"
	"github.com/costlens/backend/internal/model"
	"github.com/costlens/backend/internal/repository"
)

// BudgetHandler handles budget CRUD and evaluation requests.
type BudgetHandler struct {
	budgetRepo repository.BudgetRepository
	costRepo   repository.CostRepository
	engine     *analytics.Engine
	validate   *validator.Validate
	logger     *slog.Logger
	// now is swappable in tests so calendar-month evaluation is stable.
	now func() time.Time
}

func NewBudgetHandler(budgetRepo repository.BudgetRepository, costRepo repository.CostRepository, engine *analytics.Engine, validate *validator.Validate, logger *slog.Logger) *BudgetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BudgetHandler{
		budgetRepo: budgetRepo,
		costRepo:   costRepo,
		engine:     engine,
		validate:   validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// List returns all budgets with their current-month evaluations.
//
//	GET /api/budgets
func (h *BudgetHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	budgets, err := h.budgetRepo.List(ctx)
	if err != nil {
		h.logger.Error("listing budgets failed", "error", err)
		writeError(w, r, apierrors.NewInternalError("failed to load budgets"))
		return
	}

	records, err := h.costRepo.List(ctx, model.CostFilter{})
	if err != nil {
		writeError(w, r, apierrors.NewInternalError("failed to load cost data"))
		return
	}

	evaluations := h.engine.EvaluateBudgets(budgets, records, h.now())
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"budgets": evaluations,
		"count":   len(evaluations),
	})
}

// Create registers a new budget.
//
//	POST /api/budgets
func (h *BudgetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.BudgetCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apierrors.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, apierrors.NewValidationError("invalid budget", err.Error()))
		return
	}
	if req.Scope.Type == "" {
		req.Scope.Type = model.BudgetScopeGlobal
	}
	if !req.Scope.Type.Valid() {
		writeError(w, r, apierrors.NewValidationError("invalid budget", "unknown scope type "+string(req.Scope.Type)))
		return
	}
	if req.Scope.Type != model.BudgetScopeGlobal && req.Scope.Value == "" {
		writeError(w, r, apierrors.NewValidationError("invalid budget", "scoped budgets require a scope value"))
		return
	}
	if req.Period == "" {
		req.Period = model.BudgetPeriodMonthly
	}
	if !req.Period.Valid() {
		writeError(w, r, apierrors.NewValidationError("invalid budget", "unknown period "+string(req.Period)))
		return
	}

	budget := &model.Budget{
		BaseEntity: model.NewBaseEntity(),
		Name:       req.Name,
		Amount:     req.Amount,
		Scope:      req.Scope,
		Thresholds: req.Thresholds,
		Period:     req.Period,
	}
	if err := h.budgetRepo.Create(ctx, budget); err != nil {
		h.logger.Error("creating budget failed", "error", err)
		writeError(w, r, apierrors.NewInternalError("failed to create budget"))
		return
	}
	WriteJSON(w, http.StatusCreated, budget)
}

// Update modifies a budget's mutable fields.
//
//	PATCH /api/budgets/{id}
func (h *BudgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := urlUUID(r)
	if err != nil {
		writeError(w, r, apierrors.NewBadRequestError("invalid budget id"))
		return
	}

	var req model.BudgetUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apierrors.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, apierrors.NewValidationError("invalid budget update", err.Error()))
		return
	}

	budget, err := h.budgetRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, apierrors.NewNotFoundError("budget", id.String()))
			return
		}
		writeError(w, r, apierrors.NewInternalError("failed to load budget"))
		return
	}

	if req.Name != nil {
		budget.Name = *req.Name
	}
	if req.Amount != nil {
		budget.Amount = *req.Amount
	}
	if req.Thresholds != nil {
		budget.Thresholds = req.Thresholds
	}
	budget.UpdatedAt = h.now()

	if err := h.budgetRepo.Update(ctx, budget); err != nil {
		writeError(w, r, apierrors.NewInternalError("failed to update budget"))
		return
	}
	WriteJSON(w, http.StatusOK, budget)
}

// Delete removes a budget.
//
//	DELETE /api/budgets/{id}
func (h *BudgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r)
	if err != nil {
		writeError(w, r, apierrors.NewBadRequestError("invalid budget id"))
		return
	}
	if err := h.budgetRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, apierrors.NewNotFoundError("budget", id.String()))
			return
		}
		writeError(w, r, apierrors.NewInternalError("failed to delete budget"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStatus evaluates one budget against the current month.
//
//	GET /api/budgets/{id}/status
func (h *BudgetHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := urlUUID(r)
	if err != nil {
		writeError(w, r, apierrors.NewBadRequestError("invalid budget id"))
		return
	}
	budget, err := h.budgetRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, apierrors.NewNotFoundError("budget", id.String()))
			return
		}
		writeError(w, r, apierrors.NewInternalError("failed to load budget"))
		return
	}

	records, err := h.costRepo.List(ctx, model.CostFilter{})
	if err != nil {
		writeError(w, r, apierrors.NewInternalError("failed to load cost data"))
		return
	}

	WriteJSON(w, http.StatusOK, h.engine.EvaluateBudget(budget, records, h.now()))
}
