package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/costlens/backend/internal/analytics"
	"github.com/costlens/backend/internal/apierrors"
	"github.com/costlens/backend/internal/model"
	"github.com/costlens/backend/internal/repository"
)

// AnomalyHandler handles anomaly listing, detection, and lifecycle requests.
type AnomalyHandler struct {
	costRepo    repository.CostRepository
	anomalyRepo repository.AnomalyRepository
	engine      *analytics.Engine
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewAnomalyHandler(costRepo repository.CostRepository, anomalyRepo repository.AnomalyRepository, engine *analytics.Engine, validate *validator.Validate, logger *slog.Logger) *AnomalyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnomalyHandler{
		costRepo:    costRepo,
		anomalyRepo: anomalyRepo,
		engine:      engine,
		validate:    validate,
		logger:      logger,
	}
}

// List returns stored anomalies, newest first.
//
//	GET /api/anomalies?status=&severity=&limit=
func (h *AnomalyHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := model.AnomalyFilter{
		Status:   model.AnomalyStatus(q.Get("status")),
		Severity: model.Severity(q.Get("severity")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, r, apierrors.NewBadRequestError("unknown anomaly status"))
		return
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeError(w, r, apierrors.NewBadRequestError("invalid limit"))
			return
		}
		filter.Limit = n
	}

	anomalies, err := h.anomalyRepo.List(ctx, filter)
	if err != nil {
		h.logger.Error("listing anomalies failed", "error", err)
		writeError(w, r, apierrors.NewInternalError("failed to load anomalies"))
		return
	}
	if anomalies == nil {
		anomalies = []*model.Anomaly{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"anomalies": anomalies,
		"count":     len(anomalies),
	})
}

// GetSummary returns the dashboard header counts.
//
//	GET /api/anomalies/summary
func (h *AnomalyHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	anomalies, err := h.anomalyRepo.List(r.Context(), model.AnomalyFilter{})
	if err != nil {
		writeError(w, r, apierrors.NewInternalError("failed to load anomalies"))
		return
	}
	WriteJSON(w, http.StatusOK, analytics.SummarizeAnomalies(anomalies))
}

// Detect runs anomaly detection over stored cost data and persists new
// occurrences.
//
//	POST /api/anomalies/detect
func (h *AnomalyHandler) Detect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.DetectionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, apierrors.NewBadRequestError("invalid request body"))
			return
		}
	}
	if req.Scope != "" && !req.Scope.Valid() {
		writeError(w, r, apierrors.NewBadRequestError("unsupported scope dimension"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, apierrors.NewValidationError("invalid detection request", err.Error()))
		return
	}

	records, err := h.costRepo.List(ctx, model.CostFilter{})
	if err != nil {
		writeError(w, r, apierrors.NewInternalError("failed to load cost data"))
		return
	}

	detected := h.engine.DetectAnomalies(records, req)
	stored, err := h.anomalyRepo.UpsertBatch(ctx, detected)
	if err != nil {
		h.logger.Error("storing anomalies failed", "error", err)
		writeError(w, r, apierrors.NewInternalError("failed to store anomalies"))
		return
	}

	// Echo the persisted rows rather than the freshly built ones: an
	// occurrence that already existed keeps its stored id and status, and the
	// returned ids stay usable for follow-up status updates.
	anomalies, err := h.storedOccurrences(ctx, detected)
	if err != nil {
		writeError(w, r, apierrors.NewInternalError("failed to load anomalies"))
		return
	}

	WriteJSON(w, http.StatusOK, model.DetectionResult{
		TotalDetected: len(detected),
		Stored:        stored,
		Anomalies:     anomalies,
	})
}

func (h *AnomalyHandler) storedOccurrences(ctx context.Context, detected []*model.Anomaly) ([]*model.Anomaly, error) {
	if len(detected) == 0 {
		return []*model.Anomaly{}, nil
	}
	all, err := h.anomalyRepo.List(ctx, model.AnomalyFilter{})
	if err != nil {
		return nil, err
	}
	byOccurrence := make(map[string]*model.Anomaly, len(all))
	for _, a := range all {
		byOccurrence[a.Date.Format("2006-01-02")+"|"+a.ScopeKey] = a
	}
	out := make([]*model.Anomaly, 0, len(detected))
	for _, a := range detected {
		if row, ok := byOccurrence[a.Date.Format("2006-01-02")+"|"+a.ScopeKey]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

type statusUpdateRequest struct {
	Status model.AnomalyStatus `json:"status" validate:"required"`
}

// UpdateStatus advances an anomaly through its lifecycle.
//
//	PATCH /api/anomalies/{id}/status
func (h *AnomalyHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := urlUUID(r)
	if err != nil {
		writeError(w, r, apierrors.NewBadRequestError("invalid anomaly id"))
		return
	}

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apierrors.NewBadRequestError("invalid request body"))
		return
	}
	if !req.Status.Valid() {
		writeError(w, r, apierrors.NewBadRequestError("unknown anomaly status"))
		return
	}

	anomaly, err := h.anomalyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, apierrors.NewNotFoundError("anomaly", id.String()))
			return
		}
		writeError(w, r, apierrors.NewInternalError("failed to load anomaly"))
		return
	}

	if !anomaly.Status.CanTransition(req.Status) {
		writeError(w, r, apierrors.NewConflictError(
			"cannot transition anomaly from "+string(anomaly.Status)+" to "+string(req.Status)))
		return
	}

	now := time.Now().UTC()
	anomaly.Status = req.Status
	anomaly.UpdatedAt = now
	switch req.Status {
	case model.AnomalyStatusAcknowledged:
		anomaly.AcknowledgedAt = &now
	case model.AnomalyStatusResolved:
		anomaly.ResolvedAt = &now
	}

	if err := h.anomalyRepo.UpdateStatus(ctx, anomaly); err != nil {
		writeError(w, r, apierrors.NewInternalError("failed to update anomaly"))
		return
	}
	WriteJSON(w, http.StatusOK, anomaly)
}
