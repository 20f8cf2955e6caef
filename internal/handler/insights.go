package handler

import (
	"log/slog"
	"net/http"

	"github.com/costlens/backend/internal/analytics"
	"github.com/costlens/backend/internal/apierrors"
	"github.com/costlens/backend/internal/model"
	"github.com/costlens/backend/internal/repository"
)

// InsightHandler serves derived insights over the stored cost data.
type InsightHandler struct {
	costRepo repository.CostRepository
	engine   *analytics.Engine
	logger   *slog.Logger
}

func NewInsightHandler(costRepo repository.CostRepository, engine *analytics.Engine, logger *slog.Logger) *InsightHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InsightHandler{costRepo: costRepo, engine: engine, logger: logger}
}

// Get returns the current insight digest.
//
//	GET /api/insights
func (h *InsightHandler) Get(w http.ResponseWriter, r *http.Request) {
	records, err := h.costRepo.List(r.Context(), model.CostFilter{})
	if err != nil {
		h.logger.Error("listing cost records failed", "error", err)
		writeError(w, r, apierrors.NewInternalError("failed to load cost data"))
		return
	}
	WriteJSON(w, http.StatusOK, h.engine.GenerateInsights(records))
}
