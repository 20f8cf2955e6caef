package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/costlens/backend/internal/analytics"
	"github.com/costlens/backend/internal/apierrors"
	"github.com/costlens/backend/internal/model"
	"github.com/costlens/backend/internal/repository"
)

// ForecastHandler handles forecast report requests.
type ForecastHandler struct {
	costRepo repository.CostRepository
	engine   *analytics.Engine
	validate *validator.Validate
	logger   *slog.Logger
}

func NewForecastHandler(costRepo repository.CostRepository, engine *analytics.Engine, validate *validator.Validate, logger *slog.Logger) *ForecastHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastHandler{costRepo: costRepo, engine: engine, validate: validate, logger: logger}
}

// GetReport returns the forecast report: global projection, top service
// projections, and the executive summary.
//
//	GET /api/forecasts?horizon_days=30&top_services=5&service=&region=&account=&provider=
func (h *ForecastHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	req := model.ForecastRequest{
		Filter: model.CostFilter{
			Provider:  q.Get("provider"),
			AccountID: q.Get("account"),
			Region:    q.Get("region"),
			Service:   q.Get("service"),
		},
	}
	if s := q.Get("horizon_days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, r, apierrors.NewBadRequestError("invalid horizon_days"))
			return
		}
		req.HorizonDays = n
	}
	if s := q.Get("top_services"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, r, apierrors.NewBadRequestError("invalid top_services"))
			return
		}
		req.TopServices = n
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, apierrors.NewValidationError("invalid forecast request", err.Error()))
		return
	}

	records, err := h.costRepo.List(ctx, model.CostFilter{})
	if err != nil {
		h.logger.Error("listing cost records failed", "error", err)
		writeError(w, r, apierrors.NewInternalError("failed to load cost data"))
		return
	}

	WriteJSON(w, http.StatusOK, h.engine.BuildReport(records, req))
}
