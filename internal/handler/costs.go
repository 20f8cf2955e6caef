package handler

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/costlens/backend/internal/analytics"
	"github.com/costlens/backend/internal/apierrors"
	"github.com/costlens/backend/internal/model"
	"github.com/costlens/backend/internal/normalizer"
	"github.com/costlens/backend/internal/repository"
)

// maxUploadBytes caps the request body for billing file uploads.
const maxUploadBytes = 64 << 20

// CostHandler handles trend, upload, and filter-option requests.
type CostHandler struct {
	repo   repository.CostRepository
	engine *analytics.Engine
	logger *slog.Logger
}

func NewCostHandler(repo repository.CostRepository, engine *analytics.Engine, logger *slog.Logger) *CostHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CostHandler{repo: repo, engine: engine, logger: logger}
}

// GetTrends returns aggregated cost periods.
//
//	GET /api/costs/trends?start_date=&end_date=&month=&breakdown=&granularity=&service=&region=&account=&provider=
func (h *CostHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	start, err := queryDate(r, "start_date")
	if err != nil {
		writeError(w, r, apierrors.NewBadRequestError("invalid start_date, expected YYYY-MM-DD"))
		return
	}
	end, err := queryDate(r, "end_date")
	if err != nil {
		writeError(w, r, apierrors.NewBadRequestError("invalid end_date, expected YYYY-MM-DD"))
		return
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		writeError(w, r, apierrors.NewBadRequestError("end_date is before start_date"))
		return
	}

	breakdown := model.Dimension(q.Get("breakdown"))
	if q.Get("breakdown") != "" && !breakdown.Valid() {
		writeError(w, r, apierrors.NewBadRequestError("unsupported breakdown dimension"))
		return
	}
	granularity := model.Granularity(q.Get("granularity"))
	if q.Get("granularity") != "" && !granularity.Valid() {
		writeError(w, r, apierrors.NewBadRequestError("unsupported granularity"))
		return
	}
	month := q.Get("month")
	if month != "" && month != "all" {
		if _, err := time.Parse("2006-01", month); err != nil {
			writeError(w, r, apierrors.NewBadRequestError("invalid month, expected YYYY-MM or all"))
			return
		}
	}

	params := model.TrendParams{
		DateRange:   model.DateRange{Start: start, End: end},
		Breakdown:   breakdown,
		Granularity: granularity,
		Month:       month,
		Filter: model.CostFilter{
			Provider:  q.Get("provider"),
			AccountID: q.Get("account"),
			Region:    q.Get("region"),
			Service:   q.Get("service"),
		},
	}

	records, err := h.repo.List(ctx, model.CostFilter{})
	if err != nil {
		h.logger.Error("listing cost records failed", "error", err)
		writeError(w, r, apierrors.NewInternalError("failed to load cost data"))
		return
	}

	WriteJSON(w, http.StatusOK, h.engine.Aggregate(records, params))
}

// Upload ingests a billing export file.
//
//	POST /api/costs/upload (multipart form, field "file", CSV)
func (h *CostHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apierrors.NewBadRequestError("missing file upload field"))
		return
	}
	defer file.Close()

	rows, err := readCSVRows(file)
	if err != nil {
		writeError(w, r, apierrors.NewBadRequestError("could not parse CSV: "+err.Error()))
		return
	}

	result := normalizer.NormalizeBatch(rows)
	if len(result.Records) > 0 {
		if err := h.repo.CreateBatch(ctx, result.Records); err != nil {
			h.logger.Error("storing cost records failed", "error", err)
			writeError(w, r, apierrors.NewInternalError("failed to store cost records"))
			return
		}
	}

	h.logger.Info("billing file ingested",
		"total_rows", result.TotalRows,
		"success", result.SuccessCount,
		"errors", result.ErrorCount)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "upload processed",
		"total_records": result.TotalRows,
		"success_count": result.SuccessCount,
		"error_count":   result.ErrorCount,
		"sample_errors": result.SampleErrors,
	})
}

// GetFilterOptions lists distinct values for each filterable dimension.
//
//	GET /api/costs/filter-options
func (h *CostHandler) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out := make(map[string][]string, 4)
	for name, dim := range map[string]model.Dimension{
		"services":  model.DimensionService,
		"regions":   model.DimensionRegion,
		"accounts":  model.DimensionAccount,
		"providers": model.DimensionProvider,
	} {
		values, err := h.repo.DistinctValues(ctx, dim)
		if err != nil {
			writeError(w, r, apierrors.NewInternalError("failed to load filter options"))
			return
		}
		if values == nil {
			values = []string{}
		}
		out[name] = values
	}
	WriteJSON(w, http.StatusOK, out)
}

// readCSVRows reads a header row plus data rows into RawRows. Short records
// are padded so a ragged trailing column never fails the whole file.
func readCSVRows(f io.Reader) ([]normalizer.RawRow, error) {
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.New("empty file")
	}

	var rows []normalizer.RawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(normalizer.RawRow, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
