package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/costlens/backend/internal/analytics"
	"github.com/costlens/backend/internal/config"
	"github.com/costlens/backend/internal/model"
	"github.com/costlens/backend/internal/repository"
)

type testEnv struct {
	costRepo    *repository.MemoryCostRepository
	anomalyRepo *repository.MemoryAnomalyRepository
	budgetRepo  *repository.MemoryBudgetRepository
	engine      *analytics.Engine
	router      *chi.Mux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		costRepo:    repository.NewMemoryCostRepository(),
		anomalyRepo: repository.NewMemoryAnomalyRepository(),
		budgetRepo:  repository.NewMemoryBudgetRepository(),
	}
	env.engine = analytics.NewEngine(config.AnalyticsConfig{
		ThresholdMultiplier: 1.5,
		MediumSigma:         1.75,
		HighSigma:           2.0,
		GrowthWarningPct:    5,
		GrowthCriticalPct:   20,
		ConfidenceZ:         1.96,
		TopServices:         5,
		MinGrowthSpend:      10,
	}, nil)

	validate := validator.New()
	costHandler := NewCostHandler(env.costRepo, env.engine, nil)
	anomalyHandler := NewAnomalyHandler(env.costRepo, env.anomalyRepo, env.engine, validate, nil)
	forecastHandler := NewForecastHandler(env.costRepo, env.engine, validate, nil)
	budgetHandler := NewBudgetHandler(env.budgetRepo, env.costRepo, env.engine, validate, nil)
	insightHandler := NewInsightHandler(env.costRepo, env.engine, nil)

	r := chi.NewRouter()
	r.Post("/costs/upload", costHandler.Upload)
	r.Get("/costs/trends", costHandler.GetTrends)
	r.Get("/costs/filter-options", costHandler.GetFilterOptions)
	r.Get("/anomalies", anomalyHandler.List)
	r.Get("/anomalies/summary", anomalyHandler.GetSummary)
	r.Post("/anomalies/detect", anomalyHandler.Detect)
	r.Patch("/anomalies/{id}/status", anomalyHandler.UpdateStatus)
	r.Get("/forecasts", forecastHandler.GetReport)
	r.Get("/budgets", budgetHandler.List)
	r.Post("/budgets", budgetHandler.Create)
	r.Patch("/budgets/{id}", budgetHandler.Update)
	r.Delete("/budgets/{id}", budgetHandler.Delete)
	r.Get("/budgets/{id}/status", budgetHandler.GetStatus)
	r.Get("/insights", insightHandler.Get)
	env.router = r
	return env
}

func (env *testEnv) seedCosts(t *testing.T, service string, start time.Time, costs ...float64) {
	t.Helper()
	records := make([]*model.CostRecord, 0, len(costs))
	for i, cost := range costs {
		day := start.AddDate(0, 0, i)
		records = append(records, &model.CostRecord{
			BaseEntity:     model.NewBaseEntity(),
			Provider:       "aws",
			ServiceName:    service,
			Cost:           cost,
			Currency:       model.CurrencyUSD,
			UsageStartDate: day,
			UsageEndDate:   day,
		})
	}
	if err := env.costRepo.CreateBatch(context.Background(), records); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func (env *testEnv) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode failed: %v (body: %s)", err, rec.Body.String())
	}
}

func TestUploadCSV(t *testing.T) {
	env := newTestEnv(t)

	var csv bytes.Buffer
	csv.WriteString("Service,Cost,Date\n")
	for i := 0; i < 18; i++ {
		fmt.Fprintf(&csv, "EC2,10.00,2024-03-%02d\n", i+1)
	}
	csv.WriteString("EC2,not-a-number,2024-03-19\n")
	csv.WriteString("EC2,oops,2024-03-20\n")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "costs.csv")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(csv.Bytes())
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/costs/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		TotalRecords int `json:"total_records"`
		SuccessCount int `json:"success_count"`
		ErrorCount   int `json:"error_count"`
		SampleErrors []struct {
			RowIndex int `json:"row_index"`
		} `json:"sample_errors"`
	}
	decode(t, rec, &resp)
	if resp.TotalRecords != 20 || resp.SuccessCount != 18 || resp.ErrorCount != 2 {
		t.Errorf("got %+v, want 20/18/2", resp)
	}

	stored, _ := env.costRepo.List(context.Background(), model.CostFilter{})
	if len(stored) != 18 {
		t.Errorf("stored = %d, want 18", len(stored))
	}
}

func TestUploadMissingFile(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/costs/upload", []byte("{}"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetTrends(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	env.seedCosts(t, "EC2", start, 10, 20, 30)
	env.seedCosts(t, "S3", start, 5, 5, 5)

	rec := env.do(t, http.MethodGet, "/costs/trends?month=all&granularity=daily", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp model.TrendResult
	decode(t, rec, &resp)
	if len(resp.Trends) != 3 {
		t.Fatalf("periods = %d, want 3", len(resp.Trends))
	}
	if resp.Summary.TotalCost != 75 {
		t.Errorf("total = %v, want 75", resp.Summary.TotalCost)
	}
}

func TestGetTrendsBadParams(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		path string
	}{
		{"bad start date", "/costs/trends?start_date=March-1"},
		{"inverted range", "/costs/trends?start_date=2024-03-05&end_date=2024-03-01"},
		{"bad breakdown", "/costs/trends?breakdown=color"},
		{"bad granularity", "/costs/trends?granularity=hourly"},
		{"bad month", "/costs/trends?month=2024-13"},
		{"month wrong shape", "/costs/trends?month=March"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestDetectAnomaliesIdempotent(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	env.seedCosts(t, "EC2", start, 100, 100, 100, 100, 500)

	rec := env.do(t, http.MethodPost, "/anomalies/detect", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var first model.DetectionResult
	decode(t, rec, &first)
	if first.TotalDetected != 1 || first.Stored != 1 {
		t.Fatalf("first run: %+v, want detected=1 stored=1", first)
	}

	// Second run finds the same occurrence but stores nothing new.
	rec = env.do(t, http.MethodPost, "/anomalies/detect", nil)
	var second model.DetectionResult
	decode(t, rec, &second)
	if second.TotalDetected != 1 || second.Stored != 0 {
		t.Errorf("second run: %+v, want detected=1 stored=0", second)
	}
}

func TestDetectReturnsStoredOccurrences(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	env.seedCosts(t, "EC2", start, 100, 100, 100, 100, 500)

	var first model.DetectionResult
	decode(t, env.do(t, http.MethodPost, "/anomalies/detect", nil), &first)
	if len(first.Anomalies) != 1 {
		t.Fatalf("anomalies = %d, want 1", len(first.Anomalies))
	}
	id := first.Anomalies[0].ID

	// The id in the response must belong to a persisted row.
	rec := env.do(t, http.MethodPatch, "/anomalies/"+id.String()+"/status",
		[]byte(`{"status":"acknowledged"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("acknowledge status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Re-detection echoes the existing row, keeping its id and status.
	var second model.DetectionResult
	decode(t, env.do(t, http.MethodPost, "/anomalies/detect", nil), &second)
	if len(second.Anomalies) != 1 {
		t.Fatalf("anomalies = %d, want 1", len(second.Anomalies))
	}
	if second.Anomalies[0].ID != id {
		t.Errorf("id = %s, want %s", second.Anomalies[0].ID, id)
	}
	if second.Anomalies[0].Status != model.AnomalyStatusAcknowledged {
		t.Errorf("status = %q, want acknowledged", second.Anomalies[0].Status)
	}
}

func TestAnomalyLifecycle(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	env.seedCosts(t, "EC2", start, 100, 100, 100, 100, 500)
	env.do(t, http.MethodPost, "/anomalies/detect", nil)

	var listResp struct {
		Anomalies []*model.Anomaly `json:"anomalies"`
	}
	decode(t, env.do(t, http.MethodGet, "/anomalies", nil), &listResp)
	if len(listResp.Anomalies) != 1 {
		t.Fatalf("anomalies = %d, want 1", len(listResp.Anomalies))
	}
	id := listResp.Anomalies[0].ID

	// new -> resolved is not allowed
	rec := env.do(t, http.MethodPatch, "/anomalies/"+id.String()+"/status",
		[]byte(`{"status":"resolved"}`))
	if rec.Code != http.StatusConflict {
		t.Errorf("skip transition status = %d, want 409", rec.Code)
	}

	// new -> acknowledged
	rec = env.do(t, http.MethodPatch, "/anomalies/"+id.String()+"/status",
		[]byte(`{"status":"acknowledged"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("acknowledge status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated model.Anomaly
	decode(t, rec, &updated)
	if updated.Status != model.AnomalyStatusAcknowledged {
		t.Errorf("status = %q, want acknowledged", updated.Status)
	}
	if updated.AcknowledgedAt == nil {
		t.Error("acknowledged_at not set")
	}

	// acknowledged -> resolved
	rec = env.do(t, http.MethodPatch, "/anomalies/"+id.String()+"/status",
		[]byte(`{"status":"resolved"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve status = %d", rec.Code)
	}

	// resolved is terminal
	rec = env.do(t, http.MethodPatch, "/anomalies/"+id.String()+"/status",
		[]byte(`{"status":"acknowledged"}`))
	if rec.Code != http.StatusConflict {
		t.Errorf("terminal transition status = %d, want 409", rec.Code)
	}
}

func TestAnomalyStatusUnknownID(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPatch, "/anomalies/7a6e41f8-13b0-4b7c-a3f7-1e6a62f0f001/status",
		[]byte(`{"status":"acknowledged"}`))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestForecastEndpoint(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	env.seedCosts(t, "EC2", start, 100, 102, 99, 105, 101, 103, 100)

	rec := env.do(t, http.MethodGet, "/forecasts?horizon_days=30", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var report model.ForecastReport
	decode(t, rec, &report)
	if report.GlobalForecast == nil || len(report.GlobalForecast.Forecast) != 30 {
		t.Fatal("missing or short global forecast")
	}
	if !strings.Contains(report.ExecutiveSummary.PeriodLabel, "30") {
		t.Errorf("period label = %q", report.ExecutiveSummary.PeriodLabel)
	}

	rec = env.do(t, http.MethodGet, "/forecasts?horizon_days=45", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid horizon status = %d, want 422", rec.Code)
	}
}

func TestBudgetCRUDAndStatus(t *testing.T) {
	env := newTestEnv(t)

	// Seed current-month spend so the evaluation has data. The handler
	// evaluates against the real current month.
	monthStart := time.Date(time.Now().UTC().Year(), time.Now().UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	env.seedCosts(t, "EC2", monthStart, 400, 400, 400)

	rec := env.do(t, http.MethodPost, "/budgets",
		[]byte(`{"name":"march","amount":1000,"thresholds":[50,80]}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var budget model.Budget
	decode(t, rec, &budget)
	if budget.Scope.Type != model.BudgetScopeGlobal {
		t.Errorf("scope defaulted to %q, want global", budget.Scope.Type)
	}
	if budget.Period != model.BudgetPeriodMonthly {
		t.Errorf("period defaulted to %q, want monthly", budget.Period)
	}

	rec = env.do(t, http.MethodGet, "/budgets/"+budget.ID.String()+"/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d", rec.Code)
	}
	var eval model.BudgetEvaluation
	decode(t, rec, &eval)
	if eval.Metrics.ActualSpend != 1200 {
		t.Errorf("actual = %v, want 1200", eval.Metrics.ActualSpend)
	}
	if eval.Metrics.RemainingAmount != -200 {
		t.Errorf("remaining = %v, want -200", eval.Metrics.RemainingAmount)
	}
	if eval.Status != model.BudgetStatusCritical {
		t.Errorf("status = %q, want Critical", eval.Status)
	}

	rec = env.do(t, http.MethodPatch, "/budgets/"+budget.ID.String(),
		[]byte(`{"amount":2000}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	var updated model.Budget
	decode(t, rec, &updated)
	if updated.Amount != 2000 {
		t.Errorf("amount = %v, want 2000", updated.Amount)
	}

	rec = env.do(t, http.MethodDelete, "/budgets/"+budget.ID.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/budgets/"+budget.ID.String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestBudgetCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"amount":1000}`},
		{"zero amount", `{"name":"x","amount":0}`},
		{"scoped without value", `{"name":"x","amount":100,"scope":{"type":"service"}}`},
		{"unknown scope type", `{"name":"x","amount":100,"scope":{"type":"sevice","value":"EC2"}}`},
		{"unknown period", `{"name":"x","amount":100,"period":"weekly"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/budgets", []byte(tt.body))
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", rec.Code)
			}
		})
	}
}

func TestFilterOptions(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	env.seedCosts(t, "EC2", start, 10)
	env.seedCosts(t, "S3", start, 10)

	rec := env.do(t, http.MethodGet, "/costs/filter-options", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string][]string
	decode(t, rec, &resp)
	if len(resp["services"]) != 2 {
		t.Errorf("services = %v, want [EC2 S3]", resp["services"])
	}
	if len(resp["providers"]) != 1 || resp["providers"][0] != "aws" {
		t.Errorf("providers = %v, want [aws]", resp["providers"])
	}
}

func TestInsightsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	env.seedCosts(t, "EC2", start, 60, 60)
	env.seedCosts(t, "S3", start, 20, 20)

	rec := env.do(t, http.MethodGet, "/insights", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var insights model.Insights
	decode(t, rec, &insights)
	if insights.TopDriver == nil || insights.TopDriver.Name != "EC2" {
		t.Errorf("top driver = %+v, want EC2", insights.TopDriver)
	}
}
