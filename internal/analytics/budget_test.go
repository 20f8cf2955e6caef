package analytics

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/costlens/backend/internal/model"
)

func testBudget(amount float64, thresholds ...float64) *model.Budget {
	return &model.Budget{
		BaseEntity: model.NewBaseEntity(),
		Name:       "monthly spend",
		Amount:     amount,
		Scope:      model.BudgetScope{Type: model.BudgetScopeGlobal},
		Thresholds: thresholds,
		Period:     model.BudgetPeriodMonthly,
	}
}

func TestEvaluateBudgetOverspend(t *testing.T) {
	// amount 1000, actual 1200: remaining -200, Critical
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	records := dailyRecords("EC2", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		400, 400, 400)

	eval := testEngine().EvaluateBudget(testBudget(1000), records, now)

	if eval.Metrics.ActualSpend != 1200 {
		t.Errorf("actual = %v, want 1200", eval.Metrics.ActualSpend)
	}
	if eval.Metrics.RemainingAmount != -200 {
		t.Errorf("remaining = %v, want -200", eval.Metrics.RemainingAmount)
	}
	if math.Abs(eval.Metrics.PctConsumed-120) > 1e-9 {
		t.Errorf("pct consumed = %v, want 120", eval.Metrics.PctConsumed)
	}
	if eval.Status != model.BudgetStatusCritical {
		t.Errorf("status = %q, want Critical", eval.Status)
	}
}

func TestEvaluateBudgetProjection(t *testing.T) {
	// Day 10 of a 31 day month with 100 spent: projected 310.
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	records := dailyRecords("EC2", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		10, 10, 10, 10, 10, 10, 10, 10, 10, 10)

	eval := testEngine().EvaluateBudget(testBudget(1000), records, now)
	if math.Abs(eval.Metrics.TotalProjected-310) > 1e-9 {
		t.Errorf("projected = %v, want 310", eval.Metrics.TotalProjected)
	}
	if eval.Status != model.BudgetStatusGood {
		t.Errorf("status = %q, want Good", eval.Status)
	}
	if eval.Period.DaysElapsed != 10 {
		t.Errorf("days elapsed = %d, want 10", eval.Period.DaysElapsed)
	}
	if eval.Period.DaysRemaining != 21 {
		t.Errorf("days remaining = %d, want 21", eval.Period.DaysRemaining)
	}
}

func TestEvaluateBudgetProjectedBreach(t *testing.T) {
	// 500 spent by day 10: projected 1550, well past 1.1x of 1000.
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	records := dailyRecords("EC2", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		50, 50, 50, 50, 50, 50, 50, 50, 50, 50)

	eval := testEngine().EvaluateBudget(testBudget(1000), records, now)
	if eval.Status != model.BudgetStatusCritical {
		t.Errorf("status = %q, want Critical", eval.Status)
	}
	found := false
	for _, alert := range eval.Alerts {
		if strings.Contains(alert, "projected") {
			found = true
		}
	}
	if !found {
		t.Error("missing projected breach alert")
	}
}

func TestEvaluateBudgetThresholds(t *testing.T) {
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	records := dailyRecords("EC2", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 850)

	// Unsorted with a duplicate; crossed thresholds fire once each, in order.
	eval := testEngine().EvaluateBudget(testBudget(1000, 80, 50, 80, 95), records, now)
	if len(eval.Alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d: %v", len(eval.Alerts), eval.Alerts)
	}
	if !strings.Contains(eval.Alerts[0], "50%") {
		t.Errorf("first alert should name the 50%% threshold: %q", eval.Alerts[0])
	}
	if !strings.Contains(eval.Alerts[1], "80%") {
		t.Errorf("second alert should name the 80%% threshold: %q", eval.Alerts[1])
	}
	if eval.Status != model.BudgetStatusWarning {
		t.Errorf("status = %q, want Warning", eval.Status)
	}
}

func TestEvaluateBudgetScopes(t *testing.T) {
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	records := dailyRecords("EC2", start, 100)
	records = append(records, dailyRecords("S3", start, 40)...)
	records[0].Category = "platform"

	tests := []struct {
		name  string
		scope model.BudgetScope
		want  float64
	}{
		{"global counts everything", model.BudgetScope{Type: model.BudgetScopeGlobal}, 140},
		{"service scope", model.BudgetScope{Type: model.BudgetScopeService, Value: "S3"}, 40},
		{"resource group scope", model.BudgetScope{Type: model.BudgetScopeResourceGroup, Value: "platform"}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBudget(1000)
			b.Scope = tt.scope
			eval := testEngine().EvaluateBudget(b, records, now)
			if eval.Metrics.ActualSpend != tt.want {
				t.Errorf("actual = %v, want %v", eval.Metrics.ActualSpend, tt.want)
			}
		})
	}
}

func TestEvaluateBudgetIgnoresOtherMonths(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	records := dailyRecords("EC2", time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), 500)
	records = append(records, dailyRecords("EC2", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 100)...)

	eval := testEngine().EvaluateBudget(testBudget(1000), records, now)
	if eval.Metrics.ActualSpend != 100 {
		t.Errorf("actual = %v, want 100 (February spend must not count)", eval.Metrics.ActualSpend)
	}
}
