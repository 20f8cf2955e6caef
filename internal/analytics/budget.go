package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/costlens/backend/internal/model"
)

// projectedBreachFactor marks a budget critical once the run-rate projection
// exceeds the amount by this factor, even before actual spend crosses it.
const projectedBreachFactor = 1.1

// EvaluateBudget computes the health of one budget against the calendar
// month containing now. Projection is a linear run rate: spend so far scaled
// to the full month. The evaluation never mutates the budget.
func (e *Engine) EvaluateBudget(budget *model.Budget, records []*model.CostRecord, now time.Time) *model.BudgetEvaluation {
	now = now.UTC()
	period := monthWindow(now)
	daysInMonth := period.End.Day()
	daysElapsed := now.Day()

	var actual float64
	for _, rec := range records {
		if !period.Contains(rec.UsageStartDate) {
			continue
		}
		if !budgetScopeMatches(budget.Scope, rec) {
			continue
		}
		actual += rec.Cost
	}

	projected := actual
	if daysElapsed > 0 && daysElapsed < daysInMonth {
		projected = actual / float64(daysElapsed) * float64(daysInMonth)
	}

	var pctConsumed, pctProjected float64
	if budget.Amount > 0 {
		pctConsumed = actual / budget.Amount * 100
		pctProjected = projected / budget.Amount * 100
	}

	eval := &model.BudgetEvaluation{
		Budget: budget,
		Period: model.BudgetPeriodInfo{
			Start:         period.Start,
			End:           period.End,
			DaysElapsed:   daysElapsed,
			DaysRemaining: daysInMonth - daysElapsed,
		},
		Metrics: model.BudgetMetrics{
			ActualSpend:     actual,
			PctConsumed:     pctConsumed,
			TotalProjected:  projected,
			PctProjected:    pctProjected,
			RemainingAmount: budget.Amount - actual,
		},
		Alerts: []string{},
	}

	// Threshold alerts fire for every crossed threshold, sorted ascending
	// and deduplicated.
	thresholds := append([]float64(nil), budget.Thresholds...)
	sort.Float64s(thresholds)
	var last float64 = -1
	for _, t := range thresholds {
		if t == last {
			continue
		}
		last = t
		if pctConsumed >= t {
			eval.Alerts = append(eval.Alerts,
				fmt.Sprintf("Spend has reached %.1f%% of budget %q (threshold %.0f%%)", pctConsumed, budget.Name, t))
		}
	}
	projectedBreach := projected >= budget.Amount*projectedBreachFactor
	if projectedBreach && pctConsumed < 100 {
		eval.Alerts = append(eval.Alerts,
			fmt.Sprintf("Budget %q is projected to reach %.1f%% of its amount this month", budget.Name, pctProjected))
	}

	switch {
	case pctConsumed >= 100 || projectedBreach:
		eval.Status = model.BudgetStatusCritical
	case len(eval.Alerts) > 0:
		eval.Status = model.BudgetStatusWarning
	default:
		eval.Status = model.BudgetStatusGood
	}

	return eval
}

// EvaluateBudgets evaluates every budget over the same record set.
func (e *Engine) EvaluateBudgets(budgets []*model.Budget, records []*model.CostRecord, now time.Time) []*model.BudgetEvaluation {
	out := make([]*model.BudgetEvaluation, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, e.EvaluateBudget(b, records, now))
	}
	return out
}

// budgetScopeMatches reports whether a record's spend counts against the
// scope. Resource group budgets match on the record's category.
func budgetScopeMatches(scope model.BudgetScope, rec *model.CostRecord) bool {
	switch scope.Type {
	case model.BudgetScopeService:
		return rec.ServiceName == scope.Value
	case model.BudgetScopeResourceGroup:
		return rec.Category == scope.Value
	default:
		return true
	}
}
