package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/costlens/backend/internal/model"
)

const defaultHorizonDays = 30

// minFitPoints is the smallest history a regression can be fit on. Shorter
// histories fall back to a flat projection at the historical mean with a
// floor confidence score.
const minFitPoints = 3

const fallbackConfidence = 30

// ForecastScope projects one daily cost series horizonDays into the future
// using a least squares trend line. Bounds are prediction +/- z*residualSE,
// clamped so they never go negative and always bracket the prediction.
func (e *Engine) ForecastScope(records []*model.CostRecord, horizonDays int) *model.ScopeForecast {
	if horizonDays <= 0 {
		horizonDays = defaultHorizonDays
	}

	days, values := dailySeries(records)
	history := make([]model.HistoryPoint, len(days))
	for i := range days {
		history[i] = model.HistoryPoint{Date: days[i], ActualCost: values[i]}
	}

	out := &model.ScopeForecast{History: history, Forecast: []model.ForecastPoint{}}
	if len(values) == 0 {
		out.StatusBadge = model.StatusBadgeGood
		return out
	}

	lastDay, _ := time.Parse(dayKeyFormat, days[len(days)-1])

	if len(values) < minFitPoints {
		flat := mean(values)
		for i := 1; i <= horizonDays; i++ {
			date := lastDay.AddDate(0, 0, i).Format(dayKeyFormat)
			out.Forecast = append(out.Forecast, model.ForecastPoint{
				Date:          date,
				PredictedCost: flat,
				LowerBound:    flat,
				UpperBound:    flat,
			})
			out.TotalPredictedCost += flat
		}
		out.ConfidenceScore = fallbackConfidence
		out.GrowthPercentage = growthPct(values)
		out.StatusBadge = e.badge(out.GrowthPercentage)
		return out
	}

	fit := fitLine(values)
	band := e.policy.ConfidenceZ * fit.ResidualSE

	for i := 1; i <= horizonDays; i++ {
		pred := fit.predict(len(values) - 1 + i)
		if pred < 0 {
			pred = 0
		}
		lower := pred - band
		if lower < 0 {
			lower = 0
		}
		upper := pred + band
		out.Forecast = append(out.Forecast, model.ForecastPoint{
			Date:          lastDay.AddDate(0, 0, i).Format(dayKeyFormat),
			PredictedCost: pred,
			LowerBound:    lower,
			UpperBound:    upper,
		})
		out.TotalPredictedCost += pred
	}

	out.ConfidenceScore = confidenceScore(fit.ResidualSE, mean(values))
	out.GrowthPercentage = growthPct(values)
	out.StatusBadge = e.badge(out.GrowthPercentage)
	return out
}

// BuildReport produces the full forecasting payload: a global forecast, the
// top spending services forecast individually, and an executive summary.
func (e *Engine) BuildReport(records []*model.CostRecord, req model.ForecastRequest) *model.ForecastReport {
	horizon := req.HorizonDays
	if horizon <= 0 {
		horizon = defaultHorizonDays
	}
	topN := req.TopServices
	if topN <= 0 {
		topN = e.policy.TopServices
	}

	filter := req.Filter
	scoped := make([]*model.CostRecord, 0, len(records))
	for _, rec := range records {
		if filter.Matches(rec) {
			scoped = append(scoped, rec)
		}
	}

	global := e.ForecastScope(scoped, horizon)

	// Rank services by historical spend, forecast the top N.
	totals := make(map[string]float64)
	byService := make(map[string][]*model.CostRecord)
	for _, rec := range scoped {
		name := dimensionValue(rec, model.DimensionService)
		totals[name] += rec.Cost
		byService[name] = append(byService[name], rec)
	}
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if totals[names[i]] != totals[names[j]] {
			return totals[names[i]] > totals[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > topN {
		names = names[:topN]
	}

	services := make([]*model.ServiceForecast, 0, len(names))
	for _, name := range names {
		sf := e.ForecastScope(byService[name], horizon)
		services = append(services, &model.ServiceForecast{
			ServiceName:   name,
			ScopeForecast: *sf,
		})
	}

	return &model.ForecastReport{
		GlobalForecast:      global,
		TopServicesForecast: services,
		ExecutiveSummary:    e.summarize(global, services, horizon),
	}
}

func (e *Engine) summarize(global *model.ScopeForecast, services []*model.ServiceForecast, horizon int) model.ExecutiveSummary {
	summary := model.ExecutiveSummary{
		TotalPredictedCost: global.TotalPredictedCost,
		GrowthPercentage:   global.GrowthPercentage,
		StatusBadge:        global.StatusBadge,
		ConfidenceScore:    global.ConfidenceScore,
		Risks:              []string{},
		PeriodLabel:        fmt.Sprintf("Next %d Days", horizon),
	}

	if global.GrowthPercentage >= e.policy.GrowthCriticalPct {
		summary.Risks = append(summary.Risks,
			fmt.Sprintf("Overall spend is growing %.1f%%, above the critical band", global.GrowthPercentage))
	} else if global.GrowthPercentage >= e.policy.GrowthWarningPct {
		summary.Risks = append(summary.Risks,
			fmt.Sprintf("Overall spend is growing %.1f%%", global.GrowthPercentage))
	}
	for _, sf := range services {
		if sf.GrowthPercentage >= e.policy.GrowthCriticalPct {
			summary.Risks = append(summary.Risks,
				fmt.Sprintf("%s is growing %.1f%%", sf.ServiceName, sf.GrowthPercentage))
		}
	}
	if global.ConfidenceScore < 50 {
		summary.Risks = append(summary.Risks, "Forecast confidence is low; history is short or noisy")
	}

	return summary
}

// badge maps a growth percentage onto the dashboard status bands.
func (e *Engine) badge(growth float64) model.StatusBadge {
	switch {
	case growth > e.policy.GrowthCriticalPct:
		return model.StatusBadgeCritical
	case growth > e.policy.GrowthWarningPct:
		return model.StatusBadgeWarning
	default:
		return model.StatusBadgeGood
	}
}

// growthPct compares the trailing week against the week before it when at
// least 14 observations exist; shorter series compare the second half
// against the first.
func growthPct(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var prev, cur []float64
	if n >= 14 {
		prev = values[n-14 : n-7]
		cur = values[n-7:]
	} else {
		half := n / 2
		prev = values[:half]
		cur = values[half:]
	}
	return pctChange(mean(prev), mean(cur))
}

// confidenceScore converts the fit's residual error into a 0..100 score
// relative to the mean level of the series.
func confidenceScore(residualSE, m float64) float64 {
	if m <= 0 {
		return 0
	}
	return clamp(100*(1-residualSE/m), 0, 100)
}

// dailySeries collapses records into an ordered (day, total) series.
func dailySeries(records []*model.CostRecord) ([]string, []float64) {
	daily := make(map[string]float64)
	for _, rec := range records {
		daily[rec.UsageStartDate.Format(dayKeyFormat)] += rec.Cost
	}
	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)
	values := make([]float64, len(days))
	for i, d := range days {
		values[i] = daily[d]
	}
	return days, values
}
