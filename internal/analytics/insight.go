package analytics

import (
	"fmt"
	"sort"

	"github.com/costlens/backend/internal/model"
)

// GenerateInsights derives headline facts from the record set: the largest
// cost driver, the fastest-growing service, and the week-over-week change of
// total spend. Each insight is independent; insufficient data for one leaves
// it nil without affecting the others.
func (e *Engine) GenerateInsights(records []*model.CostRecord) *model.Insights {
	insights := &model.Insights{Messages: []string{}}
	if len(records) == 0 {
		return insights
	}

	insights.TopDriver = topDriver(records)
	insights.FastestGrowing = e.fastestGrowing(records)
	insights.SpendChange = spendChange(records)

	if insights.TopDriver != nil {
		insights.Messages = append(insights.Messages,
			fmt.Sprintf("%s is your largest cost driver at %.1f%% of total spend",
				insights.TopDriver.Name, insights.TopDriver.PctOfGrandTotal))
	}
	if insights.FastestGrowing != nil {
		insights.Messages = append(insights.Messages,
			fmt.Sprintf("%s is growing fastest, up %.1f%% over the previous period",
				insights.FastestGrowing.Name, insights.FastestGrowing.GrowthPct))
	}
	if insights.SpendChange != nil {
		direction := "up"
		pct := insights.SpendChange.ChangePct
		if pct < 0 {
			direction = "down"
			pct = -pct
		}
		insights.Messages = append(insights.Messages,
			fmt.Sprintf("Total spend is %s %.1f%% week over week", direction, pct))
	}

	return insights
}

func topDriver(records []*model.CostRecord) *model.TopDriverInsight {
	totals := make(map[string]float64)
	var grand float64
	for _, rec := range records {
		name := dimensionValue(rec, model.DimensionService)
		totals[name] += rec.Cost
		grand += rec.Cost
	}
	if grand <= 0 {
		return nil
	}

	var top string
	for name, cost := range totals {
		if top == "" || cost > totals[top] || (cost == totals[top] && name < top) {
			top = name
		}
	}
	return &model.TopDriverInsight{
		Name:            top,
		TotalCost:       totals[top],
		PctOfGrandTotal: totals[top] / grand * 100,
	}
}

// fastestGrowing compares each service's spend in the second half of the
// observed span against the first half. Services whose current spend is
// below the policy floor are skipped so tiny absolute movements do not
// dominate the ranking.
func (e *Engine) fastestGrowing(records []*model.CostRecord) *model.GrowthInsight {
	span := recordSpan(records)
	mid := span.Start.Add(span.End.Sub(span.Start) / 2)

	prev := make(map[string]float64)
	cur := make(map[string]float64)
	for _, rec := range records {
		name := dimensionValue(rec, model.DimensionService)
		if rec.UsageStartDate.After(mid) {
			cur[name] += rec.Cost
		} else {
			prev[name] += rec.Cost
		}
	}

	names := make([]string, 0, len(cur))
	for name := range cur {
		names = append(names, name)
	}
	sort.Strings(names)

	var best *model.GrowthInsight
	for _, name := range names {
		if cur[name] < e.policy.MinGrowthSpend {
			continue
		}
		growth := pctChange(prev[name], cur[name])
		if growth <= 0 {
			continue
		}
		if best == nil || growth > best.GrowthPct {
			best = &model.GrowthInsight{
				Name:         name,
				GrowthPct:    growth,
				CurrentCost:  cur[name],
				PreviousCost: prev[name],
			}
		}
	}
	return best
}

// spendChange compares the trailing 7 days of data against the 7 days
// before them. Requires at least some spend in the earlier window.
func spendChange(records []*model.CostRecord) *model.ChangeInsight {
	end := recordSpan(records).End
	weekAgo := end.AddDate(0, 0, -7)
	twoWeeksAgo := end.AddDate(0, 0, -14)

	var cur, prev float64
	for _, rec := range records {
		d := rec.UsageStartDate
		switch {
		case d.After(weekAgo):
			cur += rec.Cost
		case d.After(twoWeeksAgo):
			prev += rec.Cost
		}
	}
	if prev == 0 {
		return nil
	}
	return &model.ChangeInsight{
		ChangePct:    pctChange(prev, cur),
		CurrentCost:  cur,
		PreviousCost: prev,
	}
}
