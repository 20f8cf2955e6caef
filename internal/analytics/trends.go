package analytics

import (
	"sort"
	"time"

	"github.com/costlens/backend/internal/model"
)

const (
	dayKeyFormat   = "2006-01-02"
	monthKeyFormat = "2006-01"
)

// autoGranularitySpanDays is the cutover from daily to monthly buckets when
// the caller did not pick a granularity.
const autoGranularitySpanDays = 60

// dimensionValue extracts the breakdown label for a record. Records without
// a value for the dimension fall into an explicit "unknown" bucket so the
// aggregation invariant (total == sum of breakdown) still holds.
func dimensionValue(rec *model.CostRecord, dim model.Dimension) string {
	var v string
	switch dim {
	case model.DimensionRegion:
		v = rec.Region
	case model.DimensionAccount:
		v = rec.CloudAccountID
	case model.DimensionProvider:
		v = rec.Provider
	default:
		v = rec.ServiceName
	}
	if v == "" {
		return "unknown"
	}
	return v
}

// Aggregate groups records into ordered time buckets with a per-dimension
// breakdown. Buckets with no matching records are omitted: the series is
// sparse, not zero-filled, which downstream anomaly detection and
// forecasting must take into account.
func (e *Engine) Aggregate(records []*model.CostRecord, params model.TrendParams) *model.TrendResult {
	dim := params.Breakdown
	if !dim.Valid() {
		dim = model.DimensionService
	}

	// Equality filters apply before any date logic so that the reported
	// full span reflects the filtered data set.
	scoped := make([]*model.CostRecord, 0, len(records))
	filter := params.Filter
	filter.DateRange = model.DateRange{}
	for _, rec := range records {
		if filter.Matches(rec) {
			scoped = append(scoped, rec)
		}
	}

	if len(scoped) == 0 {
		return &model.TrendResult{Trends: []model.AggregatedPeriod{}, Summary: model.TrendSummary{}}
	}

	fullSpan := recordSpan(scoped)

	window := params.DateRange
	detectedMonth := ""
	switch {
	case !window.IsZero():
		// Explicit range wins over month selection.
	case params.Month == "all":
		window = fullSpan
	case params.Month != "":
		if m, err := time.Parse(monthKeyFormat, params.Month); err == nil {
			window = monthWindow(m)
		} else {
			window = fullSpan
		}
	default:
		// "Latest" request: the most recent calendar month present.
		window = monthWindow(fullSpan.End)
		detectedMonth = fullSpan.End.Format(monthKeyFormat)
	}

	gran := params.Granularity
	if !gran.Valid() {
		gran = model.GranularityDaily
		if window.End.Sub(window.Start) > autoGranularitySpanDays*24*time.Hour {
			gran = model.GranularityMonthly
		}
	}

	keyFormat := dayKeyFormat
	if gran == model.GranularityMonthly {
		keyFormat = monthKeyFormat
	}

	type bucket struct {
		total     float64
		count     int
		breakdown map[string]float64
	}
	buckets := make(map[string]*bucket)

	for _, rec := range scoped {
		if !window.Contains(rec.UsageStartDate) {
			continue
		}
		key := rec.UsageStartDate.Format(keyFormat)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{breakdown: make(map[string]float64)}
			buckets[key] = b
		}
		b.total += rec.Cost
		b.count++
		b.breakdown[dimensionValue(rec, dim)] += rec.Cost
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	// Both key formats sort chronologically as strings.
	sort.Strings(keys)

	trends := make([]model.AggregatedPeriod, 0, len(keys))
	var total float64
	for _, k := range keys {
		b := buckets[k]
		entries := make([]model.BreakdownEntry, 0, len(b.breakdown))
		for name, cost := range b.breakdown {
			entries = append(entries, model.BreakdownEntry{Name: name, Cost: cost})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Cost != entries[j].Cost {
				return entries[i].Cost > entries[j].Cost
			}
			return entries[i].Name < entries[j].Name
		})

		trends = append(trends, model.AggregatedPeriod{
			PeriodKey:   k,
			TotalCost:   b.total,
			Breakdown:   entries,
			RecordCount: b.count,
		})
		total += b.total
	}

	// Period-over-period change annotations.
	for i := 1; i < len(trends); i++ {
		change := pctChange(trends[i-1].TotalCost, trends[i].TotalCost)
		trends[i].ChangePercentage = &change
	}

	summary := model.TrendSummary{
		TotalCost:    total,
		PeriodsCount: len(trends),
		DateRange:    &fullSpan,
	}
	if len(trends) > 0 {
		summary.AverageCost = total / float64(len(trends))
	}

	return &model.TrendResult{
		Trends:        trends,
		Summary:       summary,
		DetectedMonth: detectedMonth,
	}
}

// recordSpan returns the min/max usage_start_date across records.
func recordSpan(records []*model.CostRecord) model.DateRange {
	span := model.DateRange{Start: records[0].UsageStartDate, End: records[0].UsageStartDate}
	for _, rec := range records[1:] {
		if rec.UsageStartDate.Before(span.Start) {
			span.Start = rec.UsageStartDate
		}
		if rec.UsageStartDate.After(span.End) {
			span.End = rec.UsageStartDate
		}
	}
	return span
}

// monthWindow returns the calendar month containing t.
func monthWindow(t time.Time) model.DateRange {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return model.DateRange{Start: start, End: end}
}

// FilterOptions lists the distinct values available for equality filters,
// sorted for stable dropdowns.
func FilterOptions(records []*model.CostRecord) map[string][]string {
	sets := map[string]map[string]struct{}{
		"services":  {},
		"regions":   {},
		"accounts":  {},
		"providers": {},
	}
	for _, rec := range records {
		if rec.ServiceName != "" {
			sets["services"][rec.ServiceName] = struct{}{}
		}
		if rec.Region != "" {
			sets["regions"][rec.Region] = struct{}{}
		}
		if rec.CloudAccountID != "" {
			sets["accounts"][rec.CloudAccountID] = struct{}{}
		}
		if rec.Provider != "" {
			sets["providers"][rec.Provider] = struct{}{}
		}
	}

	out := make(map[string][]string, len(sets))
	for name, set := range sets {
		vals := make([]string, 0, len(set))
		for v := range set {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		out[name] = vals
	}
	return out
}
