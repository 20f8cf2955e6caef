package model

import (
	"time"
)

// CostRecord represents an individual normalized billing record. Records are
// immutable once ingested; a re-upload supersedes rather than mutates them.
type CostRecord struct {
	BaseEntity
	Provider       string    `json:"provider" db:"provider"`
	CloudAccountID string    `json:"cloud_account_id,omitempty" db:"cloud_account_id"`
	ServiceName    string    `json:"service_name" db:"service_name"`
	Region         string    `json:"region,omitempty" db:"region"`
	Cost           float64   `json:"cost" db:"cost"`
	Currency       Currency  `json:"currency" db:"currency"`
	UsageStartDate time.Time `json:"usage_start_date" db:"usage_start_date"`
	UsageEndDate   time.Time `json:"usage_end_date" db:"usage_end_date"`
	Category       string    `json:"category,omitempty" db:"category"`
}

// CostFilter defines equality filters and a date window for record queries.
type CostFilter struct {
	DateRange DateRange `json:"date_range"`
	Provider  string    `json:"provider,omitempty"`
	AccountID string    `json:"account_id,omitempty"`
	Region    string    `json:"region,omitempty"`
	Service   string    `json:"service,omitempty"`
}

// Matches reports whether a record passes all set filters.
func (f CostFilter) Matches(rec *CostRecord) bool {
	if !f.DateRange.Contains(rec.UsageStartDate) {
		return false
	}
	if f.Provider != "" && rec.Provider != f.Provider {
		return false
	}
	if f.AccountID != "" && rec.CloudAccountID != f.AccountID {
		return false
	}
	if f.Region != "" && rec.Region != f.Region {
		return false
	}
	if f.Service != "" && rec.ServiceName != f.Service {
		return false
	}
	return true
}

// BreakdownEntry is one dimension value's share of a period total.
// The JSON key stays "service_name" for every dimension; the dashboard
// renders whatever label the chosen breakdown produced.
type BreakdownEntry struct {
	Name string  `json:"service_name"`
	Cost float64 `json:"cost"`
}

// AggregatedPeriod is a transient per-bucket view over cost records for one
// breakdown dimension. TotalCost always equals the sum of Breakdown costs.
type AggregatedPeriod struct {
	PeriodKey        string           `json:"period"`
	TotalCost        float64          `json:"total_cost"`
	Breakdown        []BreakdownEntry `json:"breakdown"`
	RecordCount      int              `json:"record_count"`
	ChangePercentage *float64         `json:"change_percentage,omitempty"`
}

// TrendParams parameterizes a trend aggregation request.
type TrendParams struct {
	DateRange   DateRange
	Breakdown   Dimension
	Granularity Granularity
	// Month selects a single calendar month (YYYY-MM), "all" for the full
	// span, or empty for the most recent month present in the data.
	Month  string
	Filter CostFilter
}

// TrendSummary accompanies a trend series.
type TrendSummary struct {
	TotalCost    float64    `json:"total_cost"`
	AverageCost  float64    `json:"average_cost"`
	PeriodsCount int        `json:"periods_count"`
	DateRange    *DateRange `json:"date_range"`
}

// TrendResult is the aggregator output: an ordered sparse series plus
// summary statistics. DetectedMonth is set when the month was auto-selected,
// and DateRange in the summary always covers the full unfiltered span so a
// caller can offer month navigation without a second round trip.
type TrendResult struct {
	Trends        []AggregatedPeriod `json:"trends"`
	Summary       TrendSummary       `json:"summary"`
	DetectedMonth string             `json:"detected_month,omitempty"`
}
