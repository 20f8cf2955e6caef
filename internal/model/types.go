// Package model contains the core domain entities for the cost analytics engine.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Currency represents monetary currency codes.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// Granularity represents time bucketing for aggregated cost data.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
)

// Valid reports whether the granularity is a supported bucket size.
func (g Granularity) Valid() bool {
	return g == GranularityDaily || g == GranularityMonthly
}

// Dimension is the breakdown dimension used to split aggregated periods.
type Dimension string

const (
	DimensionService  Dimension = "service"
	DimensionRegion   Dimension = "region"
	DimensionAccount  Dimension = "account"
	DimensionProvider Dimension = "provider"
)

// Valid reports whether the dimension is one of the supported breakdowns.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionService, DimensionRegion, DimensionAccount, DimensionProvider:
		return true
	}
	return false
}

// Severity represents anomaly severity levels.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// DateRange represents a time period.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains reports whether t falls inside the range; zero bounds are open.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// BaseEntity contains common fields for all persisted entities.
type BaseEntity struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewBaseEntity creates a new BaseEntity with generated ID and timestamps.
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
