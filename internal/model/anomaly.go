package model

import (
	"time"
)

// AnomalyStatus represents the operator-facing anomaly lifecycle.
type AnomalyStatus string

const (
	AnomalyStatusNew          AnomalyStatus = "new"
	AnomalyStatusAcknowledged AnomalyStatus = "acknowledged"
	AnomalyStatusResolved     AnomalyStatus = "resolved"
	AnomalyStatusIgnored      AnomalyStatus = "ignored"
)

// Valid reports whether the status is a known lifecycle state.
func (s AnomalyStatus) Valid() bool {
	switch s {
	case AnomalyStatusNew, AnomalyStatusAcknowledged, AnomalyStatusResolved, AnomalyStatusIgnored:
		return true
	}
	return false
}

// anomalyTransitions is the validated transition table:
// new -> acknowledged -> {resolved, ignored}. Terminal states stay terminal;
// a re-triggered scope produces a fresh anomaly on a different date instead.
var anomalyTransitions = map[AnomalyStatus][]AnomalyStatus{
	AnomalyStatusNew:          {AnomalyStatusAcknowledged},
	AnomalyStatusAcknowledged: {AnomalyStatusResolved, AnomalyStatusIgnored},
}

// CanTransition reports whether from -> to is an allowed status change.
func (s AnomalyStatus) CanTransition(to AnomalyStatus) bool {
	for _, next := range anomalyTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Anomaly represents a detected cost anomaly for one (date, scope) pair.
// Re-detection upserts: occurrences already present keep their status.
type Anomaly struct {
	BaseEntity
	Date          time.Time     `json:"date" db:"date"`
	ScopeKey      string        `json:"scope_key" db:"scope_key"`
	DetectedValue float64       `json:"detected_value" db:"detected_value"`
	ExpectedValue float64       `json:"expected_value" db:"expected_value"`
	DeviationPct  float64       `json:"deviation_percentage" db:"deviation_pct"`
	Severity      Severity      `json:"severity" db:"severity"`
	Status        AnomalyStatus `json:"status" db:"status"`
	Message       string        `json:"message" db:"message"`
	DetectedAt    time.Time     `json:"detected_at" db:"detected_at"`
	AcknowledgedAt *time.Time   `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	ResolvedAt     *time.Time   `json:"resolved_at,omitempty" db:"resolved_at"`
}

// AnomalyFilter defines filtering options for anomaly queries.
type AnomalyFilter struct {
	Status   AnomalyStatus
	Severity Severity
	Limit    int
}

// AnomalySummary provides the dashboard header counts.
type AnomalySummary struct {
	TotalAnomalies int        `json:"total_anomalies"`
	HighSeverity   int        `json:"high_severity"`
	MediumSeverity int        `json:"medium_severity"`
	Status         string     `json:"status"`
	LastDetected   *time.Time `json:"last_detected,omitempty"`
}

// DetectionRequest parameterizes an anomaly detection run.
type DetectionRequest struct {
	// Scope dimension the series are built per; defaults to service.
	Scope Dimension `json:"scope,omitempty"`
	// WindowDays limits the trailing window; 0 means the whole stored period.
	WindowDays int `json:"window_days,omitempty" validate:"omitempty,min=0,max=365"`
}

// DetectionResult summarizes one detection run.
type DetectionResult struct {
	TotalDetected int        `json:"total_detected"`
	Stored        int        `json:"stored"`
	Anomalies     []*Anomaly `json:"anomalies"`
}
