package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/costlens/backend/internal/model"
)

// DetectAnomalies builds one daily series per scope value and flags days
// whose cost exceeds mean + k*stddev over that series. Series with fewer
// than 2 points or zero variance produce nothing. The caller is responsible
// for persisting the result; storage keeps the status of occurrences it has
// already seen.
func (e *Engine) DetectAnomalies(records []*model.CostRecord, req model.DetectionRequest) []*model.Anomaly {
	scope := req.Scope
	if !scope.Valid() {
		scope = model.DimensionService
	}

	windowDays := req.WindowDays
	if windowDays == 0 {
		windowDays = e.policy.DetectionWindowDays
	}
	if windowDays > 0 && len(records) > 0 {
		cutoff := recordSpan(records).End.AddDate(0, 0, -windowDays)
		trimmed := make([]*model.CostRecord, 0, len(records))
		for _, rec := range records {
			if !rec.UsageStartDate.Before(cutoff) {
				trimmed = append(trimmed, rec)
			}
		}
		records = trimmed
	}

	// scope value -> day key -> total cost
	series := make(map[string]map[string]float64)
	for _, rec := range records {
		key := dimensionValue(rec, scope)
		day := rec.UsageStartDate.Format(dayKeyFormat)
		if series[key] == nil {
			series[key] = make(map[string]float64)
		}
		series[key][day] += rec.Cost
	}

	scopeKeys := make([]string, 0, len(series))
	for k := range series {
		scopeKeys = append(scopeKeys, k)
	}
	sort.Strings(scopeKeys)

	now := time.Now().UTC()
	var anomalies []*model.Anomaly
	for _, scopeKey := range scopeKeys {
		daily := series[scopeKey]
		days := make([]string, 0, len(daily))
		for d := range daily {
			days = append(days, d)
		}
		sort.Strings(days)

		values := make([]float64, len(days))
		for i, d := range days {
			values[i] = daily[d]
		}
		if len(values) < 2 {
			continue
		}

		m := mean(values)
		sd := stdDev(values)
		if sd == 0 {
			continue
		}
		threshold := m + e.policy.ThresholdMultiplier*sd

		for i, v := range values {
			if v <= threshold {
				continue
			}
			date, err := time.Parse(dayKeyFormat, days[i])
			if err != nil {
				continue
			}
			a := &model.Anomaly{
				BaseEntity:    model.NewBaseEntity(),
				Date:          date,
				ScopeKey:      scopeKey,
				DetectedValue: v,
				ExpectedValue: m,
				DeviationPct:  deviationPct(v, m),
				Severity:      e.classifySeverity(v, m, sd),
				Status:        model.AnomalyStatusNew,
				DetectedAt:    now,
			}
			a.Message = fmt.Sprintf("%s cost of %.2f on %s exceeds expected %.2f by %.1f%%",
				scopeKey, v, days[i], m, a.DeviationPct)
			anomalies = append(anomalies, a)
		}
	}

	e.logger.Info("anomaly detection completed",
		"scope", string(scope),
		"series", len(series),
		"detected", len(anomalies))

	return anomalies
}

// classifySeverity grades a flagged point by how many standard deviations it
// sits above the mean.
func (e *Engine) classifySeverity(value, m, sd float64) model.Severity {
	sigmas := (value - m) / sd
	switch {
	case sigmas >= e.policy.HighSigma:
		return model.SeverityHigh
	case sigmas >= e.policy.MediumSigma:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// deviationPct is the percentage above the expected value. A zero expected
// value maps to 100 to keep the figure meaningful for brand-new scopes.
func deviationPct(detected, expected float64) float64 {
	if expected == 0 {
		if detected > 0 {
			return 100
		}
		return 0
	}
	return (detected - expected) / expected * 100
}

// SummarizeAnomalies rolls up stored anomalies into the dashboard header.
func SummarizeAnomalies(anomalies []*model.Anomaly) model.AnomalySummary {
	s := model.AnomalySummary{TotalAnomalies: len(anomalies)}
	for _, a := range anomalies {
		switch a.Severity {
		case model.SeverityHigh:
			s.HighSeverity++
		case model.SeverityMedium:
			s.MediumSeverity++
		}
		if s.LastDetected == nil || a.DetectedAt.After(*s.LastDetected) {
			t := a.DetectedAt
			s.LastDetected = &t
		}
	}
	switch {
	case s.HighSeverity > 0:
		s.Status = "critical"
	case s.MediumSeverity > 0:
		s.Status = "warning"
	default:
		s.Status = "normal"
	}
	return s
}
