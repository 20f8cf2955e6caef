package model

// StatusBadge classifies forecast growth for the dashboard header.
type StatusBadge string

const (
	StatusBadgeGood     StatusBadge = "Good"
	StatusBadgeWarning  StatusBadge = "Warning"
	StatusBadgeCritical StatusBadge = "Critical"
)

// ForecastPoint is a single projected day. Bounds always bracket the
// prediction: LowerBound <= PredictedCost <= UpperBound.
type ForecastPoint struct {
	Date          string  `json:"date"`
	PredictedCost float64 `json:"predicted_cost"`
	LowerBound    float64 `json:"lower_bound"`
	UpperBound    float64 `json:"upper_bound"`
}

// HistoryPoint is one observed day of the historical window.
type HistoryPoint struct {
	Date       string  `json:"date"`
	ActualCost float64 `json:"actual_cost"`
}

// ScopeForecast is the projection for one scope (global or a single service).
type ScopeForecast struct {
	History            []HistoryPoint  `json:"history"`
	Forecast           []ForecastPoint `json:"forecast"`
	TotalPredictedCost float64         `json:"total_predicted_cost"`
	GrowthPercentage   float64         `json:"growth_percentage"`
	ConfidenceScore    float64         `json:"confidence_score"`
	StatusBadge        StatusBadge     `json:"status_badge"`
}

// ServiceForecast pairs a scope forecast with its service name.
type ServiceForecast struct {
	ServiceName string `json:"service_name"`
	ScopeForecast
}

// ExecutiveSummary is the derived forecast-plus-risk digest for a scope.
type ExecutiveSummary struct {
	TotalPredictedCost float64     `json:"total_predicted_cost"`
	GrowthPercentage   float64     `json:"growth_percentage"`
	StatusBadge        StatusBadge `json:"status_badge"`
	ConfidenceScore    float64     `json:"confidence_score"`
	Risks              []string    `json:"risks"`
	PeriodLabel        string      `json:"period_label"`
}

// ForecastReport is the full forecasting endpoint payload.
type ForecastReport struct {
	GlobalForecast      *ScopeForecast     `json:"global_forecast"`
	TopServicesForecast []*ServiceForecast `json:"top_services_forecast"`
	ExecutiveSummary    ExecutiveSummary   `json:"executive_summary"`
}

// ForecastRequest parameterizes a forecast run.
type ForecastRequest struct {
	HorizonDays int       `json:"horizon_days" validate:"omitempty,oneof=30 60 90"`
	TopServices int       `json:"top_services" validate:"omitempty,min=0,max=10"`
	Filter      CostFilter `json:"-"`
}
