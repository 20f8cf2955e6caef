package model

// TopDriverInsight names the largest breakdown entry and its share.
type TopDriverInsight struct {
	Name            string  `json:"name"`
	TotalCost       float64 `json:"total_cost"`
	PctOfGrandTotal float64 `json:"pct_of_grand_total"`
}

// GrowthInsight names the fastest-growing breakdown entry.
type GrowthInsight struct {
	Name         string  `json:"name"`
	GrowthPct    float64 `json:"growth_pct"`
	CurrentCost  float64 `json:"current_cost"`
	PreviousCost float64 `json:"previous_cost"`
}

// ChangeInsight is the week-over-week change of total spend.
type ChangeInsight struct {
	ChangePct    float64 `json:"change_pct"`
	CurrentCost  float64 `json:"current_cost"`
	PreviousCost float64 `json:"previous_cost"`
}

// Insights are best-effort derived facts over aggregator output. A nil field
// means the data was insufficient for that insight, never an error.
type Insights struct {
	TopDriver      *TopDriverInsight `json:"top_driver,omitempty"`
	FastestGrowing *GrowthInsight    `json:"fastest_growing,omitempty"`
	SpendChange    *ChangeInsight    `json:"spend_change,omitempty"`
	Messages       []string          `json:"messages"`
}
