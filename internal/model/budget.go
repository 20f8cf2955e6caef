package model

import (
	"time"
)

// BudgetPeriod represents budget time periods.
type BudgetPeriod string

const (
	BudgetPeriodMonthly BudgetPeriod = "monthly"
)

// Valid reports whether the period is a supported budget cycle.
func (p BudgetPeriod) Valid() bool {
	return p == BudgetPeriodMonthly
}

// BudgetScopeType selects which spend a budget covers.
type BudgetScopeType string

const (
	BudgetScopeGlobal        BudgetScopeType = "global"
	BudgetScopeService       BudgetScopeType = "service"
	BudgetScopeResourceGroup BudgetScopeType = "resource_group"
)

// Valid reports whether the scope type is one of the supported kinds.
func (t BudgetScopeType) Valid() bool {
	switch t {
	case BudgetScopeGlobal, BudgetScopeService, BudgetScopeResourceGroup:
		return true
	}
	return false
}

// BudgetScope narrows a budget to a slice of spend.
type BudgetScope struct {
	Type  BudgetScopeType `json:"type"`
	Value string          `json:"value,omitempty"`
}

// Budget represents a configured spending limit. Amount and thresholds are
// mutable; the evaluator never writes back to the budget.
type Budget struct {
	BaseEntity
	Name       string       `json:"name" db:"name"`
	Amount     float64      `json:"amount" db:"amount"`
	Scope      BudgetScope  `json:"scope" db:"scope"`
	Thresholds []float64    `json:"thresholds" db:"thresholds"`
	Period     BudgetPeriod `json:"period" db:"period"`
}

// BudgetCreateRequest represents a request to create a budget.
type BudgetCreateRequest struct {
	Name       string       `json:"name" validate:"required,min=1,max=255"`
	Amount     float64      `json:"amount" validate:"required,gt=0"`
	Scope      BudgetScope  `json:"scope"`
	Thresholds []float64    `json:"thresholds" validate:"omitempty,dive,gt=0,lte=200"`
	Period     BudgetPeriod `json:"period"`
}

// BudgetUpdateRequest represents a request to update a budget.
type BudgetUpdateRequest struct {
	Name       *string   `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Amount     *float64  `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Thresholds []float64 `json:"thresholds,omitempty" validate:"omitempty,dive,gt=0,lte=200"`
}

// BudgetStatus is the evaluated health of a budget.
type BudgetStatus string

const (
	BudgetStatusGood     BudgetStatus = "Good"
	BudgetStatusWarning  BudgetStatus = "Warning"
	BudgetStatusCritical BudgetStatus = "Critical"
)

// BudgetPeriodInfo describes the evaluation window.
type BudgetPeriodInfo struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DaysElapsed   int       `json:"days_elapsed"`
	DaysRemaining int       `json:"days_remaining"`
}

// BudgetMetrics are the computed spend figures for one evaluation.
type BudgetMetrics struct {
	ActualSpend     float64 `json:"actual_spend"`
	PctConsumed     float64 `json:"pct_consumed"`
	TotalProjected  float64 `json:"total_projected"`
	PctProjected    float64 `json:"pct_projected"`
	RemainingAmount float64 `json:"remaining_amount"`
}

// BudgetEvaluation is the evaluator output for one budget.
type BudgetEvaluation struct {
	Budget  *Budget          `json:"budget"`
	Status  BudgetStatus     `json:"status"`
	Period  BudgetPeriodInfo `json:"period"`
	Metrics BudgetMetrics    `json:"metrics"`
	Alerts  []string         `json:"alerts"`
}
