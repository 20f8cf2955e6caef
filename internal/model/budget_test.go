package model

import "testing"

func TestBudgetScopeTypeValid(t *testing.T) {
	for _, s := range []BudgetScopeType{BudgetScopeGlobal, BudgetScopeService, BudgetScopeResourceGroup} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []BudgetScopeType{"", "sevice", "account"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestBudgetPeriodValid(t *testing.T) {
	if !BudgetPeriodMonthly.Valid() {
		t.Error("monthly should be valid")
	}
	for _, p := range []BudgetPeriod{"", "weekly", "Monthly"} {
		if p.Valid() {
			t.Errorf("%q should be invalid", p)
		}
	}
}
