package model

import "testing"

func TestAnomalyStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to AnomalyStatus
		want     bool
	}{
		{AnomalyStatusNew, AnomalyStatusAcknowledged, true},
		{AnomalyStatusAcknowledged, AnomalyStatusResolved, true},
		{AnomalyStatusAcknowledged, AnomalyStatusIgnored, true},
		{AnomalyStatusNew, AnomalyStatusResolved, false},
		{AnomalyStatusNew, AnomalyStatusIgnored, false},
		{AnomalyStatusResolved, AnomalyStatusAcknowledged, false},
		{AnomalyStatusIgnored, AnomalyStatusAcknowledged, false},
		{AnomalyStatusResolved, AnomalyStatusNew, false},
		{AnomalyStatusNew, AnomalyStatusNew, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAnomalyStatusValid(t *testing.T) {
	for _, s := range []AnomalyStatus{AnomalyStatusNew, AnomalyStatusAcknowledged, AnomalyStatusResolved, AnomalyStatusIgnored} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if AnomalyStatus("open").Valid() {
		t.Error("unknown status should be invalid")
	}
}
