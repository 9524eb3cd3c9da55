package model

import "testing"

func TestStatusRankMonotonic(t *testing.T) {
	order := []Status{StatusQueued, StatusGenerating, StatusContentReady, StatusReady}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Errorf("Rank(%s)=%d not greater than Rank(%s)=%d",
				order[i], order[i].Rank(), order[i-1], order[i-1].Rank())
		}
	}
	if !(StatusError.Rank() > StatusReady.Rank()) {
		t.Error("error must rank above all pipeline states")
	}
}

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusQueued, StatusGenerating, true},
		{StatusGenerating, StatusContentReady, true},
		{StatusContentReady, StatusReady, true},
		{StatusQueued, StatusError, true},
		{StatusGenerating, StatusError, true},
		{StatusContentReady, StatusError, true},
		// No backward or skipping moves.
		{StatusGenerating, StatusQueued, false},
		{StatusQueued, StatusContentReady, false},
		{StatusQueued, StatusReady, false},
		{StatusGenerating, StatusReady, false},
		// Terminal states are absorbing.
		{StatusReady, StatusError, false},
		{StatusError, StatusGenerating, false},
		{StatusError, StatusError, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
