package domain

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusCreated, StatusPaying, true},
		{StatusPaying, StatusPaid, true},
		{StatusPaying, StatusFailed, true},
		{StatusFailed, StatusPaying, true},
		{StatusPaid, StatusInPreparation, true},
		{StatusInPreparation, StatusReady, true},
		{StatusReady, StatusDelivered, true},
		{StatusCreated, StatusCancelled, true},
		{StatusPaid, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPaying, false},
		{StatusPaid, StatusPaying, false},
		{StatusCreated, StatusPaid, false},
		{StatusDelivered, StatusReady, false},
		{OrderStatus("bogus"), StatusPaying, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestReconciliationSourcesNeverDemote(t *testing.T) {
	for _, src := range ReconciliationSources(StatusPaying) {
		if src == StatusPaid || src == StatusFailed {
			t.Errorf("paying must not overwrite %s", src)
		}
	}
	for _, src := range ReconciliationSources(StatusFailed) {
		if src == StatusPaid {
			t.Error("failed must not overwrite paid")
		}
	}
}

func TestReconciliationSourcesIdempotent(t *testing.T) {
	for _, target := range []OrderStatus{StatusPaid, StatusFailed, StatusPaying} {
		found := false
		for _, src := range ReconciliationSources(target) {
			if src == target {
				found = true
			}
		}
		if !found {
			t.Errorf("%s must be reapplicable over itself", target)
		}
	}
}

func TestReconciliationSourcesLeaveFulfilmentAlone(t *testing.T) {
	fulfilment := []OrderStatus{StatusInPreparation, StatusReady, StatusDelivered, StatusCancelled}
	for _, target := range []OrderStatus{StatusPaid, StatusFailed, StatusPaying} {
		for _, src := range ReconciliationSources(target) {
			for _, f := range fulfilment {
				if src == f {
					t.Errorf("reconciliation to %s must not touch %s orders", target, f)
				}
			}
		}
	}
}
