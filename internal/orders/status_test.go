package orders

import "testing"

func TestOperationsRow(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusNew, StatusConfirmed, true},
		{StatusNew, StatusPrep, true},
		{StatusConfirmed, StatusPrep, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusPrep, StatusInTransit, true},
		{StatusPrep, StatusCancelled, true},

		{StatusNew, StatusDelivered, false}, // never directly
		{StatusNew, StatusInTransit, false},
		{StatusConfirmed, StatusInTransit, false}, // courier-only
		{StatusInTransit, StatusDelivered, false}, // courier-only
		{StatusInTransit, StatusCancelled, false},
	}
	for _, c := range cases {
		if got := CanTransition(RoleOperations, c.from, c.to); got != c.want {
			t.Errorf("operations %s -> %s = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCourierRow(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusNew, StatusConfirmed, true},
		{StatusNew, StatusPrep, true},
		{StatusConfirmed, StatusInTransit, true},
		{StatusPrep, StatusInTransit, true},
		{StatusInTransit, StatusDelivered, true},
		{StatusInTransit, StatusCancelled, true},

		{StatusConfirmed, StatusPrep, false},      // ops-only
		{StatusConfirmed, StatusCancelled, false}, // ops-only
		{StatusPrep, StatusCancelled, false},      // ops-only
		{StatusNew, StatusDelivered, false},
	}
	for _, c := range cases {
		if got := CanTransition(RoleCourier, c.from, c.to); got != c.want {
			t.Errorf("courier %s -> %s = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	all := []Status{StatusNew, StatusConfirmed, StatusPrep, StatusInTransit, StatusDelivered, StatusCancelled}
	for _, terminal := range []Status{StatusDelivered, StatusCancelled} {
		if !IsTerminal(terminal) {
			t.Fatalf("%s should be terminal", terminal)
		}
		for _, role := range []Role{RoleOperations, RoleCourier} {
			for _, to := range all {
				if CanTransition(role, terminal, to) {
					t.Errorf("%s allows %s -> %s", role, terminal, to)
				}
			}
		}
	}
}
